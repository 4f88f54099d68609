package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"roofmart/internal/model"
)

const profileColumns = `id, email, full_name, phone, password_hash, is_admin, created_at, updated_at`

type AuthService struct {
	db *sql.DB
}

func NewAuthService(db *sql.DB) *AuthService {
	return &AuthService{db: db}
}

type Registration struct {
	Email    string
	Password string
	FullName string
	Phone    string
	IsAdmin  bool
}

func (s *AuthService) Register(ctx context.Context, r Registration) (*model.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(r.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if len(r.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (email, full_name, phone, password_hash, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+profileColumns,
		email, r.FullName, r.Phone, hash, r.IsAdmin,
	)

	p, err := scanProfile(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrLoginExists
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return p, nil
}

func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)))

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return p, nil
}

func (s *AuthService) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	p, err := scanProfile(s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *AuthService) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return profiles, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, id, fullName, phone string) (*model.Profile, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE profiles SET full_name = $2, phone = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+profileColumns, id, fullName, phone)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

// IsAdmin reads the current admin flag. A missing profile is not an admin.
func (s *AuthService) IsAdmin(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var admin bool
	err := s.db.QueryRowContext(ctx, `SELECT is_admin FROM profiles WHERE id = $1`, id).Scan(&admin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check admin: %w", err)
	}
	return admin, nil
}

func (s *AuthService) SetAdmin(ctx context.Context, id string, admin bool) error {
	if !validID(id) {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET is_admin = $2, updated_at = NOW() WHERE id = $1`, id, admin)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *AuthService) DeleteProfile(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.PasswordHash, &p.IsAdmin, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

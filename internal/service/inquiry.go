package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"roofmart/internal/model"
)

const inquiryColumns = `id, name, email, phone, subject, message, handled, created_at, updated_at`

type InquiryService struct {
	db *sql.DB
}

func NewInquiryService(db *sql.DB) *InquiryService {
	return &InquiryService{db: db}
}

func ValidateInquiry(in *model.ContactInquiry) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Message = strings.TrimSpace(in.Message)
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case !strings.Contains(in.Email, "@"):
		return fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	case in.Message == "":
		return fmt.Errorf("%w: message is required", ErrInvalidInput)
	case len(in.Message) > 5000:
		return fmt.Errorf("%w: message is too long", ErrInvalidInput)
	}
	return nil
}

func (s *InquiryService) Create(ctx context.Context, in model.ContactInquiry) (*model.ContactInquiry, error) {
	if err := ValidateInquiry(&in); err != nil {
		return nil, err
	}
	in.ID = uuid.NewString()
	in.Handled = false
	now := time.Now().UTC()
	in.CreatedAt, in.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contact_inquiries (`+inquiryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		in.ID, in.Name, in.Email, in.Phone, in.Subject, in.Message, in.Handled, in.CreatedAt, in.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert inquiry: %w", err)
	}
	return &in, nil
}

// List returns inquiries newest first; handled filters when non-nil.
func (s *InquiryService) List(ctx context.Context, handled *bool) ([]model.ContactInquiry, error) {
	var filter sql.NullBool
	if handled != nil {
		filter = sql.NullBool{Bool: *handled, Valid: true}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+inquiryColumns+` FROM contact_inquiries
		WHERE ($1::boolean IS NULL OR handled = $1)
		ORDER BY created_at DESC`, filter)
	if err != nil {
		return nil, fmt.Errorf("query inquiries: %w", err)
	}
	defer rows.Close()

	var inquiries []model.ContactInquiry
	for rows.Next() {
		var in model.ContactInquiry
		if err := rows.Scan(&in.ID, &in.Name, &in.Email, &in.Phone, &in.Subject, &in.Message, &in.Handled, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inquiry: %w", err)
		}
		inquiries = append(inquiries, in)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return inquiries, nil
}

func (s *InquiryService) Get(ctx context.Context, id string) (*model.ContactInquiry, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var in model.ContactInquiry
	err := s.db.QueryRowContext(ctx, `SELECT `+inquiryColumns+` FROM contact_inquiries WHERE id = $1`, id).
		Scan(&in.ID, &in.Name, &in.Email, &in.Phone, &in.Subject, &in.Message, &in.Handled, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get inquiry: %w", err)
	}
	return &in, nil
}

func (s *InquiryService) MarkHandled(ctx context.Context, id string, handled bool) error {
	if !validID(id) {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE contact_inquiries SET handled = $2, updated_at = NOW() WHERE id = $1`, id, handled)
	if err != nil {
		return fmt.Errorf("mark inquiry: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *InquiryService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM contact_inquiries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete inquiry: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

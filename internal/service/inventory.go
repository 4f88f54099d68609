package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"roofmart/internal/model"
)

const inventoryColumns = `id, sku, name, location, quantity, version, created_at, updated_at`

// AnyVersion skips the version check in Adjust.
const AnyVersion = -1

type InventoryService struct {
	db *sql.DB
}

func NewInventoryService(db *sql.DB) *InventoryService {
	return &InventoryService{db: db}
}

func (s *InventoryService) Add(ctx context.Context, sku, name, location string, quantity int) (*model.InventoryItem, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: sku and name are required", ErrInvalidInput)
	}
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity is negative", ErrInvalidInput)
	}

	now := time.Now().UTC()
	item := &model.InventoryItem{
		ID:        uuid.NewString(),
		SKU:       sku,
		Name:      name,
		Location:  location,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_items (`+inventoryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.SKU, item.Name, item.Location, item.Quantity, item.Version, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: sku %s already exists", ErrInvalidInput, sku)
		}
		return nil, fmt.Errorf("insert inventory item: %w", err)
	}
	return item, nil
}

func (s *InventoryService) List(ctx context.Context) ([]model.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+inventoryColumns+` FROM inventory_items ORDER BY sku ASC`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		var it model.InventoryItem
		if err := rows.Scan(&it.ID, &it.SKU, &it.Name, &it.Location, &it.Quantity, &it.Version, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		items = append(items, it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return items, nil
}

func (s *InventoryService) Get(ctx context.Context, sku string) (*model.InventoryItem, error) {
	var it model.InventoryItem
	err := s.db.QueryRowContext(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE sku = $1`,
		strings.ToUpper(strings.TrimSpace(sku))).
		Scan(&it.ID, &it.SKU, &it.Name, &it.Location, &it.Quantity, &it.Version, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get inventory item: %w", err)
	}
	return &it, nil
}

// Adjust adds delta (which may be negative) to the stock of sku. When
// expectedVersion is not AnyVersion the row must still be at that version.
func (s *InventoryService) Adjust(ctx context.Context, sku string, delta, expectedVersion int) (*model.InventoryItem, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: delta must not be zero", ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var it model.InventoryItem
	err = tx.QueryRowContext(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE sku = $1 FOR UPDATE`,
		strings.ToUpper(strings.TrimSpace(sku))).
		Scan(&it.ID, &it.SKU, &it.Name, &it.Location, &it.Quantity, &it.Version, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get inventory item: %w", err)
	}

	if expectedVersion != AnyVersion && expectedVersion != it.Version {
		return nil, fmt.Errorf("%w: sku %s is at version %d", ErrOptimisticLock, it.SKU, it.Version)
	}
	if it.Quantity+delta < 0 {
		return nil, fmt.Errorf("%w: sku %s has %d", ErrInsufficientStock, it.SKU, it.Quantity)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE inventory_items
		SET quantity = quantity + $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $3 AND quantity + $2 >= 0`,
		it.ID, delta, it.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("update inventory: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return nil, ErrOptimisticLock
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	it.Quantity += delta
	it.Version++
	it.UpdatedAt = time.Now().UTC()
	return &it, nil
}

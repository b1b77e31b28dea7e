package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/storage"
)

// cartRepository корзина хранится одной строкой на пользователя, строки корзины в JSONB
type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) storage.CartStorage {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart := &models.Cart{}
	var items []byte
	row := r.db.QueryRowContext(ctx,
		"SELECT user_id, items, total_items, total_amount, version, updated_at FROM carts WHERE user_id = $1", userID)
	if err := row.Scan(&cart.UserID, &items, &cart.TotalItems, &cart.TotalAmount, &cart.Version, &cart.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if err := json.Unmarshal(items, &cart.Items); err != nil {
		return nil, fmt.Errorf("failed to decode cart items: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return cart, nil
}

// CreateCart вставляет пустую корзину; уникальность user_id гарантирует одну корзину на пользователя
func (r *cartRepository) CreateCart(ctx context.Context, cart *models.Cart) error {
	items, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("failed to encode cart items: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO carts (user_id, items, total_items, total_amount, version, updated_at)
		 VALUES ($1, $2, $3, $4, 1, $5)`,
		cart.UserID, items, cart.TotalItems, cart.TotalAmount, cart.UpdatedAt)
	if err != nil {
		if sqlState(err) == codeUniqueViolation {
			return storage.ErrCartExists
		}
		return fmt.Errorf("failed to create cart: %w", err)
	}
	cart.Version = 1
	return nil
}

func (r *cartRepository) UpdateCart(ctx context.Context, cart *models.Cart, expectedVersion int64) error {
	items, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("failed to encode cart items: %w", err)
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE carts SET items = $1, total_items = $2, total_amount = $3, version = version + 1, updated_at = $4
		 WHERE user_id = $5 AND version = $6`,
		items, cart.TotalItems, cart.TotalAmount, now, cart.UserID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrVersionConflict
	}
	cart.Version = expectedVersion + 1
	cart.UpdatedAt = now
	return nil
}

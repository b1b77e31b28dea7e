package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/jewelry-shop/internal/storage"
	"github.com/shopspring/decimal"
)

type metalPriceRepository struct {
	db *sql.DB
}

func NewMetalPriceRepository(db *sql.DB) storage.MetalPriceStorage {
	return &metalPriceRepository{db: db}
}

func (r *metalPriceRepository) GetPricePerGram(ctx context.Context, metalType, purity string) (decimal.Decimal, error) {
	var price decimal.Decimal
	row := r.db.QueryRowContext(ctx, "SELECT price_per_gram FROM metal_prices WHERE metal_type = $1 AND purity = $2", metalType, purity)
	if err := row.Scan(&price); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, storage.ErrMetalPriceNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to get metal price: %w", err)
	}
	return price, nil
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/storage"
	"github.com/shopspring/decimal"
)

// catalogRepository товары и варианты; металлы и камни лежат в JSONB
type catalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) storage.CatalogStorage {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product := &models.Product{}
	var metals, gemstones []byte

	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, category_id, making_charge, metals, gemstones, is_active, stock_quantity, total_price, updated_at
		FROM products
		WHERE id = $1`, id)
	if err := row.Scan(
		&product.ID, &product.Name, &product.CategoryID, &product.MakingCharge, &metals, &gemstones,
		&product.IsActive, &product.StockQuantity, &product.TotalPrice, &product.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if err := json.Unmarshal(metals, &product.Metals); err != nil {
		return nil, fmt.Errorf("failed to decode product metals: %w", err)
	}
	if err := json.Unmarshal(gemstones, &product.Gemstones); err != nil {
		return nil, fmt.Errorf("failed to decode product gemstones: %w", err)
	}

	variants, err := r.getVariants(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Variants = variants
	return product, nil
}

func (r *catalogRepository) getVariants(ctx context.Context, productID string) ([]models.Variant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, stock_quantity, making_charge, metals, total_price
		FROM product_variants
		WHERE product_id = $1
		ORDER BY position`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	var variants []models.Variant
	for rows.Next() {
		var v models.Variant
		var metals []byte
		if err := rows.Scan(&v.ID, &v.Name, &v.StockQuantity, &v.MakingCharge, &metals, &v.TotalPrice); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		if err := json.Unmarshal(metals, &v.Metals); err != nil {
			return nil, fmt.Errorf("failed to decode variant metals: %w", err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return variants, nil
}

// UpdateCachedPrices обновляет цены товара и вариантов в одной транзакции
func (r *catalogRepository) UpdateCachedPrices(ctx context.Context, productID string, productTotal decimal.Decimal, variantTotals map[string]decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, "UPDATE products SET total_price = $1, updated_at = NOW() WHERE id = $2", productTotal, productID)
	if err != nil {
		return fmt.Errorf("failed to update product price: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrProductNotFound
	}

	// порядок обновления фиксирован, чтобы транзакции не блокировали друг друга
	variantIDs := make([]string, 0, len(variantTotals))
	for id := range variantTotals {
		variantIDs = append(variantIDs, id)
	}
	sort.Strings(variantIDs)

	for _, variantID := range variantIDs {
		if _, err := tx.ExecContext(ctx,
			"UPDATE product_variants SET total_price = $1 WHERE product_id = $2 AND id = $3",
			variantTotals[variantID], productID, variantID,
		); err != nil {
			return fmt.Errorf("failed to update variant price: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReserveStock списывает остаток одним условным UPDATE, без чтения перед записью
func (r *catalogRepository) ReserveStock(ctx context.Context, productID, variantID string, quantity int) error {
	var (
		res sql.Result
		err error
	)
	if variantID == "" {
		res, err = r.db.ExecContext(ctx,
			"UPDATE products SET stock_quantity = stock_quantity - $1 WHERE id = $2 AND stock_quantity >= $1",
			quantity, productID)
	} else {
		res, err = r.db.ExecContext(ctx,
			"UPDATE product_variants SET stock_quantity = stock_quantity - $1 WHERE product_id = $2 AND id = $3 AND stock_quantity >= $1",
			quantity, productID, variantID)
	}
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrInsufficientStock
	}
	return nil
}

func (r *catalogRepository) ReleaseStock(ctx context.Context, productID, variantID string, quantity int) error {
	var (
		res sql.Result
		err error
	)
	if variantID == "" {
		res, err = r.db.ExecContext(ctx,
			"UPDATE products SET stock_quantity = stock_quantity + $1 WHERE id = $2",
			quantity, productID)
	} else {
		res, err = r.db.ExecContext(ctx,
			"UPDATE product_variants SET stock_quantity = stock_quantity + $1 WHERE product_id = $2 AND id = $3",
			quantity, productID, variantID)
	}
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrProductNotFound
	}
	return nil
}

func (r *catalogRepository) DeactivateProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrProductNotFound
	}
	return nil
}

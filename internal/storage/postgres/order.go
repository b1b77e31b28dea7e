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

const orderColumns = `id, user_id, items, subtotal, tax, shipping, total, currency, shipping_address,
	status, payment, history, invoice_url, stock_reserved, checkout_key, version, created_at, updated_at`

// orderRepository заказ хранится документом: снимок товаров, оплата и журнал в JSONB
type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) storage.OrderStorage {
	return &orderRepository{db: db}
}

// CreateOrder вставляет новый заказ в таблицу orders.
func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}
	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to encode shipping address: %w", err)
	}
	payment, err := json.Marshal(order.Payment)
	if err != nil {
		return fmt.Errorf("failed to encode payment: %w", err)
	}
	history, err := json.Marshal(order.History)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1, $16, $17)`
	_, err = r.db.ExecContext(ctx, query,
		order.ID, order.UserID, items, order.Subtotal, order.Tax, order.Shipping, order.Total, order.Currency, address,
		string(order.Status), payment, history, order.InvoiceURL, order.StockReserved, order.CheckoutKey,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	order.Version = 1
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	var items, address, payment, history []byte
	var status string
	if err := row.Scan(
		&order.ID, &order.UserID, &items, &order.Subtotal, &order.Tax, &order.Shipping, &order.Total,
		&order.Currency, &address, &status, &payment, &history, &order.InvoiceURL, &order.StockReserved,
		&order.CheckoutKey, &order.Version, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return nil, err
	}
	order.Status = models.OrderStatus(status)
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	if err := json.Unmarshal(address, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to decode shipping address: %w", err)
	}
	if err := json.Unmarshal(payment, &order.Payment); err != nil {
		return nil, fmt.Errorf("failed to decode payment: %w", err)
	}
	if err := json.Unmarshal(history, &order.History); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return order, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// GetOrdersByUserID возвращает список заказов пользователя, новые первыми
func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID string) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrder пишет только статус, оплату, журнал и флаг резерва; состав заказа не меняется
func (r *orderRepository) UpdateOrder(ctx context.Context, order *models.Order, expectedVersion int64) error {
	payment, err := json.Marshal(order.Payment)
	if err != nil {
		return fmt.Errorf("failed to encode payment: %w", err)
	}
	history, err := json.Marshal(order.History)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, payment = $2, history = $3, stock_reserved = $4, version = version + 1, updated_at = $5
		 WHERE id = $6 AND version = $7`,
		string(order.Status), payment, history, order.StockReserved, now, order.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrVersionConflict
	}
	order.Version = expectedVersion + 1
	order.UpdatedAt = now
	return nil
}

// SetInvoiceURL условная запись: ссылка ставится только поверх пустой
func (r *orderRepository) SetInvoiceURL(ctx context.Context, orderID, url string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET invoice_url = $1, updated_at = NOW() WHERE id = $2 AND invoice_url = ''", url, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to set invoice url: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)", orderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check order: %w", err)
	}
	if !exists {
		return false, storage.ErrOrderNotFound
	}
	return false, nil
}

package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnavailable       = errors.New("unavailable")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidState      = errors.New("invalid state")
	ErrEmptyOrder        = errors.New("no order lines left after revalidation")
	ErrRenderingFailure  = errors.New("invoice rendering failed")
	ErrInvalidInput      = errors.New("invalid input")
	// ErrTimeout операция не уложилась в отведённое время, запрос можно повторить
	ErrTimeout = errors.New("operation timed out")
)

// StockError сообщает покупателю, по какой строке и сколько товара осталось
type StockError struct {
	ProductID string
	VariantID string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s variant %s: available %d, requested %d",
		e.ProductID, e.VariantID, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

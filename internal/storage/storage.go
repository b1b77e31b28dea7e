package storage

import (
	"context"
	"errors"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrMetalPriceNotFound = errors.New("metal price not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrCartNotFound       = errors.New("cart not found")
	ErrCartExists         = errors.New("cart already exists")
	ErrOrderNotFound      = errors.New("order not found")
	// ErrVersionConflict документ изменён другим запросом после чтения
	ErrVersionConflict = errors.New("version conflict")
)

// UserStorage чтение пользователей из внешнего хранилища
type UserStorage interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// MetalPriceStorage справочник цен на металлы, только чтение
type MetalPriceStorage interface {
	// GetPricePerGram возвращает ErrMetalPriceNotFound, если пары нет в справочнике.
	GetPricePerGram(ctx context.Context, metalType, purity string) (decimal.Decimal, error)
}

// CatalogStorage описывает методы для работы с каталогом.
// Пустой variantID означает остаток самого товара (товар без вариантов).
type CatalogStorage interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	// UpdateCachedPrices сохраняет рассчитанные цены товара и его вариантов.
	UpdateCachedPrices(ctx context.Context, productID string, productTotal decimal.Decimal, variantTotals map[string]decimal.Decimal) error
	// ReserveStock атомарно уменьшает остаток, только если его хватает. Иначе ErrInsufficientStock.
	ReserveStock(ctx context.Context, productID, variantID string, quantity int) error
	ReleaseStock(ctx context.Context, productID, variantID string, quantity int) error
	DeactivateProduct(ctx context.Context, id string) error
}

// CartStorage хранение корзин. UpdateCart пишет только при совпадении версии.
type CartStorage interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	CreateCart(ctx context.Context, cart *models.Cart) error
	// UpdateCart сохраняет корзину, если её версия равна expectedVersion, и увеличивает cart.Version.
	UpdateCart(ctx context.Context, cart *models.Cart, expectedVersion int64) error
}

// OrderStorage хранение заказов
type OrderStorage interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	// GetOrdersByUserID возвращает заказы пользователя, новые первыми.
	GetOrdersByUserID(ctx context.Context, userID string) ([]*models.Order, error)
	// UpdateOrder сохраняет изменяемые поля заказа при совпадении версии и увеличивает order.Version.
	UpdateOrder(ctx context.Context, order *models.Order, expectedVersion int64) error
	// SetInvoiceURL записывает ссылку только если она ещё пустая. false - ссылка уже была.
	SetInvoiceURL(ctx context.Context, orderID, url string) (bool, error)
}

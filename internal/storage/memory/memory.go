// Package memory хранилище в памяти процесса для локального запуска и тестов.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/storage"
	"github.com/shopspring/decimal"
)

var (
	_ storage.CatalogStorage    = (*Storage)(nil)
	_ storage.MetalPriceStorage = (*Storage)(nil)
	_ storage.UserStorage       = (*Storage)(nil)
	_ storage.CartStorage       = (*Storage)(nil)
	_ storage.OrderStorage      = (*Storage)(nil)
)

type metalKey struct {
	metalType string
	purity    string
}

// Storage реализует все интерфейсы хранилища. Документы хранятся копиями,
// наружу тоже отдаются копии.
type Storage struct {
	mu       sync.RWMutex
	products map[string]*models.Product
	prices   map[metalKey]models.MetalPrice
	users    map[string]*models.User
	carts    map[string]*models.Cart
	orders   map[string]*models.Order
}

func New() *Storage {
	return &Storage{
		products: make(map[string]*models.Product),
		prices:   make(map[metalKey]models.MetalPrice),
		users:    make(map[string]*models.User),
		carts:    make(map[string]*models.Cart),
		orders:   make(map[string]*models.Order),
	}
}

// PutProduct добавляет или заменяет товар
func (s *Storage) PutProduct(p *models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p.Clone()
}

// DeleteProduct удаляет товар из каталога
func (s *Storage) DeleteProduct(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

func (s *Storage) PutUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

func (s *Storage) SetMetalPrice(metalType, purity string, pricePerGram decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[metalKey{metalType, purity}] = models.MetalPrice{
		MetalType:    metalType,
		Purity:       purity,
		PricePerGram: pricePerGram,
		UpdatedAt:    time.Now().UTC(),
	}
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Storage) GetPricePerGram(ctx context.Context, metalType, purity string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[metalKey{metalType, purity}]
	if !ok {
		return decimal.Zero, storage.ErrMetalPriceNotFound
	}
	return p.PricePerGram, nil
}

func (s *Storage) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return p.Clone(), nil
}

func (s *Storage) UpdateCachedPrices(ctx context.Context, productID string, productTotal decimal.Decimal, variantTotals map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return storage.ErrProductNotFound
	}
	p.TotalPrice = productTotal
	for i := range p.Variants {
		if total, ok := variantTotals[p.Variants[i].ID]; ok {
			p.Variants[i].TotalPrice = total
		}
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// stockRef возвращает указатель на остаток товара или варианта
func (s *Storage) stockRef(productID, variantID string) (*int, error) {
	p, ok := s.products[productID]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	if variantID == "" {
		return &p.StockQuantity, nil
	}
	v, ok := p.FindVariant(variantID)
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return &v.StockQuantity, nil
}

func (s *Storage) ReserveStock(ctx context.Context, productID, variantID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stock, err := s.stockRef(productID, variantID)
	if err != nil {
		return err
	}
	if *stock < quantity {
		return storage.ErrInsufficientStock
	}
	*stock -= quantity
	return nil
}

func (s *Storage) ReleaseStock(ctx context.Context, productID, variantID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stock, err := s.stockRef(productID, variantID)
	if err != nil {
		return err
	}
	*stock += quantity
	return nil
}

func (s *Storage) DeactivateProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return storage.ErrProductNotFound
	}
	p.IsActive = false
	return nil
}

func (s *Storage) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carts[userID]
	if !ok {
		return nil, storage.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (s *Storage) CreateCart(ctx context.Context, cart *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[cart.UserID]; ok {
		return storage.ErrCartExists
	}
	cart.Version = 1
	s.carts[cart.UserID] = cart.Clone()
	return nil
}

func (s *Storage) UpdateCart(ctx context.Context, cart *models.Cart, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.carts[cart.UserID]
	if !ok {
		return storage.ErrCartNotFound
	}
	if current.Version != expectedVersion {
		return storage.ErrVersionConflict
	}
	cart.Version = expectedVersion + 1
	cart.UpdatedAt = time.Now().UTC()
	s.carts[cart.UserID] = cart.Clone()
	return nil
}

func (s *Storage) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order.Version = 1
	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *Storage) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (s *Storage) GetOrdersByUserID(ctx context.Context, userID string) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var orders []*models.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			orders = append(orders, o.Clone())
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// UpdateOrder меняет только изменяемые поля, состав заказа остаётся прежним
func (s *Storage) UpdateOrder(ctx context.Context, order *models.Order, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.orders[order.ID]
	if !ok {
		return storage.ErrOrderNotFound
	}
	if current.Version != expectedVersion {
		return storage.ErrVersionConflict
	}
	updated := current.Clone()
	updated.Status = order.Status
	updated.Payment = order.Clone().Payment
	updated.History = append([]models.HistoryEntry(nil), order.History...)
	updated.StockReserved = order.StockReserved
	updated.UpdatedAt = time.Now().UTC()
	updated.Version = expectedVersion + 1
	s.orders[order.ID] = updated
	order.Version = updated.Version
	order.UpdatedAt = updated.UpdatedAt
	return nil
}

func (s *Storage) SetInvoiceURL(ctx context.Context, orderID, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return false, storage.ErrOrderNotFound
	}
	if o.InvoiceURL != "" {
		return false, nil
	}
	o.InvoiceURL = url
	return true, nil
}

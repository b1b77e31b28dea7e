package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/storage"
)

type CartService interface {
	GetOrCreate(ctx context.Context, userID string) (*models.Cart, error)
	AddItem(ctx context.Context, userID, productID, variantID string, quantity int) (*models.Cart, error)
	UpdateItem(ctx context.Context, userID, productID, variantID string, quantity int) (*models.Cart, error)
	Clear(ctx context.Context, userID string) (*models.Cart, error)
	Cleanup(ctx context.Context, userID string) (*models.Cart, error)
}

type cartService struct {
	log         *slog.Logger
	carts       storage.CartStorage
	catalog     storage.CatalogStorage
	engine      *Engine
	maxAttempts int
}

func NewCartService(log *slog.Logger, carts storage.CartStorage, catalog storage.CatalogStorage, engine *Engine, maxAttempts int) CartService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultUpdateAttempts
	}
	return &cartService{
		log:         log,
		carts:       carts,
		catalog:     catalog,
		engine:      engine,
		maxAttempts: maxAttempts,
	}
}

// GetOrCreate возвращает корзину пользователя, создавая пустую при первом обращении
func (s *cartService) GetOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	const op = "service.CartService.GetOrCreate"

	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		s.log.Error("failed to get cart", slog.String("op", op), slog.String("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cart, nil
}

func (s *cartService) getOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, storage.ErrCartNotFound) {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	cart = models.NewCart(userID)
	err = s.carts.CreateCart(ctx, cart)
	switch {
	case err == nil:
		return cart, nil
	case errors.Is(err, storage.ErrCartExists):
		// корзину создал параллельный запрос, берём её
		return s.carts.GetCart(ctx, userID)
	default:
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
}

// mutate применяет изменение к свежей копии корзины и пишет её с проверкой версии
func (s *cartService) mutate(ctx context.Context, userID string, fn func(cart *models.Cart) error) (*models.Cart, error) {
	var result *models.Cart
	err := retryOnConflict(ctx, s.maxAttempts, func() error {
		cart, err := s.getOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		expected := cart.Version
		if err := fn(cart); err != nil {
			return err
		}
		cart.Recalculate()
		if err := s.carts.UpdateCart(ctx, cart, expected); err != nil {
			return err
		}
		result = cart
		return nil
	})
	return result, err
}

// AddItem добавляет единицу в корзину. Повторное добавление той же пары складывает количество
// и не меняет зафиксированную цену.
func (s *cartService) AddItem(ctx context.Context, userID, productID, variantID string, quantity int) (*models.Cart, error) {
	const op = "service.CartService.AddItem"
	logger := s.log.With(
		slog.String("op", op),
		slog.String("userID", userID),
		slog.String("productID", productID),
		slog.String("variantID", variantID),
		slog.Int("quantity", quantity),
	)
	logger.Info("adding item to cart")

	if quantity < 1 {
		return nil, fmt.Errorf("%s: quantity must be at least 1: %w", op, ErrInvalidInput)
	}

	unit, err := resolveUnit(ctx, s.catalog, productID, variantID)
	if err != nil {
		logger.Warn("item rejected", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cart, err := s.mutate(ctx, userID, func(cart *models.Cart) error {
		if err := unit.checkStock(cart.QuantityOf(productID, variantID) + quantity); err != nil {
			return err
		}
		if idx := cart.FindItem(productID, variantID); idx >= 0 {
			cart.Items[idx].Quantity += quantity
			return nil
		}

		price, err := unit.currentPrice(ctx, s.engine)
		if err != nil {
			return err
		}
		cart.Items = append(cart.Items, models.CartItem{
			ProductID:       productID,
			VariantID:       variantID,
			Name:            unit.DisplayName(),
			PriceAtPurchase: price,
			Quantity:        quantity,
		})
		return nil
	})
	if err != nil {
		var stockErr *StockError
		if errors.As(err, &stockErr) {
			logger.Warn("insufficient stock", slog.Int("available", stockErr.Available), slog.Int("requested", stockErr.Requested))
		} else {
			logger.Error("failed to add item", slog.Any("error", err))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("item added", slog.Int("total_items", cart.TotalItems))
	return cart, nil
}

// UpdateItem задаёт новое количество строки; 0 удаляет строку
func (s *cartService) UpdateItem(ctx context.Context, userID, productID, variantID string, quantity int) (*models.Cart, error) {
	const op = "service.CartService.UpdateItem"
	logger := s.log.With(
		slog.String("op", op),
		slog.String("userID", userID),
		slog.String("productID", productID),
		slog.String("variantID", variantID),
		slog.Int("quantity", quantity),
	)

	if quantity < 0 {
		return nil, fmt.Errorf("%s: quantity must not be negative: %w", op, ErrInvalidInput)
	}

	cart, err := s.mutate(ctx, userID, func(cart *models.Cart) error {
		idx := cart.FindItem(productID, variantID)
		if idx < 0 {
			return fmt.Errorf("cart line %s/%s: %w", productID, variantID, ErrNotFound)
		}
		if quantity == 0 {
			cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
			return nil
		}

		unit, err := resolveUnit(ctx, s.catalog, productID, variantID)
		if err != nil {
			return err
		}
		if err := unit.checkStock(quantity); err != nil {
			return err
		}
		cart.Items[idx].Quantity = quantity
		return nil
	})
	if err != nil {
		logger.Warn("failed to update item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("cart item updated")
	return cart, nil
}

// Clear очищает корзину, сама корзина остаётся
func (s *cartService) Clear(ctx context.Context, userID string) (*models.Cart, error) {
	const op = "service.CartService.Clear"
	logger := s.log.With(slog.String("op", op), slog.String("userID", userID))

	cart, err := s.mutate(ctx, userID, func(cart *models.Cart) error {
		cart.Items = []models.CartItem{}
		return nil
	})
	if err != nil {
		logger.Error("failed to clear cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("cart cleared")
	return cart, nil
}

// Cleanup выбрасывает строки, которые больше не проходят проверку, и обновляет цены оставшихся.
// Ошибки инфраструктуры по отдельной строке не мешают остальным: строка остаётся как была.
func (s *cartService) Cleanup(ctx context.Context, userID string) (*models.Cart, error) {
	const op = "service.CartService.Cleanup"
	logger := s.log.With(slog.String("op", op), slog.String("userID", userID))

	cart, err := s.mutate(ctx, userID, func(cart *models.Cart) error {
		kept := make([]models.CartItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			unit, err := resolveUnit(ctx, s.catalog, item.ProductID, item.VariantID)
			if err != nil {
				if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) {
					logger.Info("dropping cart line", slog.String("productID", item.ProductID), slog.Any("reason", err))
					continue
				}
				logger.Warn("failed to revalidate cart line", slog.String("productID", item.ProductID), slog.Any("error", err))
				kept = append(kept, item)
				continue
			}
			if unit.checkStock(item.Quantity) != nil {
				logger.Info("dropping cart line", slog.String("productID", item.ProductID), slog.String("reason", "insufficient stock"))
				continue
			}
			if price, err := unit.currentPrice(ctx, s.engine); err == nil {
				item.PriceAtPurchase = price
				item.Name = unit.DisplayName()
			}
			kept = append(kept, item)
		}
		cart.Items = kept
		return nil
	})
	if err != nil {
		logger.Error("failed to clean up cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("cart cleaned up", slog.Int("lines", len(cart.Items)))
	return cart, nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/storage"
	"github.com/shopspring/decimal"
)

// purchasableUnit товар или его вариант, то, что реально покупается
type purchasableUnit struct {
	product *models.Product
	variant *models.Variant
}

// resolveUnit проверяет товар и вариант по правилам корзины.
// У товара без вариантов variantID должен совпадать с productID.
func resolveUnit(ctx context.Context, catalog storage.CatalogStorage, productID, variantID string) (purchasableUnit, error) {
	product, err := catalog.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return purchasableUnit{}, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return purchasableUnit{}, fmt.Errorf("failed to get product: %w", err)
	}
	if !product.IsActive {
		return purchasableUnit{}, fmt.Errorf("product %s is inactive: %w", productID, ErrUnavailable)
	}

	if !product.HasVariants() {
		if variantID != productID {
			return purchasableUnit{}, fmt.Errorf("variant %s of product %s: %w", variantID, productID, ErrNotFound)
		}
		return purchasableUnit{product: product}, nil
	}

	variant, ok := product.FindVariant(variantID)
	if !ok {
		return purchasableUnit{}, fmt.Errorf("variant %s of product %s: %w", variantID, productID, ErrNotFound)
	}
	return purchasableUnit{product: product, variant: variant}, nil
}

// VariantID идентификатор, который видит покупатель
func (u purchasableUnit) VariantID() string {
	if u.variant != nil {
		return u.variant.ID
	}
	return u.product.ID
}

// stockVariantID пустой для товара без вариантов, как ждёт хранилище
func (u purchasableUnit) stockVariantID() string {
	if u.variant != nil {
		return u.variant.ID
	}
	return ""
}

func (u purchasableUnit) Stock() int {
	if u.variant != nil {
		return u.variant.StockQuantity
	}
	return u.product.StockQuantity
}

func (u purchasableUnit) CachedPrice() decimal.Decimal {
	if u.variant != nil {
		return u.variant.TotalPrice
	}
	return u.product.TotalPrice
}

func (u purchasableUnit) DisplayName() string {
	if u.variant != nil {
		return u.product.Name + " — " + u.variant.Name
	}
	return u.product.Name
}

// checkStock requested - итоговое количество пары в корзине или заказе
func (u purchasableUnit) checkStock(requested int) error {
	if requested > u.Stock() {
		return &StockError{
			ProductID: u.product.ID,
			VariantID: u.VariantID(),
			Available: u.Stock(),
			Requested: requested,
		}
	}
	return nil
}

// currentPrice кешированная цена, а если её ещё не считали - живой расчёт
func (u purchasableUnit) currentPrice(ctx context.Context, engine *Engine) (decimal.Decimal, error) {
	if price := u.CachedPrice(); price.IsPositive() {
		return price, nil
	}
	b, err := engine.UnitBreakdown(ctx, u.product, u.variant)
	if err != nil {
		return decimal.Zero, err
	}
	return b.RoundedTotal, nil
}

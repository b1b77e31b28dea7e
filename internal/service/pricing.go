package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/storage"
	"github.com/shopspring/decimal"
)

// DefaultTaxPercent налог, если в конфигурации не задан другой
const DefaultTaxPercent = 3

var hundred = decimal.NewFromInt(100)

// PriceBreakdown расчёт цены одной единицы покупки
type PriceBreakdown struct {
	UnitID       string          `json:"unitId"`
	MetalCost    decimal.Decimal `json:"metalCost"`
	GemstoneCost decimal.Decimal `json:"gemstoneCost"`
	MakingCharge decimal.Decimal `json:"makingCharge"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
	RoundedTotal decimal.Decimal `json:"roundedTotal"`
}

// Engine считает цену из веса металлов, камней и стоимости работы.
// Ничего не кеширует: каждый расчёт заново читает справочные цены.
type Engine struct {
	log           *slog.Logger
	prices        storage.MetalPriceStorage
	taxPercent    decimal.Decimal
	lookupTimeout time.Duration
}

func NewEngine(log *slog.Logger, prices storage.MetalPriceStorage, taxPercent decimal.Decimal, lookupTimeout time.Duration) *Engine {
	return &Engine{
		log:           log,
		prices:        prices,
		taxPercent:    taxPercent,
		lookupTimeout: lookupTimeout,
	}
}

// Breakdown считает цену единицы. Неизвестная пара металл/проба даёт 0 и предупреждение в логе.
func (e *Engine) Breakdown(ctx context.Context, unitID string, metals []models.MetalComponent, gemstones []models.Gemstone, makingCharge decimal.Decimal) (PriceBreakdown, error) {
	const op = "service.Engine.Breakdown"

	metalCost := decimal.Zero
	for _, metal := range metals {
		price, err := e.pricePerGram(ctx, metal.Type, metal.Purity)
		if err != nil {
			return PriceBreakdown{}, fmt.Errorf("%s: %w", op, err)
		}
		metalCost = metalCost.Add(metal.Weight.Mul(price))
	}

	gemstoneCost := decimal.Zero
	for _, stone := range gemstones {
		gemstoneCost = gemstoneCost.Add(stone.UnitPrice.Mul(decimal.NewFromInt(int64(stone.Count))))
	}

	subtotal := metalCost.Add(gemstoneCost).Add(makingCharge)
	tax := subtotal.Mul(e.taxPercent).Div(hundred)
	total := subtotal.Add(tax)

	return PriceBreakdown{
		UnitID:       unitID,
		MetalCost:    metalCost,
		GemstoneCost: gemstoneCost,
		MakingCharge: makingCharge,
		Subtotal:     subtotal,
		Tax:          tax,
		Total:        total,
		// для положительных сумм Round совпадает с округлением half-up
		RoundedTotal: total.Round(0),
	}, nil
}

func (e *Engine) pricePerGram(ctx context.Context, metalType, purity string) (decimal.Decimal, error) {
	lookupCtx := ctx
	if e.lookupTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, e.lookupTimeout)
		defer cancel()
	}

	price, err := e.prices.GetPricePerGram(lookupCtx, metalType, purity)
	switch {
	case err == nil:
		return price, nil
	case errors.Is(err, storage.ErrMetalPriceNotFound):
		e.log.Warn("reference price missing",
			slog.String("metal_type", metalType),
			slog.String("purity", purity),
		)
		return decimal.Zero, nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(lookupCtx.Err(), context.DeadlineExceeded):
		return decimal.Zero, fmt.Errorf("price lookup %s/%s: %w", metalType, purity, ErrTimeout)
	default:
		return decimal.Zero, fmt.Errorf("price lookup %s/%s: %w", metalType, purity, err)
	}
}

// UnitBreakdown считает цену варианта (металлы и работа варианта, камни товара)
// или самого товара, если variant == nil.
func (e *Engine) UnitBreakdown(ctx context.Context, product *models.Product, variant *models.Variant) (PriceBreakdown, error) {
	if variant == nil {
		return e.Breakdown(ctx, product.ID, product.Metals, product.Gemstones, product.MakingCharge)
	}
	return e.Breakdown(ctx, variant.ID, variant.Metals, product.Gemstones, variant.MakingCharge)
}

// PriceProduct возвращает по расчёту на каждый вариант, а для товара без вариантов один расчёт с id товара
func (e *Engine) PriceProduct(ctx context.Context, product *models.Product) ([]PriceBreakdown, error) {
	if !product.HasVariants() {
		b, err := e.UnitBreakdown(ctx, product, nil)
		if err != nil {
			return nil, err
		}
		return []PriceBreakdown{b}, nil
	}

	breakdowns := make([]PriceBreakdown, 0, len(product.Variants))
	for i := range product.Variants {
		b, err := e.UnitBreakdown(ctx, product, &product.Variants[i])
		if err != nil {
			return nil, err
		}
		breakdowns = append(breakdowns, b)
	}
	return breakdowns, nil
}

type PricingService interface {
	PriceProduct(ctx context.Context, productID string) ([]PriceBreakdown, error)
	RefreshProductPrices(ctx context.Context, productID string) ([]PriceBreakdown, error)
	DeactivateProduct(ctx context.Context, productID string) error
}

type pricingService struct {
	log     *slog.Logger
	engine  *Engine
	catalog storage.CatalogStorage
}

func NewPricingService(log *slog.Logger, engine *Engine, catalog storage.CatalogStorage) PricingService {
	return &pricingService{
		log:     log,
		engine:  engine,
		catalog: catalog,
	}
}

func (s *pricingService) PriceProduct(ctx context.Context, productID string) ([]PriceBreakdown, error) {
	const op = "service.PricingService.PriceProduct"

	product, err := s.catalog.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, fmt.Errorf("%s: product %s: %w", op, productID, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}

	breakdowns, err := s.engine.PriceProduct(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return breakdowns, nil
}

// RefreshProductPrices пересчитывает цены и сохраняет округлённые итоги в кеш каталога.
// Цена товара с вариантами - минимальная цена варианта.
func (s *pricingService) RefreshProductPrices(ctx context.Context, productID string) ([]PriceBreakdown, error) {
	const op = "service.PricingService.RefreshProductPrices"
	logger := s.log.With(slog.String("op", op), slog.String("productID", productID))
	logger.Info("refreshing cached prices")

	breakdowns, err := s.PriceProduct(ctx, productID)
	if err != nil {
		logger.Warn("failed to price product", slog.Any("error", err))
		return nil, err
	}

	productTotal := breakdowns[0].RoundedTotal
	var variantTotals map[string]decimal.Decimal
	if len(breakdowns) > 1 || breakdowns[0].UnitID != productID {
		variantTotals = make(map[string]decimal.Decimal, len(breakdowns))
		for _, b := range breakdowns {
			variantTotals[b.UnitID] = b.RoundedTotal
			if b.RoundedTotal.LessThan(productTotal) {
				productTotal = b.RoundedTotal
			}
		}
	}

	if err := s.catalog.UpdateCachedPrices(ctx, productID, productTotal, variantTotals); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, fmt.Errorf("%s: product %s: %w", op, productID, ErrNotFound)
		}
		logger.Error("failed to store cached prices", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to store cached prices: %w", op, err)
	}

	logger.Info("cached prices refreshed", slog.String("total", productTotal.String()))
	return breakdowns, nil
}

// DeactivateProduct снимает товар с продажи. Позиции в корзинах остаются,
// но оформить заказ с ним уже нельзя.
func (s *pricingService) DeactivateProduct(ctx context.Context, productID string) error {
	const op = "service.PricingService.DeactivateProduct"
	logger := s.log.With(slog.String("op", op), slog.String("productID", productID))

	if err := s.catalog.DeactivateProduct(ctx, productID); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return fmt.Errorf("%s: product %s: %w", op, productID, ErrNotFound)
		}
		logger.Error("failed to deactivate product", slog.Any("error", err))
		return fmt.Errorf("%s: failed to deactivate product: %w", op, err)
	}

	logger.Info("product deactivated")
	return nil
}

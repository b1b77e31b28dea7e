package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/service"
	"github.com/linemk/jewelry-shop/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Breakdown_SingleMetal(t *testing.T) {
	engine := newTestEngine(newTestStore())

	b, err := engine.Breakdown(context.Background(), "p1", []models.MetalComponent{gold("5.0")}, nil, dec("1000"))
	require.NoError(t, err)

	assert.True(t, dec("25000").Equal(b.MetalCost))
	assert.True(t, dec("26000").Equal(b.Subtotal), b.Subtotal.String())
	assert.True(t, dec("780").Equal(b.Tax), b.Tax.String())
	assert.True(t, dec("26780").Equal(b.Total))
	assert.True(t, dec("26780").Equal(b.RoundedTotal))
}

func TestEngine_Breakdown_MixedMetals(t *testing.T) {
	engine := newTestEngine(newTestStore())
	metals := []models.MetalComponent{
		gold("2.0"),
		{Type: "silver", Purity: "925", Weight: dec("3.0")},
	}

	b, err := engine.Breakdown(context.Background(), "p2", metals, nil, dec("500"))
	require.NoError(t, err)

	assert.True(t, dec("10240").Equal(b.MetalCost))
	assert.True(t, dec("10740").Equal(b.Subtotal))
	assert.True(t, dec("322.2").Equal(b.Tax), b.Tax.String())
	assert.True(t, dec("11062.2").Equal(b.Total))
	assert.True(t, dec("11062").Equal(b.RoundedTotal))

	// порядок металлов не влияет на результат
	reversed := []models.MetalComponent{metals[1], metals[0]}
	again, err := engine.Breakdown(context.Background(), "p2", reversed, nil, dec("500"))
	require.NoError(t, err)
	assert.True(t, b.RoundedTotal.Equal(again.RoundedTotal))
}

func TestEngine_Breakdown_UnknownMetalIsZero(t *testing.T) {
	engine := newTestEngine(newTestStore())
	metals := []models.MetalComponent{{Type: "platinum", Purity: "950", Weight: dec("3")}}

	b, err := engine.Breakdown(context.Background(), "p3", metals, nil, dec("100"))
	require.NoError(t, err)
	assert.True(t, b.MetalCost.IsZero())
	assert.True(t, dec("103").Equal(b.RoundedTotal))
}

func TestEngine_Breakdown_GemstonesAndRounding(t *testing.T) {
	engine := newTestEngine(newTestStore())
	gems := []models.Gemstone{{Type: "diamond", Carat: dec("0.1"), Count: 2, UnitPrice: dec("10000")}}

	b, err := engine.Breakdown(context.Background(), "p4", nil, gems, dec("50"))
	require.NoError(t, err)
	assert.True(t, dec("20000").Equal(b.GemstoneCost))
	assert.True(t, dec("20650.5").Equal(b.Total))
	// половина округляется вверх
	assert.True(t, dec("20651").Equal(b.RoundedTotal))
}

// slowPrices справочник, который отвечает только по отмене контекста
type slowPrices struct{}

var _ storage.MetalPriceStorage = slowPrices{}

func (slowPrices) GetPricePerGram(ctx context.Context, metalType, purity string) (decimal.Decimal, error) {
	<-ctx.Done()
	return decimal.Zero, ctx.Err()
}

func TestEngine_Breakdown_LookupTimeout(t *testing.T) {
	engine := service.NewEngine(newTestLogger(), slowPrices{}, decimal.NewFromInt(3), 10*time.Millisecond)

	_, err := engine.Breakdown(context.Background(), "p1", []models.MetalComponent{gold("1")}, nil, decimal.Zero)
	assert.ErrorIs(t, err, service.ErrTimeout)
}

func TestEngine_PriceProduct_Shapes(t *testing.T) {
	store := newTestStore()
	engine := newTestEngine(store)
	ctx := context.Background()

	pendant, err := store.GetProductByID(ctx, "pendant")
	require.NoError(t, err)
	single, err := engine.PriceProduct(ctx, pendant)
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, "pendant", single[0].UnitID)

	ring, err := store.GetProductByID(ctx, "ring")
	require.NoError(t, err)
	perVariant, err := engine.PriceProduct(ctx, ring)
	require.NoError(t, err)
	require.Len(t, perVariant, 2)
	assert.Equal(t, "size-6", perVariant[0].UnitID)
	assert.True(t, dec("21424").Equal(perVariant[0].RoundedTotal), perVariant[0].RoundedTotal.String())
	assert.Equal(t, "size-7", perVariant[1].UnitID)
	assert.True(t, dec("26780").Equal(perVariant[1].RoundedTotal))
}

func TestPricingService_RefreshProductPrices(t *testing.T) {
	store := newTestStore()
	svc := service.NewPricingService(newTestLogger(), newTestEngine(store), store)
	ctx := context.Background()

	store.SetMetalPrice("gold", "22K", dec("6000"))

	breakdowns, err := svc.RefreshProductPrices(ctx, "ring")
	require.NoError(t, err)
	require.Len(t, breakdowns, 2)

	ring, err := store.GetProductByID(ctx, "ring")
	require.NoError(t, err)
	size6, _ := ring.FindVariant("size-6")
	size7, _ := ring.FindVariant("size-7")
	// (4*6000 + 800) * 1.03 = 25544, (5*6000 + 1000) * 1.03 = 31930
	assert.True(t, dec("25544").Equal(size6.TotalPrice), size6.TotalPrice.String())
	assert.True(t, dec("31930").Equal(size7.TotalPrice), size7.TotalPrice.String())
	assert.True(t, dec("25544").Equal(ring.TotalPrice))

	_, err = svc.RefreshProductPrices(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestPricingService_DeactivateProduct(t *testing.T) {
	store := newTestStore()
	svc := service.NewPricingService(newTestLogger(), newTestEngine(store), store)
	ctx := context.Background()

	require.NoError(t, svc.DeactivateProduct(ctx, "pendant"))

	pendant, err := store.GetProductByID(ctx, "pendant")
	require.NoError(t, err)
	assert.False(t, pendant.IsActive)

	assert.ErrorIs(t, svc.DeactivateProduct(ctx, "missing"), service.ErrNotFound)
}

package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/service"
	"github.com/linemk/jewelry-shop/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress() models.Address {
	return models.Address{
		FullName:   "Asha Rao",
		Phone:      "+91 98450 00000",
		Line1:      "12 MG Road",
		City:       "Bengaluru",
		State:      "Karnataka",
		PostalCode: "560001",
		Country:    "IN",
	}
}

func stockOf(t *testing.T, ts *testServices, productID, variantID string) int {
	t.Helper()
	p, err := ts.store.GetProductByID(context.Background(), productID)
	require.NoError(t, err)
	if variantID == "" {
		return p.StockQuantity
	}
	v, ok := p.FindVariant(variantID)
	require.True(t, ok)
	return v.StockQuantity
}

// placeCartOrder кладёт две подвески в корзину u1 и оформляет её
func placeCartOrder(t *testing.T, ts *testServices) *models.Order {
	t.Helper()
	ctx := context.Background()
	_, err := ts.carts.AddItem(ctx, "u1", "pendant", "pendant", 2)
	require.NoError(t, err)

	order, err := ts.orders.CreateOrder(ctx, "u1", service.CheckoutRequest{
		ShippingAddress: testAddress(),
		PaymentMethod:   "upi",
	})
	require.NoError(t, err)
	return order
}

func TestOrderService_CreateOrder_FromCart(t *testing.T) {
	ts := newTestServices()
	order := placeCartOrder(t, ts)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.Payment.Status)
	assert.Equal(t, "upi", order.Payment.Method)
	assert.Equal(t, "INR", order.Currency)
	require.Len(t, order.History, 1)
	assert.Equal(t, "pending", order.History[0].Status)

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, "pendant", item.Product.ID)
	assert.Nil(t, item.Variant)
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, dec("26780").Equal(item.Price))
	assert.True(t, dec("53560").Equal(item.LineTotal))

	// цены уже включают налог; выше порога доставка бесплатная
	assert.True(t, dec("53560").Equal(order.Subtotal))
	assert.True(t, dec("1560").Equal(order.Tax), order.Tax.String())
	assert.True(t, order.Shipping.IsZero())
	assert.True(t, dec("53560").Equal(order.Total))

	// остаток зарезервирован, корзина не тронута до оплаты
	assert.Equal(t, 1, stockOf(t, ts, "pendant", ""))
	cart, err := ts.carts.GetOrCreate(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, cart.TotalItems)
}

func TestOrderService_CreateOrder_ShippingBelowThreshold(t *testing.T) {
	ts := newTestServices()

	order, err := ts.orders.CreateOrder(context.Background(), "u1", service.CheckoutRequest{
		Items: []service.CheckoutItem{{ProductID: "ring", VariantID: "size-6", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	require.NotNil(t, order.Items[0].Variant)
	assert.Equal(t, "size-6", order.Items[0].Variant.ID)
	assert.Equal(t, "Ring — Size 6", order.Items[0].Name)
	assert.True(t, dec("21424").Equal(order.Subtotal))
	assert.True(t, dec("99").Equal(order.Shipping))
	assert.True(t, dec("21523").Equal(order.Total))
	assert.Equal(t, 1, stockOf(t, ts, "ring", "size-6"))
}

func TestOrderService_CreateOrder_DropsInvalidLines(t *testing.T) {
	ts := newTestServices()

	order, err := ts.orders.CreateOrder(context.Background(), "u1", service.CheckoutRequest{
		Items: []service.CheckoutItem{
			{ProductID: "missing", VariantID: "missing", Quantity: 1},
			{ProductID: "anklet", VariantID: "anklet", Quantity: 1},
			{ProductID: "ring", VariantID: "size-7", Quantity: 5},
			{ProductID: "pendant", VariantID: "pendant", Quantity: 1},
			{ProductID: "pendant", VariantID: "pendant", Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "pendant", order.Items[0].Product.ID)
	assert.Equal(t, 2, order.Items[0].Quantity)
}

func TestOrderService_CreateOrder_EmptyOrder(t *testing.T) {
	ts := newTestServices()
	ctx := context.Background()

	_, err := ts.carts.AddItem(ctx, "u1", "ring", "size-7", 1)
	require.NoError(t, err)
	ts.store.DeleteProduct("ring")

	_, err = ts.orders.CreateOrder(ctx, "u1", service.CheckoutRequest{})
	assert.ErrorIs(t, err, service.ErrEmptyOrder)

	cart, err := ts.carts.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	orders, err := ts.orders.ListOrders(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderService_CreateOrder_UserChecks(t *testing.T) {
	ts := newTestServices()
	req := service.CheckoutRequest{Items: []service.CheckoutItem{{ProductID: "pendant", VariantID: "pendant", Quantity: 1}}}

	_, err := ts.orders.CreateOrder(context.Background(), "admin", req)
	assert.ErrorIs(t, err, service.ErrUnavailable)

	_, err = ts.orders.CreateOrder(context.Background(), "ghost", req)
	assert.ErrorIs(t, err, service.ErrNotFound)

	assert.Equal(t, 3, stockOf(t, ts, "pendant", ""))
}

// staleCatalog отдаёт товары с завышенным остатком, как будто их прочитали до чужого заказа
type staleCatalog struct {
	storage.CatalogStorage
}

func (c staleCatalog) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	p, err := c.CatalogStorage.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.StockQuantity += 10
	for i := range p.Variants {
		p.Variants[i].StockQuantity += 10
	}
	return p, nil
}

func TestOrderService_CreateOrder_ReservationRace(t *testing.T) {
	store := newTestStore()
	engine := newTestEngine(store)
	log := newTestLogger()
	carts := service.NewCartService(log, store, store, engine, 5)
	orders := service.NewOrderService(log, store, staleCatalog{store}, store, store, carts, engine, service.OrderSettings{})
	ctx := context.Background()

	// чужой заказ уже забрал последнее кольцо размера 7
	require.NoError(t, store.ReserveStock(ctx, "ring", "size-7", 1))

	_, err := orders.CreateOrder(ctx, "u1", service.CheckoutRequest{
		Items: []service.CheckoutItem{
			{ProductID: "pendant", VariantID: "pendant", Quantity: 2},
			{ProductID: "ring", VariantID: "size-7", Quantity: 1},
		},
	})
	var stockErr *service.StockError
	require.True(t, errors.As(err, &stockErr), "got %v", err)
	assert.Equal(t, "ring", stockErr.ProductID)
	assert.Equal(t, "size-7", stockErr.VariantID)
	assert.Equal(t, 1, stockErr.Requested)

	// списанные подвески вернулись
	p, err := store.GetProductByID(ctx, "pendant")
	require.NoError(t, err)
	assert.Equal(t, 3, p.StockQuantity)
}

func TestOrderService_ConcurrentOrdersNeverOversell(t *testing.T) {
	ts := newTestServices()
	ctx := context.Background()

	const buyers = 5
	for i := 0; i < buyers; i++ {
		ts.store.PutUser(&models.User{ID: fmt.Sprintf("buyer-%d", i), Role: models.RoleCustomer})
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	placed := 0
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := ts.orders.CreateOrder(ctx, userID, service.CheckoutRequest{
				Items: []service.CheckoutItem{{ProductID: "ring", VariantID: "size-7", Quantity: 1}},
			})
			if err == nil {
				mu.Lock()
				placed++
				mu.Unlock()
				return
			}
			if !errors.Is(err, service.ErrInsufficientStock) && !errors.Is(err, service.ErrEmptyOrder) {
				t.Errorf("unexpected error: %v", err)
			}
		}(fmt.Sprintf("buyer-%d", i))
	}
	wg.Wait()

	assert.Equal(t, 1, placed)
	assert.Equal(t, 0, stockOf(t, ts, "ring", "size-7"))
}

func TestOrderService_CreateOrder_RepeatedCheckout(t *testing.T) {
	ts := newTestServices()
	ctx := context.Background()
	_, err := ts.carts.AddItem(ctx, "u1", "pendant", "pendant", 1)
	require.NoError(t, err)
	req := service.CheckoutRequest{ShippingAddress: testAddress(), PaymentMethod: "upi"}

	first, err := ts.orders.CreateOrder(ctx, "u1", req)
	require.NoError(t, err)
	assert.Equal(t, 2, stockOf(t, ts, "pendant", ""))

	for i := 0; i < 2; i++ {
		again, err := ts.orders.CreateOrder(ctx, "u1", req)
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	}
	assert.Equal(t, 2, stockOf(t, ts, "pendant", ""))

	orders, err := ts.orders.ListOrders(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	// остатков хватает другому покупателю
	_, err = ts.carts.AddItem(ctx, "u2", "pendant", "pendant", 2)
	require.NoError(t, err)

	// после отмены то же оформление создаёт новый заказ
	_, err = ts.orders.HandlePaymentFailure(ctx, first.ID, "card declined")
	require.NoError(t, err)
	assert.Equal(t, 3, stockOf(t, ts, "pendant", ""))

	retry, err := ts.orders.CreateOrder(ctx, "u1", req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, retry.ID)
	assert.Equal(t, 2, stockOf(t, ts, "pendant", ""))
}

func TestOrderService_CreateOrder_ConcurrentRetries(t *testing.T) {
	ts := newTestServices()
	ctx := context.Background()
	_, err := ts.carts.AddItem(ctx, "u1", "pendant", "pendant", 1)
	require.NoError(t, err)
	req := service.CheckoutRequest{ShippingAddress: testAddress(), PaymentMethod: "upi"}

	ids := make([]string, 6)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, err := ts.orders.CreateOrder(ctx, "u1", req)
			if assert.NoError(t, err) {
				ids[i] = order.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 2, stockOf(t, ts, "pendant", ""))
}

func TestOrderService_CreateOrder_IdempotencyKey(t *testing.T) {
	ts := newTestServices()
	ctx := context.Background()
	items := []service.CheckoutItem{{ProductID: "pendant", VariantID: "pendant", Quantity: 1}}

	first, err := ts.orders.CreateOrder(ctx, "u1", service.CheckoutRequest{Items: items, IdempotencyKey: "k1"})
	require.NoError(t, err)

	other := testAddress()
	other.City = "Mysuru"
	same, err := ts.orders.CreateOrder(ctx, "u1", service.CheckoutRequest{Items: items, ShippingAddress: other, IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, same.ID)
	assert.Equal(t, 2, stockOf(t, ts, "pendant", ""))

	next, err := ts.orders.CreateOrder(ctx, "u1", service.CheckoutRequest{Items: items, IdempotencyKey: "k2"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, next.ID)
	assert.Equal(t, 1, stockOf(t, ts, "pendant", ""))

	// ключ действует только в пределах пользователя
	foreign, err := ts.orders.CreateOrder(ctx, "u2", service.CheckoutRequest{Items: items, IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, foreign.ID)
	assert.Equal(t, 0, stockOf(t, ts, "pendant", ""))
}

func TestOrderService_SnapshotSurvivesCatalogChanges(t *testing.T) {
	ts := newTestServices()
	ctx := context.Background()
	order := placeCartOrder(t, ts)

	p, err := ts.store.GetProductByID(ctx, "pendant")
	require.NoError(t, err)
	p.Name = "Renamed"
	p.TotalPrice = dec("99999")
	p.Metals[0].Weight = dec("50")
	ts.store.PutProduct(p)

	got, err := ts.orders.GetOrder(ctx, order.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Pendant", got.Items[0].Product.Name)
	assert.True(t, dec("5").Equal(got.Items[0].Product.Metals[0].Weight))
	assert.True(t, dec("26780").Equal(got.Items[0].Price))

	ts.store.DeleteProduct("pendant")
	got, err = ts.orders.GetOrder(ctx, order.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Pendant", got.Items[0].Product.Name)
	assert.True(t, dec("53560").Equal(got.Total))
}

func TestOrderService_HandlePaymentSuccess(t *testing.T) {
	ts := newTestServices()
	ctx := context.Background()
	order := placeCartOrder(t, ts)

	paid, err := ts.orders.HandlePaymentSuccess(ctx, order.ID, "txn_1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPlaced, paid.Status)
	assert.Equal(t, models.PaymentStatusCompleted, paid.Payment.Status)
	assert.Equal(t, "txn_1", paid.Payment.TransactionID)
	require.NotNil(t, paid.Payment.PaidAt)
	require.Len(t, paid.History, 2)
	assert.Equal(t, "placed", paid.History[1].Status)
	assert.Equal(t, service.ActorPaymentProvider, paid.History[1].Actor)

	cart, err := ts.carts.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	// повторный вебхук ничего не меняет и новую корзину не трогает
	_, err = ts.carts.AddItem(ctx, "u1", "ring", "size-6", 1)
	require.NoError(t, err)

	again, err := ts.orders.HandlePaymentSuccess(ctx, order.ID, "txn_2")
	require.NoError(t, err)
	assert.Len(t, again.History, 2)
	assert.Equal(t, "txn_1", again.Payment.TransactionID)

	cart, err = ts.carts.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 1, stockOf(t, ts, "pendant", ""))
}

func TestOrderService_HandlePaymentSuccess_Concurrent(t *testing.T) {
	ts := newTestServices()
	ctx := context.Background()
	order := placeCartOrder(t, ts)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ts.orders.HandlePaymentSuccess(ctx, order.ID, "txn_1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := ts.orders.GetOrder(ctx, order.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPlaced, got.Status)
	assert.Len(t, got.History, 2)
}

func TestOrderService_HandlePaymentFailure(t *testing.T) {
	ts := newTestServices()
	ctx := context.Background()
	order := placeCartOrder(t, ts)
	require.Equal(t, 1, stockOf(t, ts, "pendant", ""))

	failed, err := ts.orders.HandlePaymentFailure(ctx, order.ID, "card declined")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, failed.Status)
	assert.Equal(t, models.PaymentStatusFailed, failed.Payment.Status)
	assert.Equal(t, "card declined", failed.Payment.FailureReason)
	require.Len(t, failed.History, 2)
	assert.Equal(t, "cancelled", failed.History[1].Status)

	// корзина на месте, остаток вернулся ровно один раз
	cart, err := ts.carts.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, cart.TotalItems)
	assert.Equal(t, 3, stockOf(t, ts, "pendant", ""))

	_, err = ts.orders.HandlePaymentFailure(ctx, order.ID, "card declined")
	require.NoError(t, err)
	assert.Equal(t, 3, stockOf(t, ts, "pendant", ""))

	// поздний успех по отменённому заказу игнорируется
	late, err := ts.orders.HandlePaymentSuccess(ctx, order.ID, "txn_late")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, late.Status)
	assert.Len(t, late.History, 2)
}

func TestOrderService_StartPayment(t *testing.T) {
	ts := newTestServices()
	ctx := context.Background()
	order := placeCartOrder(t, ts)

	started, err := ts.orders.StartPayment(ctx, order.ID, "card")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusProcessing, started.Payment.Status)
	assert.Equal(t, "card", started.Payment.Method)
	require.Len(t, started.History, 2)
	assert.Equal(t, "payment_processing", started.History[1].Status)

	again, err := ts.orders.StartPayment(ctx, order.ID, "card")
	require.NoError(t, err)
	assert.Len(t, again.History, 2)

	paid, err := ts.orders.HandlePaymentSuccess(ctx, order.ID, "txn_1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPlaced, paid.Status)

	_, err = ts.orders.StartPayment(ctx, order.ID, "card")
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestOrderService_CancelOrder(t *testing.T) {
	ts := newTestServices()
	ctx := context.Background()
	order := placeCartOrder(t, ts)

	cancelled, err := ts.orders.CancelOrder(ctx, order.ID, "admin", "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, "admin", cancelled.History[len(cancelled.History)-1].Actor)
	assert.Equal(t, 3, stockOf(t, ts, "pendant", ""))

	_, err = ts.orders.CancelOrder(ctx, order.ID, "admin", "")
	assert.ErrorIs(t, err, service.ErrInvalidState)
	assert.Equal(t, 3, stockOf(t, ts, "pendant", ""))

	_, err = ts.orders.CancelOrder(ctx, "missing", "admin", "")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestOrderService_AdminStatusUpdates(t *testing.T) {
	ts := newTestServices()
	ctx := context.Background()
	order := placeCartOrder(t, ts)

	_, err := ts.orders.UpdateOrderStatus(ctx, order.ID, models.OrderStatus("lost"), "admin", "")
	assert.ErrorIs(t, err, service.ErrInvalidState)

	shipped, err := ts.orders.UpdateOrderStatus(ctx, order.ID, models.OrderStatusShipped, "admin", "courier picked up")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, shipped.Status)
	last := shipped.History[len(shipped.History)-1]
	assert.Equal(t, "shipped", last.Status)
	assert.Equal(t, "courier picked up", last.Note)

	_, err = ts.orders.UpdatePaymentStatus(ctx, order.ID, models.PaymentStatus("lost"), "admin", "")
	assert.ErrorIs(t, err, service.ErrInvalidState)

	refunded, err := ts.orders.UpdatePaymentStatus(ctx, order.ID, models.PaymentStatusRefunded, "admin", "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.Payment.Status)
	assert.Equal(t, "payment_refunded", refunded.History[len(refunded.History)-1].Status)

	// отмена через смену статуса возвращает остаток
	_, err = ts.orders.UpdateOrderStatus(ctx, order.ID, models.OrderStatusCancelled, "admin", "")
	require.NoError(t, err)
	assert.Equal(t, 3, stockOf(t, ts, "pendant", ""))
}

func TestOrderService_GetOrderAccess(t *testing.T) {
	ts := newTestServices()
	ctx := context.Background()
	order := placeCartOrder(t, ts)

	_, err := ts.orders.GetOrder(ctx, order.ID, "u1")
	assert.NoError(t, err)

	_, err = ts.orders.GetOrder(ctx, order.ID, "u2")
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = ts.orders.GetOrder(ctx, order.ID, "admin")
	assert.NoError(t, err)

	_, err = ts.orders.GetOrder(ctx, "missing", "u1")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestOrderService_ListOrders(t *testing.T) {
	ts := newTestServices()
	ctx := context.Background()
	_, err := ts.orders.CreateOrder(ctx, "u1", service.CheckoutRequest{
		Items: []service.CheckoutItem{{ProductID: "pendant", VariantID: "pendant", Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = ts.orders.CreateOrder(ctx, "u1", service.CheckoutRequest{
		Items: []service.CheckoutItem{{ProductID: "ring", VariantID: "size-6", Quantity: 1}},
	})
	require.NoError(t, err)

	orders, err := ts.orders.ListOrders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.False(t, orders[0].CreatedAt.Before(orders[1].CreatedAt))

	none, err := ts.orders.ListOrders(ctx, "u2")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestOrderService_ZeroTaxSettings(t *testing.T) {
	store := newTestStore()
	engine := newTestEngine(store)
	log := newTestLogger()
	carts := service.NewCartService(log, store, store, engine, 5)
	orders := service.NewOrderService(log, store, store, store, store, carts, engine, service.OrderSettings{
		TaxPercent: decimal.Zero,
	})

	order, err := orders.CreateOrder(context.Background(), "u1", service.CheckoutRequest{
		Items: []service.CheckoutItem{{ProductID: "pendant", VariantID: "pendant", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, order.Tax.IsZero())
	assert.True(t, order.Shipping.IsZero())
	assert.True(t, dec("26780").Equal(order.Total))
}

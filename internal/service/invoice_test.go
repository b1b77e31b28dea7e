package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/linemk/jewelry-shop/internal/invoice"
	"github.com/linemk/jewelry-shop/internal/objectstore"
	"github.com/linemk/jewelry-shop/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	calls atomic.Int32
	data  []byte
	err   error
	delay time.Duration
}

var _ service.InvoiceRenderer = (*fakeRenderer)(nil)

func (r *fakeRenderer) Render(doc *invoice.Document) ([]byte, error) {
	r.calls.Add(1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.data, r.err
}

type fakeObjectStore struct {
	mu   sync.Mutex
	puts []string
	// beforePut имитирует другой экземпляр сервиса, успевший записать ссылку
	beforePut func()
}

var _ objectstore.Store = (*fakeObjectStore)(nil)

func (s *fakeObjectStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if s.beforePut != nil {
		s.beforePut()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, key)
	return "https://files.example.com/" + key, nil
}

func (s *fakeObjectStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.puts)
}

func newInvoiceFixture(t *testing.T, renderer service.InvoiceRenderer, timeout time.Duration) (*testServices, *fakeObjectStore, service.InvoiceService, string) {
	t.Helper()
	ts := newTestServices()
	order := placeCartOrder(t, ts)
	_, err := ts.orders.HandlePaymentSuccess(context.Background(), order.ID, "txn_1")
	require.NoError(t, err)
	files := &fakeObjectStore{}
	company := invoice.Company{Name: "Aurum Jewels", Address: "Bengaluru", Email: "billing@aurum.example", TaxID: "29ABCDE1234F1Z5"}
	svc := service.NewInvoiceService(newTestLogger(), ts.store, ts.store, renderer, files, company, timeout)
	return ts, files, svc, order.ID
}

func TestInvoiceService_GenerateOnce(t *testing.T) {
	renderer := &fakeRenderer{data: []byte("%PDF-1.3 fake")}
	ts, files, svc, orderID := newInvoiceFixture(t, renderer, time.Second)
	ctx := context.Background()

	first, err := svc.GenerateInvoice(ctx, orderID)
	require.NoError(t, err)
	assert.Contains(t, first.InvoiceURL, "invoices/"+orderID)

	second, err := svc.GenerateInvoice(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, first.InvoiceURL, second.InvoiceURL)

	assert.Equal(t, int32(1), renderer.calls.Load())
	assert.Equal(t, 1, files.count())

	order, err := ts.store.GetOrderByID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, first.InvoiceURL, order.InvoiceURL)
}

func TestInvoiceService_ConcurrentRequestsRenderOnce(t *testing.T) {
	renderer := &fakeRenderer{data: []byte("%PDF-1.3 fake"), delay: 20 * time.Millisecond}
	_, files, svc, orderID := newInvoiceFixture(t, renderer, time.Second)

	var wg sync.WaitGroup
	urls := make([]string, 8)
	for i := range urls {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.GenerateInvoice(context.Background(), orderID)
			assert.NoError(t, err)
			urls[i] = res.InvoiceURL
		}(i)
	}
	wg.Wait()

	for _, url := range urls {
		assert.Equal(t, urls[0], url)
	}
	assert.Equal(t, int32(1), renderer.calls.Load())
	assert.Equal(t, 1, files.count())
}

func TestInvoiceService_RenderingFailures(t *testing.T) {
	tests := []struct {
		name     string
		renderer *fakeRenderer
	}{
		{name: "not a pdf", renderer: &fakeRenderer{data: []byte("<html>oops</html>")}},
		{name: "empty document", renderer: &fakeRenderer{data: nil}},
		{name: "renderer error", renderer: &fakeRenderer{err: errors.New("font missing")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts, files, svc, orderID := newInvoiceFixture(t, tc.renderer, time.Second)

			_, err := svc.GenerateInvoice(context.Background(), orderID)
			assert.ErrorIs(t, err, service.ErrRenderingFailure)
			assert.Zero(t, files.count())

			order, err := ts.store.GetOrderByID(context.Background(), orderID)
			require.NoError(t, err)
			assert.Empty(t, order.InvoiceURL)
		})
	}
}

func TestInvoiceService_RenderTimeout(t *testing.T) {
	renderer := &fakeRenderer{data: []byte("%PDF-1.3 slow"), delay: 200 * time.Millisecond}
	ts, files, svc, orderID := newInvoiceFixture(t, renderer, 10*time.Millisecond)

	_, err := svc.GenerateInvoice(context.Background(), orderID)
	assert.ErrorIs(t, err, service.ErrTimeout)
	assert.Zero(t, files.count())

	order, err := ts.store.GetOrderByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Empty(t, order.InvoiceURL)
}

func TestInvoiceService_RequiresPaidOrder(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices()
	renderer := &fakeRenderer{data: []byte("%PDF-1.3 fake")}
	files := &fakeObjectStore{}
	svc := service.NewInvoiceService(newTestLogger(), ts.store, ts.store, renderer, files, invoice.Company{Name: "Aurum Jewels"}, time.Second)

	order := placeCartOrder(t, ts)
	_, err := svc.GenerateInvoice(ctx, order.ID)
	assert.ErrorIs(t, err, service.ErrInvalidState)
	assert.Zero(t, renderer.calls.Load())
	assert.Zero(t, files.count())

	stored, err := ts.store.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.InvoiceURL)

	_, err = ts.orders.HandlePaymentSuccess(ctx, order.ID, "txn_1")
	require.NoError(t, err)
	res, err := svc.GenerateInvoice(ctx, order.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, res.InvoiceURL)
	assert.Equal(t, 1, files.count())
}

func TestInvoiceService_CancelledOrderNotInvoiced(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices()
	renderer := &fakeRenderer{data: []byte("%PDF-1.3 fake")}
	files := &fakeObjectStore{}
	svc := service.NewInvoiceService(newTestLogger(), ts.store, ts.store, renderer, files, invoice.Company{Name: "Aurum Jewels"}, time.Second)

	order := placeCartOrder(t, ts)
	_, err := ts.orders.HandlePaymentFailure(ctx, order.ID, "card declined")
	require.NoError(t, err)

	_, err = svc.GenerateInvoice(ctx, order.ID)
	assert.ErrorIs(t, err, service.ErrInvalidState)
	assert.Zero(t, renderer.calls.Load())
	assert.Zero(t, files.count())
}

func TestInvoiceService_CallerCancelDoesNotAbortSharedRender(t *testing.T) {
	renderer := &fakeRenderer{data: []byte("%PDF-1.3 fake"), delay: 100 * time.Millisecond}
	_, files, svc, orderID := newInvoiceFixture(t, renderer, time.Second)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GenerateInvoice(firstCtx, orderID)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return renderer.calls.Load() == 1 }, time.Second, time.Millisecond)

	secondRes := make(chan service.InvoiceResult, 1)
	secondErr := make(chan error, 1)
	go func() {
		res, err := svc.GenerateInvoice(context.Background(), orderID)
		secondRes <- res
		secondErr <- err
	}()
	cancel()

	assert.ErrorIs(t, <-firstErr, context.Canceled)
	require.NoError(t, <-secondErr)
	assert.NotEmpty(t, (<-secondRes).InvoiceURL)
	assert.Equal(t, int32(1), renderer.calls.Load())
	assert.Equal(t, 1, files.count())
}

func TestInvoiceService_OrderNotFound(t *testing.T) {
	renderer := &fakeRenderer{data: []byte("%PDF-1.3 fake")}
	_, _, svc, _ := newInvoiceFixture(t, renderer, time.Second)

	_, err := svc.GenerateInvoice(context.Background(), "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Zero(t, renderer.calls.Load())
}

func TestInvoiceService_URLAlreadySetByAnotherInstance(t *testing.T) {
	renderer := &fakeRenderer{data: []byte("%PDF-1.3 fake")}
	ts, files, svc, orderID := newInvoiceFixture(t, renderer, time.Second)
	const existing = "https://files.example.com/invoices/other.pdf"
	files.beforePut = func() {
		_, err := ts.store.SetInvoiceURL(context.Background(), orderID, existing)
		require.NoError(t, err)
	}

	res, err := svc.GenerateInvoice(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, existing, res.InvoiceURL)
}

func TestInvoiceService_WithPDFRenderer(t *testing.T) {
	store := newTestStore()
	engine := newTestEngine(store)
	log := newTestLogger()
	carts := service.NewCartService(log, store, store, engine, 5)
	orders := service.NewOrderService(log, store, store, store, store, carts, engine, service.OrderSettings{})

	order, err := orders.CreateOrder(context.Background(), "u1", service.CheckoutRequest{
		Items:           []service.CheckoutItem{{ProductID: "ring", VariantID: "size-6", Quantity: 1}},
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)
	_, err = orders.HandlePaymentSuccess(context.Background(), order.ID, "txn_1")
	require.NoError(t, err)

	files, err := objectstore.NewFileStore(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)
	svc := service.NewInvoiceService(log, store, store, invoice.NewPDFRenderer(), files, invoice.Company{Name: "Aurum Jewels"}, 5*time.Second)

	res, err := svc.GenerateInvoice(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Contains(t, res.InvoiceURL, fmt.Sprintf("http://localhost:8080/files/invoices/%s-", order.ID))
}

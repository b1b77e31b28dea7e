package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/invoice"
	"github.com/linemk/jewelry-shop/internal/objectstore"
	"github.com/linemk/jewelry-shop/internal/storage"
	"golang.org/x/sync/singleflight"
)

const invoiceContentType = "application/pdf"

var pdfSignature = []byte("%PDF-")

// InvoiceResult ответ генерации счёта
type InvoiceResult struct {
	InvoiceURL string `json:"invoiceUrl"`
}

// InvoiceRenderer превращает данные счёта в PDF
type InvoiceRenderer interface {
	Render(doc *invoice.Document) ([]byte, error)
}

type InvoiceService interface {
	GenerateInvoice(ctx context.Context, orderID string) (InvoiceResult, error)
}

type invoiceService struct {
	log           *slog.Logger
	orders        storage.OrderStorage
	users         storage.UserStorage
	renderer      InvoiceRenderer
	store         objectstore.Store
	company       invoice.Company
	renderTimeout time.Duration
	group         singleflight.Group
	now           func() time.Time
}

func NewInvoiceService(
	log *slog.Logger,
	orders storage.OrderStorage,
	users storage.UserStorage,
	renderer InvoiceRenderer,
	store objectstore.Store,
	company invoice.Company,
	renderTimeout time.Duration,
) InvoiceService {
	return &invoiceService{
		log:           log,
		orders:        orders,
		users:         users,
		renderer:      renderer,
		store:         store,
		company:       company,
		renderTimeout: renderTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// GenerateInvoice отдаёт ссылку на счёт, рисуя его не больше одного раза.
// Параллельные вызовы по одному заказу ждут одну отрисовку; отмена запроса одного клиента
// её не прерывает, отрисовку ограничивает только renderTimeout.
func (s *invoiceService) GenerateInvoice(ctx context.Context, orderID string) (InvoiceResult, error) {
	const op = "service.InvoiceService.GenerateInvoice"

	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(orderID, func() (interface{}, error) {
		return s.generate(shared, orderID)
	})

	select {
	case <-ctx.Done():
		return InvoiceResult{}, fmt.Errorf("%s: %w", op, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return InvoiceResult{}, fmt.Errorf("%s: %w", op, res.Err)
		}
		if res.Shared {
			s.log.Debug("invoice request coalesced", slog.String("op", op), slog.String("orderID", orderID))
		}
		return res.Val.(InvoiceResult), nil
	}
}

// invoiceable счёт выставляется только по оплаченному заказу
func invoiceable(order *models.Order) bool {
	switch order.Status {
	case models.OrderStatusPlaced, models.OrderStatusShipped, models.OrderStatusCompleted:
		return true
	}
	return false
}

func (s *invoiceService) generate(ctx context.Context, orderID string) (InvoiceResult, error) {
	const op = "service.InvoiceService.generate"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID))

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return InvoiceResult{}, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return InvoiceResult{}, fmt.Errorf("failed to get order: %w", err)
	}
	user, err := s.users.GetUserByID(ctx, order.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return InvoiceResult{}, fmt.Errorf("user %s: %w", order.UserID, ErrNotFound)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return InvoiceResult{}, fmt.Errorf("failed to get user: %w", err)
	}

	if order.InvoiceURL != "" {
		return InvoiceResult{InvoiceURL: order.InvoiceURL}, nil
	}
	if !invoiceable(order) {
		logger.Warn("order is not paid, invoice refused", slog.String("status", string(order.Status)))
		return InvoiceResult{}, fmt.Errorf("order %s is %s: %w", order.ID, order.Status, ErrInvalidState)
	}

	logger.Info("rendering invoice")
	doc := invoice.NewDocument(order, user, s.company, s.now())
	data, err := s.render(ctx, doc)
	if err != nil {
		logger.Error("failed to render invoice", slog.Any("error", err))
		return InvoiceResult{}, err
	}

	key := fmt.Sprintf("invoices/%s-%s.pdf", order.ID, uuid.NewString())
	url, err := s.store.Put(ctx, key, invoiceContentType, data)
	if err != nil {
		logger.Error("failed to store invoice", slog.Any("error", err))
		return InvoiceResult{}, fmt.Errorf("failed to store invoice: %w", err)
	}

	set, err := s.orders.SetInvoiceURL(ctx, order.ID, url)
	if err != nil {
		logger.Error("failed to save invoice url", slog.Any("error", err))
		return InvoiceResult{}, fmt.Errorf("failed to save invoice url: %w", err)
	}
	if !set {
		// ссылку успел записать другой экземпляр сервиса, отдаём его ссылку
		current, err := s.orders.GetOrderByID(ctx, order.ID)
		if err != nil {
			return InvoiceResult{}, fmt.Errorf("failed to reload order: %w", err)
		}
		logger.Warn("invoice url already set, stored object is orphaned", slog.String("orphan_url", url))
		return InvoiceResult{InvoiceURL: current.InvoiceURL}, nil
	}

	logger.Info("invoice generated", slog.String("url", url), slog.Int("size", len(data)))
	return InvoiceResult{InvoiceURL: url}, nil
}

type renderResult struct {
	data []byte
	err  error
}

// render ограничивает отрисовку по времени и проверяет, что получился PDF
func (s *invoiceService) render(ctx context.Context, doc *invoice.Document) ([]byte, error) {
	if s.renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.renderTimeout)
		defer cancel()
	}

	done := make(chan renderResult, 1)
	go func() {
		data, err := s.renderer.Render(doc)
		done <- renderResult{data: data, err: err}
	}()

	var res renderResult
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("invoice rendering: %w", ErrTimeout)
		}
		return nil, ctx.Err()
	case res = <-done:
	}

	if res.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderingFailure, res.err)
	}
	if len(res.data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrRenderingFailure)
	}
	if !bytes.HasPrefix(res.data, pdfSignature) {
		return nil, fmt.Errorf("%w: missing PDF signature", ErrRenderingFailure)
	}
	return res.data, nil
}

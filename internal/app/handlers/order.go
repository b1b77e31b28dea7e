package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/jewelry-shop/internal/service"
)

// IdempotencyKeyHeader ключ повтора оформления, если его нет в теле запроса
const IdempotencyKeyHeader = "Idempotency-Key"

// CreateOrderHandler обрабатывает POST /api/orders. Пустой список строк оформляет корзину.
// После создания заказ сразу переводится в ожидание оплаты выбранным способом.
func CreateOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}
		var req service.CheckoutRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}
		if req.IdempotencyKey == "" {
			req.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)
		}

		order, err := orderService.CreateOrder(r.Context(), userID, req)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		if req.PaymentMethod != "" {
			started, err := orderService.StartPayment(r.Context(), order.ID, req.PaymentMethod)
			if err != nil {
				// заказ уже создан, оплату можно начать повторно
				logger.Warn("failed to start payment", slog.String("orderID", order.ID), slog.Any("error", err))
			} else {
				order = started
			}
		}
		writeJSON(w, logger, http.StatusCreated, order)
	}
}

// ListOrdersHandler обрабатывает GET /api/orders
func ListOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}

		orders, err := orderService.ListOrders(r.Context(), userID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, orders)
	}
}

// GetOrderHandler обрабатывает GET /api/orders/{id}
func GetOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}
		orderID := chi.URLParam(r, "id")
		if orderID == "" {
			http.Error(w, "order id is required", http.StatusBadRequest)
			return
		}

		order, err := orderService.GetOrder(r.Context(), orderID, userID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, order)
	}
}

// InvoiceHandler обрабатывает POST /api/orders/{id}/invoice.
// Счёт доступен тем же, кому доступен заказ.
func InvoiceHandler(log *slog.Logger, orderService service.OrderService, invoiceService service.InvoiceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.InvoiceHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}
		orderID := chi.URLParam(r, "id")
		if orderID == "" {
			http.Error(w, "order id is required", http.StatusBadRequest)
			return
		}

		if _, err := orderService.GetOrder(r.Context(), orderID, userID); err != nil {
			writeServiceError(w, logger, err)
			return
		}

		res, err := invoiceService.GenerateInvoice(r.Context(), orderID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, res)
	}
}

// ProductPriceHandler обрабатывает GET /api/products/{id}/price, живой расчёт без записи в кеш
func ProductPriceHandler(log *slog.Logger, pricingService service.PricingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProductPriceHandler"
		logger := log.With(slog.String("op", op))

		productID := chi.URLParam(r, "id")
		if productID == "" {
			http.Error(w, "product id is required", http.StatusBadRequest)
			return
		}

		breakdowns, err := pricingService.PriceProduct(r.Context(), productID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, breakdowns)
	}
}

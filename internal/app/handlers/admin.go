package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/service"
)

// StatusRequest тело административной смены статуса
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}

// CancelRequest тело отмены, причина необязательна
type CancelRequest struct {
	Note string `json:"note"`
}

// UpdateOrderStatusHandler обрабатывает PATCH /api/admin/orders/{id}/status
func UpdateOrderStatusHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateOrderStatusHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}
		var req StatusRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		order, err := orderService.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), models.OrderStatus(req.Status), actor, req.Note)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, order)
	}
}

// UpdatePaymentStatusHandler обрабатывает PATCH /api/admin/orders/{id}/payment-status
func UpdatePaymentStatusHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdatePaymentStatusHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}
		var req StatusRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		order, err := orderService.UpdatePaymentStatus(r.Context(), chi.URLParam(r, "id"), models.PaymentStatus(req.Status), actor, req.Note)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, order)
	}
}

// CancelOrderHandler обрабатывает POST /api/admin/orders/{id}/cancel
func CancelOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CancelOrderHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}
		var req CancelRequest
		if r.ContentLength != 0 && !decodeRequest(w, r, logger, &req) {
			return
		}

		order, err := orderService.CancelOrder(r.Context(), chi.URLParam(r, "id"), actor, req.Note)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, order)
	}
}

// RepriceProductHandler обрабатывает POST /api/admin/products/{id}/reprice
func RepriceProductHandler(log *slog.Logger, pricingService service.PricingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RepriceProductHandler"
		logger := log.With(slog.String("op", op))

		breakdowns, err := pricingService.RefreshProductPrices(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, breakdowns)
	}
}

// DeactivateProductHandler обрабатывает POST /api/admin/products/{id}/deactivate
func DeactivateProductHandler(log *slog.Logger, pricingService service.PricingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeactivateProductHandler"
		logger := log.With(slog.String("op", op))

		if err := pricingService.DeactivateProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

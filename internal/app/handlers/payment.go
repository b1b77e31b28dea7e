package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/service"
)

const WebhookSecretHeader = "X-Webhook-Secret"

// PaymentWebhookRequest уведомление платёжного провайдера об итоге оплаты
type PaymentWebhookRequest struct {
	OrderID       string `json:"orderId" validate:"required"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status" validate:"required,oneof=success failure"`
	Reason        string `json:"reason"`
}

// PaymentWebhookHandler обрабатывает POST /api/payments/webhook.
// Провайдер повторяет доставку, поэтому повторное уведомление отвечает 200 без изменений.
func PaymentWebhookHandler(log *slog.Logger, orderService service.OrderService, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PaymentWebhookHandler"
		logger := log.With(slog.String("op", op))

		got := r.Header.Get(WebhookSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			logger.Warn("webhook rejected: bad secret")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req PaymentWebhookRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}
		logger = logger.With(slog.String("orderID", req.OrderID), slog.String("status", req.Status))

		var (
			order *models.Order
			err   error
		)
		if req.Status == "success" {
			order, err = orderService.HandlePaymentSuccess(r.Context(), req.OrderID, req.TransactionID)
		} else {
			order, err = orderService.HandlePaymentFailure(r.Context(), req.OrderID, req.Reason)
		}
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, order)
	}
}

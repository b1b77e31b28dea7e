package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/jewelry-shop/internal/service"
)

var validate = validator.New()

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error     string `json:"error"`
	ProductID string `json:"productId,omitempty"`
	VariantID string `json:"variantId,omitempty"`
	Available *int   `json:"available,omitempty"`
	Requested *int   `json:"requested,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// decodeRequest читает JSON тела и проверяет теги validate
func decodeRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Error("invalid request: decoding error", slog.Any("error", err))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		logger.Error("invalid request: validation error", slog.Any("error", err))
		http.Error(w, "validation error", http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor переводит ошибки сервиса в HTTP статус
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnavailable),
		errors.Is(err, service.ErrEmptyOrder):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError текст внутренних ошибок наружу не отдаётся
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.Any("error", err))
		writeJSON(w, logger, status, ErrorResponse{Error: "internal server error"})
		return
	}

	logger.Warn("request rejected", slog.Int("status", status), slog.Any("error", err))
	resp := ErrorResponse{Error: err.Error()}
	var stockErr *service.StockError
	if errors.As(err, &stockErr) {
		resp.ProductID = stockErr.ProductID
		resp.VariantID = stockErr.VariantID
		resp.Available = &stockErr.Available
		resp.Requested = &stockErr.Requested
	}
	writeJSON(w, logger, status, resp)
}

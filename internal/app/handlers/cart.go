package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/jewelry-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/jewelry-shop/internal/service"
)

// CartItemRequest тело POST и PUT /api/cart/items
type CartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	VariantID string `json:"variantId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=0"`
}

// userFromRequest достаёт userID, выставленный JWT middleware
func userFromRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	userID, ok := jwtmiddleware.FromContext(r.Context())
	if !ok {
		logger.Error("userID not found in context")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return userID, ok
}

// GetCartHandler обрабатывает GET /api/cart
func GetCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}

		cart, err := cartService.GetOrCreate(r.Context(), userID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, cart)
	}
}

// AddCartItemHandler обрабатывает POST /api/cart/items
func AddCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddCartItemHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}
		var req CartItemRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		cart, err := cartService.AddItem(r.Context(), userID, req.ProductID, req.VariantID, req.Quantity)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, cart)
	}
}

// UpdateCartItemHandler обрабатывает PUT /api/cart/items, quantity 0 удаляет строку
func UpdateCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateCartItemHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}
		var req CartItemRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		cart, err := cartService.UpdateItem(r.Context(), userID, req.ProductID, req.VariantID, req.Quantity)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, cart)
	}
}

// ClearCartHandler обрабатывает DELETE /api/cart
func ClearCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ClearCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}

		cart, err := cartService.Clear(r.Context(), userID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, cart)
	}
}

// CleanupCartHandler обрабатывает POST /api/cart/cleanup
func CleanupCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CleanupCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}

		cart, err := cartService.Cleanup(r.Context(), userID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, cart)
	}
}

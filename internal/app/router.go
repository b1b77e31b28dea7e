package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/jewelry-shop/internal/app/handlers"
	"github.com/linemk/jewelry-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/jewelry-shop/internal/lib/logger/handlers/urllog"
)

// FilesPrefix путь, по которому раздаются сохранённые счета
const FilesPrefix = "/files"

// Router собирает маршруты API
func (a *App) Router() http.Handler {
	log := a.Logger

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// вебхук провайдера подписан общим секретом, JWT у него нет
	router.Post("/api/payments/webhook", handlers.PaymentWebhookHandler(log, a.Order, a.Config.Payments.WebhookSecret))

	router.Handle(FilesPrefix+"/*", http.StripPrefix(FilesPrefix, http.FileServer(http.Dir(a.Files.Dir()))))

	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.NewJWTMiddleware(a.Config.JWT.Secret))

		r.Get("/api/cart", handlers.GetCartHandler(log, a.Cart))
		r.Delete("/api/cart", handlers.ClearCartHandler(log, a.Cart))
		r.Post("/api/cart/items", handlers.AddCartItemHandler(log, a.Cart))
		r.Put("/api/cart/items", handlers.UpdateCartItemHandler(log, a.Cart))
		r.Post("/api/cart/cleanup", handlers.CleanupCartHandler(log, a.Cart))

		r.Post("/api/orders", handlers.CreateOrderHandler(log, a.Order))
		r.Get("/api/orders", handlers.ListOrdersHandler(log, a.Order))
		r.Get("/api/orders/{id}", handlers.GetOrderHandler(log, a.Order))
		r.Post("/api/orders/{id}/invoice", handlers.InvoiceHandler(log, a.Order, a.Invoice))

		r.Get("/api/products/{id}/price", handlers.ProductPriceHandler(log, a.Pricing))

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(jwtmiddleware.RequireAdmin)
			r.Patch("/orders/{id}/status", handlers.UpdateOrderStatusHandler(log, a.Order))
			r.Patch("/orders/{id}/payment-status", handlers.UpdatePaymentStatusHandler(log, a.Order))
			r.Post("/orders/{id}/cancel", handlers.CancelOrderHandler(log, a.Order))
			r.Post("/products/{id}/reprice", handlers.RepriceProductHandler(log, a.Pricing))
			r.Post("/products/{id}/deactivate", handlers.DeactivateProductHandler(log, a.Pricing))
		})
	})

	return router
}

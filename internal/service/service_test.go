package service_test

import (
	"io"
	"log/slog"
	"time"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/service"
	"github.com/linemk/jewelry-shop/internal/storage/memory"
	"github.com/shopspring/decimal"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func gold(weight string) models.MetalComponent {
	return models.MetalComponent{Type: "gold", Purity: "22K", Weight: dec(weight)}
}

// newTestStore каталог: подвеска без вариантов, кольцо с размерами, неактивный браслет.
// Справочник: золото 22K по 5000, серебро 925 по 80.
func newTestStore() *memory.Storage {
	store := memory.New()
	store.SetMetalPrice("gold", "22K", dec("5000"))
	store.SetMetalPrice("silver", "925", dec("80"))

	store.PutProduct(&models.Product{
		ID:            "pendant",
		Name:          "Pendant",
		CategoryID:    "pendants",
		MakingCharge:  dec("1000"),
		Metals:        []models.MetalComponent{gold("5")},
		IsActive:      true,
		StockQuantity: 3,
		TotalPrice:    dec("26780"),
		UpdatedAt:     time.Now().UTC(),
	})
	store.PutProduct(&models.Product{
		ID:           "ring",
		Name:         "Ring",
		CategoryID:   "rings",
		MakingCharge: dec("1000"),
		IsActive:     true,
		Variants: []models.Variant{
			// цена ещё не рассчитана
			{ID: "size-6", Name: "Size 6", StockQuantity: 2, MakingCharge: dec("800"), Metals: []models.MetalComponent{gold("4")}},
			{ID: "size-7", Name: "Size 7", StockQuantity: 1, MakingCharge: dec("1000"), Metals: []models.MetalComponent{gold("5")}, TotalPrice: dec("26780")},
		},
	})
	store.PutProduct(&models.Product{
		ID:            "anklet",
		Name:          "Anklet",
		IsActive:      false,
		StockQuantity: 10,
		TotalPrice:    dec("1500"),
	})

	store.PutUser(&models.User{ID: "u1", Name: "Asha Rao", Email: "asha@example.com", Role: models.RoleCustomer, AuthProvider: "google"})
	store.PutUser(&models.User{ID: "u2", Name: "Ravi Kumar", Email: "ravi@example.com", Role: models.RoleCustomer, AuthProvider: "local"})
	store.PutUser(&models.User{ID: "admin", Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin, AuthProvider: "local"})
	return store
}

func newTestEngine(store *memory.Storage) *service.Engine {
	return service.NewEngine(newTestLogger(), store, decimal.NewFromInt(service.DefaultTaxPercent), time.Second)
}

type testServices struct {
	store  *memory.Storage
	engine *service.Engine
	carts  service.CartService
	orders service.OrderService
}

func newTestServices() *testServices {
	store := newTestStore()
	engine := newTestEngine(store)
	log := newTestLogger()
	carts := service.NewCartService(log, store, store, engine, 20)
	orders := service.NewOrderService(log, store, store, store, store, carts, engine, service.OrderSettings{
		Currency:              "INR",
		TaxPercent:            decimal.NewFromInt(3),
		ShippingCharge:        dec("99"),
		FreeShippingThreshold: dec("50000"),
		MaxUpdateAttempts:     20,
	})
	return &testServices{store: store, engine: engine, carts: carts, orders: orders}
}

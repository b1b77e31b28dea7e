package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/linemk/jewelry-shop/internal/config"
	"github.com/linemk/jewelry-shop/internal/invoice"
	"github.com/linemk/jewelry-shop/internal/objectstore"
	"github.com/linemk/jewelry-shop/internal/service"
	"github.com/linemk/jewelry-shop/internal/storage"
	"github.com/linemk/jewelry-shop/internal/storage/memory"
	"github.com/linemk/jewelry-shop/internal/storage/mongodb"
	"github.com/linemk/jewelry-shop/internal/storage/postgres"
	"github.com/shopspring/decimal"
)

// Storage набор репозиториев выбранного хранилища
type Storage struct {
	Users   storage.UserStorage
	Prices  storage.MetalPriceStorage
	Catalog storage.CatalogStorage
	Carts   storage.CartStorage
	Orders  storage.OrderStorage
}

type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Storage Storage
	Files   *objectstore.FileStore
	// Memory заполнено только для драйвера memory
	Memory *memory.Storage

	Pricing  service.PricingService
	Cart     service.CartService
	Order    service.OrderService
	Invoice  service.InvoiceService
	closeFns []func() error
}

// NewApp создаёт новый экземпляр App: подключает хранилище и собирает сервисы
func NewApp(log *slog.Logger, cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: log,
	}

	var err error
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		err = app.openPostgres()
	case config.StorageDriverMongo:
		err = app.openMongo()
	case config.StorageDriverMemory:
		log.Warn("using in-memory storage, data is lost on restart")
		app.useMemory(memory.New())
	default:
		err = fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}

	files, err := objectstore.NewFileStore(cfg.ObjectStorage.Dir, cfg.ObjectStorage.PublicBaseURL)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Files = files
	app.buildServices()

	return app, nil
}

func (a *App) openPostgres() error {
	dbCfg := a.Config.Database
	// реализуем подключение к БД через DSN, одинаковый для lib/pq и pgx
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.Name,
	)

	db, err := sql.Open(dbCfg.SQLDriver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(dbCfg.MaxOpenConns)
	db.SetMaxIdleConns(dbCfg.MaxIdleConns)
	db.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	a.closeFns = append(a.closeFns, db.Close)
	a.Logger.Info("connected to postgres", slog.String("sql_driver", dbCfg.SQLDriver), slog.String("host", dbCfg.Host))

	a.Storage = Storage{
		Users:   postgres.NewUserRepository(db),
		Prices:  postgres.NewMetalPriceRepository(db),
		Catalog: postgres.NewCatalogRepository(db),
		Carts:   postgres.NewCartRepository(db),
		Orders:  postgres.NewOrderRepository(db),
	}
	return nil
}

func (a *App) openMongo() error {
	mongoCfg := a.Config.Mongo
	client, err := mongodb.Connect(context.Background(), mongoCfg.URI, mongoCfg.Timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to mongo: %w", err)
	}
	a.closeFns = append(a.closeFns, func() error {
		return client.Disconnect(context.Background())
	})

	db := client.Database(mongoCfg.Database)
	if err := mongodb.EnsureIndexes(db, a.Logger); err != nil {
		_ = a.Close()
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}
	a.Logger.Info("connected to mongo", slog.String("database", mongoCfg.Database))

	a.Storage = Storage{
		Users:   mongodb.NewUserRepository(db),
		Prices:  mongodb.NewMetalPriceRepository(db),
		Catalog: mongodb.NewCatalogRepository(db),
		Carts:   mongodb.NewCartRepository(db),
		Orders:  mongodb.NewOrderRepository(db),
	}
	return nil
}

// useMemory подключает хранилище в памяти, каталог заполняется через a.Memory
func (a *App) useMemory(store *memory.Storage) {
	a.Memory = store
	a.Storage = Storage{
		Users:   store,
		Prices:  store,
		Catalog: store,
		Carts:   store,
		Orders:  store,
	}
}

func (a *App) buildServices() {
	cfg := a.Config
	taxPercent := decimal.NewFromFloat(cfg.Pricing.TaxPercent)

	engine := service.NewEngine(a.Logger, a.Storage.Prices, taxPercent, cfg.Pricing.LookupTimeout)
	a.Pricing = service.NewPricingService(a.Logger, engine, a.Storage.Catalog)
	a.Cart = service.NewCartService(a.Logger, a.Storage.Carts, a.Storage.Catalog, engine, cfg.Orders.MaxUpdateAttempts)
	a.Order = service.NewOrderService(
		a.Logger,
		a.Storage.Users,
		a.Storage.Catalog,
		a.Storage.Carts,
		a.Storage.Orders,
		a.Cart,
		engine,
		service.OrderSettings{
			Currency:              cfg.Orders.Currency,
			TaxPercent:            taxPercent,
			ShippingCharge:        decimal.NewFromFloat(cfg.Orders.ShippingCharge),
			FreeShippingThreshold: decimal.NewFromFloat(cfg.Orders.FreeShippingThreshold),
			MaxUpdateAttempts:     cfg.Orders.MaxUpdateAttempts,
		},
	)
	a.Invoice = service.NewInvoiceService(
		a.Logger,
		a.Storage.Orders,
		a.Storage.Users,
		invoice.NewPDFRenderer(),
		a.Files,
		invoice.Company{
			Name:    cfg.Invoice.CompanyName,
			Address: cfg.Invoice.CompanyAddress,
			Email:   cfg.Invoice.CompanyEmail,
			TaxID:   cfg.Invoice.CompanyTaxID,
		},
		cfg.Invoice.RenderTimeout,
	)
}

// Close закрывает подключения к хранилищу
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		if err := a.closeFns[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closeFns = nil
	return firstErr
}

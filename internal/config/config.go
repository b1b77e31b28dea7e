package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMongo    = "mongo"
	StorageDriverMemory   = "memory"

	SQLDriverPQ  = "postgres"
	SQLDriverPgx = "pgx"
)

type Config struct {
	Env           string              `yaml:"env" env-default:"development"` // environment
	HTTPServer    HTTPServerConfig    `yaml:"http_server"`
	Storage       StorageConfig       `yaml:"storage"`
	Database      DatabaseConfig      `yaml:"database"`
	Mongo         MongoConfig         `yaml:"mongo"`
	JWT           JWTConfig           `yaml:"jwt"`
	Payments      PaymentsConfig      `yaml:"payments"`
	Pricing       PricingConfig       `yaml:"pricing"`
	Orders        OrdersConfig        `yaml:"orders"`
	Invoice       InvoiceConfig       `yaml:"invoice"`
	ObjectStorage ObjectStorageConfig `yaml:"object_storage"`
	Migrations    MigrationsConfig    `yaml:"migrations"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// StorageConfig выбор хранилища: postgres, mongo или memory
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host            string        `yaml:"host" env-default:"localhost"`
	Port            int           `yaml:"port" env-default:"5432"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"-" env:"DB_PASSWORD"`
	Name            string        `yaml:"name"`
	SQLDriver       string        `yaml:"sql_driver" env-default:"postgres"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"25"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"25"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"5m"`
}

type MongoConfig struct {
	URI      string        `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string        `yaml:"database" env-default:"jewelry"`
	Timeout  time.Duration `yaml:"timeout" env-default:"10s"`
}

// JWTConfig настройка jwt; токены выпускает внешний сервис, здесь только проверка
type JWTConfig struct {
	Secret string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
}

// PaymentsConfig секрет, которым платёжный провайдер подписывает вебхуки
type PaymentsConfig struct {
	WebhookSecret string `yaml:"-" env:"PAYMENT_WEBHOOK_SECRET"`
}

type PricingConfig struct {
	TaxPercent    float64       `yaml:"tax_percent" env-default:"3"`
	LookupTimeout time.Duration `yaml:"lookup_timeout" env-default:"2s"`
}

type OrdersConfig struct {
	Currency              string  `yaml:"currency" env-default:"INR"`
	ShippingCharge        float64 `yaml:"shipping_charge" env-default:"0"`
	FreeShippingThreshold float64 `yaml:"free_shipping_threshold" env-default:"0"`
	MaxUpdateAttempts     int     `yaml:"max_update_attempts" env-default:"5"`
}

type InvoiceConfig struct {
	CompanyName    string        `yaml:"company_name" env-default:"Jewelry Shop"`
	CompanyAddress string        `yaml:"company_address"`
	CompanyEmail   string        `yaml:"company_email"`
	CompanyTaxID   string        `yaml:"company_tax_id"`
	RenderTimeout  time.Duration `yaml:"render_timeout" env-default:"10s"`
}

// ObjectStorageConfig куда складываются счета и по какому адресу они доступны
type ObjectStorageConfig struct {
	Dir           string `yaml:"dir" env-default:"./data/objects"`
	PublicBaseURL string `yaml:"public_base_url" env-default:"http://localhost:8080/files"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	// .env необязателен, переменные окружения процесса имеют приоритет
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	switch cfg.Storage.Driver {
	case StorageDriverPostgres:
		if cfg.Database.Password == "" {
			log.Fatal("DB_PASSWORD environment variable is required for postgres storage")
		}
		if cfg.Database.SQLDriver != SQLDriverPQ && cfg.Database.SQLDriver != SQLDriverPgx {
			log.Fatalf("unknown sql driver %q", cfg.Database.SQLDriver)
		}
	case StorageDriverMongo, StorageDriverMemory:
	default:
		log.Fatalf("unknown storage driver %q", cfg.Storage.Driver)
	}

	return &cfg
}

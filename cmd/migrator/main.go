package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/linemk/jewelry-shop/internal/config"
	"github.com/pkg/errors"
)

const migrationTableName = "migrations"

// buildMigrateDSN собирает строку подключения (DSN) из отдельных параметров
func buildMigrateDSN(dbCfg config.DatabaseConfig, migrationTable string) string {
	return fmt.Sprintf("%s&x-migrations-table=%s", buildQueryDSN(dbCfg), migrationTable)
}

// buildQueryDSN собирает DSN для обычных SQL запросов
func buildQueryDSN(dbCfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(dbCfg.User), url.QueryEscape(dbCfg.Password), dbCfg.Host, dbCfg.Port, dbCfg.Name,
	)
}

func main() {
	var migrationsPathFlag string
	var down bool
	flag.StringVar(&migrationsPathFlag, "migrations-path", "", "path to migration files")
	flag.BoolVar(&down, "down", false, "roll back all migrations")

	// флаги разбирает config.MustLoad
	cfg := config.MustLoad()

	if cfg.Storage.Driver != config.StorageDriverPostgres {
		log.Printf("storage driver is %q, nothing to migrate", cfg.Storage.Driver)
		return
	}

	migrationsPath := cfg.Migrations.Path
	if migrationsPathFlag != "" {
		migrationsPath = migrationsPathFlag
	}

	if err := run(cfg.Database, migrationsPath, down); err != nil {
		log.Fatalf("%+v", err)
	}

	if err := printTables(cfg.Database); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(dbCfg config.DatabaseConfig, migrationsPath string, down bool) error {
	// Создаем объект мигратора
	m, err := migrate.New("file://"+migrationsPath, buildMigrateDSN(dbCfg, migrationTableName))
	if err != nil {
		return errors.Wrap(err, "failed to create migrate instance")
	}
	defer m.Close()

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Println("No migrations to apply")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "migration failed")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return errors.Wrap(err, "failed to read migration version")
	}
	log.Printf("Migrations applied successfully, version=%d dirty=%t", version, dirty)
	return nil
}

func printTables(dbCfg config.DatabaseConfig) error {
	db, err := sql.Open("postgres", buildQueryDSN(dbCfg))
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name
	`)
	if err != nil {
		return errors.Wrap(err, "failed to query tables")
	}
	defer rows.Close()

	fmt.Println("Current tables in the database:")
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return errors.Wrap(err, "failed to scan row")
		}
		fmt.Println(" -", tableName)
	}
	return errors.Wrap(rows.Err(), "error reading rows")
}

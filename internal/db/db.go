package db

import (
	"errors"
	"fmt"
	"os"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the sqlite3 driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/somagec/quarrystock/internal/models"
)

// ConnectAndMigrate opens the sqlite database and brings the schema up
// to date. With MIGRATIONS=1 the SQL migrations in ./migrations run via
// golang-migrate; otherwise AutoMigrate is used (dev convenience, and
// the path tests rely on).
func ConnectAndMigrate(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty, check DATABASE_PATH")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	// foreign_keys pragma makes sqlite honor the FK constraints that
	// back the cascade delete of invoice/waybill items.
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on"
	}
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logLevel)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(path); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := AutoMigrate(conn); err != nil {
			return nil, err
		}
	}
	for _, table := range []string{"users", "products", "clients", "invoices", "waybills"} {
		if !conn.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		seed(conn)
	}
	return conn, nil
}

// AutoMigrate creates or updates every table from the model structs.
func AutoMigrate(conn *gorm.DB) error {
	modelsToMigrate := []interface{}{
		&models.User{}, &models.Product{}, &models.Client{},
		&models.Invoice{}, &models.InvoiceItem{},
		&models.Waybill{}, &models.WaybillItem{},
		&models.CompanyProfile{}, &models.EmailSettings{}, &models.BackupSettings{},
	}
	for _, m := range modelsToMigrate {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

func seed(conn *gorm.DB) {
	baseProducts := []models.Product{
		{Name: "Gravilha", Grade: "4/8", Unit: models.UnitTon},
		{Name: "Brita", Grade: "8/16", Unit: models.UnitTon},
		{Name: "Areia", Unit: models.UnitCubicMeter},
	}
	for _, p := range baseProducts {
		var existing models.Product
		if err := conn.Where("name = ? AND grade = ?", p.Name, p.Grade).First(&existing).Error; err == gorm.ErrRecordNotFound {
			conn.Create(&p)
		}
	}
	log.Info().Msg("seeded base products")
}

// runSQLMigrations executes migrations in ./migrations using the
// golang-migrate file source.
func runSQLMigrations(path string) error {
	m, err := migrate.New("file://migrations", "sqlite3://"+path)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

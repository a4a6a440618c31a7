package services

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/somagec/quarrystock/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Client{},
		&models.Invoice{}, &models.InvoiceItem{},
		&models.Waybill{}, &models.WaybillItem{},
		&models.CompanyProfile{}, &models.EmailSettings{}, &models.BackupSettings{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func seedFixtures(t *testing.T, db *gorm.DB) (models.User, models.Client, models.Product) {
	t.Helper()
	user := models.User{Email: "ops@test", Password: "x", Name: "Ops"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	client := models.Client{Name: "Obras do Norte", Email: "obras@test"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	product := models.Product{
		Name: "Gravilha", Grade: "4/8", Unit: models.UnitTon,
		Stock: dec(t, "100.00"), UnitPrice: dec(t, "10.00"),
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("product: %v", err)
	}
	return user, client, product
}

func productStock(t *testing.T, db *gorm.DB, id uint) decimal.Decimal {
	t.Helper()
	var p models.Product
	if err := db.First(&p, id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return p.Stock
}

package mysql

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"paycore/domain/payment"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// openTestDB opens a throwaway sqlite database with the full schema.
// TranslateError maps the driver's unique-constraint errors onto
// gorm.ErrDuplicatedKey, the same classification the MySQL pool uses.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "paycore.db")), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&payment.Organization{},
		&payment.User{},
		&payment.Customer{},
		&payment.PaymentLink{},
		&payment.PaymentOrder{},
		&OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate test schema: %v", err)
	}
	return db
}

func seedLink(t *testing.T, db *gorm.DB, id, orgID string) *payment.PaymentLink {
	t.Helper()
	link := &payment.PaymentLink{
		ID:             id,
		OrganizationID: orgID,
		Title:          "Invoice",
		Amount:         dec("49.99"),
		Currency:       "USD",
		Active:         true,
	}
	if err := db.Create(link).Error; err != nil {
		t.Fatalf("seed payment link: %v", err)
	}
	return link
}

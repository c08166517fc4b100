// Package testutil provides a migrated SQLite database and fixtures for package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/foodorder/internal/database"
	"github.com/example/foodorder/internal/models"
)

// NewDB opens a file-backed SQLite database in t.TempDir with the full schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Now is a fixed, second-aligned UTC instant used across tests.
var Now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// Clock returns a func always reporting t.
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create fixture %T: %v", value, err)
	}
}

// Branch creates an active branch.
func Branch(t *testing.T, db *gorm.DB, name string) models.Branch {
	t.Helper()
	b := models.Branch{Name: name, AddressLine: name + " street", IsActive: true}
	mustCreate(t, db, &b)
	return b
}

// Zone creates a delivery zone for branch.
func Zone(t *testing.T, db *gorm.DB, branch models.Branch, fee, minOrder int64) models.Zone {
	t.Helper()
	z := models.Zone{BranchID: branch.ID, Name: branch.Name + " zone", DeliveryFee: fee, MinOrderAmount: minOrder}
	mustCreate(t, db, &z)
	return z
}

// PizzaFixture is the dish from the pricing examples with its selectable options.
type PizzaFixture struct {
	Dish    models.Dish
	Large   models.DishVariant
	Cheese  models.DishModifier
	NoOnion models.DishModifier
}

// Pizza creates an active dish priced 1900 with a +500 variant, a 240 addon and an exclusion.
func Pizza(t *testing.T, db *gorm.DB) PizzaFixture {
	t.Helper()
	dish := models.Dish{
		Name:      "Margherita",
		NameUz:    "Margarita",
		BasePrice: 1900,
		IsActive:  true,
		Variants:  []models.DishVariant{{Name: "Large", PriceDelta: 500}},
		Modifiers: []models.DishModifier{
			{Name: "Extra cheese", Kind: models.ModifierAddon, Price: 240},
			{Name: "No onion", Kind: models.ModifierExclusion, Price: 999},
		},
	}
	mustCreate(t, db, &dish)
	return PizzaFixture{
		Dish:    dish,
		Large:   dish.Variants[0],
		Cheese:  dish.Modifiers[0],
		NoOnion: dish.Modifiers[1],
	}
}

// Dish creates a plain active dish.
func Dish(t *testing.T, db *gorm.DB, name string, price int64) models.Dish {
	t.Helper()
	d := models.Dish{Name: name, BasePrice: price, IsActive: true}
	mustCreate(t, db, &d)
	return d
}

// User creates a customer with the given cached balance.
func User(t *testing.T, db *gorm.DB, phone string, balance int64) models.User {
	t.Helper()
	u := models.User{Name: "Customer " + phone, Phone: &phone, BonusBalance: balance}
	mustCreate(t, db, &u)
	return u
}

// Grant creates a bonus grant for user.
func Grant(t *testing.T, db *gorm.DB, userID uuid.UUID, amount, used int64, expiresAt time.Time) models.BonusTransaction {
	t.Helper()
	g := models.BonusTransaction{UserID: userID, Amount: amount, Used: used, ExpiresAt: expiresAt}
	mustCreate(t, db, &g)
	return g
}

// Promo creates a promo code valid until expiresAt.
func Promo(t *testing.T, db *gorm.DB, code string, percent int, expiresAt time.Time, maxUses *int, branches ...models.Branch) models.PromoCode {
	t.Helper()
	p := models.PromoCode{
		Code:            code,
		DiscountPercent: percent,
		ExpiresAt:       expiresAt,
		MaxUses:         maxUses,
		Branches:        branches,
	}
	mustCreate(t, db, &p)
	return p
}

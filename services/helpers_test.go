package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"storefront-backend/database"
	"storefront-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory database per test. A single connection
// keeps the memory database alive and serializes transactions the way a row
// lock would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()

	product := models.Product{
		Name:        name,
		Description: name + " description",
		Category:    "electronics",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

func newCartFixture(t *testing.T) (*CartService, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	return NewCartService(db, NewProductService(db), nil), db
}

func mustCreateCart(t *testing.T, svc *CartService) *models.Cart {
	t.Helper()

	cart, err := svc.CreateCart(context.Background(), uuid.New())
	require.NoError(t, err)
	return cart
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(expected).Equal(actual),
		"expected %s, got %s", expected, actual.String())
}

// lineFor returns the cart line holding productID, failing the test if none does.
func lineFor(t *testing.T, cart *models.Cart, productID uuid.UUID) models.CartItem {
	t.Helper()
	for _, item := range cart.Items {
		if item.ProductID == productID {
			return item
		}
	}
	require.Failf(t, "missing cart line", "product %s not in cart %s", productID, cart.ID)
	return models.CartItem{}
}

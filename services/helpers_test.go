package services

import (
	"testing"

	"github.com/candleworks/storefront-api/models"
	"github.com/candleworks/storefront-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewTestDB(t, models.All()...)
}

func uintPtr(v uint) *uint { return &v }

func strPtr(v string) *string { return &v }

func moneyPtr(v string) *models.Money {
	m := models.NewMoney(v)
	return &m
}

func createUser(t *testing.T, db *gorm.DB, auth0ID string) models.User {
	t.Helper()
	user := models.User{
		Auth0ID: auth0ID,
		Name:    "User " + auth0ID,
		Email:   auth0ID + "@example.com",
		Role:    models.RoleCustomer,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createProduct(t *testing.T, db *gorm.DB, name, price string, hasColorOptions bool) models.Product {
	t.Helper()
	product := models.Product{
		Name:            name,
		Price:           models.NewMoney(price),
		Stock:           10,
		HasColorOptions: hasColorOptions,
		Active:          true,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func createScent(t *testing.T, db *gorm.DB, name string) models.Scent {
	t.Helper()
	scent := models.Scent{Name: name, Active: true}
	require.NoError(t, db.Create(&scent).Error)
	return scent
}

func createColor(t *testing.T, db *gorm.DB, name, hex string) models.Color {
	t.Helper()
	color := models.Color{Name: name, HexValue: hex, Active: true}
	require.NoError(t, db.Create(&color).Error)
	return color
}

func linkScent(t *testing.T, db *gorm.DB, productID, scentID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.ProductScent{ProductID: productID, ScentID: scentID}).Error)
}

func linkColor(t *testing.T, db *gorm.DB, productID, colorID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.ProductColor{ProductID: productID, ColorID: colorID}).Error)
}

func checkoutDetails() CustomerDetails {
	return CustomerDetails{
		CustomerName:       "Ana Horvat",
		CustomerEmail:      "ana@example.com",
		CustomerPhone:      "+385 91 000 0000",
		ShippingAddress:    "Ilica 1",
		ShippingCity:       "Zagreb",
		ShippingPostalCode: "10000",
		ShippingCountry:    "Croatia",
		Language:           "hr",
		PaymentMethod:      "paypal",
	}
}

// fixedShipping quotes a constant shipping cost
type fixedShipping struct {
	cost models.Money
}

func (f fixedShipping) QuoteShipping(models.Money) models.Money {
	return f.cost
}

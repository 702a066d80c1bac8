package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/candleworks/storefront-api/config"
	"github.com/candleworks/storefront-api/middleware"
	"github.com/candleworks/storefront-api/models"
	"github.com/candleworks/storefront-api/services"
	"github.com/candleworks/storefront-api/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	customerSubject = "auth0|customer"
	otherSubject    = "auth0|other"
	adminSubject    = "auth0|admin"
)

// setupTestDB installs a fresh in-memory database and settings store as the
// package globals and restores the previous ones when the test ends. Object
// storage starts disabled; tests that need it install the mocks.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t, models.All()...)

	originalDB := config.GetDB()
	originalConfig := config.GetConfig()
	originalSettings := services.GetSettingsService()
	originalImages := services.GetImageService()
	originalS3 := services.GetS3Service()
	t.Cleanup(func() {
		config.SetDB(originalDB)
		config.SetConfig(originalConfig)
		services.SetSettingsService(originalSettings)
		services.SetImageService(originalImages)
		services.SetS3Service(originalS3)
	})

	config.SetDB(db)
	config.SetConfig(&config.Config{GoEnv: "test"})
	services.SetSettingsService(services.NewSettingsService(db, nil))
	services.SetImageService(nil)
	services.SetS3Service(nil)

	return db
}

// setupTestRouter registers the API routes behind the mock auth middleware,
// grouped the same way as the production router
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	api := router.Group("/api")
	api.GET("/products", ListProducts)
	api.GET("/products/:id", GetProduct)
	api.GET("/products/:id/image", GetProductImage)
	api.GET("/products/:id/scents", ListProductScents)
	api.GET("/products/:id/colors", ListProductColors)
	api.GET("/scents", ListScents(true))
	api.GET("/colors", ListColors(true))
	api.GET("/settings", GetSettings)

	authed := api.Group("", testutil.MockAuthMiddleware())
	authed.POST("/users", CreateUser)

	user := authed.Group("", middleware.LoadCurrentUser())
	user.GET("/users/me", GetMyProfile)
	user.PUT("/users/me", UpdateMyProfile)
	user.GET("/cart", GetCart)
	user.POST("/cart", AddToCart)
	user.PUT("/cart/:id", UpdateCartItem)
	user.DELETE("/cart/:id", RemoveCartItem)
	user.DELETE("/cart", ClearCart)
	user.POST("/orders", CreateOrder)
	user.GET("/orders", ListOrders)
	user.GET("/orders/:id", GetOrder)
	user.GET("/orders/:id/items", GetOrderItems)
	user.POST("/orders/:id/invoice", GenerateOrderInvoice)
	user.GET("/orders/:id/invoice/pdf", GetOrderInvoicePDF)
	user.GET("/invoices", ListInvoices)
	user.GET("/invoices/:id", GetInvoice)
	user.GET("/invoices/:id/pdf", GetInvoicePDF)

	admin := authed.Group("", middleware.RequireAdmin())
	admin.GET("/admin/products", ListAllProducts)
	admin.GET("/admin/scents", ListScents(false))
	admin.GET("/admin/colors", ListColors(false))
	admin.POST("/admin/orders", CreateAdminOrder)
	admin.POST("/products", CreateProduct)
	admin.PUT("/products/:id", UpdateProduct)
	admin.DELETE("/products/:id", DeleteProduct)
	admin.POST("/products/:id/image", UploadProductImage)
	admin.POST("/products/:id/scents", AddProductScent)
	admin.DELETE("/products/:id/scents", RemoveAllProductScents)
	admin.DELETE("/products/:id/scents/:scentId", RemoveProductScent)
	admin.POST("/products/:id/colors", AddProductColor)
	admin.DELETE("/products/:id/colors", RemoveAllProductColors)
	admin.DELETE("/products/:id/colors/:colorId", RemoveProductColor)
	admin.POST("/scents", CreateScent)
	admin.PUT("/scents/:id", UpdateScent)
	admin.DELETE("/scents/:id", DeleteScent)
	admin.POST("/colors", CreateColor)
	admin.PUT("/colors/:id", UpdateColor)
	admin.DELETE("/colors/:id", DeleteColor)
	admin.PUT("/orders/:id/status", UpdateOrderStatus)
	admin.POST("/invoices", CreateInvoice)
	admin.DELETE("/invoices/:id", DeleteInvoice)
	admin.PUT("/settings/:key", UpdateSetting)
	admin.DELETE("/settings/:key", DeleteSetting)

	return router
}

// performRequest sends a request as subject (anonymous when empty). A non-nil
// body is encoded as JSON unless it is already an io.Reader.
func performRequest(router *gin.Engine, method, path, subject string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	isJSON := false
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		encoded, _ := json.Marshal(b)
		reader = bytes.NewReader(encoded)
		isJSON = true
	}

	req := httptest.NewRequest(method, path, reader)
	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	if subject != "" {
		req.Header.Set("X-Test-User", subject)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// apiResponse is the envelope written by utils.RespondData and utils.RespondError
type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var response apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return response
}

// decodeData unmarshals the data field of a successful response into dest
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	response := decodeResponse(t, w)
	require.True(t, response.Success, "body: %s", w.Body.String())
	require.NoError(t, json.Unmarshal(response.Data, dest))
}

// assertErrorCode checks status and error code of a failed response
func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
	response := decodeResponse(t, w)
	require.False(t, response.Success)
	require.Equal(t, code, response.Error.Code)
}

func createTestUser(t *testing.T, db *gorm.DB, auth0ID, role string) models.User {
	t.Helper()
	user := models.User{
		Auth0ID: auth0ID,
		Name:    "User " + auth0ID,
		Email:   auth0ID[len("auth0|"):] + "@example.com",
		Role:    role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTestProduct(t *testing.T, db *gorm.DB, name, price string) models.Product {
	t.Helper()
	product := models.Product{
		Name:   name,
		Price:  models.NewMoney(price),
		Stock:  10,
		Active: true,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func createTestScent(t *testing.T, db *gorm.DB, name string, active bool) models.Scent {
	t.Helper()
	scent := models.Scent{Name: name, Active: active}
	require.NoError(t, db.Create(&scent).Error)
	return scent
}

func createTestColor(t *testing.T, db *gorm.DB, name, hex string) models.Color {
	t.Helper()
	color := models.Color{Name: name, HexValue: hex, Active: true}
	require.NoError(t, db.Create(&color).Error)
	return color
}

func checkoutBody() map[string]interface{} {
	return map[string]interface{}{
		"customer_name":        "Ana Horvat",
		"customer_email":       "ana@example.com",
		"customer_phone":       "+385 91 000 0000",
		"shipping_address":     "Ilica 1",
		"shipping_city":        "Zagreb",
		"shipping_postal_code": "10000",
		"shipping_country":     "Croatia",
		"language":             "en",
		"payment_method":       "paypal",
	}
}

// placeOrder fills the subject's cart with product and checks out
func placeOrder(t *testing.T, router *gin.Engine, subject string, productID uint, quantity int) models.Order {
	t.Helper()
	w := performRequest(router, http.MethodPost, "/api/cart", subject, map[string]interface{}{
		"product_id": productID,
		"quantity":   quantity,
	})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	w = performRequest(router, http.MethodPost, "/api/orders", subject, checkoutBody())
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	var order models.Order
	decodeData(t, w, &order)
	return order
}

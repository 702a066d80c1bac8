package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/candleworks/storefront-api/models"
	"github.com/candleworks/storefront-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder_Checkout(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter()
	customer := createTestUser(t, db, customerSubject, models.RoleCustomer)

	product := createTestProduct(t, db, "Lavender Jar", "12.50")
	lavender := createTestScent(t, db, "Lavender", true)
	require.NoError(t, db.Create(&models.ProductScent{ProductID: product.ID, ScentID: lavender.ID}).Error)

	w := performRequest(router, http.MethodPost, "/api/orders", customerSubject, checkoutBody())
	assertErrorCode(t, w, http.StatusBadRequest, "EMPTY_CART")

	w = performRequest(router, http.MethodPost, "/api/cart", customerSubject, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   3,
		"scent_id":   lavender.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	invalid := checkoutBody()
	invalid["language"] = "fr"
	w = performRequest(router, http.MethodPost, "/api/orders", customerSubject, invalid)
	assertErrorCode(t, w, http.StatusBadRequest, "INVALID_LANGUAGE")

	incomplete := checkoutBody()
	delete(incomplete, "shipping_city")
	w = performRequest(router, http.MethodPost, "/api/orders", customerSubject, incomplete)
	assertErrorCode(t, w, http.StatusBadRequest, "VALIDATION_ERROR")

	w = performRequest(router, http.MethodPost, "/api/orders", customerSubject, checkoutBody())
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	var order models.Order
	decodeData(t, w, &order)
	assert.Equal(t, customer.ID, order.UserID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "37.50", order.Subtotal.String())
	assert.Equal(t, "5.00", order.ShippingCost.String())
	assert.Equal(t, "0.00", order.DiscountAmount.String())
	assert.Equal(t, "42.50", order.Total.String())
	assert.Equal(t, "en", order.Language)

	// checkout empties the cart
	var cart services.Cart
	w = performRequest(router, http.MethodGet, "/api/cart", customerSubject, nil)
	decodeData(t, w, &cart)
	assert.Empty(t, cart.Items)

	// items keep their snapshot after the product is gone
	require.NoError(t, db.Delete(&models.Product{}, product.ID).Error)

	var items []models.OrderItem
	w = performRequest(router, http.MethodGet, fmt.Sprintf("/api/orders/%d/items", order.ID), customerSubject, nil)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	decodeData(t, w, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "Lavender Jar", items[0].ProductName)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "12.50", items[0].Price.String())
	require.NotNil(t, items[0].ScentName)
	assert.Equal(t, "Lavender", *items[0].ScentName)
	require.NotNil(t, items[0].Product)
	assert.False(t, items[0].Product.Active)
}

func TestCreateOrder_InactiveProductInCart(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter()
	createTestUser(t, db, customerSubject, models.RoleCustomer)
	product := createTestProduct(t, db, "Seasonal Pillar", "10.00")

	w := performRequest(router, http.MethodPost, "/api/cart", customerSubject, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   1,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, db.Model(&product).Update("active", false).Error)

	w = performRequest(router, http.MethodPost, "/api/orders", customerSubject, checkoutBody())
	assertErrorCode(t, w, http.StatusBadRequest, "PRODUCT_INACTIVE")

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.CartItem{}).Count(&count)
	assert.Equal(t, int64(1), count, "a failed checkout keeps the cart")
}

func TestGetOrder_Ownership(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter()
	createTestUser(t, db, customerSubject, models.RoleCustomer)
	createTestUser(t, db, otherSubject, models.RoleCustomer)
	createTestUser(t, db, adminSubject, models.RoleAdmin)
	product := createTestProduct(t, db, "Lavender Jar", "12.00")

	order := placeOrder(t, router, customerSubject, product.ID, 1)
	orderPath := fmt.Sprintf("/api/orders/%d", order.ID)

	tests := []struct {
		name           string
		path           string
		subject        string
		expectedStatus int
		expectedCode   string
	}{
		{"owner", orderPath, customerSubject, http.StatusOK, ""},
		{"admin", orderPath, adminSubject, http.StatusOK, ""},
		{"other customer", orderPath, otherSubject, http.StatusNotFound, "ORDER_NOT_FOUND"},
		{"other customer items", orderPath + "/items", otherSubject, http.StatusNotFound, "ORDER_NOT_FOUND"},
		{"missing order", "/api/orders/9999", customerSubject, http.StatusNotFound, "ORDER_NOT_FOUND"},
		{"invalid id", "/api/orders/abc", customerSubject, http.StatusBadRequest, "INVALID_ID"},
		{"no profile", orderPath, "auth0|stranger", http.StatusNotFound, "USER_NOT_FOUND"},
		{"anonymous", orderPath, "", http.StatusUnauthorized, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodGet, tt.path, tt.subject, nil)
			if tt.expectedCode != "" {
				assertErrorCode(t, w, tt.expectedStatus, tt.expectedCode)
				return
			}
			require.Equal(t, tt.expectedStatus, w.Code, "body: %s", w.Body.String())
			var fetched models.Order
			decodeData(t, w, &fetched)
			assert.Equal(t, order.ID, fetched.ID)
			assert.Len(t, fetched.Items, 1)
		})
	}
}

func TestListOrders(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter()
	customer := createTestUser(t, db, customerSubject, models.RoleCustomer)
	createTestUser(t, db, otherSubject, models.RoleCustomer)
	createTestUser(t, db, adminSubject, models.RoleAdmin)
	product := createTestProduct(t, db, "Lavender Jar", "12.00")

	first := placeOrder(t, router, customerSubject, product.ID, 1)
	placeOrder(t, router, customerSubject, product.ID, 2)
	placeOrder(t, router, otherSubject, product.ID, 1)

	w := performRequest(router, http.MethodPut, fmt.Sprintf("/api/orders/%d/status", first.ID), adminSubject,
		map[string]string{"status": models.OrderStatusShipped})
	require.Equal(t, http.StatusOK, w.Code)

	tests := []struct {
		name          string
		subject       string
		query         string
		expectedTotal int64
		expectedCount int
	}{
		{"own orders", customerSubject, "", 2, 2},
		{"user_id is ignored for customers", otherSubject, fmt.Sprintf("?user_id=%d", customer.ID), 1, 1},
		{"admin sees every order", adminSubject, "", 3, 3},
		{"admin filters by user", adminSubject, fmt.Sprintf("?user_id=%d", customer.ID), 2, 2},
		{"status filter", adminSubject, "?status=shipped", 1, 1},
		{"pagination", adminSubject, "?page=2&limit=2", 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodGet, "/api/orders"+tt.query, tt.subject, nil)
			require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

			var page services.OrderPage
			decodeData(t, w, &page)
			assert.Equal(t, tt.expectedTotal, page.Total)
			assert.Len(t, page.Orders, tt.expectedCount)
		})
	}

	w = performRequest(router, http.MethodGet, "/api/orders?status=lost", adminSubject, nil)
	assertErrorCode(t, w, http.StatusBadRequest, "INVALID_STATUS")

	w = performRequest(router, http.MethodGet, "/api/orders?user_id=abc", adminSubject, nil)
	assertErrorCode(t, w, http.StatusBadRequest, "INVALID_ID")
}

func TestUpdateOrderStatus(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter()
	createTestUser(t, db, customerSubject, models.RoleCustomer)
	createTestUser(t, db, adminSubject, models.RoleAdmin)
	product := createTestProduct(t, db, "Lavender Jar", "12.00")
	order := placeOrder(t, router, customerSubject, product.ID, 1)
	statusPath := fmt.Sprintf("/api/orders/%d/status", order.ID)

	w := performRequest(router, http.MethodPut, statusPath, customerSubject, map[string]string{"status": "shipped"})
	assertErrorCode(t, w, http.StatusForbidden, "FORBIDDEN")

	w = performRequest(router, http.MethodPut, statusPath, adminSubject, map[string]string{"status": "teleported"})
	assertErrorCode(t, w, http.StatusBadRequest, "INVALID_STATUS")

	w = performRequest(router, http.MethodPut, statusPath, adminSubject, map[string]string{})
	assertErrorCode(t, w, http.StatusBadRequest, "VALIDATION_ERROR")

	w = performRequest(router, http.MethodPut, "/api/orders/9999/status", adminSubject, map[string]string{"status": "shipped"})
	assertErrorCode(t, w, http.StatusNotFound, "ORDER_NOT_FOUND")

	// no transition graph: any status may follow any other
	for _, status := range []string{models.OrderStatusCompleted, models.OrderStatusPending, models.OrderStatusCancelled} {
		w = performRequest(router, http.MethodPut, statusPath, adminSubject, map[string]string{
			"status":         status,
			"payment_status": "paid",
		})
		require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

		var updated models.Order
		decodeData(t, w, &updated)
		assert.Equal(t, status, updated.Status)
		assert.Equal(t, "paid", updated.PaymentStatus)
		assert.Equal(t, order.Total.String(), updated.Total.String(), "totals are immutable")
	}
}

func TestCreateAdminOrder(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter()
	customer := createTestUser(t, db, customerSubject, models.RoleCustomer)
	createTestUser(t, db, adminSubject, models.RoleAdmin)
	product := createTestProduct(t, db, "Lavender Jar", "12.00")

	body := checkoutBody()
	body["user_id"] = customer.ID
	body["status"] = models.OrderStatusProcessing
	body["shipping_cost"] = "3.5"
	body["items"] = []map[string]interface{}{{"product_id": product.ID, "quantity": 2}}

	w := performRequest(router, http.MethodPost, "/api/admin/orders", customerSubject, body)
	assertErrorCode(t, w, http.StatusForbidden, "FORBIDDEN")

	w = performRequest(router, http.MethodPost, "/api/admin/orders", adminSubject, body)
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	var order models.Order
	decodeData(t, w, &order)
	assert.Equal(t, customer.ID, order.UserID)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Equal(t, "24.00", order.Subtotal.String())
	assert.Equal(t, "3.50", order.ShippingCost.String())
	assert.Equal(t, "27.50", order.Total.String())

	body["user_id"] = 9999
	w = performRequest(router, http.MethodPost, "/api/admin/orders", adminSubject, body)
	assertErrorCode(t, w, http.StatusNotFound, "USER_NOT_FOUND")

	body["user_id"] = customer.ID
	body["items"] = []map[string]interface{}{}
	w = performRequest(router, http.MethodPost, "/api/admin/orders", adminSubject, body)
	assertErrorCode(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestGenerateOrderInvoice(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter()
	createTestUser(t, db, customerSubject, models.RoleCustomer)
	createTestUser(t, db, otherSubject, models.RoleCustomer)
	product := createTestProduct(t, db, "Lavender Jar", "12.00")
	order := placeOrder(t, router, customerSubject, product.ID, 2)

	mockS3 := services.NewMockS3Service()
	mockS3.SetAsMockForTesting()

	invoicePath := fmt.Sprintf("/api/orders/%d/invoice", order.ID)

	// before an invoice exists the PDF is a preview with a synthetic number
	w := performRequest(router, http.MethodGet, invoicePath+"/pdf", customerSubject, nil)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="preview-i450.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = performRequest(router, http.MethodPost, invoicePath, otherSubject, nil)
	assertErrorCode(t, w, http.StatusNotFound, "ORDER_NOT_FOUND")

	w = performRequest(router, http.MethodPost, invoicePath, customerSubject, nil)
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	var invoice models.Invoice
	decodeData(t, w, &invoice)

	expectedNumber := fmt.Sprintf("%d-0001", time.Now().Year())
	assert.Equal(t, expectedNumber, invoice.InvoiceNumber)
	assert.Equal(t, "24.00", invoice.Subtotal.String())
	assert.Equal(t, "0.00", invoice.Tax.String())
	assert.Equal(t, order.Total.String(), invoice.Total.String())
	assert.Len(t, mockS3.GetUploadedFiles(), 1, "the rendered PDF is archived")

	// generating again returns the same invoice
	w = performRequest(router, http.MethodPost, invoicePath, customerSubject, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var again models.Invoice
	decodeData(t, w, &again)
	assert.Equal(t, invoice.ID, again.ID)
	assert.Equal(t, expectedNumber, again.InvoiceNumber)

	w = performRequest(router, http.MethodGet, invoicePath+"/pdf", customerSubject, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, expectedNumber), w.Header().Get("Content-Disposition"))

	w = performRequest(router, http.MethodGet, invoicePath+"/pdf", otherSubject, nil)
	assertErrorCode(t, w, http.StatusNotFound, "ORDER_NOT_FOUND")
}

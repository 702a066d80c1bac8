package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/candleworks/storefront-api/services"
	"github.com/candleworks/storefront-api/utils"
	"github.com/gin-gonic/gin"
)

// UpdateOrderStatusRequest represents the request body for changing an order status
type UpdateOrderStatusRequest struct {
	Status        string  `json:"status" binding:"required"`
	PaymentStatus *string `json:"payment_status" binding:"omitempty,max=50"`
}

// CreateOrder handles POST /api/orders - checks out the current user's cart
func CreateOrder(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req services.CheckoutInput
	if !bindJSON(c, &req) {
		return
	}

	order, err := orderService().Checkout(c.Request.Context(), user.ID, req)
	if err != nil {
		respondServiceError(c, err, "Failed to create order")
		return
	}

	utils.RespondData(c, http.StatusCreated, order)
}

// CreateAdminOrder handles POST /api/admin/orders - an order entered on behalf of a user
func CreateAdminOrder(c *gin.Context) {
	var req services.AdminOrderInput
	if !bindJSON(c, &req) {
		return
	}

	order, err := orderService().CreateAdminOrder(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "Failed to create order")
		return
	}

	utils.RespondData(c, http.StatusCreated, order)
}

// ListOrders handles GET /api/orders - own orders, or every order for admins.
// Query parameters: page, limit, status and (admins only) user_id.
func ListOrders(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	filter := services.OrderFilter{
		UserID: ownerScope(user),
		Status: c.Query("status"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	}
	if filter.UserID == nil {
		if raw := c.Query("user_id"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				utils.RespondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid user_id")
				return
			}
			userID := uint(id)
			filter.UserID = &userID
		}
	}

	page, err := orderService().ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err, "Failed to list orders")
		return
	}

	utils.RespondData(c, http.StatusOK, page)
}

// GetOrder handles GET /api/orders/:id - other users' orders are reported as not found
func GetOrder(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := orderService().GetOrder(c.Request.Context(), id, ownerScope(user))
	if err != nil {
		respondServiceError(c, err, "Failed to load order")
		return
	}

	utils.RespondData(c, http.StatusOK, order)
}

// GetOrderItems handles GET /api/orders/:id/items
func GetOrderItems(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	items, err := orderService().GetOrderItems(c.Request.Context(), id, ownerScope(user))
	if err != nil {
		respondServiceError(c, err, "Failed to load order items")
		return
	}

	utils.RespondData(c, http.StatusOK, items)
}

// UpdateOrderStatus handles PUT /api/orders/:id/status (admin)
func UpdateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := orderService().UpdateStatus(c.Request.Context(), id, req.Status, req.PaymentStatus)
	if err != nil {
		respondServiceError(c, err, "Failed to update order status")
		return
	}

	utils.RespondData(c, http.StatusOK, order)
}

// GenerateOrderInvoice handles POST /api/orders/:id/invoice. Repeated calls
// return the same invoice with 200; the first call answers 201.
func GenerateOrderInvoice(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	invoice, created, err := invoiceService().GenerateForOrder(c.Request.Context(), id, ownerScope(user))
	if err != nil {
		respondServiceError(c, err, "Failed to generate invoice")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	utils.RespondData(c, status, invoice)
}

// GetOrderInvoicePDF handles GET /api/orders/:id/invoice/pdf - the saved
// invoice, or a preview with a synthetic number when none exists yet
func GetOrderInvoicePDF(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	pdf, err := invoiceService().OrderInvoicePDF(c.Request.Context(), id, ownerScope(user))
	if err != nil {
		respondServiceError(c, err, "Failed to render invoice")
		return
	}

	respondPDF(c, pdf)
}

func respondPDF(c *gin.Context, pdf *services.RenderedPDF) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, pdf.Filename))
	c.Data(http.StatusOK, "application/pdf", pdf.Content)
}

// queryInt returns a non-negative integer query parameter, zero when absent or invalid
func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

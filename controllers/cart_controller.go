package controllers

import (
	"net/http"

	"github.com/candleworks/storefront-api/services"
	"github.com/candleworks/storefront-api/utils"
	"github.com/gin-gonic/gin"
)

// UpdateCartItemRequest sets the quantity of one cart row
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// GetCart handles GET /api/cart
func GetCart(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	cart, err := cartService().GetCart(c.Request.Context(), user.ID)
	if err != nil {
		respondServiceError(c, err, "Failed to load cart")
		return
	}
	utils.RespondData(c, http.StatusOK, cart)
}

// AddToCart handles POST /api/cart - merges into an existing row with the same selection
func AddToCart(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req services.AddToCartInput
	if !bindJSON(c, &req) {
		return
	}
	item, err := cartService().AddToCart(c.Request.Context(), user.ID, req)
	if err != nil {
		respondServiceError(c, err, "Failed to add item to cart")
		return
	}
	utils.RespondData(c, http.StatusCreated, item)
}

// UpdateCartItem handles PUT /api/cart/:id
func UpdateCartItem(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := cartService().UpdateCartItem(c.Request.Context(), user.ID, id, req.Quantity)
	if err != nil {
		respondServiceError(c, err, "Failed to update cart item")
		return
	}
	utils.RespondData(c, http.StatusOK, item)
}

// RemoveCartItem handles DELETE /api/cart/:id
func RemoveCartItem(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := cartService().RemoveCartItem(c.Request.Context(), user.ID, id); err != nil {
		respondServiceError(c, err, "Failed to remove cart item")
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// ClearCart handles DELETE /api/cart
func ClearCart(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if err := cartService().ClearCart(c.Request.Context(), user.ID); err != nil {
		respondServiceError(c, err, "Failed to clear cart")
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"cleared": true})
}

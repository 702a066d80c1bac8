package controllers

import (
	"net/http"
	"strings"

	"github.com/candleworks/storefront-api/models"
	"github.com/candleworks/storefront-api/services"
	"github.com/candleworks/storefront-api/utils"
	"github.com/gin-gonic/gin"
)

// CreateProductRequest represents the request body for creating a product
type CreateProductRequest struct {
	Name                string       `json:"name" binding:"required,max=255"`
	Description         string       `json:"description"`
	Price               models.Money `json:"price"`
	Stock               int          `json:"stock" binding:"min=0"`
	Featured            bool         `json:"featured"`
	HasColorOptions     bool         `json:"has_color_options"`
	AllowMultipleColors bool         `json:"allow_multiple_colors"`
	Active              *bool        `json:"active"` // defaults to true
	Dimensions          string       `json:"dimensions"`
	Weight              string       `json:"weight"`
	Materials           string       `json:"materials"`
	BurnTime            string       `json:"burn_time"`
	Instructions        string       `json:"instructions"`
	Maintenance         string       `json:"maintenance"`
}

// CreateScentRequest represents the request body for creating a scent
type CreateScentRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

// CreateColorRequest represents the request body for creating a color
type CreateColorRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	HexValue string `json:"hex_value" binding:"required,hexcolor"`
	Active   *bool  `json:"active"`
}

// LinkScentRequest links an existing scent to a product
type LinkScentRequest struct {
	ScentID uint `json:"scent_id" binding:"required"`
}

// LinkColorRequest links an existing color to a product
type LinkColorRequest struct {
	ColorID uint `json:"color_id" binding:"required"`
}

func activeOrDefault(active *bool) bool {
	return active == nil || *active
}

func invalidPrice(c *gin.Context, price *models.Money) bool {
	if price != nil && price.IsNegative() {
		utils.RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data",
			[]utils.FieldError{{Field: "price", Tag: "min", Param: "0", Message: "price must not be negative"}})
		return true
	}
	return false
}

// ListProducts handles GET /api/products - active products, ?featured=true for featured only
func ListProducts(c *gin.Context) {
	products, err := catalogService().ListProducts(c.Request.Context(), services.ProductFilter{
		ActiveOnly:   true,
		FeaturedOnly: c.Query("featured") == "true",
	})
	if err != nil {
		respondServiceError(c, err, "Failed to list products")
		return
	}
	utils.RespondData(c, http.StatusOK, products)
}

// ListAllProducts handles GET /api/admin/products - every product including inactive ones
func ListAllProducts(c *gin.Context) {
	products, err := catalogService().ListProducts(c.Request.Context(), services.ProductFilter{
		FeaturedOnly: c.Query("featured") == "true",
	})
	if err != nil {
		respondServiceError(c, err, "Failed to list products")
		return
	}
	utils.RespondData(c, http.StatusOK, products)
}

// GetProduct handles GET /api/products/:id
func GetProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	product, err := catalogService().GetProduct(c.Request.Context(), id, true)
	if err != nil {
		respondServiceError(c, err, "Failed to load product")
		return
	}
	utils.RespondData(c, http.StatusOK, product)
}

// CreateProduct handles POST /api/products
func CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if !bindJSON(c, &req) || invalidPrice(c, &req.Price) {
		return
	}

	product := models.Product{
		Name:                strings.TrimSpace(req.Name),
		Description:         req.Description,
		Price:               req.Price,
		Stock:               req.Stock,
		Featured:            req.Featured,
		HasColorOptions:     req.HasColorOptions,
		AllowMultipleColors: req.AllowMultipleColors,
		Active:              activeOrDefault(req.Active),
		Dimensions:          req.Dimensions,
		Weight:              req.Weight,
		Materials:           req.Materials,
		BurnTime:            req.BurnTime,
		Instructions:        req.Instructions,
		Maintenance:         req.Maintenance,
	}
	if err := catalogService().CreateProduct(c.Request.Context(), &product); err != nil {
		respondServiceError(c, err, "Failed to create product")
		return
	}
	utils.RespondData(c, http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/products/:id - partial update
func UpdateProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.ProductUpdate
	if !bindJSON(c, &req) || invalidPrice(c, req.Price) {
		return
	}

	product, err := catalogService().UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err, "Failed to update product")
		return
	}
	utils.RespondData(c, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/products/:id
func DeleteProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := catalogService().DeleteProduct(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "Failed to delete product")
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// ListProductScents handles GET /api/products/:id/scents
func ListProductScents(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	scents, err := catalogService().ListProductScents(c.Request.Context(), id, true)
	if err != nil {
		respondServiceError(c, err, "Failed to list product scents")
		return
	}
	utils.RespondData(c, http.StatusOK, scents)
}

// AddProductScent handles POST /api/products/:id/scents - idempotent
func AddProductScent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req LinkScentRequest
	if !bindJSON(c, &req) {
		return
	}
	link, err := catalogService().AddScentToProduct(c.Request.Context(), id, req.ScentID)
	if err != nil {
		respondServiceError(c, err, "Failed to link scent")
		return
	}
	utils.RespondData(c, http.StatusOK, link)
}

// RemoveProductScent handles DELETE /api/products/:id/scents/:scentId
func RemoveProductScent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	scentID, ok := paramID(c, "scentId")
	if !ok {
		return
	}
	if err := catalogService().RemoveScentFromProduct(c.Request.Context(), id, scentID); err != nil {
		respondServiceError(c, err, "Failed to unlink scent")
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"product_id": id, "scent_id": scentID, "deleted": true})
}

// RemoveAllProductScents handles DELETE /api/products/:id/scents
func RemoveAllProductScents(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	removed, err := catalogService().RemoveAllScentsFromProduct(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Failed to unlink scents")
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"product_id": id, "removed": removed})
}

// ListProductColors handles GET /api/products/:id/colors
func ListProductColors(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	colors, err := catalogService().ListProductColors(c.Request.Context(), id, true)
	if err != nil {
		respondServiceError(c, err, "Failed to list product colors")
		return
	}
	utils.RespondData(c, http.StatusOK, colors)
}

// AddProductColor handles POST /api/products/:id/colors - idempotent
func AddProductColor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req LinkColorRequest
	if !bindJSON(c, &req) {
		return
	}
	link, err := catalogService().AddColorToProduct(c.Request.Context(), id, req.ColorID)
	if err != nil {
		respondServiceError(c, err, "Failed to link color")
		return
	}
	utils.RespondData(c, http.StatusOK, link)
}

// RemoveProductColor handles DELETE /api/products/:id/colors/:colorId
func RemoveProductColor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	colorID, ok := paramID(c, "colorId")
	if !ok {
		return
	}
	if err := catalogService().RemoveColorFromProduct(c.Request.Context(), id, colorID); err != nil {
		respondServiceError(c, err, "Failed to unlink color")
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"product_id": id, "color_id": colorID, "deleted": true})
}

// RemoveAllProductColors handles DELETE /api/products/:id/colors
func RemoveAllProductColors(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	removed, err := catalogService().RemoveAllColorsFromProduct(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Failed to unlink colors")
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"product_id": id, "removed": removed})
}

// ListScents handles GET /api/scents (active) and GET /api/admin/scents (all)
func ListScents(activeOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		scents, err := catalogService().ListScents(c.Request.Context(), activeOnly)
		if err != nil {
			respondServiceError(c, err, "Failed to list scents")
			return
		}
		utils.RespondData(c, http.StatusOK, scents)
	}
}

// CreateScent handles POST /api/scents
func CreateScent(c *gin.Context) {
	var req CreateScentRequest
	if !bindJSON(c, &req) {
		return
	}
	scent := models.Scent{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Active:      activeOrDefault(req.Active),
	}
	if err := catalogService().CreateScent(c.Request.Context(), &scent); err != nil {
		respondServiceError(c, err, "Failed to create scent")
		return
	}
	utils.RespondData(c, http.StatusCreated, scent)
}

// UpdateScent handles PUT /api/scents/:id
func UpdateScent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.VariantUpdate
	if !bindJSON(c, &req) {
		return
	}
	scent, err := catalogService().UpdateScent(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err, "Failed to update scent")
		return
	}
	utils.RespondData(c, http.StatusOK, scent)
}

// DeleteScent handles DELETE /api/scents/:id
func DeleteScent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := catalogService().DeleteScent(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "Failed to delete scent")
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// ListColors handles GET /api/colors (active) and GET /api/admin/colors (all)
func ListColors(activeOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		colors, err := catalogService().ListColors(c.Request.Context(), activeOnly)
		if err != nil {
			respondServiceError(c, err, "Failed to list colors")
			return
		}
		utils.RespondData(c, http.StatusOK, colors)
	}
}

// CreateColor handles POST /api/colors
func CreateColor(c *gin.Context) {
	var req CreateColorRequest
	if !bindJSON(c, &req) {
		return
	}
	color := models.Color{
		Name:     strings.TrimSpace(req.Name),
		HexValue: strings.ToLower(req.HexValue),
		Active:   activeOrDefault(req.Active),
	}
	if err := catalogService().CreateColor(c.Request.Context(), &color); err != nil {
		respondServiceError(c, err, "Failed to create color")
		return
	}
	utils.RespondData(c, http.StatusCreated, color)
}

// UpdateColor handles PUT /api/colors/:id
func UpdateColor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.VariantUpdate
	if !bindJSON(c, &req) {
		return
	}
	color, err := catalogService().UpdateColor(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err, "Failed to update color")
		return
	}
	utils.RespondData(c, http.StatusOK, color)
}

// DeleteColor handles DELETE /api/colors/:id
func DeleteColor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := catalogService().DeleteColor(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "Failed to delete color")
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

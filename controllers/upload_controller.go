package controllers

import (
	"errors"
	"net/http"

	"github.com/candleworks/storefront-api/utils"
	"github.com/gin-gonic/gin"
)

// ImageFormField is the multipart field carrying the product photo
const ImageFormField = "image"

// UploadProductImage handles POST /api/products/:id/image - replaces the product photo
func UploadProductImage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile(ImageFormField)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "MISSING_FILE", "An image file is required in the '"+ImageFormField+"' field")
		return
	}

	if err := utils.ValidateImageFile(fileHeader); err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			utils.RespondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
			return
		}
		utils.RespondError(c, http.StatusBadRequest, "INVALID_FILE", err.Error())
		return
	}

	product, err := catalogService().SetProductImage(c.Request.Context(), id, fileHeader)
	if err != nil {
		respondServiceError(c, err, "Failed to upload product image")
		return
	}
	utils.RespondData(c, http.StatusOK, product)
}

// GetProductImage handles GET /api/products/:id/image - redirects to a presigned URL
func GetProductImage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	product, err := catalogService().GetProduct(c.Request.Context(), id, true)
	if err != nil {
		respondServiceError(c, err, "Failed to load product")
		return
	}
	if product.ImageURL == nil {
		utils.RespondError(c, http.StatusNotFound, "IMAGE_NOT_FOUND", "Image not found")
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	c.Redirect(http.StatusTemporaryRedirect, *product.ImageURL)
}

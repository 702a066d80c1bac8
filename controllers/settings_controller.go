package controllers

import (
	"net/http"

	"github.com/candleworks/storefront-api/utils"
	"github.com/gin-gonic/gin"
)

// UpdateSettingRequest represents the request body for setting one key
type UpdateSettingRequest struct {
	Value *string `json:"value" binding:"required"`
}

// GetSettings handles GET /api/settings - raw values plus the typed views
func GetSettings(c *gin.Context) {
	settings := settingsService()
	utils.RespondData(c, http.StatusOK, gin.H{
		"settings": settings.All(),
		"shipping": settings.Shipping(),
		"contact":  settings.Contact(),
	})
}

// UpdateSetting handles PUT /api/settings/:key (admin)
func UpdateSetting(c *gin.Context) {
	var req UpdateSettingRequest
	if !bindJSON(c, &req) {
		return
	}

	key := c.Param("key")
	settings := settingsService()
	if err := settings.Set(c.Request.Context(), key, *req.Value); err != nil {
		respondServiceError(c, err, "Failed to save setting")
		return
	}

	value, _ := settings.Get(key)
	utils.RespondData(c, http.StatusOK, gin.H{"key": key, "value": value})
}

// DeleteSetting handles DELETE /api/settings/:key (admin)
func DeleteSetting(c *gin.Context) {
	key := c.Param("key")
	if err := settingsService().Delete(c.Request.Context(), key); err != nil {
		respondServiceError(c, err, "Failed to delete setting")
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"key": key, "deleted": true})
}

package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/candleworks/storefront-api/config"
	"github.com/candleworks/storefront-api/logger"
	"github.com/candleworks/storefront-api/middleware"
	"github.com/candleworks/storefront-api/models"
	"github.com/candleworks/storefront-api/services"
	"github.com/candleworks/storefront-api/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// serviceError maps a sentinel error to its HTTP status and error code
type serviceError struct {
	err    error
	status int
	code   string
}

var serviceErrors = []serviceError{
	{services.ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY"},
	{services.ErrInvalidStatus, http.StatusBadRequest, "INVALID_STATUS"},
	{services.ErrInvalidLanguage, http.StatusBadRequest, "INVALID_LANGUAGE"},
	{services.ErrScentNotAvailable, http.StatusBadRequest, "SCENT_NOT_AVAILABLE"},
	{services.ErrColorNotAvailable, http.StatusBadRequest, "COLOR_NOT_AVAILABLE"},
	{services.ErrScentRequired, http.StatusBadRequest, "SCENT_REQUIRED"},
	{services.ErrColorRequired, http.StatusBadRequest, "COLOR_REQUIRED"},
	{services.ErrProductInactive, http.StatusBadRequest, "PRODUCT_INACTIVE"},
	{services.ErrEmptyCart, http.StatusBadRequest, "EMPTY_CART"},
	{services.ErrNoInvoiceItems, http.StatusBadRequest, "NO_INVOICE_ITEMS"},
	{services.ErrInvalidSettingKey, http.StatusBadRequest, "INVALID_SETTING_KEY"},
	{services.ErrInvalidSettingValue, http.StatusBadRequest, "INVALID_SETTING_VALUE"},
	{services.ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
	{services.ErrScentNotFound, http.StatusNotFound, "SCENT_NOT_FOUND"},
	{services.ErrColorNotFound, http.StatusNotFound, "COLOR_NOT_FOUND"},
	{services.ErrProductScentNotFound, http.StatusNotFound, "PRODUCT_SCENT_NOT_FOUND"},
	{services.ErrProductColorNotFound, http.StatusNotFound, "PRODUCT_COLOR_NOT_FOUND"},
	{services.ErrCartItemNotFound, http.StatusNotFound, "CART_ITEM_NOT_FOUND"},
	{services.ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND"},
	{services.ErrInvoiceNotFound, http.StatusNotFound, "INVOICE_NOT_FOUND"},
	{services.ErrSettingNotFound, http.StatusNotFound, "SETTING_NOT_FOUND"},
	{services.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{services.ErrDuplicateName, http.StatusConflict, "DUPLICATE_NAME"},
	{services.ErrCartChanged, http.StatusConflict, "CART_CHANGED"},
	{services.ErrStorageNotConfigured, http.StatusServiceUnavailable, "STORAGE_NOT_CONFIGURED"},
}

// respondServiceError writes the response for an error returned by a service.
// Unknown errors are logged with a stack trace and reported as 500 INTERNAL_ERROR.
func respondServiceError(c *gin.Context, err error, message string) {
	for _, se := range serviceErrors {
		if errors.Is(err, se.err) {
			utils.RespondError(c, se.status, se.code, err.Error())
			return
		}
	}

	logger.FromCtx(c.Request.Context()).Error(message,
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
		zap.Stack("stack"),
	)
	utils.RespondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

// bindJSON binds the request body and writes a 400 VALIDATION_ERROR on failure
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", utils.ValidationDetails(err))
		return false
	}
	return true
}

// paramID parses a positive integer path parameter
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// requireUser returns the profile loaded by the user middleware
func requireUser(c *gin.Context) (*models.User, bool) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return nil, false
	}
	return user, true
}

// ownerScope limits lookups to the user's own rows unless the user is an admin
func ownerScope(user *models.User) *uint {
	if user.IsAdmin() {
		return nil
	}
	id := user.ID
	return &id
}

// isDuplicate reports a unique constraint violation (TranslateError is enabled on every DB handle)
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func database() *gorm.DB {
	return config.GetDB()
}

func settingsService() *services.SettingsService {
	if settings := services.GetSettingsService(); settings != nil {
		return settings
	}
	settings := services.NewSettingsService(database(), nil)
	if err := settings.Refresh(context.Background()); err != nil {
		logger.L().Warn("failed to load settings", zap.Error(err))
	}
	return settings
}

func catalogService() *services.CatalogService {
	return services.NewCatalogService(database(), services.GetImageService())
}

func cartService() *services.CartService {
	return services.NewCartService(database(), catalogService(), settingsService())
}

func orderService() *services.OrderService {
	return services.NewOrderService(database(), settingsService())
}

func invoiceService() *services.InvoiceService {
	var store services.DocumentStore
	if s3 := services.GetS3Service(); s3 != nil {
		store = s3
	}
	return services.NewInvoiceService(database(), nil, store, settingsService())
}

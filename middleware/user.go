package middleware

import (
	"errors"
	"net/http"

	"github.com/candleworks/storefront-api/config"
	"github.com/candleworks/storefront-api/logger"
	"github.com/candleworks/storefront-api/models"
	"github.com/candleworks/storefront-api/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LoadCurrentUser resolves the token subject to a stored user profile.
// Requests from subjects without a profile are rejected with 404 USER_NOT_FOUND.
func LoadCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := currentUser(c); err != nil {
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects users whose role is not admin
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := currentUser(c)
		if err != nil {
			return
		}
		if !user.IsAdmin() {
			utils.RespondError(c, http.StatusForbidden, "FORBIDDEN", "Administrator access required")
			return
		}
		c.Next()
	}
}

// GetCurrentUser returns the profile loaded by LoadCurrentUser or RequireAdmin
func GetCurrentUser(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(ContextCurrentUser)
	if !exists {
		return nil, &AuthError{Code: "MISSING_USER", Message: "User not found in context"}
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil, &AuthError{Code: "INVALID_USER", Message: "User is not in the expected format"}
	}
	return user, nil
}

// currentUser loads the user once per request and writes the error response on failure
func currentUser(c *gin.Context) (*models.User, error) {
	if user, err := GetCurrentUser(c); err == nil {
		return user, nil
	}

	auth0ID, err := GetUserID(c)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return nil, err
	}

	var user models.User
	err = config.GetDB().WithContext(c.Request.Context()).Where("auth0_id = ?", auth0ID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found. Please create a profile first.")
		return nil, err
	}
	if err != nil {
		logger.FromCtx(c.Request.Context()).Error("failed to load current user", zap.String("auth0_id", auth0ID), zap.Error(err))
		utils.RespondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load user profile")
		return nil, err
	}

	c.Set(ContextCurrentUser, &user)
	return &user, nil
}

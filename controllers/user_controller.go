package controllers

import (
	"net/http"
	"strings"
	"sync"

	"github.com/candleworks/storefront-api/config"
	"github.com/candleworks/storefront-api/logger"
	"github.com/candleworks/storefront-api/middleware"
	"github.com/candleworks/storefront-api/models"
	"github.com/candleworks/storefront-api/services"
	"github.com/candleworks/storefront-api/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreateUserRequest is the profile body used when no identity provider
// /userinfo endpoint is configured (self-issued HS256 tokens)
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required,max=255"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"max=50"`
}

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=255"`
	Email *string `json:"email" binding:"omitempty,email"`
	Phone *string `json:"phone" binding:"omitempty,max=50"`
}

// CreateUser handles POST /api/users - creates the profile of the token subject.
// With Auth0 configured the name and email come from Auth0's /userinfo endpoint,
// otherwise from the request body.
func CreateUser(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token")
		return
	}

	user := models.User{Auth0ID: auth0ID, Role: tokenRole(c)}

	if provider := userInfoProvider(); provider != nil {
		accessToken, err := middleware.GetAccessToken(c)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, "MISSING_TOKEN", "Access token not found")
			return
		}

		userInfo, err := provider.GetUserInfo(c.Request.Context(), accessToken)
		if err != nil {
			logger.FromCtx(c.Request.Context()).Error("failed to fetch userinfo", zap.Error(err))
			utils.RespondError(c, http.StatusBadGateway, "AUTH0_ERROR", "Failed to fetch user information from Auth0")
			return
		}
		if userInfo.Email == "" {
			utils.RespondError(c, http.StatusBadRequest, "MISSING_EMAIL", "Email not provided by Auth0")
			return
		}
		if userInfo.Name == "" {
			utils.RespondError(c, http.StatusBadRequest, "MISSING_NAME", "Name not provided by Auth0")
			return
		}
		user.Name = userInfo.Name
		user.Email = userInfo.Email
		user.Phone = userInfo.PhoneNumber
	} else {
		var req CreateUserRequest
		if !bindJSON(c, &req) {
			return
		}
		user.Name = strings.TrimSpace(req.Name)
		user.Email = strings.TrimSpace(req.Email)
		user.Phone = strings.TrimSpace(req.Phone)
	}

	if err := database().WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if isDuplicate(err) {
			utils.RespondError(c, http.StatusConflict, "USER_EXISTS", "A user with this Auth0 ID or email already exists")
			return
		}
		respondServiceError(c, err, "Failed to create user")
		return
	}

	utils.RespondData(c, http.StatusCreated, user)
}

// GetMyProfile handles GET /api/users/me - gets current user's profile
func GetMyProfile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	utils.RespondData(c, http.StatusOK, user)
}

// UpdateMyProfile handles PUT /api/users/me - updates current user's profile
func UpdateMyProfile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}

	// If no fields to update, return current user
	if len(updates) == 0 {
		utils.RespondData(c, http.StatusOK, user)
		return
	}

	db := database().WithContext(c.Request.Context())
	if err := db.Model(user).Updates(updates).Error; err != nil {
		if isDuplicate(err) {
			utils.RespondError(c, http.StatusConflict, "EMAIL_EXISTS", "A user with this email already exists")
			return
		}
		respondServiceError(c, err, "Failed to update user profile")
		return
	}

	var updated models.User
	if err := db.First(&updated, user.ID).Error; err != nil {
		respondServiceError(c, err, "Failed to fetch updated profile")
		return
	}

	utils.RespondData(c, http.StatusOK, updated)
}

var (
	auth0Mu     sync.Mutex
	auth0Client *services.Auth0Service
	auth0Domain string
)

// userInfoProvider returns the Auth0 client when a tenant is configured.
// The client is rebuilt only when the configured domain changes.
func userInfoProvider() services.UserInfoProvider {
	cfg := config.GetConfig()
	if cfg == nil || cfg.Auth0Domain == "" {
		return nil
	}

	auth0Mu.Lock()
	defer auth0Mu.Unlock()
	if auth0Client == nil || auth0Domain != cfg.Auth0Domain {
		auth0Client = services.NewAuth0Service(cfg)
		auth0Domain = cfg.Auth0Domain
	}
	return auth0Client
}

// tokenRole reads the role claim, defaulting to customer
func tokenRole(c *gin.Context) string {
	claims, err := middleware.GetCustomClaims(c)
	if err == nil && claims.Role == models.RoleAdmin {
		return models.RoleAdmin
	}
	return models.RoleCustomer
}

package testutil

import (
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/candleworks/storefront-api/config"
	"github.com/candleworks/storefront-api/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// MockValidatedClaims creates a mock ValidatedClaims for testing
func MockValidatedClaims(subject, issuer string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  issuer,
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{},
	}
}

// SetMockAuthContext sets up a mock authenticated context for testing
func SetMockAuthContext(c *gin.Context, userID string, issuer string) {
	claims := MockValidatedClaims(userID, issuer)
	c.Set(middleware.ContextUserID, userID)
	c.Set(middleware.ContextClaims, claims)
	c.Set(middleware.ContextAccessToken, "mock-access-token")
}

// MockAuthMiddleware stands in for EnsureValidToken. The subject is taken from
// the X-Test-User header so one router can serve several users; requests
// without it are rejected with 401 like an invalid token.
func MockAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetHeader("X-Test-User")
		if subject == "" {
			c.AbortWithStatusJSON(401, gin.H{
				"success": false,
				"message": "Failed to validate JWT.",
				"error":   gin.H{"code": "INVALID_TOKEN"},
			})
			return
		}
		SetMockAuthContext(c, subject, "https://test.auth0.com/")
		c.Next()
	}
}

// SignHS256Token mints a token accepted by EnsureValidToken when the config
// has no Auth0 domain. An empty role leaves the claim out.
func SignHS256Token(cfg *config.Config, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": cfg.JWTIssuer,
		"aud": cfg.Auth0Audience,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

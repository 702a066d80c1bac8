package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/candleworks/storefront-api/config"
	"github.com/candleworks/storefront-api/middleware"
	"github.com/candleworks/storefront-api/models"
	"github.com/candleworks/storefront-api/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMockAuth0Server creates a mock HTTP server that simulates Auth0's /userinfo endpoint
func setupMockAuth0Server(userInfoMap map[string]*services.Auth0UserInfo) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if len(authHeader) < len("Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		userInfo, exists := userInfoMap[authHeader[len("Bearer "):]]
		if !exists {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(userInfo)
	}))
}

// mockAuthMiddleware sets up the context exactly as EnsureValidToken does,
// including the role claim
func mockAuthMiddleware(auth0ID, role, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, auth0ID)
		c.Set(middleware.ContextAccessToken, accessToken)
		c.Set(middleware.ContextClaims, &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: auth0ID},
			CustomClaims:     &middleware.CustomClaims{Role: role},
		})
		c.Next()
	}
}

func TestCreateUser_Auth0Profile(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		name           string
		auth0ID        string
		email          string
		userName       string
		role           string
		expectedStatus int
		expectedCode   string
		expectedRole   string
	}{
		{
			name:           "customer profile",
			auth0ID:        "auth0|123456",
			email:          "john@example.com",
			userName:       "John Doe",
			role:           "customer",
			expectedStatus: http.StatusCreated,
			expectedRole:   models.RoleCustomer,
		},
		{
			name:           "admin role claim",
			auth0ID:        "auth0|owner",
			email:          "owner@example.com",
			userName:       "Shop Owner",
			role:           "admin",
			expectedStatus: http.StatusCreated,
			expectedRole:   models.RoleAdmin,
		},
		{
			name:           "unknown role claim falls back to customer",
			auth0ID:        "auth0|tech789",
			email:          "wholesale@example.com",
			userName:       "Wholesale Buyer",
			role:           "wholesaler",
			expectedStatus: http.StatusCreated,
			expectedRole:   models.RoleCustomer,
		},
		{
			name:           "missing email",
			auth0ID:        "auth0|noemail",
			userName:       "No Email User",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "MISSING_EMAIL",
		},
		{
			name:           "missing name",
			auth0ID:        "auth0|noname",
			email:          "noname@example.com",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "MISSING_NAME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, db.Exec("DELETE FROM users").Error)

			accessToken := "token-" + tt.auth0ID
			mockServer := setupMockAuth0Server(map[string]*services.Auth0UserInfo{
				accessToken: {Sub: tt.auth0ID, Email: tt.email, Name: tt.userName},
			})
			defer mockServer.Close()
			config.SetConfig(&config.Config{GoEnv: "test", Auth0Domain: mockServer.URL})

			router := gin.New()
			router.POST("/users", mockAuthMiddleware(tt.auth0ID, tt.role, accessToken), CreateUser)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", nil))

			if tt.expectedCode != "" {
				assertErrorCode(t, w, tt.expectedStatus, tt.expectedCode)
				return
			}

			require.Equal(t, tt.expectedStatus, w.Code, "body: %s", w.Body.String())
			var user models.User
			decodeData(t, w, &user)
			assert.Equal(t, tt.auth0ID, user.Auth0ID)
			assert.Equal(t, tt.email, user.Email)
			assert.Equal(t, tt.userName, user.Name)
			assert.Equal(t, tt.expectedRole, user.Role)
		})
	}
}

func TestCreateUser_Auth0Unavailable(t *testing.T) {
	setupTestDB(t)

	mockServer := setupMockAuth0Server(map[string]*services.Auth0UserInfo{})
	defer mockServer.Close()
	config.SetConfig(&config.Config{GoEnv: "test", Auth0Domain: mockServer.URL})

	router := gin.New()
	router.POST("/users", mockAuthMiddleware("auth0|unknown", "", "unknown-token"), CreateUser)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", nil))

	assertErrorCode(t, w, http.StatusBadGateway, "AUTH0_ERROR")
}

func TestCreateUser_RequestBodyProfile(t *testing.T) {
	setupTestDB(t)
	router := setupTestRouter()

	w := performRequest(router, http.MethodPost, "/api/users", customerSubject, map[string]string{
		"name":  "  Ana Horvat ",
		"email": "ana@example.com",
		"phone": "+385 91 000 0000",
	})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	var user models.User
	decodeData(t, w, &user)
	assert.Equal(t, customerSubject, user.Auth0ID)
	assert.Equal(t, "Ana Horvat", user.Name)
	assert.Equal(t, models.RoleCustomer, user.Role)

	w = performRequest(router, http.MethodPost, "/api/users", customerSubject, map[string]string{
		"name":  "Ana Again",
		"email": "other@example.com",
	})
	assertErrorCode(t, w, http.StatusConflict, "USER_EXISTS")

	w = performRequest(router, http.MethodPost, "/api/users", otherSubject, map[string]string{
		"name":  "Someone Else",
		"email": "ana@example.com",
	})
	assertErrorCode(t, w, http.StatusConflict, "USER_EXISTS")

	w = performRequest(router, http.MethodPost, "/api/users", otherSubject, map[string]string{
		"name":  "No Email",
		"email": "not-an-email",
	})
	assertErrorCode(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestCreateUser_Unauthenticated(t *testing.T) {
	setupTestDB(t)
	router := setupTestRouter()

	w := performRequest(router, http.MethodPost, "/api/users", "", nil)
	assertErrorCode(t, w, http.StatusUnauthorized, "INVALID_TOKEN")
}

func TestGetMyProfile(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter()
	createTestUser(t, db, customerSubject, models.RoleCustomer)

	w := performRequest(router, http.MethodGet, "/api/users/me", customerSubject, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var user models.User
	decodeData(t, w, &user)
	assert.Equal(t, "customer@example.com", user.Email)
	assert.Equal(t, models.RoleCustomer, user.Role)

	w = performRequest(router, http.MethodGet, "/api/users/me", "auth0|nonexistent", nil)
	assertErrorCode(t, w, http.StatusNotFound, "USER_NOT_FOUND")
}

func TestUpdateMyProfile(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter()
	createTestUser(t, db, customerSubject, models.RoleCustomer)
	createTestUser(t, db, otherSubject, models.RoleCustomer)

	tests := []struct {
		name           string
		body           map[string]interface{}
		expectedStatus int
		expectedCode   string
		expectedName   string
		expectedEmail  string
	}{
		{
			name:           "empty update returns the current profile",
			body:           map[string]interface{}{},
			expectedStatus: http.StatusOK,
			expectedName:   "User " + customerSubject,
			expectedEmail:  "customer@example.com",
		},
		{
			name:           "partial update keeps the email",
			body:           map[string]interface{}{"name": "  Updated Name "},
			expectedStatus: http.StatusOK,
			expectedName:   "Updated Name",
			expectedEmail:  "customer@example.com",
		},
		{
			name:           "email change",
			body:           map[string]interface{}{"email": "new@example.com", "phone": "01 234 5678"},
			expectedStatus: http.StatusOK,
			expectedName:   "Updated Name",
			expectedEmail:  "new@example.com",
		},
		{
			name:           "invalid email",
			body:           map[string]interface{}{"email": "invalid-email"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "email owned by another user",
			body:           map[string]interface{}{"email": "other@example.com"},
			expectedStatus: http.StatusConflict,
			expectedCode:   "EMAIL_EXISTS",
		},
	}

	// cases run in order and build on each other
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPut, "/api/users/me", customerSubject, tt.body)
			if tt.expectedCode != "" {
				assertErrorCode(t, w, tt.expectedStatus, tt.expectedCode)
				return
			}

			require.Equal(t, tt.expectedStatus, w.Code, "body: %s", w.Body.String())
			var user models.User
			decodeData(t, w, &user)
			assert.Equal(t, tt.expectedName, user.Name)
			assert.Equal(t, tt.expectedEmail, user.Email)
		})
	}
}

package integration

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/candleworks/storefront-api/controllers"
	"github.com/candleworks/storefront-api/middleware"
	"github.com/candleworks/storefront-api/models"
	"github.com/candleworks/storefront-api/tests/testutil"
	"github.com/candleworks/storefront-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

// AuthIntegrationTestSuite runs signed HS256 tokens through the production
// auth chain: token validation, profile loading and the admin gate.
type AuthIntegrationTestSuite struct {
	apiSuite
}

// SetupSuite runs once before all tests
func (suite *AuthIntegrationTestSuite) SetupSuite() {
	suite.setupAPI(func(_, authed *gin.RouterGroup) {
		authed.POST("/users", controllers.CreateUser)

		user := authed.Group("", middleware.LoadCurrentUser())
		user.GET("/users/me", controllers.GetMyProfile)
		user.PUT("/users/me", controllers.UpdateMyProfile)

		admin := authed.Group("", middleware.RequireAdmin())
		admin.GET("/admin/products", controllers.ListAllProducts)
	})
}

// TearDownSuite runs once after all tests
func (suite *AuthIntegrationTestSuite) TearDownSuite() {
	suite.tearDownAPI()
}

// SetupTest runs before each test
func (suite *AuthIntegrationTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM users")
}

// TestRejectedTokens checks the 401 responses of the token validator
func (suite *AuthIntegrationTestSuite) TestRejectedTokens() {
	expired, err := testutil.SignHS256Token(suite.cfg, "auth0|late", "", -time.Hour)
	suite.Require().NoError(err)

	otherKey := *suite.cfg
	otherKey.JWTSecret = "some-other-secret"
	forged, err := testutil.SignHS256Token(&otherKey, "auth0|forger", models.RoleAdmin, time.Hour)
	suite.Require().NoError(err)

	otherIssuer := *suite.cfg
	otherIssuer.JWTIssuer = "someone-else"
	foreign, err := testutil.SignHS256Token(&otherIssuer, "auth0|foreign", "", time.Hour)
	suite.Require().NoError(err)

	for name, token := range map[string]string{
		"missing":      "",
		"malformed":    "not-a-jwt",
		"expired":      expired,
		"wrong secret": forged,
		"wrong issuer": foreign,
	} {
		suite.Run(name, func() {
			w := suite.request(http.MethodGet, "/api/users/me", token, nil)
			suite.Equal(http.StatusUnauthorized, w.Code)
			suite.Equal("INVALID_TOKEN", suite.errorCode(w))
		})
	}
}

// TestRegisterAndReadProfile registers the token subject and reads it back
func (suite *AuthIntegrationTestSuite) TestRegisterAndReadProfile() {
	token := suite.token("auth0|maja", "")

	w := suite.request(http.MethodGet, "/api/users/me", token, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("USER_NOT_FOUND", suite.errorCode(w))

	w = suite.request(http.MethodPost, "/api/users", token, map[string]string{
		"name":  "Maja Kovač",
		"email": "maja@example.com",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, "/api/users/me", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var user models.User
	suite.decodeData(w, &user)
	suite.Equal("auth0|maja", user.Auth0ID)
	suite.Equal("maja@example.com", user.Email)
	suite.Equal(models.RoleCustomer, user.Role)

	w = suite.request(http.MethodPut, "/api/users/me", token, map[string]string{"phone": "+385 91 000 0000"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decodeData(w, &user)
	suite.Equal("+385 91 000 0000", user.Phone)
	suite.Equal("Maja Kovač", user.Name)

	w = suite.request(http.MethodPost, "/api/users", token, map[string]string{
		"name":  "Maja Kovač",
		"email": "maja2@example.com",
	})
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal("USER_EXISTS", suite.errorCode(w))
}

// TestAdminGate checks that only profiles registered with the admin claim pass RequireAdmin
func (suite *AuthIntegrationTestSuite) TestAdminGate() {
	customer := suite.register("auth0|customer", "", "customer@example.com")
	admin := suite.register("auth0|owner", models.RoleAdmin, "owner@example.com")

	w := suite.request(http.MethodGet, "/api/admin/products", customer, nil)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal("FORBIDDEN", suite.errorCode(w))

	w = suite.request(http.MethodGet, "/api/admin/products", admin, nil)
	suite.Equal(http.StatusOK, w.Code)

	var products []models.Product
	suite.decodeData(w, &products)
	suite.Empty(products)

	// the role is read from the stored profile, a later admin claim does not promote a customer
	promoted := suite.token("auth0|customer", models.RoleAdmin)
	w = suite.request(http.MethodGet, "/api/admin/products", promoted, nil)
	suite.Equal(http.StatusForbidden, w.Code)
}

// TestMalformedProfileBody checks request validation on registration
func (suite *AuthIntegrationTestSuite) TestMalformedProfileBody() {
	token := suite.token("auth0|sloppy", "")

	w := suite.request(http.MethodPost, "/api/users", token, map[string]string{"name": "No Email"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("VALIDATION_ERROR", suite.errorCode(w))

	var response struct {
		Error struct {
			Details []utils.FieldError `json:"details"`
		} `json:"error"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Require().Len(response.Error.Details, 1)
	suite.Equal("Email", response.Error.Details[0].Field)
	suite.Equal("required", response.Error.Details[0].Tag)
}

// TestAuthIntegrationTestSuite runs the test suite
func TestAuthIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(AuthIntegrationTestSuite))
}

package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/candleworks/storefront-api/config"
	"github.com/candleworks/storefront-api/middleware"
	"github.com/candleworks/storefront-api/models"
	"github.com/candleworks/storefront-api/services"
	"github.com/candleworks/storefront-api/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// apiSuite holds the shared state of the integration suites: an HS256 config,
// an in-memory database and a router behind the production token validator.
type apiSuite struct {
	suite.Suite
	router *gin.Engine
	cfg    *config.Config
	db     *gorm.DB
}

// setupAPI wires globals and lets the suite register its routes on the
// authenticated group
func (s *apiSuite) setupAPI(routes func(public, authed *gin.RouterGroup)) {
	gin.SetMode(gin.TestMode)
	testutil.MustSetTestEnvironment(s.T())

	s.cfg = &config.Config{
		GoEnv:         "test",
		JWTSecret:     "integration-secret",
		JWTIssuer:     "candle-storefront",
		Auth0Audience: "candle-storefront-api",
	}
	config.SetConfig(s.cfg)

	s.db = testutil.NewTestDB(s.T(), models.All()...)
	config.SetDB(s.db)
	services.SetSettingsService(services.NewSettingsService(s.db, nil))

	s.router = gin.New()
	api := s.router.Group("/api")
	routes(api, api.Group("", middleware.EnsureValidToken(s.cfg)))
}

// tearDownAPI resets the globals touched by setupAPI
func (s *apiSuite) tearDownAPI() {
	config.SetConfig(nil)
	config.SetDB(nil)
	services.SetSettingsService(nil)
	services.SetImageService(nil)
	services.SetS3Service(nil)
}

func (s *apiSuite) token(subject, role string) string {
	token, err := testutil.SignHS256Token(s.cfg, subject, role, time.Hour)
	s.Require().NoError(err)
	return token
}

// register creates the profile of subject through POST /api/users
func (s *apiSuite) register(subject, role, email string) string {
	token := s.token(subject, role)
	w := s.request(http.MethodPost, "/api/users", token, map[string]string{"name": "Test Shopper", "email": email})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return token
}

func (s *apiSuite) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.serve(req, token)
}

func (s *apiSuite) upload(path, token, field, filename string, content []byte) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	s.Require().NoError(err)
	_, err = part.Write(content)
	s.Require().NoError(err)
	s.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return s.serve(req, token)
}

func (s *apiSuite) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// decodeData unmarshals the data field of a success envelope
func (s *apiSuite) decodeData(w *httptest.ResponseRecorder, dest interface{}) {
	var response struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	s.Require().True(response.Success, w.Body.String())
	s.Require().NoError(json.Unmarshal(response.Data, dest))
}

// errorCode returns the error.code of a failure envelope
func (s *apiSuite) errorCode(w *httptest.ResponseRecorder) string {
	var response struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	s.False(response.Success)
	return response.Error.Code
}

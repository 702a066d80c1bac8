package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/candleworks/storefront-api/config"
	"github.com/candleworks/storefront-api/logger"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// ErrUserInfoRejected means Auth0 refused the access token
var ErrUserInfoRejected = errors.New("auth0 rejected the access token")

const (
	userInfoTimeout   = 10 * time.Second
	userInfoCacheSize = 256
	// Auth0 rate limits /userinfo per user, repeated registration attempts reuse the answer
	userInfoCacheTTL = 5 * time.Minute
)

// Auth0UserInfo is the subset of the OIDC /userinfo document the shop stores
type Auth0UserInfo struct {
	Sub         string `json:"sub"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// UserInfoProvider resolves the profile behind an access token
type UserInfoProvider interface {
	GetUserInfo(ctx context.Context, accessToken string) (*Auth0UserInfo, error)
}

// Auth0Service reads customer profiles from an Auth0 tenant
type Auth0Service struct {
	endpoint string
	client   *http.Client
	profiles *expirable.LRU[string, Auth0UserInfo]
}

// NewAuth0Service targets https://<domain>/userinfo; a domain with a scheme is used as is
func NewAuth0Service(cfg *config.Config) *Auth0Service {
	base := strings.TrimRight(cfg.Auth0Domain, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &Auth0Service{
		endpoint: base + "/userinfo",
		client:   &http.Client{Timeout: userInfoTimeout},
		profiles: expirable.NewLRU[string, Auth0UserInfo](userInfoCacheSize, nil, userInfoCacheTTL),
	}
}

func (s *Auth0Service) GetUserInfo(ctx context.Context, accessToken string) (*Auth0UserInfo, error) {
	if cached, ok := s.profiles.Get(accessToken); ok {
		return &cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", s.endpoint, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.FromCtx(ctx).Warn("failed to close userinfo response body", zap.Error(closeErr))
		}
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUserInfoRejected
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var info Auth0UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	info.Email = strings.TrimSpace(info.Email)
	info.Name = strings.TrimSpace(info.Name)

	s.profiles.Add(accessToken, info)
	return &info, nil
}

package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/candleworks/storefront-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuth0Service_Endpoint(t *testing.T) {
	tests := []struct {
		domain   string
		endpoint string
	}{
		{"candleworks.eu.auth0.com", "https://candleworks.eu.auth0.com/userinfo"},
		{"https://candleworks.eu.auth0.com/", "https://candleworks.eu.auth0.com/userinfo"},
		{"http://127.0.0.1:8081", "http://127.0.0.1:8081/userinfo"},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			svc := NewAuth0Service(&config.Config{Auth0Domain: tt.domain})
			assert.Equal(t, tt.endpoint, svc.endpoint)
		})
	}
}

func TestAuth0Service_GetUserInfo(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sub":"auth0|ivana","email":" ivana@example.com ","name":"Ivana","phone_number":"+385 1 234 5678"}`))
		case "Bearer garbled":
			_, _ = w.Write([]byte(`{"sub":`))
		case "Bearer flaky":
			http.Error(w, "upstream hiccup", http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	svc := NewAuth0Service(&config.Config{Auth0Domain: server.URL})
	ctx := context.Background()

	info, err := svc.GetUserInfo(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "auth0|ivana", info.Sub)
	assert.Equal(t, "ivana@example.com", info.Email)
	assert.Equal(t, "+385 1 234 5678", info.PhoneNumber)

	_, err = svc.GetUserInfo(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second lookup is cached")

	_, err = svc.GetUserInfo(ctx, "revoked")
	assert.ErrorIs(t, err, ErrUserInfoRejected)

	_, err = svc.GetUserInfo(ctx, "flaky")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "upstream hiccup")

	_, err = svc.GetUserInfo(ctx, "garbled")
	assert.ErrorContains(t, err, "decode userinfo")
}

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legal-ai/legal-assistant/internal/app"
	"github.com/legal-ai/legal-assistant/internal/config"
	"github.com/legal-ai/legal-assistant/internal/middleware"
	"github.com/legal-ai/legal-assistant/pkg/logger"
)

func testServer(t *testing.T) (*httptest.Server, *config.Config) {
	t.Helper()
	cfg := &config.Config{
		Provider:          config.ProviderGateway,
		GatewayURL:        "http://127.0.0.1:1/v1/chat-messages",
		GatewayAPIKey:     "test",
		GatewayTimeout:    time.Second,
		StorageDriver:     config.StorageMemory,
		JWTSecret:         "secret",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
	a, err := app.New(context.Background(), cfg, logger.NewNop(), app.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	srv := httptest.NewServer(newRouter(cfg, a, logger.NewNop()))
	t.Cleanup(srv.Close)
	return srv, cfg
}

func token(t *testing.T, secret, sub string, scopes ...string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
		Scopes:           scopes,
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func get(t *testing.T, url, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestRouter(t *testing.T) {
	srv, cfg := testServer(t)
	user := token(t, cfg.JWTSecret, "alice")
	admin := token(t, cfg.JWTSecret, "ops", middleware.ScopeAnalyticsAdmin)

	tests := []struct {
		name   string
		path   string
		bearer string
		want   int
	}{
		{"health", "/health", "", http.StatusOK},
		{"ready", "/ready", "", http.StatusOK},
		{"metrics", "/metrics", "", http.StatusOK},
		{"api requires auth", "/api/v1/conversations", "", http.StatusUnauthorized},
		{"list conversations", "/api/v1/conversations", user, http.StatusOK},
		{"search", "/api/v1/search?q=refund", user, http.StatusOK},
		{"suggestions", "/api/v1/suggestions?q=con", user, http.StatusOK},
		{"analytics needs scope", "/api/v1/search/analytics", user, http.StatusForbidden},
		{"analytics with scope", "/api/v1/search/analytics", admin, http.StatusOK},
		{"unknown conversation", "/api/v1/conversations/missing", user, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, srv.URL+tt.path, tt.bearer)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
		})
	}
}

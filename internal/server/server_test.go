package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookshelf/internal/config"
	"bookshelf/internal/database/dbtest"
	"bookshelf/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, general, auth int) *fiber.App {
	t.Helper()
	return New(Deps{
		Config: &config.Config{
			JWTSecret:           "secret",
			AccessTokenTTL:      time.Minute,
			RefreshTokenTTL:     time.Hour,
			RateLimitMax:        general,
			RateLimitWindow:     time.Minute,
			AuthRateLimitMax:    auth,
			AuthRateLimitWindow: time.Minute,
		},
		DB:  dbtest.New(t),
		Log: logger.Discard(),
	})
}

func errorKind(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["message"])
	kind, _ := body["error"].(string)
	return kind
}

func TestRateLimit(t *testing.T) {
	app := newTestApp(t, 3, 100)

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/books", nil))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", errorKind(t, resp))
}

func TestAuthRateLimitIsStricter(t *testing.T) {
	app := newTestApp(t, 100, 2)

	login := func() *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"username":"nobody","password":"whatever"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}
	for i := 0; i < 2; i++ {
		resp := login()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
	resp := login()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()

	// Other routes still answer
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/books", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	app := newTestApp(t, 100, 100)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errorKind(t, resp))
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	app := newTestApp(t, 100, 100)

	for _, path := range []string{"/api/v1/scraping/trigger", "/api/v1/cache/clear"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.Equal(t, "unauthorized", errorKind(t, resp))
	}
}

package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"handbook/internal/config"
	"handbook/internal/database"
	"handbook/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:                "test",
		Port:               "0",
		JWTSecret:          "test-secret-that-is-long-enough-123",
		UploadDir:          t.TempDir(),
		AvatarMaxUploadMB:  5,
		RateLimitPerMinute: 1000,
		WSMaxConnections:   100,
		FeatureFlags:       "transactional_writes=on,strict_channel_leave=off",
	}
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) (*Server, *fiber.App, database.Store) {
	t.Helper()
	cfg := newTestConfig(t)
	for _, m := range mutate {
		m(cfg)
	}
	store := testutil.NewSQLiteStore(t)
	srv, err := NewServer(cfg, store, nil)
	require.NoError(t, err)
	return srv, srv.App(), store
}

// doJSON sends body as JSON and decodes the response into out when non-nil.
func doJSON(t *testing.T, app *fiber.App, method, path string, body any, token string, out any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestRootAndHealth(t *testing.T) {
	_, app, _ := newTestServer(t)

	var root map[string]any
	resp := doJSON(t, app, http.MethodGet, "/", nil, "", &root)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Diaspora Handbook API", root["name"])
	assert.Equal(t, "running", root["status"])

	var health map[string]any
	resp = doJSON(t, app, http.MethodGet, "/health", nil, "", &health)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])

	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	resp = doJSON(t, app, http.MethodGet, "/health/ready", nil, "", &ready)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", ready.Status)
	assert.Equal(t, "sqlite", ready.Checks["backend"])
	assert.Equal(t, "disabled", ready.Checks["redis"])
	assert.Equal(t, "local", ready.Checks["realtime"])

	resp = doJSON(t, app, http.MethodGet, "/health/live", nil, "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestNotFound(t *testing.T) {
	_, app, _ := newTestServer(t)

	var body map[string]string
	resp := doJSON(t, app, http.MethodGet, "/api/nope", nil, "", &body)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", body["error"])
	assert.Equal(t, "Cannot GET /api/nope", body["message"])
}

func TestCORS(t *testing.T) {
	_, app, _ := newTestServer(t, func(c *config.Config) {
		c.AllowedOrigins = "https://app.example.com"
	})

	tests := []struct {
		name       string
		origin     string
		wantStatus int
		wantHeader string
	}{
		{name: "No Origin", origin: "", wantStatus: fiber.StatusOK},
		{name: "Allowed Origin", origin: "https://app.example.com", wantStatus: fiber.StatusOK, wantHeader: "https://app.example.com"},
		{name: "Foreign Origin", origin: "https://evil.example.com", wantStatus: fiber.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantHeader, resp.Header.Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORS_WildcardOutsideProduction(t *testing.T) {
	_, app, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestFeatureFlags(t *testing.T) {
	_, app, _ := newTestServer(t)

	var body struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}
	resp := doJSON(t, app, http.MethodGet, "/api/feature-flags", nil, "", &body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "on", body.Raw["transactional_writes"])
	assert.True(t, body.Evaluated["transactional_writes"])
	assert.False(t, body.Evaluated["strict_channel_leave"])
}

func TestRespondError_HidesDetailsInProduction(t *testing.T) {
	for _, env := range []string{"test", "production"} {
		t.Run(env, func(t *testing.T) {
			srv, _, store := newTestServer(t, func(c *config.Config) { c.Env = env })
			app := srv.App()
			require.NoError(t, store.Close())

			var body map[string]string
			resp := doJSON(t, app, http.MethodGet, "/api/chat/channels", nil, "", &body)
			assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, "Failed to fetch channels", body["error"])
			assert.Equal(t, "INTERNAL_ERROR", body["code"])
			if env == "production" {
				assert.Empty(t, body["details"])
			} else {
				assert.NotEmpty(t, body["details"])
			}
		})
	}
}

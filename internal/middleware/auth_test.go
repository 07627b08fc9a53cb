package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]*Identity

func (s stubVerifier) VerifyToken(token string) (*Identity, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return nil, errors.New("invalid token")
}

var testVerifier = stubVerifier{
	"good-token": {UserID: "user_123", Username: "abebe"},
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Equal(t, "", BearerToken("Basic dXNlcjpwYXNz"))
	assert.Equal(t, "", BearerToken("Bearer"))
	assert.Equal(t, "", BearerToken(""))
}

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	app.Get("/test", AuthRequired(testVerifier), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": UserID(c), "username": Username(c)})
	})

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedError  string
	}{
		{name: "Happy Path", authHeader: "Bearer good-token", expectedStatus: http.StatusOK},
		{name: "Missing Header", expectedStatus: http.StatusUnauthorized, expectedError: "Unauthorized"},
		{name: "Invalid Format", authHeader: "Basic dXNlcjpwYXNz", expectedStatus: http.StatusUnauthorized, expectedError: "Invalid token"},
		{name: "Unknown Token", authHeader: "Bearer forged", expectedStatus: http.StatusUnauthorized, expectedError: "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "user_123", body["userID"])
				assert.Equal(t, "abebe", body["username"])
			} else {
				assert.Equal(t, tt.expectedError, body["error"])
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/feed", OptionalAuth(testVerifier), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})

	tests := []struct {
		name       string
		authHeader string
		expected   string
	}{
		{name: "Anonymous", expected: ""},
		{name: "Valid Token", authHeader: "Bearer good-token", expected: "user_123"},
		{name: "Invalid Token Ignored", authHeader: "Bearer forged", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/feed", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			buf := make([]byte, 64)
			n, _ := resp.Body.Read(buf)
			assert.Equal(t, tt.expected, string(buf[:n]))
		})
	}
}

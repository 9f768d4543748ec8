package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shelfscan/shelfscan/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		AdminEmail:    "admin@shelfscan.local",
		AdminPassword: "secret",
		JWTSecret:     "test-secret",
		JWTExpiry:     time.Hour,
	}
}

func newLoginApp(cfg *config.Config) *fiber.App {
	h := New(nil, cfg, nil, nil, nil, nil, nil)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/auth/login", h.Login)
	return app
}

func TestLoginIssuesToken(t *testing.T) {
	app := newLoginApp(testConfig())

	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email": "admin@shelfscan.local", "password": "secret"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)

	data, ok := out.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["token"])
	assert.Equal(t, "admin@shelfscan.local", data["email"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app := newLoginApp(testConfig())

	tests := []struct {
		name string
		body string
	}{
		{"wrong password", `{"email": "admin@shelfscan.local", "password": "nope"}`},
		{"wrong email", `{"email": "intruder@shelfscan.local", "password": "secret"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req, 10000)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestLoginDisabledWithoutPassword(t *testing.T) {
	cfg := testConfig()
	cfg.AdminPassword = ""
	app := newLoginApp(cfg)

	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email": "admin@shelfscan.local", "password": ""}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestNewResolvesAdminHashOnce(t *testing.T) {
	// The hash is computed at construction, so concurrent logins only ever
	// read it.
	h := New(nil, testConfig(), nil, nil, nil, nil, nil)
	require.NotEmpty(t, h.adminHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword(h.adminHash, []byte("secret")))

	// A password already in bcrypt form is used as-is.
	pre, err := bcrypt.GenerateFromPassword([]byte("vaulted"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.AdminPassword = string(pre)
	h = New(nil, cfg, nil, nil, nil, nil, nil)
	assert.Equal(t, pre, h.adminHash)

	// No password disables login entirely.
	cfg = testConfig()
	cfg.AdminPassword = ""
	h = New(nil, cfg, nil, nil, nil, nil, nil)
	assert.Empty(t, h.adminHash)
}

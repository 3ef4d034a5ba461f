package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("SESSION_TTL_MINUTES", "")
	t.Setenv("AUTH_ALLOW_ADMIN_SIGNUP", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.App.Addr())
	assert.Equal(t, "sessionid", cfg.Session.CookieName)
	assert.Equal(t, "csrftoken", cfg.Session.CSRFCookieName)
	assert.Equal(t, 14*24*time.Hour, cfg.Session.TTL())
	assert.Len(t, cfg.CORS.AllowedOrigins, 2)
	assert.True(t, cfg.Auth.AllowAdminSignup)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://hr.example.com, https://admin.example.com ,")
	t.Setenv("AUTH_LOGIN_RATE_WINDOW_SECONDS", "30")
	t.Setenv("CSRF_ENABLED", "false")
	t.Setenv("AUTH_ALLOW_ADMIN_SIGNUP", "false")
	t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, []string{"https://hr.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.Auth.LoginRateWindow())
	assert.False(t, cfg.Session.CSRFEnabled)
	assert.False(t, cfg.Auth.AllowAdminSignup)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "abc")

	_, err := Load()
	assert.Error(t, err)
}

func TestRequestTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
	assert.Equal(t, 5*time.Second, AppConfig{RequestTimeoutSeconds: 5}.RequestTimeout())
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, "America/Sao_Paulo", cfg.Timezone)
	assert.Equal(t, "Caixa Principal", cfg.CaixaPadraoNome)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL())
	assert.Equal(t, 1000, cfg.RateLimitPerMinute)

	p := cfg.RetryPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, p.BaseDelay)
	assert.Equal(t, time.Second, p.MaxDelay)
	assert.Equal(t, 5*time.Second, p.AttemptTimeout)

	cb := cfg.BreakerConfig()
	assert.Equal(t, 5, cb.FailureThreshold)
	assert.Equal(t, 30*time.Second, cb.OpenTimeout)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("TIMEZONE", "America/Manaus")
	t.Setenv("STORE_MAX_ATTEMPTS", "5")
	t.Setenv("CORS_ORIGINS", "https://app.oficinapro.com.br, https://admin.oficinapro.com.br,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, 5, cfg.RetryPolicy().MaxAttempts)
	assert.Equal(t, "America/Manaus", cfg.Location().String())
	assert.Equal(t, []string{"https://app.oficinapro.com.br", "https://admin.oficinapro.com.br"}, cfg.AllowedOrigins())
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown timezone":     {"TIMEZONE": "Mars/Olympus"},
		"short secret in prod": {"APP_ENV": "production", "JWT_SECRET": "curto"},
		"zero attempts":        {"STORE_MAX_ATTEMPTS": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

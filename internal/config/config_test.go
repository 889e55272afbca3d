package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks variables the host environment might set.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnv(t, "DATABASE_URL", "STORE_DRIVER", "APP_ENV", "DB_USER", "DB_PASSWORD", "DB_HOST", "DB_PORT",
		"DB_NAME", "DB_SSLMODE", "SERVER_HOST", "SERVER_PORT", "SESSION_TTL", "SESSION_MAX_TTL", "OUTBOX_GRACE",
		"RECIPES_RESULT_COUNT", "CLOUDINARY_CLOUD_NAME", "CLOUDINARY_API_KEY", "CLOUDINARY_API_SECRET")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.False(t, cfg.UsesMemoryStore())
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
	assert.Equal(t, "postgres://greenbite:@localhost:5432/greenbite?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, time.Minute, cfg.Outbox.Grace)
	assert.Equal(t, 5, cfg.Recipes.Number)
	assert.False(t, cfg.Media.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("OUTBOX_INTERVAL", "45")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("NOTIFIER_URL", "http://relay:5000/")
	t.Setenv("AUTH_RATE_PER_SECOND", "0.5")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	t.Setenv("CLOUDINARY_API_KEY", "key")
	t.Setenv("CLOUDINARY_API_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.UsesMemoryStore())
	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, 45*time.Second, cfg.Outbox.Interval, "bare integers are seconds")
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "http://relay:5000", cfg.Notifier.URL)
	assert.InDelta(t, 0.5, cfg.RateLimit.AuthPerSecond, 1e-9)
	assert.True(t, cfg.Media.Enabled())
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "mongo"}},
		{"production without secret", map[string]string{"APP_ENV": "production", "JWT_SECRET": ""}},
		{"max ttl below ttl", map[string]string{"SESSION_TTL": "48h", "SESSION_MAX_TTL": "1h"}},
		{"no outbox attempts", map[string]string{"OUTBOX_MAX_ATTEMPTS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRelay(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MAIL_TRANSPORT", "SMTP")
	t.Setenv("EMAIL_USER", "noreply@greenbite.example")
	t.Setenv("MAIL_FROM", "")
	t.Setenv("PORT", "")

	cfg, err := LoadRelay()
	require.NoError(t, err)
	assert.Equal(t, "smtp", cfg.Mail.Transport)
	assert.Equal(t, "noreply@greenbite.example", cfg.Mail.From)
	assert.Equal(t, ":5000", cfg.Address())

	t.Setenv("MAIL_TRANSPORT", "pigeon")
	_, err = LoadRelay()
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.Hour, cfg.SessionGrace)
	assert.Equal(t, "0 23 * * *", cfg.SweepSchedule)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Equal(t, "America/La_Paz", cfg.Location().String())
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("SESSION_TOKEN_GRACE", "soon")
	t.Setenv("RATE_LIMIT_PER_MIN", "abc")
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("QUEUE_BACKEND", "Memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, time.Hour, cfg.SessionGrace, "invalid value falls back")
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, "memory", cfg.QueueBackend)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_ISSUER=from-dotenv\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	// registered so the value godotenv sets is restored after the test
	t.Setenv("JWT_ISSUER", "")
	require.NoError(t, os.Unsetenv("JWT_ISSUER"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.JWTIssuer)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown timezone", env: map[string]string{"APP_TIMEZONE": "Mars/Olympus"}},
		{name: "production with dev secrets", env: map[string]string{"APP_ENV": "production"}},
		{name: "memory store without schedule", env: map[string]string{"STORE_BACKEND": "memory"}},
		{name: "memory store with redis queue", env: map[string]string{"STORE_BACKEND": "memory", "SCHEDULE_FILE": "schedule.yaml", "QUEUE_BACKEND": "redis"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadProduction(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("APP_ENV", "prod")
	t.Setenv("TOKEN_SECRET", "a-real-secret")
	t.Setenv("JWT_SIGNING_KEY", "a-real-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLoopbackURL(t *testing.T) {
	loopback := []string{
		"http://localhost:8080",
		"http://127.0.0.1",
		"https://127.0.0.1:443/path",
		"http://0.0.0.0:8080",
	}
	for _, raw := range loopback {
		assert.True(t, IsLoopbackURL(raw), raw)
	}

	public := []string{
		"https://api.agendia.app",
		"https://abc123.ngrok-free.app",
		"http://10.0.0.5:8080",
	}
	for _, raw := range public {
		assert.False(t, IsLoopbackURL(raw), raw)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "PUBLIC_BASE_URL", "DB_NAME", "REDIS_ADDR", "OPENAI_MODEL", "GATEWAY_PROVIDER"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "agendia", cfg.DBName)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, "evolution", cfg.GatewayProvider)
}

func TestLoadRejectsLoopbackPublicBaseURL(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "http://localhost:8080")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PUBLIC_BASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("PUBLIC_BASE_URL", "https://api.agendia.app")
	_, err = Load()
	assert.Error(t, err, "JWT secret still missing")

	t.Setenv("JWT_SECRET", "super-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.agendia.app", cfg.PublicBaseURL)
}

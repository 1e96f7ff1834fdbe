package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clonehub/internal/apperr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	path := writeConfig(t, `
[auth]
jwt_secret = "file-secret"

[ai_service]
base_url = "http://ai.internal:8000"
api_key = "file-key"
index_name = "clones"
timeout_seconds = 30
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("AI_SERVICE_API_KEY", "env-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://ai.internal:8000", cfg.AIService.BaseURL)
	assert.Equal(t, "env-key", cfg.AIService.APIKey)
	assert.Equal(t, 30*time.Second, cfg.AIService.Timeout())
	assert.Equal(t, 3, cfg.AIService.MaxAttempts)
	assert.Equal(t, "clone.document.status", cfg.RabbitMQ.DocumentStatusQueue)
	assert.Equal(t, int64(20<<20), cfg.Clone.MaxUploadBytes())
}

func TestLoad_MissingRequiredIsConfigurationError(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.toml"))
	t.Setenv("AI_SERVICE_URL", "")
	t.Setenv("AI_SERVICE_API_KEY", "")
	t.Setenv("PINECONE_INDEX", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
	assert.Contains(t, err.Error(), "ai_service.base_url")
	assert.Contains(t, err.Error(), "ai_service.index_name")
}

func TestGetEnvAsInt_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("CLONE_MAX_HISTORY", "lots")
	assert.Equal(t, 20, getEnvAsInt("CLONE_MAX_HISTORY", 20))
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join("..", "..", "configs", "config.example.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "clone.document.status", cfg.RabbitMQ.DocumentStatusQueue)
	assert.Equal(t, int64(20<<20), cfg.Clone.MaxUploadBytes())
	assert.Equal(t, 60*time.Second, cfg.Clone.CacheTTL())
}

func requiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.toml"))
	t.Setenv("AI_SERVICE_URL", "http://ai.internal:8000")
	t.Setenv("AI_SERVICE_API_KEY", "service-key")
	t.Setenv("PINECONE_INDEX", "clones")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AI_SERVICE_CALLBACK_KEY", "")
}

func TestLoad_CallbackKeyFallsBackToAPIKey(t *testing.T) {
	requiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "service-key", cfg.AIService.CallbackKey)

	t.Setenv("AI_SERVICE_CALLBACK_KEY", "callback-key")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "callback-key", cfg.AIService.CallbackKey)
}

func TestValidate_RequiresCallbackKey(t *testing.T) {
	cfg := defaultConfig()
	cfg.AIService.BaseURL = "http://ai.internal:8000"
	cfg.AIService.APIKey = "service-key"
	cfg.AIService.IndexName = "clones"
	cfg.Auth.JWTSecret = "secret"

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
	assert.Contains(t, err.Error(), "ai_service.callback_key")

	cfg.normalize()
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ClampsMaxAttempts(t *testing.T) {
	requiredEnv(t)

	t.Setenv("AI_SERVICE_MAX_ATTEMPTS", "10")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.AIService.MaxAttempts)

	t.Setenv("AI_SERVICE_MAX_ATTEMPTS", "0")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.AIService.MaxAttempts)
}

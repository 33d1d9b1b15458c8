package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadJSONConfigGroupedSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"app": {"AppPort": "9090", "JWTSecret": "s3cret", "AllowedOrigins": ["https://a.example"]},
		"database": {"DBHost": "db", "DBName": "forum"},
		"redis": {"RedisHost": "cache", "RedisPort": 6380},
		"ai": {"Enabled": true, "Model": "gpt-x", "RequestsPerMinute": 12},
		"saga": {"MaxAttempts": 9}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))

	assert.Equal(t, "9090", c.AppPort)
	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, []string{"https://a.example"}, c.AllowedOrigins)
	assert.Equal(t, "db", c.DBHost)
	assert.Equal(t, "forum", c.DBName)
	assert.Equal(t, 6380, c.RedisPort)
	assert.True(t, c.AIEnabled)
	assert.Equal(t, "gpt-x", c.AIModel)
	assert.Equal(t, 12, c.AIRequestsPerMin)
	assert.Equal(t, 9, c.SagaMaxAttempts)
}

func TestLoadJSONConfigMissingFileIsIgnored(t *testing.T) {
	var c AppConfig
	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "nope.json"), &c))
	assert.Equal(t, AppConfig{}, c)
}

func TestLoadJSONConfigInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	var c AppConfig
	assert.Error(t, loadJSONConfig(path, &c))
}

func TestDefaultsThenEnvOverrides(t *testing.T) {
	t.Setenv("DB_NAME", "from_env")
	t.Setenv("SAGA_MAX_ATTEMPTS", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://x.example, https://y.example ,")

	var c AppConfig
	applyDefaults(&c)
	applyEnvOverrides(&c)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "from_env", c.DBName)
	assert.Equal(t, 2, c.SagaMaxAttempts)
	assert.Equal(t, 120, c.SagaStaleAfterSec)
	assert.Equal(t, []string{"https://x.example", "https://y.example"}, c.AllowedOrigins)
}

func TestLoadCachesUntilReset(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("JWT_SECRET", "first")

	assert.Equal(t, "first", Load().JWTSecret)

	t.Setenv("JWT_SECRET", "second")
	assert.Equal(t, "first", Get().JWTSecret)

	Reset()
	assert.Equal(t, "second", Get().JWTSecret)
}

func TestToGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, toGormLogLevel("debug"))
	assert.Equal(t, logger.Warn, toGormLogLevel(""))
	assert.Equal(t, logger.Error, toGormLogLevel("error"))
	assert.Equal(t, logger.Silent, toGormLogLevel("silent"))
	assert.Equal(t, logger.Warn, toGormLogLevel("bogus"))
}

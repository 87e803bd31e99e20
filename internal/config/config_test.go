package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: sqlite
jwt:
  secret: short
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 300*time.Second, cfg.Redis.TTL)
	assert.Equal(t, "file", cfg.Content.Source)
	assert.Equal(t, 20, cfg.Copilot.HistoryLimit)
	assert.Equal(t, 3, cfg.AI.RetryMaxAttempts)
	assert.Equal(t, time.Second, cfg.AI.RetryInitialWait)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	dir := writeConfig(t, "database:\n  driver: sqlite\n")
	t.Setenv("CONTENT_PATH", "/srv/topics.yaml")
	t.Setenv("AI_PROVIDER", "mock")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "/srv/topics.yaml", cfg.Content.Path)
	assert.Equal(t, "mock", cfg.AI.Provider)
}

func TestValidate(t *testing.T) {
	base := Config{
		Server:   ServerConfig{Mode: "release"},
		JWT:      JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
		Database: DatabaseConfig{Driver: "mysql"},
		Content:  ContentConfig{Source: "file"},
	}
	assert.NoError(t, base.Validate())

	weak := base
	weak.JWT.Secret = "short"
	assert.Error(t, weak.Validate())

	badDriver := base
	badDriver.Database.Driver = "postgres"
	assert.Error(t, badDriver.Validate())

	badSource := base
	badSource.Content.Source = "ftp"
	assert.Error(t, badSource.Validate())
}

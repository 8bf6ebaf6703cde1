package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 8080
database:
  host: localhost
  port: 5432
  user: app
  password: filepass
  database: mejaqr
rabbitmq:
  host: localhost
  port: 5672
  user: guest
  password: guest
auth:
  secret: filesecret
  issuer: mejaqr
display:
  poll_interval_seconds: 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "mejaqr", cfg.Database.Database)
	assert.Equal(t, 30, cfg.Display.PollIntervalSeconds)
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	path := writeConfig(t, `
database:
  password: filepass
auth:
  secret: filesecret
`)
	t.Setenv("DB_PASSWORD", "envpass")
	t.Setenv("JWT_SECRET", "envsecret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "envpass", cfg.Database.Password)
	assert.Equal(t, "envsecret", cfg.Auth.Secret)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.HTTP.Port)
	assert.Equal(t, 15, cfg.Display.PollIntervalSeconds)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

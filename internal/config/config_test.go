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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
database:
  host: db
  port: 5432
  user: journal
  password: secret
  dbname: journal
  sslmode: disable
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 24, cfg.JWT.ExpireHours)
	assert.Equal(t, "0.20", cfg.Referral.CommissionRate)
	assert.Equal(t, 300*time.Second, cfg.Analytics.CacheTTL())
	assert.Equal(t, "host=db port=5432 user=journal password=secret dbname=journal sslmode=disable", cfg.Database.DSN())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
ai:
  model: from-file
`)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("OPENAI_MODEL", "from-env")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.AI.Model)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

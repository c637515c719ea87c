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
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadParsesDurationsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  dsn: /tmp/x.db
rate_limit:
  backend: redis
  burst:
    limit: 3
    window: 2s
quota:
  default_limit: 7
  window: 90m
auth:
  jwt_secret: file-secret
`)
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("BASE_URL", "https://sho.rt/")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "redis", cfg.RateLimit.Backend)
	assert.Equal(t, 3, cfg.RateLimit.Burst.Limit)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.Burst.Window)
	assert.Equal(t, 90*time.Minute, cfg.Quota.Window)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "https://sho.rt", cfg.Server.BaseURL)
	// untouched sections keep their defaults
	assert.Equal(t, 6379, cfg.Redis.Port)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.RateLimit.Burst.Limit)
	assert.Equal(t, 5*time.Second, cfg.RateLimit.Burst.Window)
	assert.Equal(t, 25, cfg.Quota.DefaultLimit)
	assert.Equal(t, 5*time.Hour, cfg.Quota.Window)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate(), "empty jwt secret")

	cfg.Auth.JWTSecret = "s"
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.RateLimit.Backend = "memcached"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Database.Driver = "oracle"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Database.Driver = "sqlite"
	assert.Error(t, bad.Validate(), "sqlite needs a dsn")
}

func TestMySQLDSN(t *testing.T) {
	m := MySQLConfig{Host: "db", Port: 3306, Username: "u", Password: "p", Database: "d"}
	assert.Equal(t, "u:p@tcp(db:3306)/d?charset=utf8mb4&parseTime=True&loc=UTC", m.DSN())
}

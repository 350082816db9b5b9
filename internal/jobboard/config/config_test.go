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

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
HTTP_PORT: 8181
DB_HOST: db
DB_NAME: jobs
JWT_SECRET: from-yaml
KAFKA_BROKERS:
  - k1:9092
  - k2:9092
TOKEN_TTL: 30m
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.HTTPPort)
	assert.Equal(t, 9090, cfg.GRPCPort, "defaults survive")
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "from-yaml", cfg.JWTSecret)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
DB_HOST: db
DB_NAME: jobs
JWT_SECRET: from-yaml
`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("KAFKA_BROKERS", "a:1, b:2,")
	t.Setenv("LOGIN_WINDOW", "5m")
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, 9999, cfg.HTTPPort)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Minute, cfg.LoginWindow)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_InvalidEnv(t *testing.T) {
	path := writeConfig(t, "JWT_SECRET: x\nDB_HOST: db\nDB_NAME: jobs\n")
	t.Setenv("HTTP_PORT", "eighty")

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to apply environment")
	assert.ErrorContains(t, err, `field "HTTPPort"`)
	assert.ErrorContains(t, err, "eighty")
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "jobboard.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"missing host", func(c *Config) { c.DBHost = "" }, "DB_HOST"},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, "DB_DRIVER"},
		{"sqlite without path", func(c *Config) { c.DBDriver = "sqlite" }, "SQLITE_PATH"},
		{"zero ttl", func(c *Config) { c.TokenTTL = 0 }, "TOKEN_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.JWTSecret = "secret"
			cfg.DBHost = "db"
			cfg.DBName = "jobs"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

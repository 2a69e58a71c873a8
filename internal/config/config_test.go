package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "dev")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "dev-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.BlobBackend)
	assert.Equal(t, DefaultLockTTL, cfg.LockTTL)
	assert.Equal(t, DefaultHeartbeatInterval, cfg.HeartbeatInterval)
	assert.Equal(t, DefaultAutosaveDelay, cfg.AutosaveDelay)
	assert.Equal(t, DefaultRestoreDays, cfg.S3RestoreDays)
}

func TestLoad_ParsesDurations(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("LOCK_TTL", "5m")
	t.Setenv("HEARTBEAT_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.LockTTL)
	assert.Equal(t, time.Minute, cfg.HeartbeatInterval)
}

func TestLoad_RejectsMalformedValues(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("LOCK_TTL", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "LOCK_TTL")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:              "8080",
			Environment:       "dev",
			StoreBackend:      "memory",
			BlobBackend:       "memory",
			JWTSecret:         "secret",
			S3Bucket:          "bucket",
			S3RestoreTier:     "Standard",
			S3RestoreDays:     1,
			LockTTL:           DefaultLockTTL,
			HeartbeatInterval: DefaultHeartbeatInterval,
			AutosaveDelay:     DefaultAutosaveDelay,
			SessionIdleTTL:    DefaultSessionIdleTTL,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown environment", func(c *Config) { c.Environment = "staging" }, "Environment"},
		{"postgres without url", func(c *Config) { c.StoreBackend = "postgres" }, "DatabaseURL"},
		{"prod without jwks", func(c *Config) { c.Environment = "prod" }, "JWKSURL"},
		{"no auth configured", func(c *Config) { c.JWTSecret = "" }, "JWTSecret"},
		{"ttl too short", func(c *Config) { c.LockTTL = 5 * time.Second; c.HeartbeatInterval = time.Second }, "LockTTL"},
		{"heartbeat too slow", func(c *Config) { c.HeartbeatInterval = 90 * time.Second }, "HeartbeatInterval"},
		{"session ttl below lock ttl", func(c *Config) { c.SessionIdleTTL = time.Minute }, "SessionIdleTTL"},
		{"bad restore tier", func(c *Config) { c.S3RestoreTier = "Fast" }, "S3RestoreTier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
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

func TestOpenLogFile_PrunesOldest(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		f, err := OpenLogFile(dir, 2, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	files, err := filepath.Glob(filepath.Join(dir, logFilePattern))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "casefile-2026-01-01T00-00-02.log", filepath.Base(files[0]))

	_, err = os.Stat(filepath.Join(dir, "casefile-2026-01-01T00-00-00.log"))
	assert.True(t, os.IsNotExist(err))
}

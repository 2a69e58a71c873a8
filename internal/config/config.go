package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	JWKSURL     string
	JWTSecret   string // HS256 secret used when no JWKS endpoint is configured
	CORSOrigins string
	LogDir      string
	// Storage backends
	StoreBackend string // "postgres" or "memory"
	BlobBackend  string // "s3" or "memory"
	// Editing coordination
	LockTTL           time.Duration
	HeartbeatInterval time.Duration
	AutosaveDelay     time.Duration
	SessionIdleTTL    time.Duration
	// S3 content storage
	S3Bucket      string
	S3Region      string
	S3Endpoint    string // Empty = AWS default; set for MinIO and other S3-compatible stores
	S3AccessKey   string
	S3SecretKey   string
	S3RestoreDays int
	S3RestoreTier string // Expedited, Standard or Bulk
	// Internal hooks for the tier scheduler and storage notifications
	InternalAPIToken string
}

func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "dev")

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       env,
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		JWKSURL:           getEnv("JWKS_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		CORSOrigins:       getEnv("CORS_ORIGINS", "http://localhost:3000"),
		LogDir:            getEnv("LOG_DIR", ""),
		StoreBackend:      getEnv("STORE_BACKEND", "postgres"),
		BlobBackend:       getEnv("BLOB_BACKEND", getDefaultBlobBackend(env)),
		S3Bucket:          getEnv("S3_BUCKET", "casefile-versions"),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
		S3RestoreTier:     getEnv("S3_RESTORE_TIER", "Standard"),
		InternalAPIToken:  getEnv("INTERNAL_API_TOKEN", ""),
		LockTTL:           DefaultLockTTL,
		HeartbeatInterval: DefaultHeartbeatInterval,
		AutosaveDelay:     DefaultAutosaveDelay,
		SessionIdleTTL:    DefaultSessionIdleTTL,
		S3RestoreDays:     DefaultRestoreDays,
	}

	var err error
	if cfg.LockTTL, err = getEnvDuration("LOCK_TTL", cfg.LockTTL); err != nil {
		return nil, err
	}
	if cfg.HeartbeatInterval, err = getEnvDuration("HEARTBEAT_INTERVAL", cfg.HeartbeatInterval); err != nil {
		return nil, err
	}
	if cfg.AutosaveDelay, err = getEnvDuration("AUTOSAVE_DELAY", cfg.AutosaveDelay); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTTL, err = getEnvDuration("SESSION_IDLE_TTL", cfg.SessionIdleTTL); err != nil {
		return nil, err
	}
	if cfg.S3RestoreDays, err = getEnvInt("S3_RESTORE_DAYS", cfg.S3RestoreDays); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the resolved configuration. The heartbeat must fire well
// inside the lock TTL or healthy sessions would lose their locks.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.Environment, validation.Required, validation.In("dev", "test", "prod")),
		validation.Field(&c.StoreBackend, validation.In("postgres", "memory")),
		validation.Field(&c.BlobBackend, validation.In("s3", "memory")),
		validation.Field(&c.DatabaseURL, validation.When(c.StoreBackend == "postgres", validation.Required)),
		validation.Field(&c.JWKSURL, validation.When(c.Environment == "prod", validation.Required)),
		validation.Field(&c.JWTSecret, validation.When(c.JWKSURL == "", validation.Required.Error("required when JWKS_URL is not set"))),
		validation.Field(&c.S3Bucket, validation.When(c.BlobBackend == "s3", validation.Required)),
		validation.Field(&c.S3RestoreTier, validation.In("Expedited", "Standard", "Bulk")),
		validation.Field(&c.S3RestoreDays, validation.Min(1)),
		validation.Field(&c.LockTTL, validation.Min(MinLockTTL)),
		validation.Field(&c.HeartbeatInterval,
			validation.Required,
			validation.Max(c.LockTTL/2).Error("must be at most half of LOCK_TTL"),
		),
		validation.Field(&c.AutosaveDelay, validation.Required),
		validation.Field(&c.SessionIdleTTL, validation.Min(c.LockTTL).Error("must be at least LOCK_TTL")),
	)
}

// getDefaultBlobBackend returns the default blob backend based on environment
func getDefaultBlobBackend(env string) string {
	if env == "prod" {
		return "s3"
	}
	return "memory"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverBolt     = "bolt"
)

// Config holds the process configuration read from the environment.
type Config struct {
	ServerPort         int           `envconfig:"SERVER_PORT" default:"8080"`
	JWTSecretKey       string        `envconfig:"JWT_SECRET_KEY" required:"true"`
	StoreDriver        string        `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseURL        string        `envconfig:"DATABASE_URL"`
	DBConnectTimeout   time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"5s"`
	BoltPath           string        `envconfig:"BOLT_PATH" default:"data/tourney.db"`
	BoltSeedFile       string        `envconfig:"BOLT_SEED_FILE"` // JSON reference data loaded into an empty bolt store
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// Load reads the environment, loading a .env file first when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}
		if c.BoltSeedFile != "" {
			return fmt.Errorf("BOLT_SEED_FILE is only used with STORE_DRIVER=%s", StoreDriverBolt)
		}
	case StoreDriverBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("BOLT_PATH environment variable is not set")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverBolt, c.StoreDriver)
	}
	if c.DBConnectTimeout <= 0 {
		return fmt.Errorf("DB_CONNECT_TIMEOUT must be positive, got %s", c.DBConnectTimeout)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LOG_LEVEL (debug, info, warn, error).
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

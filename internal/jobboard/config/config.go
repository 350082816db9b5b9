// Package config loads service configuration from a YAML file, an optional
// .env file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file used when CONFIG_PATH is unset.
var DefaultPath = filepath.Join("internal", "jobboard", "config", "config.yaml")

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config struct for YAML configuration. Every key can be overridden by an
// environment variable of the same name.
type Config struct {
	Environment string `yaml:"ENVIRONMENT" env:"ENVIRONMENT"`
	GRPCPort    int    `yaml:"GRPC_PORT" env:"GRPC_PORT"`
	HTTPPort    int    `yaml:"HTTP_PORT" env:"HTTP_PORT"`

	DBDriver   string `yaml:"DB_DRIVER" env:"DB_DRIVER"`
	DBHost     string `yaml:"DB_HOST" env:"DB_HOST"`
	DBPort     int    `yaml:"DB_PORT" env:"DB_PORT"`
	DBUser     string `yaml:"DB_USER" env:"DB_USER"`
	DBPassword string `yaml:"DB_PASSWORD" env:"DB_PASSWORD"`
	DBName     string `yaml:"DB_NAME" env:"DB_NAME"`
	DBSSLMode  string `yaml:"DB_SSLMODE" env:"DB_SSLMODE"`
	SQLitePath string `yaml:"SQLITE_PATH" env:"SQLITE_PATH"`

	KafkaBrokers []string `yaml:"KAFKA_BROKERS" env:"KAFKA_BROKERS"`
	Topic        string   `yaml:"TOPIC" env:"TOPIC"`
	GroupID      string   `yaml:"GROUP_ID" env:"GROUP_ID"`

	JWTSecret  string        `yaml:"JWT_SECRET" env:"JWT_SECRET"`
	TokenTTL   time.Duration `yaml:"TOKEN_TTL" env:"TOKEN_TTL"`
	BcryptCost int           `yaml:"BCRYPT_COST" env:"BCRYPT_COST"`

	RedisAddr        string        `yaml:"REDIS_ADDR" env:"REDIS_ADDR"`
	RedisPassword    string        `yaml:"REDIS_PASSWORD" env:"REDIS_PASSWORD"`
	RedisDB          int           `yaml:"REDIS_DB" env:"REDIS_DB"`
	LoginMaxAttempts int           `yaml:"LOGIN_MAX_ATTEMPTS" env:"LOGIN_MAX_ATTEMPTS"`
	LoginWindow      time.Duration `yaml:"LOGIN_WINDOW" env:"LOGIN_WINDOW"`
}

// IsDevelopment reports whether internal error details may be exposed.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, EnvDevelopment)
}

// Load reads the YAML file at path (CONFIG_PATH or DefaultPath when empty),
// then applies .env and environment overrides.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := defaults()
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	err = env.ParseWithOptions(cfg, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf([]string(nil)): splitList,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Environment:      EnvProduction,
		GRPCPort:         9090,
		HTTPPort:         8080,
		DBDriver:         "postgres",
		DBPort:           5432,
		DBSSLMode:        "disable",
		Topic:            "jobboard.events",
		GroupID:          "jobboard-activity",
		TokenTTL:         time.Hour,
		LoginMaxAttempts: 10,
		LoginWindow:      time.Minute,
	}
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.DBDriver {
	case "postgres":
		if c.DBHost == "" || c.DBName == "" {
			return errors.New("DB_HOST and DB_NAME are required for the postgres driver")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

// splitList parses comma separated values, dropping blanks.
func splitList(raw string) (interface{}, error) {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

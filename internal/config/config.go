package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	TelegramToken       string        `env:"TELEGRAM_TOKEN"`
	TelegramAdminChatID int64         `env:"TELEGRAM_ADMIN_CHAT_ID" env-default:"0"`
	DatabaseURL         string        `env:"DATABASE_URL" env-required:"true"`
	LogLevel            string        `env:"LOG_LEVEL" env-default:"info"`
	LogFormat           string        `env:"LOG_FORMAT" env-default:"text"`
	Port                int           `env:"PORT" env-default:"8080"`
	PrometheusPort      int           `env:"PROMETHEUS_PORT" env-default:"9090"`
	PublicBaseURL       string        `env:"PUBLIC_BASE_URL" env-default:"http://localhost:8080"`
	ClassPollInterval   time.Duration `env:"CLASS_POLL_INTERVAL" env-default:"30s"`
	MigrationsPath      string        `env:"MIGRATIONS_PATH" env-default:"migrations"`
	DB                  PoolConfig
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; variables already set in the
// environment win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// BotEnabled reports whether a Telegram token was configured.
func (c *Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

// Validate checks the loaded values and reports every problem found.
func (c *Config) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(c.DatabaseURL) == "" {
		result = multierror.Append(result, errors.New("DATABASE_URL is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("PORT must be between 1 and 65535 (got %d)", c.Port))
	}
	if c.PrometheusPort <= 0 || c.PrometheusPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("PROMETHEUS_PORT must be between 1 and 65535 (got %d)", c.PrometheusPort))
	}
	if c.PrometheusPort == c.Port {
		result = multierror.Append(result, fmt.Errorf("PROMETHEUS_PORT must differ from PORT (both %d)", c.Port))
	}
	if c.ClassPollInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("CLASS_POLL_INTERVAL must be positive (got %s)", c.ClassPollInterval))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("LOG_FORMAT must be text or json (got %q)", c.LogFormat))
	}
	if c.DB.MaxOpenConns < 0 || c.DB.MaxIdleConns < 0 {
		result = multierror.Append(result, errors.New("DB pool sizes must not be negative"))
	}

	return result.ErrorOrNil()
}

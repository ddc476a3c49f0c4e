// Package config содержит логику чтения конфигурации кофемашины.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress = "localhost:8080"
	defaultJWTKey     = "coffee-machine-secret"
	defaultLogLevel   = "info"
)

// Config содержит параметры конфигурации кофемашины.
type Config struct {
	RunAddress      string `env:"RUN_ADDRESS" validate:"required,hostname_port"`
	DatabaseURI     string `env:"DATABASE_URI"`
	JWTKey          string `env:"JWT_KEY" validate:"required"`
	JWTIssuer       string `env:"JWT_ISSUER" envDefault:"coffee-machine" validate:"required"`
	JWTAudience     string `env:"JWT_AUDIENCE" envDefault:"coffee-machine-clients" validate:"required"`
	JWTLifetimeDays int    `env:"JWT_LIFETIME_DAYS" envDefault:"1" validate:"min=1"`
	LogLevel        string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// TokenLifetime возвращает срок жизни токена доступа.
func (c *Config) TokenLifetime() time.Duration {
	return time.Duration(c.JWTLifetimeDays) * 24 * time.Hour
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envJWTKey := cfg.JWTKey
	envLogLevel := cfg.LogLevel

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, in-memory storage when empty")
	flag.StringVar(&cfg.JWTKey, "k", defaultJWTKey, "JWT signing key")
	flag.StringVar(&cfg.LogLevel, "l", defaultLogLevel, "log level")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envJWTKey != "" {
		cfg.JWTKey = envJWTKey
	}
	if envLogLevel != "" {
		cfg.LogLevel = envLogLevel
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

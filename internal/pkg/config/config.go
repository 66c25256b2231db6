package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/anicoll/sensorhub/pkg/hasher"
)

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"

	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8000"`
	Storage  StorageConfig
	JWT      JWTConfig `envPrefix:"JWT_"`
}

type StorageConfig struct {
	Backend          string `env:"STORAGE_BACKEND" envDefault:"postgres"`
	DatabaseURL      string `env:"DATABASE_URL"`
	MigrationsFolder string `env:"MIGRATIONS_FOLDER"`
}

type JWTConfig struct {
	Secret     string        `env:"SECRET"`
	Issuer     string        `env:"ISSUER" envDefault:"sensorhub"`
	AccessTTL  time.Duration `env:"ACCESS_TTL" envDefault:"5m"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"24h"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom reads the configuration from the given variables only.
func LoadFrom(environ map[string]string) (*Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.JWT.Secret == "" && cfg.AppEnv == EnvDevelopment {
		if cfg.JWT.Secret, err = hasher.GenerateToken(32); err != nil {
			return nil, fmt.Errorf("config: generate jwt secret: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{EnvDevelopment, EnvStaging, EnvProduction}, c.AppEnv) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of development, staging, production, got %q", c.AppEnv))
	}
	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be postgres or memory, got %q", c.Storage.Backend))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required outside development"))
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		errs = append(errs, errors.New("JWT token lifetimes must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

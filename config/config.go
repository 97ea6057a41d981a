// Package config reads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreBuntdb   = "buntdb"
	StorePostgres = "postgres"
)

type Config struct {
	Debug        bool          `env:"DEBUG"`
	ListenAddr   string        `env:"LISTEN_ADDR" envDefault:":2137"`
	AllowOrigins []string      `env:"ALLOW_ORIGINS" envSeparator:"," envDefault:"https://spacegame.dev"`
	AccessWindow time.Duration `env:"ACCESS_WINDOW" envDefault:"30m"`

	Store       string `env:"STORE" envDefault:"buntdb"`
	BuntdbPath  string `env:"BUNTDB_PATH" envDefault:"data/users.db"`
	PostgresDsn string `env:"POSTGRES_DSN"`
	DbVerbose   bool   `env:"DB_VERBOSE"`

	JwtSecret string `env:"JWT_SECRET"`

	IdpBaseUrl         string        `env:"IDP_BASE_URL"`
	IdpAdminToken      string        `env:"IDP_ADMIN_TOKEN"`
	IdpCleanupInterval time.Duration `env:"IDP_CLEANUP_INTERVAL" envDefault:"5m"`

	S3 S3 `envPrefix:"S3_"`
}

type S3 struct {
	Region        string        `env:"REGION" envDefault:"us-east-1"`
	Endpoint      string        `env:"ENDPOINT"`
	AccessKey     string        `env:"ACCESS_KEY"`
	SecretKey     string        `env:"SECRET_KEY"`
	Bucket        string        `env:"BUCKET"`
	PublicBaseUrl string        `env:"PUBLIC_BASE_URL"`
	PresignTTL    time.Duration `env:"PRESIGN_TTL" envDefault:"15m"`
	UsePathStyle  bool          `env:"USE_PATH_STYLE"`
}

// FromEnv parses and validates the configuration.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.AccessWindow <= 0 {
		errs = append(errs, errors.New("ACCESS_WINDOW must be positive"))
	}
	switch c.Store {
	case StoreBuntdb:
		if strings.TrimSpace(c.BuntdbPath) == "" {
			errs = append(errs, errors.New("BUNTDB_PATH not set"))
		}
	case StorePostgres:
		if strings.TrimSpace(c.PostgresDsn) == "" {
			errs = append(errs, errors.New("POSTGRES_DSN not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE %q", c.Store))
	}
	if len(c.JwtSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	if c.IdpBaseUrl != "" && c.IdpCleanupInterval <= 0 {
		errs = append(errs, errors.New("IDP_CLEANUP_INTERVAL must be positive"))
	}
	if c.S3.Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET not set"))
	}
	return errors.Join(errs...)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// DevTokenSecret is the signing secret used when TOKEN_SECRET is unset outside production.
const DevTokenSecret = "dev-secret-change-in-production"

var (
	ErrInsecureSecret    = errors.New("TOKEN_SECRET must be set in production environment")
	ErrUnknownDriver     = errors.New("unknown storage driver")
	ErrMissingDSN        = errors.New("STORAGE_DSN is required for the mysql and postgres drivers")
	ErrUnknownAlgorithm  = errors.New("unknown hash algorithm")
	ErrInvalidBcryptCost = errors.New("bcrypt cost out of range")
	ErrInvalidRateLimit  = errors.New("rate limit rps and burst must be positive")
	ErrNegativeTokenTTL  = errors.New("TOKEN_TTL must not be negative")
	ErrEmptyTokenHeader  = errors.New("TOKEN_HEADER must not be empty")
	ErrEmptyStoragePath  = errors.New("STORAGE_PATH is required for file and sqlite drivers")
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Hash algorithms.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

type Config struct {
	Port        string   `env:"PORT" envDefault:"3080"`
	Env         string   `env:"ENV" envDefault:"development"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"debug"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	// Metrics serves Prometheus metrics on /metrics.
	Metrics bool `env:"METRICS_ENABLED" envDefault:"true"`

	Storage   Storage   `envPrefix:"STORAGE_"`
	Token     Token     `envPrefix:"TOKEN_"`
	Hash      Hash      `envPrefix:"HASH_"`
	RateLimit RateLimit `envPrefix:"RATE_LIMIT_"`
}

// Storage selects the credential store backend.
type Storage struct {
	Driver string `env:"DRIVER" envDefault:"file"`
	// Path is the JSON document for the file driver and the database file for sqlite.
	Path string `env:"PATH" envDefault:"database.json"`
	DSN  string `env:"DSN"`
}

type Token struct {
	Secret   string `env:"SECRET"`
	Issuer   string `env:"ISSUER" envDefault:"tripy-auth"`
	Audience string `env:"AUDIENCE" envDefault:"tripy-web"`
	// TTL of zero issues tokens without an exp claim.
	TTL    time.Duration `env:"TTL" envDefault:"0s"`
	Header string        `env:"HEADER" envDefault:"jwt-token"`
}

type Hash struct {
	Algorithm  string `env:"ALGORITHM" envDefault:"bcrypt"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"10"`
}

type RateLimit struct {
	Enabled bool    `env:"ENABLED" envDefault:"true"`
	RPS     float64 `env:"RPS" envDefault:"5"`
	Burst   int     `env:"BURST" envDefault:"10"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	return load(env.ToMap(os.Environ()))
}

func load(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("error getting env configs: %w", err)
	}

	if cfg.Token.Secret == "" && cfg.Env != "production" {
		cfg.Token.Secret = DevTokenSecret
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if c.IsProduction() && (c.Token.Secret == "" || c.Token.Secret == DevTokenSecret) {
		return ErrInsecureSecret
	}
	if c.Token.TTL < 0 {
		return ErrNegativeTokenTTL
	}
	if c.Token.Header == "" {
		return ErrEmptyTokenHeader
	}

	switch c.Storage.Driver {
	case DriverFile, DriverSQLite:
		if c.Storage.Path == "" {
			return ErrEmptyStoragePath
		}
	case DriverMySQL, DriverPostgres:
		if c.Storage.DSN == "" {
			return ErrMissingDSN
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Storage.Driver)
	}

	switch c.Hash.Algorithm {
	case AlgorithmBcrypt:
		if c.Hash.BcryptCost < bcrypt.MinCost || c.Hash.BcryptCost > bcrypt.MaxCost {
			return fmt.Errorf("%w: %d", ErrInvalidBcryptCost, c.Hash.BcryptCost)
		}
	case AlgorithmArgon2id:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, c.Hash.Algorithm)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return ErrInvalidRateLimit
	}

	return nil
}

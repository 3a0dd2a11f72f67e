package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the user-service runtime configuration.
type Config struct {
	HTTPAddr        string        `envconfig:"USER_HTTP_ADDR" default:":8001"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	DatabaseURL      string        `envconfig:"USER_DB_URL" required:"true"`
	DBConnectTimeout time.Duration `envconfig:"USER_DB_CONNECT_TIMEOUT" default:"5s"`
	DBLockTimeout    time.Duration `envconfig:"USER_DB_LOCK_TIMEOUT" default:"5s"`
	MigrateOnStart   bool          `envconfig:"MIGRATE_ON_START" default:"false"`

	PrivateKeyPath string `envconfig:"JWT_PRIVATE_KEY_PATH" required:"true"`
	PublicKeyPath  string `envconfig:"JWT_PUBLIC_KEY_PATH" required:"true"`
	Issuer         string `envconfig:"JWT_ISSUER" default:"lelang-user-service"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads .env.local and .env when present (local overrides .env), then
// the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("USER_DB_URL is not set")
	}
	if cfg.PrivateKeyPath == "" || cfg.PublicKeyPath == "" {
		return nil, fmt.Errorf("JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH must be set")
	}
	return &cfg, nil
}

// ReadKeys loads the PEM-encoded signing key pair.
func (c *Config) ReadKeys() (privatePEM, publicPEM []byte, err error) {
	privatePEM, err = os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read private key %s: %w", c.PrivateKeyPath, err)
	}
	publicPEM, err = os.ReadFile(c.PublicKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read public key %s: %w", c.PublicKeyPath, err)
	}
	return privatePEM, publicPEM, nil
}

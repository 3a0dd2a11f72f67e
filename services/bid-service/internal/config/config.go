package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	pkgevents "github.com/floroz/lelang/pkg/events"
)

// Config is the bid-service runtime configuration, read from the environment.
type Config struct {
	HTTPAddr        string        `envconfig:"BID_HTTP_ADDR" default:":3000"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	DatabaseURL      string        `envconfig:"BID_DB_URL" required:"true"`
	DBConnectTimeout time.Duration `envconfig:"BID_DB_CONNECT_TIMEOUT" default:"5s"`
	DBMaxConns       int32         `envconfig:"BID_DB_MAX_CONNS" default:"10"`
	MigrateOnStart   bool          `envconfig:"MIGRATE_ON_START" default:"false"`

	// RedisURL and RabbitMQURL are optional; an unset value disables that sink.
	RedisURL            string `envconfig:"REDIS_URL"`
	NotificationChannel string `envconfig:"NOTIFICATION_CHANNEL" default:"lelang_notifications"`
	RabbitMQURL         string `envconfig:"RABBITMQ_URL"`
	EventsExchange      string `envconfig:"EVENTS_EXCHANGE"`

	SubscriberBuffer int           `envconfig:"BID_SUBSCRIBER_BUFFER" default:"16"`
	WSPingInterval   time.Duration `envconfig:"BID_WS_PING_INTERVAL" default:"30s"`

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
		return nil, fmt.Errorf("BID_DB_URL is not set")
	}
	if cfg.EventsExchange == "" {
		cfg.EventsExchange = pkgevents.ExchangeAuctionEvents
	}
	if cfg.SubscriberBuffer < 1 {
		return nil, fmt.Errorf("BID_SUBSCRIBER_BUFFER must be positive, got %d", cfg.SubscriberBuffer)
	}
	return &cfg, nil
}

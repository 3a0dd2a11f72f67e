package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	pkgevents "github.com/floroz/lelang/pkg/events"
)

// Notification sources.
const (
	SourceRedis    = "redis"
	SourceRabbitMQ = "rabbitmq"
)

// Config is the notification-service runtime configuration.
type Config struct {
	HTTPAddr        string        `envconfig:"NOTIFICATION_HTTP_ADDR" default:":8004"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	RedisURL     string `envconfig:"REDIS_URL" required:"true"`
	Channel      string `envconfig:"NOTIFICATION_CHANNEL" default:"lelang_notifications"`
	HistoryKey   string `envconfig:"NOTIFICATION_HISTORY_KEY" default:"history_notif"`
	HistoryLimit int    `envconfig:"NOTIFICATION_HISTORY_LIMIT" default:"50"`

	// Source selects where notifications come from: the Redis channel or the
	// bid.placed queue on RabbitMQ.
	Source         string `envconfig:"NOTIFICATION_SOURCE" default:"redis"`
	RabbitMQURL    string `envconfig:"RABBITMQ_URL"`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE"`

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
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is not set")
	}
	if cfg.HistoryLimit < 1 {
		return nil, fmt.Errorf("NOTIFICATION_HISTORY_LIMIT must be positive, got %d", cfg.HistoryLimit)
	}
	if cfg.EventsExchange == "" {
		cfg.EventsExchange = pkgevents.ExchangeAuctionEvents
	}

	switch cfg.Source {
	case SourceRedis:
	case SourceRabbitMQ:
		if cfg.RabbitMQURL == "" {
			return nil, fmt.Errorf("RABBITMQ_URL is required when NOTIFICATION_SOURCE=%s", SourceRabbitMQ)
		}
	default:
		return nil, fmt.Errorf("unknown NOTIFICATION_SOURCE %q", cfg.Source)
	}
	return &cfg, nil
}

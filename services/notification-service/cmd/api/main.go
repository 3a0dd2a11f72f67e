package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/floroz/lelang/pkg/httpx"
	pkglogger "github.com/floroz/lelang/pkg/logger"
	"github.com/floroz/lelang/pkg/redisclient"
	"github.com/floroz/lelang/services/notification-service/internal/adapters/api"
	"github.com/floroz/lelang/services/notification-service/internal/adapters/events"
	"github.com/floroz/lelang/services/notification-service/internal/adapters/storage"
	"github.com/floroz/lelang/services/notification-service/internal/config"
	"github.com/floroz/lelang/services/notification-service/internal/domain/notifications"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap := pkglogger.New(pkglogger.Options{ServiceName: "notification-service"})
		bootstrap.Error().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	logger := pkglogger.New(pkglogger.Options{
		ServiceName: "notification-service",
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("Notification service stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Redis holds the history whatever the source.
	rdb, err := redisclient.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()
	logger.Info().Msg("Redis Connected")

	history := storage.NewRedisHistory(rdb, cfg.HistoryKey, cfg.HistoryLimit)
	service := notifications.NewService(history, cfg.HistoryLimit, logger)

	// 2. Source
	var source interface{ Run(context.Context) error }
	switch cfg.Source {
	case config.SourceRabbitMQ:
		amqpConn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer amqpConn.Close()
		logger.Info().Str("exchange", cfg.EventsExchange).Msg("RabbitMQ Connected")
		source = events.NewBidConsumer(amqpConn, cfg.EventsExchange, service, logger)
	default:
		source = events.NewRedisSubscriber(rdb, cfg.Channel, service, logger)
	}

	// 3. HTTP
	srv := httpx.NewServer(cfg.HTTPAddr, api.NewRouter(api.NewNotificationHandler(service), logger))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("source", cfg.Source).Msg("Starting notification subscriber")
		return source.Run(gctx)
	})
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("Starting Notification Service API")
		return httpx.Serve(gctx, srv, cfg.ShutdownTimeout)
	})

	return g.Wait()
}

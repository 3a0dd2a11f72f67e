package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	pkgdb "github.com/floroz/lelang/pkg/database"
	pkgevents "github.com/floroz/lelang/pkg/events"
	"github.com/floroz/lelang/pkg/httpx"
	pkglogger "github.com/floroz/lelang/pkg/logger"
	"github.com/floroz/lelang/pkg/redisclient"
	"github.com/floroz/lelang/services/bid-service/internal/adapters/api"
	"github.com/floroz/lelang/services/bid-service/internal/adapters/database"
	"github.com/floroz/lelang/services/bid-service/internal/adapters/events"
	"github.com/floroz/lelang/services/bid-service/internal/adapters/metrics"
	"github.com/floroz/lelang/services/bid-service/internal/config"
	"github.com/floroz/lelang/services/bid-service/internal/domain/bids"
	"github.com/floroz/lelang/services/bid-service/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap := pkglogger.New(pkglogger.Options{ServiceName: "bid-service"})
		bootstrap.Error().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	logger := pkglogger.New(pkglogger.Options{
		ServiceName: "bid-service",
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("Bid service stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Postgres
	if cfg.MigrateOnStart {
		applied, err := pkgdb.Migrate(ctx, cfg.DatabaseURL, migrations.FS)
		if err != nil {
			return err
		}
		logger.Info().Int("applied", applied).Msg("Migrations applied")
	}

	pool, err := pkgdb.Connect(ctx, pkgdb.PoolConfig{
		URL:            cfg.DatabaseURL,
		MaxConns:       cfg.DBMaxConns,
		ConnectTimeout: cfg.DBConnectTimeout,
	})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("Postgres Connected")

	// 2. Broadcast sinks. The hub is always on; Redis and RabbitMQ are optional.
	hub := events.NewHub(cfg.SubscriberBuffer)
	sinks := []bids.Broadcaster{hub}

	if cfg.RedisURL != "" {
		rdb, err := redisclient.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis connection failed, notifications disabled")
		} else {
			defer rdb.Close()
			logger.Info().Str("channel", cfg.NotificationChannel).Msg("Redis Connected")
			sinks = append(sinks, events.NewRedisPublisher(rdb, cfg.NotificationChannel))
		}
	}

	if cfg.RabbitMQURL != "" {
		amqpConn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to RabbitMQ, bid.placed events disabled")
		} else {
			defer amqpConn.Close()
			publisher, err := pkgevents.NewRabbitMQPublisher(amqpConn, cfg.EventsExchange)
			if err != nil {
				return err
			}
			defer publisher.Close()
			logger.Info().Str("exchange", cfg.EventsExchange).Msg("RabbitMQ Connected")
			sinks = append(sinks, events.NewBidPlacedPublisher(publisher, cfg.EventsExchange))
		}
	}

	// 3. Domain
	registry := metrics.NewRegistry()
	bidMetrics := metrics.NewBidMetrics(registry, hub.Count)
	service := bids.NewService(database.NewPostgresBidRepository(pool), sinks, bidMetrics, logger)

	// 4. HTTP
	router := api.NewRouter(
		api.NewBidHandler(service),
		api.NewWatchHandler(hub, cfg.WSPingInterval),
		metrics.Handler(registry),
		logger,
	)
	srv := httpx.NewServer(cfg.HTTPAddr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("Starting Bid Service API")
		return httpx.Serve(gctx, srv, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down bid service...")
		// WebSocket connections are hijacked and outlive srv.Shutdown.
		hub.Close()
		return nil
	})

	return g.Wait()
}

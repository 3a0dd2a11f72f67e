package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/floroz/lelang/pkg/auth"
	pkgdb "github.com/floroz/lelang/pkg/database"
	"github.com/floroz/lelang/pkg/httpx"
	pkglogger "github.com/floroz/lelang/pkg/logger"
	"github.com/floroz/lelang/services/user-service/internal/adapters/api"
	"github.com/floroz/lelang/services/user-service/internal/adapters/database"
	"github.com/floroz/lelang/services/user-service/internal/config"
	"github.com/floroz/lelang/services/user-service/internal/domain/users"
	"github.com/floroz/lelang/services/user-service/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap := pkglogger.New(pkglogger.Options{ServiceName: "user-service"})
		bootstrap.Error().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	logger := pkglogger.New(pkglogger.Options{
		ServiceName: "user-service",
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("User service stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Keys
	privateKeyPEM, publicKeyPEM, err := cfg.ReadKeys()
	if err != nil {
		return err
	}
	signer, err := auth.NewSigner(privateKeyPEM, publicKeyPEM, cfg.Issuer)
	if err != nil {
		return err
	}

	// 2. Postgres
	if cfg.MigrateOnStart {
		applied, err := pkgdb.Migrate(ctx, cfg.DatabaseURL, migrations.FS)
		if err != nil {
			return err
		}
		logger.Info().Int("applied", applied).Msg("Migrations applied")
	}

	pool, err := pkgdb.Connect(ctx, pkgdb.PoolConfig{
		URL:            cfg.DatabaseURL,
		ConnectTimeout: cfg.DBConnectTimeout,
	})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("Postgres Connected")

	// 3. Repositories and service
	txManager := pkgdb.NewPostgresTransactionManager(pool, cfg.DBLockTimeout)
	service := users.NewService(
		database.NewPostgresUserRepository(pool),
		database.NewPostgresTokenRepository(pool),
		signer,
		txManager,
		logger,
	)

	// 4. HTTP
	router := api.NewRouter(api.NewUserHandler(service), signer, publicKeyPEM, logger)
	srv := httpx.NewServer(cfg.HTTPAddr, router)

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("Starting User Service API")
	return httpx.Serve(ctx, srv, cfg.ShutdownTimeout)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/campusmarket/marketplace/services/messaging-api/internal/config"
	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/database/transaction"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/logger"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/observability"
	repo "github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/repository/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/interfaces/httpserver"
)

// @title Messaging API
// @version 1.0
// @description Conversations and messages between buyers and sellers of the campus marketplace
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := newGormDB(ctx, cfg, newDatabaseConfig(cfg), log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	validator, closeValidator, err := newIdentityValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize identity validator")
	}
	defer closeValidator()

	txDB := transaction.NewDatabase(db)
	messagingService := domain.NewService(
		repo.NewPostgresConversationRepository(txDB),
		repo.NewPostgresMessageRepository(txDB),
		txDB,
		newListingResolver(cfg, log),
		log,
		newServiceOptions(cfg)...,
	)

	sanitizer := newSanitizer(cfg)
	authenticator := newAuthenticator(validator, sanitizer, log)
	httpServer := httpserver.New(cfg, log, messagingService, authenticator, sanitizer, newReadinessProbe(db))
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/campusmarket/marketplace/pkg/telemetry"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/config"
	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/auth"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/cache"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/database"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/identity"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/listings"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/metrics"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/interfaces/httpserver"
)

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseURL,
		ReadDSN:         cfg.DatabaseReadURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg *config.Config, dbCfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(dbCfg)
	if err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate {
		if err := database.AutoMigrate(ctx, db, log); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// newIdentityValidator picks the credential check for IDENTITY_MODE and puts the principal cache in front of it.
// The returned cleanup releases the JWKS refresher and the Redis client.
func newIdentityValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (domain.IdentityValidator, func(), error) {
	cleanup := func() {}

	var validator domain.IdentityValidator
	switch cfg.IdentityMode {
	case config.IdentityModeJWKS:
		jwks, err := identity.NewJWKSValidator(ctx, cfg.AuthJWKSURL, cfg.AuthIssuer, log)
		if err != nil {
			return nil, cleanup, fmt.Errorf("initialize jwks validator: %w", err)
		}
		cleanup = jwks.Close
		validator = jwks
	default:
		validator = identity.NewRemoteValidator(cfg.AuthServiceURL, cfg.CollaboratorTimeout, cfg.CollaboratorRetries, log)
	}

	if cfg.PrincipalCacheTTL <= 0 {
		return validator, cleanup, nil
	}

	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL, log)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("initialize principal cache: %w", err)
		}
		closeValidator := cleanup
		cleanup = func() {
			closeValidator()
			if err := redisCache.Close(); err != nil {
				log.Warn().Err(err).Msg("close redis principal cache")
			}
		}
		return identity.NewCachedValidator(validator, redisCache, cfg.PrincipalCacheTTL), cleanup, nil
	}

	lruCache, err := cache.NewLRUCache(cfg.PrincipalCacheSize)
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("initialize principal cache: %w", err)
	}
	return identity.NewCachedValidator(validator, lruCache, cfg.PrincipalCacheTTL), cleanup, nil
}

func newListingResolver(cfg *config.Config, log zerolog.Logger) domain.ListingResolver {
	return listings.NewClient(cfg.ListingsServiceURL, cfg.CollaboratorTimeout, cfg.CollaboratorRetries, log)
}

func newSanitizer(cfg *config.Config) *telemetry.Sanitizer {
	return telemetry.NewSanitizer(telemetry.ParsePIILevel(cfg.LogPIILevel), cfg.ServiceName)
}

func newAuthenticator(validator domain.IdentityValidator, sanitizer *telemetry.Sanitizer, log zerolog.Logger) *auth.Authenticator {
	return auth.NewAuthenticator(validator, sanitizer, log)
}

func newServiceOptions(cfg *config.Config) []domain.Option {
	return []domain.Option{
		domain.WithFanout(cfg.ConversationFanout),
		domain.WithRecorder(metrics.NewDomainRecorder()),
	}
}

func newReadinessProbe(db *gorm.DB) httpserver.ReadinessProbe {
	return func(ctx context.Context) error {
		return database.Ping(ctx, db)
	}
}

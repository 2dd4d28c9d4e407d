//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/campusmarket/marketplace/services/messaging-api/internal/config"
	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/database/transaction"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/logger"
	repo "github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/repository/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/interfaces/httpserver"
)

var messagingSet = wire.NewSet(
	transaction.NewDatabase,
	wire.Bind(new(domain.Transactor), new(*transaction.Database)),
	repo.NewPostgresConversationRepository,
	wire.Bind(new(domain.ConversationRepository), new(*repo.PostgresConversationRepository)),
	repo.NewPostgresMessageRepository,
	wire.Bind(new(domain.MessageRepository), new(*repo.PostgresMessageRepository)),
	newListingResolver,
	newServiceOptions,
	domain.NewService,
)

var authSet = wire.NewSet(
	newIdentityValidator,
	newSanitizer,
	newAuthenticator,
)

// BuildApplication assembles the messaging service with Wire.
func BuildApplication(ctx context.Context) (*Application, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		newDatabaseConfig,
		newGormDB,
		newReadinessProbe,
		messagingSet,
		authSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil, nil
}

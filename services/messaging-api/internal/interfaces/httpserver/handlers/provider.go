package handlers

import (
	"github.com/rs/zerolog"

	"github.com/campusmarket/marketplace/pkg/telemetry"
	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Conversation *ConversationHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(service domain.Service, sanitizer *telemetry.Sanitizer, log zerolog.Logger) *Provider {
	return &Provider{
		Conversation: NewConversationHandler(service, sanitizer, log),
	}
}

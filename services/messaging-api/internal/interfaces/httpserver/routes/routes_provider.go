package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/campusmarket/marketplace/services/messaging-api/internal/interfaces/httpserver/handlers"
	v1 "github.com/campusmarket/marketplace/services/messaging-api/internal/interfaces/httpserver/routes/v1"
)

// Provider groups the versioned route registrars.
type Provider struct {
	V1 *v1.Routes
}

// NewProvider builds every route registrar from the handler provider.
func NewProvider(handlerProvider *handlers.Provider) *Provider {
	return &Provider{
		V1: v1.NewRoutes(handlerProvider),
	}
}

// Register attaches all versioned routes; middleware applies to each version group.
func (p *Provider) Register(engine *gin.Engine, middleware ...gin.HandlerFunc) {
	p.V1.Register(engine, middleware...)
}

package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/campusmarket/marketplace/pkg/telemetry"
	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/utils/platformerrors"
)

const principalKey = "auth_principal"

// Authenticator resolves the bearer credential of every request through the identity validator.
type Authenticator struct {
	validator domain.IdentityValidator
	sanitizer *telemetry.Sanitizer
	log       zerolog.Logger
}

// NewAuthenticator wires the middleware with an identity validator.
func NewAuthenticator(validator domain.IdentityValidator, sanitizer *telemetry.Sanitizer, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		validator: validator,
		sanitizer: sanitizer,
		log:       log.With().Str("component", "auth-middleware").Logger(),
	}
}

// Middleware rejects requests without a valid credential and stores the principal for handlers.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			platformerrors.WriteUnauthorized(c, "missing bearer token")
			return
		}

		principal, err := a.validator.Validate(c.Request.Context(), token)
		if err != nil {
			platformerrors.WriteError(c, err, a.log)
			return
		}

		a.log.Debug().
			Uint("user_id", principal.ID).
			Str("email", a.sanitizer.Email(principal.Email)).
			Msg("request authenticated")

		c.Set(principalKey, principal)
		c.Next()
	}
}

// SetPrincipal stores a principal on the gin context.
func SetPrincipal(c *gin.Context, principal domain.Principal) {
	c.Set(principalKey, principal)
}

// PrincipalFromContext returns the principal stored by the middleware.
func PrincipalFromContext(c *gin.Context) (domain.Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	principal, ok := value.(domain.Principal)
	return principal, ok
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

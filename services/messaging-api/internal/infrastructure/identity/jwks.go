package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/utils/platformerrors"
)

// JWKSValidator verifies RS256/384/512 tokens locally against a JWKS endpoint.
//
// It targets issuers that sign asymmetrically and put the numeric user_id and the email
// in the token, such as an OIDC gateway in front of the identity service. The identity
// service's own HS256 tokens carry only sub=email and are validated in remote mode.
type JWKSValidator struct {
	jwks   *keyfunc.JWKS
	issuer string
	log    zerolog.Logger

	// refreshFailing is set while the last JWKS refresh attempt failed.
	refreshFailing atomic.Bool
}

// NewJWKSValidator fetches the key set. Failure to fetch it is returned to the caller.
func NewJWKSValidator(ctx context.Context, jwksURL, issuer string, log zerolog.Logger) (*JWKSValidator, error) {
	v := &JWKSValidator{
		issuer: issuer,
		log:    log.With().Str("component", "jwks-validator").Logger(),
	}
	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			v.refreshFailing.Store(true)
			v.log.Error().Err(err).Msg("jwks refresh error")
		},
		ResponseExtractor: func(ctx context.Context, resp *http.Response) (json.RawMessage, error) {
			raw, err := keyfunc.ResponseExtractorStatusOK(ctx, resp)
			if err == nil {
				v.refreshFailing.Store(false)
			}
			return raw, err
		},
	}

	jwks, err := keyfunc.Get(jwksURL, options)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	v.jwks = jwks
	return v, nil
}

// Validate parses the token and maps the user_id and email claims into a Principal.
func (v *JWKSValidator) Validate(ctx context.Context, credential string) (domain.Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, v.jwks.Keyfunc, opts...)
	if errors.Is(err, keyfunc.ErrKIDNotFound) && v.refreshFailing.Load() {
		// The key may exist upstream; the endpoint could not be asked.
		return domain.Principal{}, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeUnavailable,
			"identity key set unavailable", err, "4f0c2b7e-93d1-4a6e-b8c5-2d7e1f9a6c34")
	}
	if err != nil || !token.Valid {
		return domain.Principal{}, unauthorized(ctx, err)
	}
	return principalFromClaims(ctx, claims)
}

// Close stops the background key refresh.
func (v *JWKSValidator) Close() {
	v.jwks.EndBackground()
}

func principalFromClaims(ctx context.Context, claims jwt.MapClaims) (domain.Principal, error) {
	var userID uint64
	switch raw := claims["user_id"].(type) {
	case float64:
		if raw > 0 && raw == float64(uint64(raw)) {
			userID = uint64(raw)
		}
	case string:
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err == nil {
			userID = parsed
		}
	}
	email, _ := claims["email"].(string)
	if userID == 0 || email == "" {
		return domain.Principal{}, unauthorized(ctx, fmt.Errorf("token lacks user_id or email claim"))
	}

	username, _ := claims["preferred_username"].(string)
	if name, ok := claims["username"].(string); ok && name != "" {
		username = name
	}
	return domain.Principal{ID: uint(userID), Email: email, Username: username}, nil
}

func unauthorized(ctx context.Context, err error) error {
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeUnauthorized,
		"invalid authentication credentials", err, "bcaa996a-a5b4-4278-b9fc-86a73fc6abe4")
}

package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/metrics"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/utils/platformerrors"
)

const validatePath = "/v1/auth/validate"

// RemoteValidator asks the identity service to validate bearer credentials.
type RemoteValidator struct {
	httpClient *resty.Client
	log        zerolog.Logger
}

type validateResponse struct {
	UserID   uint   `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// NewRemoteValidator constructs the client. Transport failures are retried retries times.
func NewRemoteValidator(baseURL string, timeout time.Duration, retries int, log zerolog.Logger) *RemoteValidator {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(retries).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		AddRetryCondition(func(_ *resty.Response, err error) bool {
			return err != nil
		})

	return &RemoteValidator{
		httpClient: client,
		log:        log.With().Str("component", "identity-client").Logger(),
	}
}

// Validate resolves the credential through GET /v1/auth/validate.
func (v *RemoteValidator) Validate(ctx context.Context, credential string) (domain.Principal, error) {
	start := time.Now()
	resp, err := v.httpClient.R().
		SetContext(ctx).
		SetAuthToken(credential).
		Get(validatePath)
	if err != nil {
		metrics.RecordCollaboratorRequest("identity", "unavailable", time.Since(start).Seconds())
		v.log.Warn().Err(err).Msg("identity service unreachable")
		return domain.Principal{}, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeUnavailable,
			"authentication service unavailable", err, "7b02c5b2-08c6-47d7-b238-963d85145a16")
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusOK:
	case status >= http.StatusInternalServerError:
		metrics.RecordCollaboratorRequest("identity", "unavailable", time.Since(start).Seconds())
		v.log.Warn().Int("status", status).Msg("identity service returned server error")
		return domain.Principal{}, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeUnavailable,
			"authentication service unavailable", nil, "0348f2c9-6b72-4c0a-8782-411e570af71f")
	default:
		metrics.RecordCollaboratorRequest("identity", "rejected", time.Since(start).Seconds())
		return domain.Principal{}, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeUnauthorized,
			"invalid authentication credentials", nil, "d3f1eec3-691a-4392-b8c2-c76532b29659")
	}

	var payload validateResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil || payload.UserID == 0 {
		metrics.RecordCollaboratorRequest("identity", "invalid_response", time.Since(start).Seconds())
		v.log.Error().Err(err).Msg("identity service returned an unusable principal")
		return domain.Principal{}, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeUnavailable,
			"authentication service returned an invalid response", err, "667027b7-b139-41b9-bdcd-9b87a814d8d4")
	}

	metrics.RecordCollaboratorRequest("identity", "ok", time.Since(start).Seconds())
	return domain.Principal{
		ID:       payload.UserID,
		Email:    payload.Email,
		Username: payload.Username,
	}, nil
}

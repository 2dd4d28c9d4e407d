package listings

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/imroc/req/v3"
	"github.com/rs/zerolog"

	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/metrics"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/utils/platformerrors"
)

// Client resolves listing reference data from the listings service.
type Client struct {
	client *req.Client
	log    zerolog.Logger
}

type listingResponse struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	SellerID    uint   `json:"seller_id"`
	SellerEmail string `json:"seller_email"`
}

// NewClient creates a new listings client. Transport failures are retried retries times.
func NewClient(baseURL string, timeout time.Duration, retries int, log zerolog.Logger) *Client {
	client := req.C().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetCommonHeader("Accept", "application/json").
		SetCommonRetryCount(retries).
		SetCommonRetryBackoffInterval(100*time.Millisecond, time.Second).
		SetCommonRetryCondition(func(_ *req.Response, err error) bool {
			return err != nil
		})

	return &Client{
		client: client,
		log:    log.With().Str("component", "listings-client").Logger(),
	}
}

// Resolve fetches GET /v1/listings/{id}.
func (c *Client) Resolve(ctx context.Context, listingID uint) (domain.ListingRef, error) {
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatUint(uint64(listingID), 10)).
		Get("/v1/listings/{id}")
	if err != nil {
		metrics.RecordCollaboratorRequest("listings", "unavailable", time.Since(start).Seconds())
		c.log.Warn().Err(err).Uint("listing_id", listingID).Msg("listings service unreachable")
		return domain.ListingRef{}, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeUnavailable,
			"listings service unavailable", err, "738f5a53-c25b-4d81-ac07-f85b5ceff24b")
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		metrics.RecordCollaboratorRequest("listings", "not_found", time.Since(start).Seconds())
		return domain.ListingRef{}, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeNotFound,
			"listing not found", nil, "8f6eecc6-511a-4fbd-add4-e816d20d0f71")
	default:
		metrics.RecordCollaboratorRequest("listings", "error", time.Since(start).Seconds())
		c.log.Warn().
			Int("status", resp.StatusCode).
			Uint("listing_id", listingID).
			Msg("listings service returned error")
		return domain.ListingRef{}, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeBadRequest,
			"failed to fetch listing", nil, "b41d5bdc-a860-48cd-bbb5-ee913a177d69")
	}

	var payload listingResponse
	if err := json.Unmarshal(resp.Bytes(), &payload); err != nil || payload.SellerID == 0 {
		metrics.RecordCollaboratorRequest("listings", "invalid_response", time.Since(start).Seconds())
		c.log.Error().Err(err).Uint("listing_id", listingID).Msg("listings service returned an unusable listing")
		return domain.ListingRef{}, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeBadRequest,
			"failed to fetch listing", err, "c6edcd9d-d59b-44b0-a32d-774c874abd9e")
	}

	metrics.RecordCollaboratorRequest("listings", "ok", time.Since(start).Seconds())
	ref := domain.ListingRef{
		ID:          payload.ID,
		SellerID:    payload.SellerID,
		SellerEmail: payload.SellerEmail,
		Title:       payload.Title,
	}
	if ref.ID == 0 {
		ref.ID = listingID
	}
	return ref, nil
}

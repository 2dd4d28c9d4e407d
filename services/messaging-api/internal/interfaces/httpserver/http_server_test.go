package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmarket/marketplace/pkg/telemetry"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/config"
	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/auth"
	repo "github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/repository/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/interfaces/httpserver"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/utils/platformerrors"
)

type tokenValidator map[string]domain.Principal

func (v tokenValidator) Validate(ctx context.Context, credential string) (domain.Principal, error) {
	principal, ok := v[credential]
	if !ok {
		return domain.Principal{}, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeUnauthorized, "invalid authentication credentials", nil, "")
	}
	return principal, nil
}

type staticListings map[uint]domain.ListingRef

func (l staticListings) Resolve(ctx context.Context, listingID uint) (domain.ListingRef, error) {
	listing, ok := l[listingID]
	if !ok {
		return domain.ListingRef{}, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeNotFound, "listing not found", nil, "")
	}
	return listing, nil
}

func newTestServer(t *testing.T, ready httpserver.ReadinessProbe) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{ServiceName: "messaging-api", Environment: "test", HTTPPort: 0}

	store := repo.NewInMemoryStore()
	listings := staticListings{
		42: {ID: 42, SellerID: 9, SellerEmail: "seller@campus.edu", Title: "Calculus textbook"},
	}
	service := domain.NewService(store.Conversations(), store.Messages(), store, listings, zerolog.Nop())

	validator := tokenValidator{
		"buyer-token":    {ID: 7, Email: "buyer@campus.edu"},
		"seller-token":   {ID: 9, Email: "seller@campus.edu"},
		"outsider-token": {ID: 11, Email: "outsider@campus.edu"},
	}
	sanitizer := telemetry.NewSanitizer(telemetry.PIILevelHashed, "test")
	authenticator := auth.NewAuthenticator(validator, sanitizer, zerolog.Nop())

	return httpserver.New(cfg, zerolog.Nop(), service, authenticator, sanitizer, ready).Handler()
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndReadiness(t *testing.T) {
	h := newTestServer(t, func(ctx context.Context) error { return nil })

	w := call(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	w = call(t, h, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	down := newTestServer(t, func(ctx context.Context) error { return errors.New("connection refused") })
	w = call(t, down, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")

	w = call(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations", nil)
	req.Header.Set("X-Request-Id", "req-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-Id"))
	var body platformerrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "req-123", body.Error.RequestID)
}

func TestV1RequiresAuthentication(t *testing.T) {
	h := newTestServer(t, nil)

	for _, token := range []string{"", "forged"} {
		w := call(t, h, http.MethodGet, "/v1/conversations", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestConversationLifecycle(t *testing.T) {
	h := newTestServer(t, nil)

	w := call(t, h, http.MethodPost, "/v1/conversations", "buyer-token", map[string]any{"listing_id": 42})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var conversation map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conversation))
	assert.Equal(t, "Calculus textbook", conversation["listing_title"])
	id := int(conversation["id"].(float64))
	base := "/v1/conversations/" + strconv.Itoa(id)

	w = call(t, h, http.MethodPost, "/v1/conversations", "buyer-token", map[string]any{"listing_id": 42})
	require.Equal(t, http.StatusOK, w.Code)
	var again map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
	assert.Equal(t, conversation["id"], again["id"])

	w = call(t, h, http.MethodPost, "/v1/conversations", "seller-token", map[string]any{"listing_id": 42})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, h, http.MethodPost, "/v1/conversations", "buyer-token", map[string]any{"listing_id": 77})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(t, h, http.MethodPost, base+"/messages", "buyer-token", map[string]any{"content": "Is this still available?"})
	require.Equal(t, http.StatusOK, w.Code)

	w = call(t, h, http.MethodGet, "/v1/conversations", "seller-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sellerList []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sellerList))
	require.Len(t, sellerList, 1)
	assert.Equal(t, float64(1), sellerList[0]["unread_count"])

	w = call(t, h, http.MethodGet, base+"/messages", "seller-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var messages []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, true, messages[0]["is_read"])

	w = call(t, h, http.MethodGet, base+"/messages", "outsider-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(t, h, http.MethodGet, base+"/summary", "buyer-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"conversation_id":`+strconv.Itoa(id)+`,"message_count":1,"status":"active"}`, w.Body.String())

	w = call(t, h, http.MethodDelete, base, "seller-token", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = call(t, h, http.MethodGet, base+"/summary", "buyer-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

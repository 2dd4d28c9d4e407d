package identity_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/cache"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/identity"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/utils/platformerrors"
)

type countingValidator struct {
	calls atomic.Int32
	err   error
}

func (v *countingValidator) Validate(ctx context.Context, credential string) (domain.Principal, error) {
	v.calls.Add(1)
	if v.err != nil {
		return domain.Principal{}, v.err
	}
	return domain.Principal{ID: 7, Email: "buyer@campus.edu"}, nil
}

func TestCachedValidator_ReusesSuccessfulValidation(t *testing.T) {
	next := &countingValidator{}
	lru, err := cache.NewLRUCache(8)
	require.NoError(t, err)
	validator := identity.NewCachedValidator(next, lru, time.Minute)

	for i := 0; i < 3; i++ {
		principal, err := validator.Validate(context.Background(), "token-a")
		require.NoError(t, err)
		assert.Equal(t, uint(7), principal.ID)
	}
	assert.Equal(t, int32(1), next.calls.Load())

	_, err = validator.Validate(context.Background(), "token-b")
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachedValidator_DoesNotCacheFailures(t *testing.T) {
	next := &countingValidator{err: platformerrors.NewError(context.Background(), platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeUnauthorized, "invalid authentication credentials", nil, "")}
	lru, err := cache.NewLRUCache(8)
	require.NoError(t, err)
	validator := identity.NewCachedValidator(next, lru, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := validator.Validate(context.Background(), "bad")
		assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeUnauthorized))
	}
	assert.Equal(t, int32(2), next.calls.Load())
	assert.Zero(t, lru.Len())
}

func TestNewCachedValidator_DisabledReturnsNext(t *testing.T) {
	next := &countingValidator{}
	lru, err := cache.NewLRUCache(8)
	require.NoError(t, err)

	assert.Same(t, next, identity.NewCachedValidator(next, lru, 0))
	assert.Same(t, next, identity.NewCachedValidator(next, nil, time.Minute))
}

func TestCredentialKey(t *testing.T) {
	key := identity.CredentialKey("secret-token")
	assert.Len(t, key, 64)
	assert.NotContains(t, key, "secret")
	assert.Equal(t, key, identity.CredentialKey("secret-token"))
	assert.NotEqual(t, key, identity.CredentialKey("other-token"))
}

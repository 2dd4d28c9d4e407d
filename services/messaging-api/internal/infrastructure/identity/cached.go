package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/metrics"
)

// PrincipalCache stores validated principals keyed by credential digest.
type PrincipalCache interface {
	Get(ctx context.Context, key string) (domain.Principal, bool)
	Set(ctx context.Context, key string, principal domain.Principal, ttl time.Duration)
}

// CachedValidator memoises successful validations. Failures are never cached.
type CachedValidator struct {
	next  domain.IdentityValidator
	cache PrincipalCache
	ttl   time.Duration
}

// NewCachedValidator wraps next. A zero ttl returns next unchanged.
func NewCachedValidator(next domain.IdentityValidator, cache PrincipalCache, ttl time.Duration) domain.IdentityValidator {
	if ttl <= 0 || cache == nil {
		return next
	}
	return &CachedValidator{next: next, cache: cache, ttl: ttl}
}

func (v *CachedValidator) Validate(ctx context.Context, credential string) (domain.Principal, error) {
	key := CredentialKey(credential)
	if principal, ok := v.cache.Get(ctx, key); ok {
		metrics.RecordPrincipalCache(true)
		return principal, nil
	}
	metrics.RecordPrincipalCache(false)

	principal, err := v.next.Validate(ctx, credential)
	if err != nil {
		return domain.Principal{}, err
	}
	v.cache.Set(ctx, key, principal, v.ttl)
	return principal, nil
}

// CredentialKey derives the cache key so raw tokens never reach the cache.
func CredentialKey(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

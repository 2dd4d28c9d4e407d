package messaging

import "context"

// IdentityValidator resolves a bearer credential into a Principal.
//
// Implementations return UNAUTHORIZED for rejected credentials and UNAVAILABLE when
// the identity service cannot be reached.
type IdentityValidator interface {
	Validate(ctx context.Context, credential string) (Principal, error)
}

// ListingResolver fetches listing reference data from the listings service.
//
// Implementations return NOT_FOUND for unknown listings, BAD_REQUEST for other
// upstream failures and UNAVAILABLE when the service cannot be reached.
type ListingResolver interface {
	Resolve(ctx context.Context, listingID uint) (ListingRef, error)
}

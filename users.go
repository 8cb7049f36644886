package oauth

import (
	"context"
	"errors"

	"github.com/yeotaeho/oauth-core/providers"
)

// ErrUserNotFound is returned by UserStore lookups for unknown identities.
var ErrUserNotFound = errors.New("oauth: user not found")

// ErrDuplicateIdentity is returned by UserStore.Upsert when another request
// created the same provider identity concurrently. The service recovers by
// re-reading the winner's record; implementations map their unique-constraint
// violation to this sentinel.
var ErrDuplicateIdentity = errors.New("oauth: provider identity already exists")

// UserStore is the collaborator that owns user records. The auth flow only
// needs to resolve a provider identity to a local user ID and to create the
// record on first signup; everything else about users is out of scope here.
type UserStore interface {
	// FindByProviderIdentity resolves a provider account to the local user
	// ID. Returns ErrUserNotFound for identities that have never signed up.
	FindByProviderIdentity(ctx context.Context, provider, providerID string) (int64, error)

	// Upsert creates a user record for the identity and returns its ID.
	// Concurrent first-time signups of the same identity must surface
	// ErrDuplicateIdentity so the caller can re-read instead of failing.
	Upsert(ctx context.Context, identity *providers.Identity) (int64, error)
}

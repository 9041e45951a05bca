package identity

import "context"

// Store is the identity persistence boundary.
//
// Contract:
// - Transport/storage failures surface as StoreError (ErrStoreUnavailable).
// - Insert's unique-constraint rejection is the authoritative race-safety
//   guarantee for duplicate identities; any pre-check a caller performs is
//   a best-effort optimization for friendlier error messages, never the
//   source of truth.
type Store interface {
	// FindByEmailOrUID returns every identity matching the given email OR
	// uid, at most two rows, in storage insertion order. Used only for the
	// advisory duplicate pre-check.
	FindByEmailOrUID(ctx context.Context, email, uid string) ([]User, error)

	// FindByEmail returns the identity with the given email, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (User, error)

	// FindByUID returns the identity with the given handle, or ErrNotFound.
	FindByUID(ctx context.Context, uid string) (User, error)

	// Insert persists a new identity, assigning its identifier. It returns
	// ConflictError{Field} when a uniqueness constraint (email or uid) is
	// violated at the moment of insertion.
	Insert(ctx context.Context, draft Draft) (User, error)

	// UpdatePasswordHash replaces the stored secret hash. It returns
	// ErrNotFound when the identity no longer exists.
	UpdatePasswordHash(ctx context.Context, id, newHash string) (User, error)
}

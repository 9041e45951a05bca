// Package identity implements Vouch's credential-management core.
//
// It contains the persisted account model, the store gateway over
// PostgreSQL, and the registration, authentication and password-rotation
// workflows. Race-safety for duplicate identities is delegated entirely to
// the storage layer's unique constraints; the workflows never rely on
// in-process locking.
package identity

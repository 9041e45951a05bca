package token

import "errors"

// Public, stable errors for callers.
var (
	// ErrInvalidToken covers malformed, tampered and expired tokens alike.
	// Callers map it to an unauthenticated response without distinguishing.
	ErrInvalidToken = errors.New("invalid token")

	ErrSigningKeyMissing  = errors.New("token signing key missing")
	ErrSigningKeyTooShort = errors.New("token signing key too short")
)

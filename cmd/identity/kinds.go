package identity

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	// Business-rule outcomes: expected, surfaced verbatim to the requester.
	ErrEmailTaken         = errors.New("email_taken")
	ErrHandleTaken        = errors.New("handle_taken")
	ErrConflict           = errors.New("conflict")
	ErrEmailNotRegistered = errors.New("email_not_registered")
	ErrIncorrectPassword  = errors.New("incorrect_password")
	ErrNotFound           = errors.New("not_found")
	ErrWeakPassword       = errors.New("weak_password")

	// Infrastructure failures: masked as opaque errors at the boundary.
	ErrStoreUnavailable = errors.New("store_unavailable")
	ErrHashingFailure   = errors.New("hashing_failure")

	ErrInvalidInput = errors.New("invalid_input")
)

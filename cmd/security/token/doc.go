// Package token issues and verifies Vouch session tokens.
//
// Tokens are signed JWTs (HMAC-SHA256) binding a user identity to an
// issuance time and a fixed expiry. They carry no mutable state and are
// never persisted; expiry is the only invalidation mechanism.
//
// Environment:
// - VOUCH_TOKEN_SIGNING_KEY: process-wide signing secret (>= 32 bytes),
//   loaded once at startup and immutable thereafter.
package token

package token

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SigningKeyEnv is the env var name for the token signing secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	SigningKeyEnv = "VOUCH_TOKEN_SIGNING_KEY"

	// minKeyBytes is the minimum signing key size for HMAC-SHA256.
	minKeyBytes = 32

	defaultTTL    = 24 * time.Hour
	defaultIssuer = "vouch"
)

// Claims is the identity envelope carried by a verified session token.
type Claims struct {
	UserID    string
	UID       string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
}

// Config configures a Manager.
type Config struct {
	Issuer     string
	TTL        time.Duration
	SigningKey []byte
}

// ConfigFromEnv builds a Config from environment variables.
//
// Env surface:
// - VOUCH_TOKEN_SIGNING_KEY (required, >= 32 bytes)
// - VOUCH_TOKEN_TTL
// - VOUCH_TOKEN_ISSUER
func ConfigFromEnv() (Config, error) {
	key, err := SigningKeyFromEnv(minKeyBytes)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Issuer:     defaultIssuer,
		TTL:        defaultTTL,
		SigningKey: key,
	}

	if v := strings.TrimSpace(os.Getenv("VOUCH_TOKEN_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("VOUCH_TOKEN_TTL: invalid duration %q", v)
		}
		cfg.TTL = d
	}
	if v := strings.TrimSpace(os.Getenv("VOUCH_TOKEN_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	return cfg, nil
}

// SigningKeyFromEnv returns the configured signing key bytes (trimmed),
// enforcing a minimum byte length. Bytes, not runes: the key is raw key material.
func SigningKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(SigningKeyEnv))
	if raw == "" {
		return nil, ErrSigningKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrSigningKeyTooShort
	}
	return b, nil
}

// sessionClaims is the wire shape of the JWT payload.
type sessionClaims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// Manager issues and verifies session tokens. The signing key is set once
// at construction and never mutated, so concurrent use needs no locking.
type Manager struct {
	issuer string
	ttl    time.Duration
	key    []byte
}

// NewManager validates cfg and returns an immutable Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, ErrSigningKeyMissing
	}
	if len(cfg.SigningKey) < minKeyBytes {
		return nil, ErrSigningKeyTooShort
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}

	return &Manager{
		issuer: issuer,
		ttl:    ttl,
		key:    cfg.SigningKey,
	}, nil
}

// TTL returns the configured validity window length.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue mints a signed token binding userID and uid, valid for [now, now+TTL).
func (m *Manager) Issue(userID, uid string, now time.Time) (string, time.Time, error) {
	exp := now.Add(m.ttl)

	claims := sessionClaims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature integrity and expiry at the given time.
// It returns ErrInvalidToken for malformed, tampered or expired tokens.
func (m *Manager) Verify(tokenStr string, now time.Time) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	parsed, err := parser.ParseWithClaims(tokenStr, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		return m.key, nil
	})
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.UID == "" {
		return Claims{}, ErrInvalidToken
	}

	out := Claims{
		UserID: claims.Subject,
		UID:    claims.UID,
		Issuer: claims.Issuer,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

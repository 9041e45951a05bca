package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vouch/cmd/security/password"
	"vouch/cmd/security/token"
)

// Service orchestrates the registration, authentication and password
// rotation workflows. It holds no mutable state of its own: every request
// re-fetches from the store, and all race-safety lives in the store's
// unique constraints.
type Service struct {
	log    *slog.Logger
	store  Store
	hasher password.Config
	tokens *token.Manager

	// dummyHash is verified against when a login email is unknown, so the
	// not-registered path costs roughly the same as a bad-password path.
	dummyHash string
}

// NewService wires a Service from its collaborators.
func NewService(log *slog.Logger, store Store, hasher password.Config, tokens *token.Manager) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("identity: nil store")
	}
	if tokens == nil {
		return nil, errors.New("identity: nil token manager")
	}

	s := &Service{
		log:    log,
		store:  store,
		hasher: hasher,
		tokens: tokens,
	}
	if h, err := hasher.Hash("dummy-password-for-timing-only"); err == nil {
		s.dummyHash = h
	}
	return s, nil
}

// Session is the result of a successful register or login: a signed bearer
// token plus the identity's public fields. The secret hash is excluded by
// the PublicUser type itself.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      PublicUser
}

// Register creates a new identity and issues a session token for it.
//
// The duplicate pre-check narrows the error message; the store's unique
// constraint at insert time is the only authoritative guard. Two concurrent
// registrations can both pass the pre-check, and the loser of the insert
// race is re-classified here.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	const op = "identity.Register"

	// Advisory duplicate pre-check. An email match wins over a uid match so
	// the error message is stable regardless of row order.
	existing, err := s.store.FindByEmailOrUID(ctx, in.Email, in.UID)
	if err != nil {
		return Session{}, err
	}
	for _, u := range existing {
		if u.Email == in.Email {
			return Session{}, OpError{Op: op, Kind: ErrEmailTaken, Msg: "email already registered"}
		}
	}
	for _, u := range existing {
		if u.UID == in.UID {
			return Session{}, OpError{Op: op, Kind: ErrHandleTaken, Msg: "handle already in use"}
		}
	}

	hash, err := s.hashSecret(op, in.Password)
	if err != nil {
		return Session{}, err
	}

	user, err := s.store.Insert(ctx, Draft{
		Name:         in.Name,
		Email:        in.Email,
		UID:          in.UID,
		PasswordHash: hash,
	})
	if err != nil {
		var ce ConflictError
		if errors.As(err, &ce) {
			// A concurrent registration won the race between pre-check and
			// insert. Attribute the collision to a field if we can do so
			// cheaply; otherwise report a generic conflict.
			return Session{}, s.classifyInsertConflict(ctx, op, ce, in)
		}
		return Session{}, err
	}

	sess, err := s.issue(op, user)
	if err != nil {
		return Session{}, err
	}

	s.log.Info("identity.register.ok", "user_id", user.ID, "uid", user.UID)
	return sess, nil
}

// Login authenticates by email and password and issues a session token.
func (s *Service) Login(ctx context.Context, email, plaintext string) (Session, error) {
	const op = "identity.Login"

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			// Keep the unknown-email path as slow as a real verification.
			if s.dummyHash != "" {
				_, _ = s.hasher.Verify(s.dummyHash, plaintext)
			}
			return Session{}, OpError{Op: op, Kind: ErrEmailNotRegistered, Msg: "email not registered"}
		}
		return Session{}, err
	}

	ok, err := s.hasher.Verify(user.PasswordHash, plaintext)
	if err != nil {
		return Session{}, OpError{Op: op, Kind: ErrHashingFailure, Msg: "stored hash unreadable"}
	}
	if !ok {
		return Session{}, OpError{Op: op, Kind: ErrIncorrectPassword, Msg: "incorrect password"}
	}

	sess, err := s.issue(op, user)
	if err != nil {
		return Session{}, err
	}

	s.log.Info("identity.login.ok", "user_id", user.ID, "uid", user.UID)
	return sess, nil
}

// ChangePassword verifies the caller's current secret before committing a
// new one. The caller reference comes from an already-verified token; this
// workflow trusts it as given and issues no new token on success.
func (s *Service) ChangePassword(ctx context.Context, ref Reference, oldPass, newPass string) error {
	const op = "identity.ChangePassword"

	if err := s.hasher.Validate(oldPass); err != nil {
		return OpError{Op: op, Kind: ErrWeakPassword, Msg: "old password outside length policy"}
	}
	if err := s.hasher.Validate(newPass); err != nil {
		return OpError{Op: op, Kind: ErrWeakPassword, Msg: "new password outside length policy"}
	}

	user, err := s.store.FindByUID(ctx, ref.UID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(user.PasswordHash, oldPass)
	if err != nil {
		return OpError{Op: op, Kind: ErrHashingFailure, Msg: "stored hash unreadable"}
	}
	if !ok {
		return OpError{Op: op, Kind: ErrIncorrectPassword, Msg: "password doesn't match"}
	}

	hash, err := s.hashSecret(op, newPass)
	if err != nil {
		return err
	}

	// The identity may have vanished between lookup and update; the store
	// reports that as ErrNotFound and this request fails without retry.
	if _, err := s.store.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}

	s.log.Info("identity.password_change.ok", "user_id", user.ID)
	return nil
}

// TokenTTL exposes the session validity window for boundary use.
func (s *Service) TokenTTL() time.Duration { return s.tokens.TTL() }

// VerifyToken decodes a bearer token into a caller reference.
func (s *Service) VerifyToken(tokenStr string, now time.Time) (Reference, error) {
	claims, err := s.tokens.Verify(tokenStr, now)
	if err != nil {
		return Reference{}, err
	}
	return Reference{ID: claims.UserID, UID: claims.UID}, nil
}

// ---- helpers ----

func (s *Service) hashSecret(op, plaintext string) (string, error) {
	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrPasswordTooShort), errors.Is(err, password.ErrPasswordTooLong):
			return "", OpError{Op: op, Kind: ErrWeakPassword, Msg: "password outside length policy"}
		default:
			return "", OpError{Op: op, Kind: ErrHashingFailure, Msg: "bcrypt failure"}
		}
	}
	return hash, nil
}

func (s *Service) issue(op string, user User) (Session, error) {
	tok, exp, err := s.tokens.Issue(user.ID, user.UID, time.Now().UTC())
	if err != nil {
		return Session{}, fmt.Errorf("%s: issue token: %w", op, err)
	}
	return Session{Token: tok, ExpiresAt: exp, User: user.Public()}, nil
}

// classifyInsertConflict turns a storage-layer duplicate rejection into the
// most specific business error it can determine cheaply.
func (s *Service) classifyInsertConflict(ctx context.Context, op string, ce ConflictError, in RegisterInput) error {
	switch ce.Field {
	case "email":
		return OpError{Op: op, Kind: ErrEmailTaken, Msg: "email already registered"}
	case "uid":
		return OpError{Op: op, Kind: ErrHandleTaken, Msg: "handle already in use"}
	}

	// Constraint name was not attributable: one targeted lookup per field,
	// then give up and report a generic conflict.
	if _, err := s.store.FindByEmail(ctx, in.Email); err == nil {
		return OpError{Op: op, Kind: ErrEmailTaken, Msg: "email already registered"}
	}
	if _, err := s.store.FindByUID(ctx, in.UID); err == nil {
		return OpError{Op: op, Kind: ErrHandleTaken, Msg: "handle already in use"}
	}
	return OpError{Op: op, Kind: ErrConflict, Msg: "concurrent registration"}
}

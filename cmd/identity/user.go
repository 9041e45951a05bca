package identity

import "time"

// User is Vouch's persisted account record.
// IMPORTANT: PasswordHash is the only field ever mutated after creation,
// and it never leaves this package in any response payload.
type User struct {
	ID           string
	Name         string
	Email        string
	UID          string
	PasswordHash string

	CreatedAt time.Time
}

// PublicUser is the externally visible projection of a User.
// It deliberately has no hash field, so a leak cannot happen by construction.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	UID       string    `json:"uid"`
	CreatedAt time.Time `json:"created_at"`
}

// Public returns the response-safe projection of u.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		UID:       u.UID,
		CreatedAt: u.CreatedAt,
	}
}

// Draft is the store-level shape of a new identity: the workflow hashes
// the secret before the store ever sees it, so Draft carries only the hash.
type Draft struct {
	Name         string
	Email        string
	UID          string
	PasswordHash string
}

// RegisterInput describes a registration request after boundary-side syntax
// validation. Password is plaintext here and must never be persisted or logged.
type RegisterInput struct {
	Name     string
	Email    string
	UID      string
	Password string
}

// Reference identifies an already-authenticated caller, produced by the
// boundary layer from a verified session token. The workflows trust it as given.
type Reference struct {
	ID  string
	UID string
}

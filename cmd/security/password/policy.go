package password

import "unicode/utf8"

// maxSecretBytes is bcrypt's hard input limit: it reads at most 72 bytes
// of the password.
const maxSecretBytes = 72

// Validate checks password policy. It does not mutate input.
func (c Config) Validate(password string) error {
	// Count characters (runes), not bytes, to be user-friendly.
	n := utf8.RuneCountInString(password)

	if n < c.Policy.MinLength {
		return ErrPasswordTooShort
	}
	if n > c.Policy.MaxLength {
		return ErrPasswordTooLong
	}
	// A multibyte password can satisfy the rune bounds while exceeding
	// what bcrypt will actually read; reject it as a policy violation,
	// not a hashing failure.
	if len(password) > maxSecretBytes {
		return ErrPasswordTooLong
	}
	return nil
}

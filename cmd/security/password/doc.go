// Package password provides password hashing and verification for Vouch.
//
// It implements salted bcrypt hashing and includes:
// - Configurable work factor (via environment variables)
// - The shared password length policy used by register, login and rotation
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify and are validated accordingly.
// - A mismatching password is a normal false result, never an error.
package password

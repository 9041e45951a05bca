package api

import (
	"regexp"
	"strings"

	"vouch/cmd/security/password"
)

// Boundary-side syntax checks. These gate obviously malformed input with a
// per-field message; the workflows re-check anything that matters for
// correctness.
var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	uidRe   = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && len(email) <= 254 && emailRe.MatchString(email)
}

// validUID accepts handles of alphanumeric characters and underscores.
func validUID(uid string) bool {
	return uid != "" && len(uid) <= 64 && uidRe.MatchString(uid)
}

func validName(name string) bool {
	return strings.TrimSpace(name) != ""
}

func validPassword(cfg password.Config, pw string) bool {
	return cfg.Validate(pw) == nil
}

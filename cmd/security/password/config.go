package password

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Policy controls password length validation. The same bounds apply to
// register, login and password rotation.
type Policy struct {
	MinLength int
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	// Cost is the bcrypt work factor.
	Cost   int
	Policy Policy
}

const (
	defaultCost      = 10
	defaultMinLength = 5
	defaultMaxLength = 40
)

// DefaultConfig returns the baseline hashing configuration.
// Cost 10 keeps interactive logins responsive while remaining expensive to brute-force.
func DefaultConfig() Config {
	return Config{
		Cost: defaultCost,
		Policy: Policy{
			MinLength: defaultMinLength,
			MaxLength: defaultMaxLength,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - VOUCH_PASSWORD_COST
// - VOUCH_PASSWORD_MIN_LEN
// - VOUCH_PASSWORD_MAX_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("VOUCH_PASSWORD_COST"); ok {
		n, err := atoiBounded(v, bcrypt.MinCost, bcrypt.MaxCost)
		if err != nil {
			return Config{}, fmt.Errorf("VOUCH_PASSWORD_COST: %w", err)
		}
		cfg.Cost = n
	}

	if v, ok := os.LookupEnv("VOUCH_PASSWORD_MIN_LEN"); ok {
		n, err := atoiBounded(v, 1, 1024)
		if err != nil {
			return Config{}, fmt.Errorf("VOUCH_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.Policy.MinLength = n
	}

	if v, ok := os.LookupEnv("VOUCH_PASSWORD_MAX_LEN"); ok {
		n, err := atoiBounded(v, 1, 1024)
		if err != nil {
			return Config{}, fmt.Errorf("VOUCH_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = n
	}

	// Final sanity.
	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func atoiBounded(s string, minVal, maxVal int) (int, error) {
	s = strings.TrimSpace(s)
	i64, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}

	i := int(i64)
	if i < minVal || i > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return i, nil
}

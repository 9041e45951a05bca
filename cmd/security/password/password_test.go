package password

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndVerify_OK(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cost = 4 // keep the test fast

	h, err := cfg.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if h == "correct horse battery" {
		t.Fatalf("hash must not equal plaintext")
	}

	ok, err := cfg.Verify(h, "correct horse battery")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cost = 4

	h, err := cfg.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := cfg.Verify(h, "wrong password")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestHash_Salted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cost = 4

	h1, err := cfg.Hash("abcde")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	h2, err := cfg.Hash("abcde")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected distinct hashes for the same password")
	}
}

func TestValidate_MinMax(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate("abcd"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	if err := cfg.Validate(strings.Repeat("x", 41)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}

	if err := cfg.Validate("abcde"); err != nil {
		t.Fatalf("expected ok at min length, got %v", err)
	}
	if err := cfg.Validate(strings.Repeat("x", 40)); err != nil {
		t.Fatalf("expected ok at max length, got %v", err)
	}
}

func TestValidate_MultibyteByteCap(t *testing.T) {
	cfg := DefaultConfig()

	// 30 CJK runes sit inside the 5..40 rune bounds but span 90 bytes,
	// past what bcrypt reads. Both Validate and Hash must reject this as
	// a policy violation, never as a hashing failure.
	long := strings.Repeat("世", 30)

	if err := cfg.Validate(long); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}

	if _, err := cfg.Hash(long); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("Hash: expected ErrPasswordTooLong, got %v", err)
	}
	if _, err := cfg.Hash(long); errors.Is(err, ErrHashingFailure) {
		t.Fatalf("Hash: over-long input must not report ErrHashingFailure")
	}

	// 24 CJK runes = 72 bytes: exactly at the cap, still valid.
	if err := cfg.Validate(strings.Repeat("世", 24)); err != nil {
		t.Fatalf("expected ok at 72 bytes, got %v", err)
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	cfg := DefaultConfig()

	ok, err := cfg.Verify("not-a-hash", "whatever")
	if !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
	if ok {
		t.Fatalf("expected false")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("VOUCH_PASSWORD_COST", "4")
	t.Setenv("VOUCH_PASSWORD_MIN_LEN", "8")
	t.Setenv("VOUCH_PASSWORD_MAX_LEN", "64")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.Cost != 4 {
		t.Fatalf("expected cost 4, got %d", cfg.Cost)
	}
	if cfg.Policy.MinLength != 8 || cfg.Policy.MaxLength != 64 {
		t.Fatalf("unexpected policy: %+v", cfg.Policy)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("VOUCH_PASSWORD_MIN_LEN", "50")
	t.Setenv("VOUCH_PASSWORD_MAX_LEN", "10")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error when min > max")
	}
}

package api

import "testing"

func TestValidEmail(t *testing.T) {
	valid := []string{
		"a@b.co",
		"first.last@example.com",
		"user+tag@sub.example.org",
	}
	invalid := []string{
		"",
		"plain",
		"@example.com",
		"user@",
		"user@host",
		"two words@example.com",
	}

	for _, e := range valid {
		if !validEmail(e) {
			t.Errorf("validEmail(%q) = false, want true", e)
		}
	}
	for _, e := range invalid {
		if validEmail(e) {
			t.Errorf("validEmail(%q) = true, want false", e)
		}
	}
}

func TestValidUID(t *testing.T) {
	valid := []string{"a", "abc_123", "ABC", "_leading"}
	invalid := []string{"", "has space", "dash-ed", "dot.ted", "émile"}

	for _, u := range valid {
		if !validUID(u) {
			t.Errorf("validUID(%q) = false, want true", u)
		}
	}
	for _, u := range invalid {
		if validUID(u) {
			t.Errorf("validUID(%q) = true, want false", u)
		}
	}
}

// Package main provides a CI-friendly smoke test for the Vouch auth API.
//
// It validates, against a running server:
//   - register -> 200 + x-auth-token header
//   - duplicate register -> field-keyed 400
//   - login with the fresh credentials -> 200 + token
//   - password-change with the bearer token -> 200
//   - login with the old password fails, with the new one succeeds
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"
)

const tokenHeader = "x-auth-token"

type client struct {
	base string
	http *http.Client
}

func (c *client) post(path string, body any, token string) (*http.Response, map[string]any, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.base+path, bytes.NewReader(raw))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, err
	}

	var decoded map[string]any
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			return resp, nil, fmt.Errorf("non-JSON response (%d): %s", resp.StatusCode, string(data))
		}
	}
	return resp, decoded, nil
}

func main() {
	base := flag.String("base", "http://127.0.0.1:8080", "server base URL")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	c := &client{
		base: strings.TrimRight(*base, "/"),
		http: &http.Client{Timeout: *timeout},
	}

	if err := run(c); err != nil {
		fmt.Fprintln(os.Stderr, "smoke: FAIL:", err)
		os.Exit(1)
	}
	fmt.Println("smoke: OK")
}

func run(c *client) error {
	suffix := fmt.Sprintf("%06d", rand.New(rand.NewSource(time.Now().UnixNano())).Intn(1000000))
	email := "smoke_" + suffix + "@example.com"
	uid := "smoke_" + suffix
	oldPass := "smoke-pass-1"
	newPass := "smoke-pass-2"

	// Register.
	resp, _, err := c.post("/api/users/register", map[string]string{
		"name":     "Smoke Test",
		"email":    email,
		"uid":      uid,
		"password": oldPass,
	}, "")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("register: status %d", resp.StatusCode)
	}
	token := resp.Header.Get(tokenHeader)
	if token == "" {
		return fmt.Errorf("register: missing %s header", tokenHeader)
	}

	// Duplicate register must be rejected with a field-keyed 400.
	resp, body, err := c.post("/api/users/register", map[string]string{
		"name":     "Smoke Test",
		"email":    email,
		"uid":      "other_" + suffix,
		"password": oldPass,
	}, "")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("duplicate register: status %d", resp.StatusCode)
	}
	if _, ok := body["email"]; !ok {
		return fmt.Errorf("duplicate register: expected email field error, got %v", body)
	}

	// Login.
	resp, body, err = c.post("/api/users/login", map[string]string{
		"email":    email,
		"password": oldPass,
	}, "")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login: status %d", resp.StatusCode)
	}
	if resp.Header.Get(tokenHeader) == "" {
		return fmt.Errorf("login: missing %s header", tokenHeader)
	}
	if body["uid"] != uid {
		return fmt.Errorf("login: uid %v, want %s", body["uid"], uid)
	}
	if _, leaked := body["password_hash"]; leaked {
		return fmt.Errorf("login: response leaks password_hash")
	}

	// Rotate the password.
	resp, _, err = c.post("/api/users/password-change", map[string]string{
		"oldPass": oldPass,
		"newPass": newPass,
	}, token)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("password-change: status %d", resp.StatusCode)
	}

	// Old password must stop working; new one must work.
	resp, _, err = c.post("/api/users/login", map[string]string{
		"email":    email,
		"password": oldPass,
	}, "")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("login with rotated-out password: status %d, want 400", resp.StatusCode)
	}

	resp, _, err = c.post("/api/users/login", map[string]string{
		"email":    email,
		"password": newPass,
	}, "")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login with new password: status %d", resp.StatusCode)
	}

	return nil
}

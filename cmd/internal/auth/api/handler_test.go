package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vouch/cmd/identity"
	"vouch/cmd/security/password"
	"vouch/cmd/security/token"
)

// memStore is an in-memory identity.Store with the same uniqueness behavior
// as the Postgres store.
type memStore struct {
	mu    sync.Mutex
	seq   int
	users []identity.User
}

func (m *memStore) FindByEmailOrUID(_ context.Context, email, uid string) ([]identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []identity.User
	for _, u := range m.users {
		if u.Email == email || u.UID == uid {
			out = append(out, u)
			if len(out) == 2 {
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) FindByEmail(_ context.Context, email string) (identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return identity.User{}, identity.NotFoundError{Op: "memStore.FindByEmail", Resource: "user"}
}

func (m *memStore) FindByUID(_ context.Context, uid string) (identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.UID == uid {
			return u, nil
		}
	}
	return identity.User{}, identity.NotFoundError{Op: "memStore.FindByUID", Resource: "user"}
}

func (m *memStore) Insert(_ context.Context, d identity.Draft) (identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == d.Email {
			return identity.User{}, identity.ConflictError{Op: "memStore.Insert", Field: "email"}
		}
		if u.UID == d.UID {
			return identity.User{}, identity.ConflictError{Op: "memStore.Insert", Field: "uid"}
		}
	}
	m.seq++
	u := identity.User{
		ID:           fmt.Sprintf("%026d", m.seq),
		Name:         d.Name,
		Email:        d.Email,
		UID:          d.UID,
		PasswordHash: d.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.users = append(m.users, u)
	return u, nil
}

func (m *memStore) UpdatePasswordHash(_ context.Context, id, hash string) (identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, u := range m.users {
		if u.ID == id {
			m.users[i].PasswordHash = hash
			return m.users[i], nil
		}
	}
	return identity.User{}, identity.NotFoundError{Op: "memStore.UpdatePasswordHash", Resource: "user"}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerWithPolicy(t, password.Policy{MinLength: 5, MaxLength: 40})
}

func newTestServerWithPolicy(t *testing.T, pol password.Policy) *httptest.Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	hasher := password.Config{Cost: 4, Policy: pol}

	tokens, err := token.NewManager(token.Config{
		Issuer:     "vouch-test",
		TTL:        time.Hour,
		SigningKey: []byte("0123456789abcdef0123456789abcdef"),
	})
	require.NoError(t, err)

	svc, err := identity.NewService(log, &memStore{}, hasher, tokens)
	require.NoError(t, err)

	h, err := NewHandler(log, LoadConfigFromEnv(), hasher, svc, NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

func postJSON(t *testing.T, srv *httptest.Server, path, body string, hdr map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

const aliceJSON = `{"name":"Alice","email":"alice@example.com","uid":"alice_1","password":"sekret1"}`

func TestRegisterEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/api/users/register", aliceJSON, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(TokenHeader), "token header must be set")

	body := decodeBody(t, resp)
	assert.Equal(t, "Alice", body["name"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, "alice_1", body["uid"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "password_hash")
}

func TestRegisterEndpoint_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{
			name:      "bad email",
			body:      `{"name":"A","email":"not-an-email","uid":"a_1","password":"sekret1"}`,
			wantField: "email",
		},
		{
			name:      "short password",
			body:      `{"name":"A","email":"a@x.com","uid":"a_1","password":"abc"}`,
			wantField: "password",
		},
		{
			name:      "long password",
			body:      `{"name":"A","email":"a@x.com","uid":"a_1","password":"` + strings.Repeat("x", 41) + `"}`,
			wantField: "password",
		},
		{
			name:      "bad handle",
			body:      `{"name":"A","email":"a@x.com","uid":"no spaces!","password":"sekret1"}`,
			wantField: "uid",
		},
		{
			name:      "missing name",
			body:      `{"name":"  ","email":"a@x.com","uid":"a_1","password":"sekret1"}`,
			wantField: "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			resp := postJSON(t, srv, "/api/users/register", tt.body, nil)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decodeBody(t, resp)
			assert.Contains(t, body, tt.wantField)
		})
	}
}

func TestRegisterEndpoint_PasswordMessageTracksPolicy(t *testing.T) {
	srv := newTestServerWithPolicy(t, password.Policy{MinLength: 8, MaxLength: 20})

	resp := postJSON(t, srv, "/api/users/register",
		`{"name":"A","email":"a@x.com","uid":"a_1","password":"short"}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t,
		"password of minimum 8 characters is required and can contains upto 20 characters only",
		decodeBody(t, resp)["password"])
}

func TestRegisterEndpoint_Duplicates(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/api/users/register", aliceJSON, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv, "/api/users/register",
		`{"name":"B","email":"alice@example.com","uid":"other_1","password":"sekret1"}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "email already registered. Please login!", body["email"])

	resp = postJSON(t, srv, "/api/users/register",
		`{"name":"B","email":"other@example.com","uid":"alice_1","password":"sekret1"}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, "choose a different handle. This is already in use", body["uid"])
}

func TestLoginEndpoint(t *testing.T) {
	srv := newTestServer(t)
	postJSON(t, srv, "/api/users/register", aliceJSON, nil)

	resp := postJSON(t, srv, "/api/users/login",
		`{"email":"alice@example.com","password":"sekret1"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(TokenHeader))

	body := decodeBody(t, resp)
	assert.Equal(t, "alice_1", body["uid"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "password_hash")
}

func TestLoginEndpoint_Failures(t *testing.T) {
	srv := newTestServer(t)
	postJSON(t, srv, "/api/users/register", aliceJSON, nil)

	resp := postJSON(t, srv, "/api/users/login",
		`{"email":"nobody@example.com","password":"sekret1"}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Email not registered!", decodeBody(t, resp)["email"])

	resp = postJSON(t, srv, "/api/users/login",
		`{"email":"alice@example.com","password":"wrong-pass"}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Incorrect password", decodeBody(t, resp)["password"])
}

func TestPasswordChangeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/api/users/register", aliceJSON, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tok := resp.Header.Get(TokenHeader)
	require.NotEmpty(t, tok)

	resp = postJSON(t, srv, "/api/users/password-change",
		`{"oldPass":"sekret1","newPass":"sekret2"}`,
		map[string]string{"Authorization": "Bearer " + tok})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Password updated successfully!", decodeBody(t, resp)["result"])

	// Old password no longer works, new one does.
	resp = postJSON(t, srv, "/api/users/login",
		`{"email":"alice@example.com","password":"sekret1"}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv, "/api/users/login",
		`{"email":"alice@example.com","password":"sekret2"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPasswordChangeEndpoint_TokenHeaderFallback(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/api/users/register", aliceJSON, nil)
	tok := resp.Header.Get(TokenHeader)
	require.NotEmpty(t, tok)

	resp = postJSON(t, srv, "/api/users/password-change",
		`{"oldPass":"sekret1","newPass":"sekret2"}`,
		map[string]string{TokenHeader: tok})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPasswordChangeEndpoint_Auth(t *testing.T) {
	srv := newTestServer(t)
	postJSON(t, srv, "/api/users/register", aliceJSON, nil)

	resp := postJSON(t, srv, "/api/users/password-change",
		`{"oldPass":"sekret1","newPass":"sekret2"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, srv, "/api/users/password-change",
		`{"oldPass":"sekret1","newPass":"sekret2"}`,
		map[string]string{"Authorization": "Bearer not.a.token"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPasswordChangeEndpoint_Validation(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/api/users/register", aliceJSON, nil)
	tok := resp.Header.Get(TokenHeader)
	require.NotEmpty(t, tok)
	auth := map[string]string{"Authorization": "Bearer " + tok}

	resp = postJSON(t, srv, "/api/users/password-change",
		`{"oldPass":"","newPass":"sekret2"}`, auth)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeBody(t, resp), "password-fields")

	resp = postJSON(t, srv, "/api/users/password-change",
		`{"oldPass":"sekret1","newPass":"abc"}`, auth)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Password must be atleast 5 characters long", decodeBody(t, resp)["password"])

	resp = postJSON(t, srv, "/api/users/password-change",
		`{"oldPass":"wrong-old","newPass":"sekret2"}`, auth)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "password doesn't match", decodeBody(t, resp)["password"])
}

func TestPasswordChangeEndpoint_MessageTracksPolicy(t *testing.T) {
	srv := newTestServerWithPolicy(t, password.Policy{MinLength: 8, MaxLength: 20})

	resp := postJSON(t, srv, "/api/users/register",
		`{"name":"Alice","email":"alice@example.com","uid":"alice_1","password":"longsekret1"}`, nil)
	tok := resp.Header.Get(TokenHeader)
	require.NotEmpty(t, tok)

	resp = postJSON(t, srv, "/api/users/password-change",
		`{"oldPass":"longsekret1","newPass":"short"}`,
		map[string]string{"Authorization": "Bearer " + tok})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Password must be atleast 8 characters long",
		decodeBody(t, resp)["password"])
}

func TestEndpoints_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{
		"/api/users/register",
		"/api/users/login",
		"/api/users/password-change",
	} {
		resp, err := srv.Client().Get(srv.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, path)
	}
}

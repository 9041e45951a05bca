package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vouch/cmd/identity"
	"vouch/cmd/security/password"
)

// TokenHeader carries the session token on successful register and login
// responses.
const TokenHeader = "x-auth-token"

// The password messages quote the configured length bounds so an operator
// override of VOUCH_PASSWORD_MIN_LEN / VOUCH_PASSWORD_MAX_LEN shows up in
// the responses too.
func (h *Handler) passwordBoundsMsg() string {
	return fmt.Sprintf(
		"password of minimum %d characters is required and can contains upto %d characters only",
		h.policy.Policy.MinLength, h.policy.Policy.MaxLength)
}

func (h *Handler) passwordMinMsg() string {
	return fmt.Sprintf("Password must be atleast %d characters long",
		h.policy.Policy.MinLength)
}

// Handler wires the credential workflows to their HTTP routes.
type Handler struct {
	log     *slog.Logger
	cfg     Config
	policy  password.Config
	svc     *identity.Service
	metrics *Metrics
}

// NewHandler constructs the auth boundary handler. metrics may be nil, in
// which case outcomes are not counted.
func NewHandler(log *slog.Logger, cfg Config, policy password.Config, svc *identity.Service, metrics *Metrics) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("api: nil identity service")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Handler{
		log:     log,
		cfg:     cfg,
		policy:  policy,
		svc:     svc,
		metrics: metrics,
	}, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/users/register", h.handleRegister)
	mux.HandleFunc("/api/users/login", h.handleLogin)
	mux.HandleFunc("/api/users/password-change", h.handlePasswordChange)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.metrics.observe("register", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	if !validEmail(req.Email) {
		h.metrics.observe("register", "invalid_request")
		writeFieldError(w, "email", "provide a valid email")
		return
	}
	if !validPassword(h.policy, req.Password) {
		h.metrics.observe("register", "invalid_request")
		writeFieldError(w, "password", h.passwordBoundsMsg())
		return
	}
	if !validUID(req.UID) {
		h.metrics.observe("register", "invalid_request")
		writeFieldError(w, "uid",
			"this is required and can contains only alphanumeric characters and may contains underscore'_'")
		return
	}
	if !validName(req.Name) {
		h.metrics.observe("register", "invalid_request")
		writeFieldError(w, "name", "name is required")
		return
	}

	sess, err := h.svc.Register(r.Context(), identity.RegisterInput{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		UID:      req.UID,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailTaken):
			h.metrics.observe("register", "email_taken")
			writeFieldError(w, "email", "email already registered. Please login!")
		case errors.Is(err, identity.ErrHandleTaken):
			h.metrics.observe("register", "handle_taken")
			writeFieldError(w, "uid", "choose a different handle. This is already in use")
		case errors.Is(err, identity.ErrConflict):
			h.metrics.observe("register", "conflict")
			writeFieldError(w, "user", "email or handle already registered")
		case errors.Is(err, identity.ErrWeakPassword):
			h.metrics.observe("register", "invalid_request")
			writeFieldError(w, "password", h.passwordBoundsMsg())
		default:
			h.metrics.observe("register", "server_error")
			h.log.Error("auth.register.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.metrics.observe("register", "ok")
	w.Header().Set(TokenHeader, sess.Token)
	writeJSON(w, http.StatusOK, toUserResponse(sess.User))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.metrics.observe("login", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	if !validEmail(req.Email) {
		h.metrics.observe("login", "invalid_request")
		writeFieldError(w, "email", "Not a valid email")
		return
	}
	if !validPassword(h.policy, req.Password) {
		h.metrics.observe("login", "invalid_request")
		writeFieldError(w, "password", "Incorrect password")
		return
	}

	sess, err := h.svc.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailNotRegistered):
			h.metrics.observe("login", "unknown_email")
			writeFieldError(w, "email", "Email not registered!")
		case errors.Is(err, identity.ErrIncorrectPassword):
			h.metrics.observe("login", "bad_password")
			writeFieldError(w, "password", "Incorrect password")
		default:
			h.metrics.observe("login", "server_error")
			h.log.Error("auth.login.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.metrics.observe("login", "ok")
	w.Header().Set(TokenHeader, sess.Token)
	writeJSON(w, http.StatusOK, toUserResponse(sess.User))
}

func (h *Handler) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ref, ok := h.authenticate(w, r)
	if !ok {
		h.metrics.observe("password_change", "unauthorized")
		return
	}

	var req passwordChangeRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.metrics.observe("password_change", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	if req.OldPass == "" || req.NewPass == "" {
		h.metrics.observe("password_change", "invalid_request")
		writeFieldError(w, "password-fields", "Both old and new passwords are required.")
		return
	}
	if !validPassword(h.policy, req.OldPass) || !validPassword(h.policy, req.NewPass) {
		h.metrics.observe("password_change", "invalid_request")
		writeFieldError(w, "password", h.passwordMinMsg())
		return
	}

	err := h.svc.ChangePassword(r.Context(), ref, req.OldPass, req.NewPass)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrIncorrectPassword):
			h.metrics.observe("password_change", "bad_password")
			writeFieldError(w, "password", "password doesn't match")
		case errors.Is(err, identity.ErrWeakPassword):
			h.metrics.observe("password_change", "invalid_request")
			writeFieldError(w, "password", h.passwordMinMsg())
		case errors.Is(err, identity.ErrNotFound):
			// Token verified but the account is gone.
			h.metrics.observe("password_change", "unauthorized")
			writeError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
		default:
			h.metrics.observe("password_change", "server_error")
			h.log.Error("auth.password_change.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.metrics.observe("password_change", "ok")
	writeJSON(w, http.StatusOK, passwordChangeResponse{Result: "Password updated successfully!"})
}

// authenticate resolves the caller from the request token. On failure it
// writes the 401 response itself and returns ok=false.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (identity.Reference, bool) {
	raw := requestToken(r)
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "missing_token", "authentication token required")
		return identity.Reference{}, false
	}

	ref, err := h.svc.VerifyToken(raw, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
		return identity.Reference{}, false
	}
	return ref, true
}

// requestToken extracts the session token from the Authorization bearer
// header, falling back to the x-auth-token request header.
func requestToken(r *http.Request) string {
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(r.Header.Get(TokenHeader))
}

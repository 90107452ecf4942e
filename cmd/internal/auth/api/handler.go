package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"socialapp/cmd/identity"
	"socialapp/cmd/internal/auth/session"
	"socialapp/cmd/security/keys"
)

// Handler wires HTTP auth endpoints to the identity and session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	sessions *session.Service
	accounts *identity.Service
	keys     *keys.Pair
	audit    AuditSink

	now func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithAuditSink records the audit trail and enables login throttling.
func WithAuditSink(sink AuditSink) HandlerOption {
	return func(h *Handler) {
		if h == nil || sink == nil {
			return
		}
		h.audit = sink
	}
}

// WithClock overrides the handler's time source.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, sessions *session.Service, accounts *identity.Service, pair *keys.Pair, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if sessions == nil {
		return nil, errors.New("authapi: nil session service")
	}
	if accounts == nil {
		return nil, errors.New("authapi: nil identity service")
	}
	if pair == nil {
		return nil, errors.New("authapi: nil key pair")
	}

	h := &Handler{
		log:      log,
		cfg:      cfg.normalized(),
		sessions: sessions,
		accounts: accounts,
		keys:     pair,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/register", h.handleRegister)
	mux.HandleFunc("/auth/refresh", h.handleRefresh)
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.HandleFunc("/auth/register/admin", h.requireAuthority(identity.RoleAdmin.Authority(), h.handleRegisterAdmin))
	mux.HandleFunc("/me", h.handleMe)
	mux.HandleFunc("/admin/roles", h.requireAuthority(identity.RoleAdmin.Authority(), h.handleSetRole))
	mux.HandleFunc("/admin/users/{id}", h.requireAuthority(identity.RoleAdmin.Authority(), h.handleDeleteAccount))
	mux.HandleFunc("/.well-known/jwks.json", h.handleJWKS)
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	ctx := r.Context()
	now := h.now()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	// IP-based throttling before the credential check.
	if blocked, retryAfter, err := h.checkLoginIPThrottle(ctx, ip, now); err != nil {
		h.log.Error("auth.login.throttle_ip.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	} else if blocked {
		h.auditLoginRateLimited(ctx, ip, ua, username, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}

	issued, err := h.sessions.Login(ctx, now, username, req.Password)
	if err != nil {
		if session.IsAuthFailure(err) {
			h.auditLoginFailed(ctx, ip, ua, username, "invalid_credentials")
			writeAuthFailure(w)
			return
		}
		h.log.Error("auth.login.issue_session.fail", "err", err)
		writeInternal(w)
		return
	}

	h.auditLoginSuccess(ctx, issued.Identity.AccountID, ip, ua)
	h.setRefreshCookie(w, issued.RefreshToken)
	writeJSON(w, http.StatusOK, toAuthResponse(issued))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	issued, err := h.sessions.RegisterAndLogin(ctx, h.now(), session.Registration{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Bio:             req.Bio,
	})
	if err != nil {
		reason := h.writeAccountError(w, "auth.register", err)
		h.auditRegister(ctx, nil, ip, ua, ResultFailure, reason)
		return
	}

	id := issued.Identity.AccountID
	h.auditRegister(ctx, &id, ip, ua, ResultSuccess, "")
	h.setRefreshCookie(w, issued.RefreshToken)
	writeJSON(w, http.StatusCreated, toAuthResponse(issued))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	refreshToken, fromCookie := h.refreshTokenFromCookie(r)
	if !fromCookie {
		refreshToken = h.refreshTokenFromBody(w, r)
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	issued, err := h.sessions.Refresh(ctx, h.now(), refreshToken)
	if err != nil {
		if session.IsAuthFailure(err) {
			h.auditRefreshFailed(ctx, ip, ua, refreshFailureReason(err))
			if fromCookie {
				h.clearRefreshCookie(w)
			}
			writeAuthFailure(w)
			return
		}
		h.log.Error("auth.refresh.fail", "err", err)
		writeInternal(w)
		return
	}

	h.auditRefreshSuccess(ctx, issued.Identity.AccountID, ip, ua)
	h.setRefreshCookie(w, issued.RefreshToken)
	writeJSON(w, http.StatusOK, toAuthResponse(issued))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	refreshToken, ok := h.refreshTokenFromCookie(r)
	if !ok {
		refreshToken = h.refreshTokenFromBody(w, r)
	}

	ctx := r.Context()
	if err := h.sessions.Logout(ctx, refreshToken); err != nil {
		h.log.Error("auth.logout.fail", "err", err)
	} else if refreshToken != "" {
		h.auditLogout(ctx, clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()))
	}

	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	principal, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	acc, err := h.accounts.Get(r.Context(), principal.AccountID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeAuthFailure(w)
			return
		}
		h.log.Error("auth.me.fail", "err", err)
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

func (h *Handler) handleJWKS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.keys.JWKS())
}

// ---- helpers ----

// requireAuth verifies the bearer token and returns the principal it carries.
func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) (session.Identity, bool) {
	token := bearerToken(r)
	if token == "" {
		writeAuthFailure(w)
		return session.Identity{}, false
	}
	claims, err := h.sessions.ValidateAccessToken(token, h.now())
	if err != nil {
		writeAuthFailure(w)
		return session.Identity{}, false
	}
	return claims.Identity(), true
}

// principalHandler is an endpoint that runs with an authenticated caller.
type principalHandler func(w http.ResponseWriter, r *http.Request, principal session.Identity)

// requireAuthority guards next with a bearer token carrying authority.
func (h *Handler) requireAuthority(authority string, next principalHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := h.requireAuth(w, r)
		if !ok {
			return
		}
		if !principal.HasAuthority(authority) {
			writeError(w, http.StatusForbidden, "forbidden", "insufficient scope")
			return
		}
		next(w, r, principal)
	}
}

// writeAccountError maps identity errors onto responses and returns a short audit reason.
func (h *Handler) writeAccountError(w http.ResponseWriter, event string, err error) string {
	switch {
	case errors.Is(err, identity.ErrPasswordMismatch):
		writeError(w, http.StatusBadRequest, "password_mismatch", "password and confirmation do not match")
		return "password_mismatch"
	case identity.IsConflict(err):
		field := identity.ConflictField(err)
		msg := "account already exists"
		if field != "" {
			msg = field + " already in use"
		}
		writeError(w, http.StatusConflict, "conflict", msg)
		return "conflict_" + field
	case identity.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, "invalid_request", invalidMessage(err))
		return "invalid_input"
	case identity.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", "account not found")
		return "not_found"
	default:
		h.log.Error(event+".fail", "err", err)
		writeInternal(w)
		return "error"
	}
}

func invalidMessage(err error) string {
	var op identity.OpError
	if errors.As(err, &op) && op.Msg != "" {
		return op.Msg
	}
	return "invalid request"
}

func refreshFailureReason(err error) string {
	switch {
	case errors.Is(err, session.ErrRefreshExpired):
		return "expired"
	case errors.Is(err, session.ErrAccountNotFound):
		return "account_gone"
	default:
		return "not_found"
	}
}

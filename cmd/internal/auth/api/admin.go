package authapi

import (
	"net/http"
	"strconv"
	"strings"

	"socialapp/cmd/identity"
	"socialapp/cmd/internal/auth/session"
)

func (h *Handler) handleRegisterAdmin(w http.ResponseWriter, r *http.Request, principal session.Identity) {
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
	acc, err := h.accounts.Register(ctx, identity.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Bio:             req.Bio,
		Role:            identity.RoleAdmin,
		Now:             h.now(),
	})
	if err != nil {
		h.writeAccountError(w, "admin.register", err)
		return
	}

	h.auditAdmin(ctx, ActionAdminCreated, principal.AccountID, acc.ID,
		clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()), nil)
	writeJSON(w, http.StatusCreated, toAccountResponse(acc))
}

func (h *Handler) handleSetRole(w http.ResponseWriter, r *http.Request, principal session.Identity) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req roleChangeRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	role, ok := identity.ParseRole(req.Role)
	if !ok || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and a valid role are required")
		return
	}

	ctx := r.Context()
	acc, err := h.accounts.SetRole(ctx, req.Email, role, h.now())
	if err != nil {
		h.writeAccountError(w, "admin.set_role", err)
		return
	}

	h.auditAdmin(ctx, ActionAdminRoleChanged, principal.AccountID, acc.ID,
		clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()),
		map[string]any{"role": string(acc.Role)})
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request, principal session.Identity) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid account id")
		return
	}

	ctx := r.Context()
	if err := h.sessions.EndAccountSessions(ctx, id); err != nil {
		h.log.Error("admin.delete.end_sessions.fail", "err", err, "account_id", id)
		writeInternal(w)
		return
	}
	if err := h.accounts.Delete(ctx, id); err != nil {
		h.writeAccountError(w, "admin.delete", err)
		return
	}
	// A login racing the delete may have stored a token in between.
	if err := h.sessions.EndAccountSessions(ctx, id); err != nil {
		h.log.Warn("admin.delete.end_sessions.fail", "err", err, "account_id", id)
	}

	h.auditAdmin(ctx, ActionAdminDeleted, principal.AccountID, id,
		clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()), nil)
	w.WriteHeader(http.StatusNoContent)
}

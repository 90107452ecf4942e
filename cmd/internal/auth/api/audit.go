package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// Audit actions recorded by the handler.
const (
	ActionLoginSuccess     = "auth.login.success"
	ActionLoginFailed      = "auth.login.failed"
	ActionLoginRateLimited = "auth.login.rate_limited"
	ActionRegister         = "auth.register"
	ActionRefreshSuccess   = "auth.refresh.success"
	ActionRefreshFailed    = "auth.refresh.failed"
	ActionLogout           = "auth.logout"
	ActionAdminCreated     = "admin.account.created"
	ActionAdminRoleChanged = "admin.role.changed"
	ActionAdminDeleted     = "admin.account.deleted"
)

// Audit results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// AuditEvent is one row of the audit trail.
type AuditEvent struct {
	ID        string
	At        time.Time
	Action    string
	AccountID *int64
	IP        net.IP
	UserAgent string
	Result    string
	Detail    map[string]any
}

// AuditSink persists audit events and answers the throttle's failure queries.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent) error

	// FailuresSince returns the times of action events from ip at or after since, newest first.
	FailuresSince(ctx context.Context, action string, ip net.IP, since time.Time) ([]time.Time, error)
}

const maxFailureRows = 1000

// PostgresAuditSink writes to socialapp.audit_log.
type PostgresAuditSink struct {
	pool *pgxpool.Pool
}

func NewPostgresAuditSink(pool *pgxpool.Pool) (*PostgresAuditSink, error) {
	if pool == nil {
		return nil, errors.New("authapi: nil db pool")
	}
	return &PostgresAuditSink{pool: pool}, nil
}

func (s *PostgresAuditSink) Record(ctx context.Context, ev AuditEvent) error {
	var ipVal any
	if ev.IP != nil {
		ipVal = ev.IP.String()
	}

	var detailVal *string
	if len(ev.Detail) > 0 {
		if b, err := json.Marshal(ev.Detail); err == nil {
			d := string(b)
			detailVal = &d
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO socialapp.audit_log (
			id, created_at, action, account_id, ip, user_agent, result, detail
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
	`, ev.ID, ev.At, ev.Action, ev.AccountID, ipVal, trimOrNil(ev.UserAgent), ev.Result, detailVal)
	return err
}

func (s *PostgresAuditSink) FailuresSince(ctx context.Context, action string, ip net.IP, since time.Time) ([]time.Time, error) {
	if ip == nil {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT created_at
		FROM socialapp.audit_log
		WHERE action = $1
		  AND ip = $2
		  AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT $4
	`, action, ip.String(), since, maxFailureRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// maxMemoryAuditEvents bounds MemoryAuditSink; the oldest events are dropped first.
const maxMemoryAuditEvents = 10000

// MemoryAuditSink keeps events in process memory.
type MemoryAuditSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func NewMemoryAuditSink() *MemoryAuditSink {
	return &MemoryAuditSink{}
}

func (s *MemoryAuditSink) Record(ctx context.Context, ev AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	if over := len(s.events) - maxMemoryAuditEvents; over > 0 {
		s.events = append([]AuditEvent(nil), s.events[over:]...)
	}
	return nil
}

func (s *MemoryAuditSink) FailuresSince(ctx context.Context, action string, ip net.IP, since time.Time) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ip == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Time
	for i := len(s.events) - 1; i >= 0 && len(out) < maxFailureRows; i-- {
		ev := s.events[i]
		if ev.Action == action && ev.IP.Equal(ip) && !ev.At.Before(since) {
			out = append(out, ev.At)
		}
	}
	return out, nil
}

// Events returns a copy of the recorded events, oldest first.
func (s *MemoryAuditSink) Events() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditEvent(nil), s.events...)
}

func (h *Handler) auditLoginFailed(ctx context.Context, ip net.IP, ua, username, reason string) {
	h.insertAudit(ctx, ActionLoginFailed, nil, ip, ua, ResultFailure, map[string]any{
		"username": username,
		"reason":   reason,
	})
}

func (h *Handler) auditLoginSuccess(ctx context.Context, accountID int64, ip net.IP, ua string) {
	h.insertAudit(ctx, ActionLoginSuccess, &accountID, ip, ua, ResultSuccess, nil)
}

func (h *Handler) auditLoginRateLimited(ctx context.Context, ip net.IP, ua, username string, retryAfter time.Duration) {
	h.insertAudit(ctx, ActionLoginRateLimited, nil, ip, ua, ResultFailure, map[string]any{
		"username":      username,
		"retry_after_s": int64(retryAfter.Seconds()),
	})
}

func (h *Handler) auditRegister(ctx context.Context, accountID *int64, ip net.IP, ua, result, reason string) {
	var detail map[string]any
	if reason != "" {
		detail = map[string]any{"reason": reason}
	}
	h.insertAudit(ctx, ActionRegister, accountID, ip, ua, result, detail)
}

func (h *Handler) auditRefreshSuccess(ctx context.Context, accountID int64, ip net.IP, ua string) {
	h.insertAudit(ctx, ActionRefreshSuccess, &accountID, ip, ua, ResultSuccess, nil)
}

func (h *Handler) auditRefreshFailed(ctx context.Context, ip net.IP, ua, reason string) {
	h.insertAudit(ctx, ActionRefreshFailed, nil, ip, ua, ResultFailure, map[string]any{
		"reason": reason,
	})
}

func (h *Handler) auditLogout(ctx context.Context, ip net.IP, ua string) {
	h.insertAudit(ctx, ActionLogout, nil, ip, ua, ResultSuccess, nil)
}

func (h *Handler) auditAdmin(ctx context.Context, action string, actor, target int64, ip net.IP, ua string, detail map[string]any) {
	if detail == nil {
		detail = map[string]any{}
	}
	detail["target_id"] = target
	h.insertAudit(ctx, action, &actor, ip, ua, ResultSuccess, detail)
}

func (h *Handler) insertAudit(ctx context.Context, action string, accountID *int64, ip net.IP, ua, result string, detail map[string]any) {
	if h == nil || h.audit == nil {
		return
	}

	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	ev := AuditEvent{
		ID:        ulid.Make().String(),
		At:        h.now(),
		Action:    action,
		AccountID: accountID,
		IP:        ip,
		UserAgent: ua,
		Result:    result,
		Detail:    detail,
	}
	if err := h.audit.Record(ctx, ev); err != nil {
		h.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}

package authapi

import (
	"context"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"
)

func (h *Handler) checkLoginIPThrottle(ctx context.Context, ip net.IP, now time.Time) (bool, time.Duration, error) {
	if ip == nil || h.audit == nil || h.cfg.LoginIPMax <= 0 {
		return false, 0, nil
	}
	cut := now.Add(-h.cfg.LoginIPWindow)
	failures, err := h.audit.FailuresSince(ctx, ActionLoginFailed, ip, cut)
	if err != nil {
		return false, 0, err
	}
	blocked, retry := evaluateWindowThrottle(now, failures, h.cfg.LoginIPMax, h.cfg.LoginIPWindow)
	return blocked, retry, nil
}

// evaluateWindowThrottle blocks once max failures fall inside the window ending at now.
// The retry delay lasts until enough of them age out to drop below max.
func evaluateWindowThrottle(now time.Time, failures []time.Time, max int, window time.Duration) (bool, time.Duration) {
	if max <= 0 || window <= 0 {
		return false, 0
	}
	cut := now.Add(-window)
	recent := make([]time.Time, 0, len(failures))
	for _, f := range failures {
		if !f.Before(cut) && !f.After(now) {
			recent = append(recent, f)
		}
	}
	if len(recent) < max {
		return false, 0
	}
	sort.Slice(recent, func(i, j int) bool { return recent[i].After(recent[j]) })

	retry := recent[max-1].Add(window).Sub(now)
	if retry <= 0 {
		return false, 0
	}
	return true, retry
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int64((retryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}

package session

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts orchestrator outcomes. A nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	expired    prometheus.Counter
}

// NewMetrics registers the session counters on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialapp",
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Session operations by outcome.",
		}, []string{"operation", "result"}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "socialapp",
			Subsystem: "auth",
			Name:      "refresh_tokens_expired_total",
			Help:      "Refresh tokens deleted on expiry detection.",
		}),
	}
	for _, c := range []prometheus.Collector{m.operations, m.expired} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, resultLabel(err)).Inc()
	if errors.Is(err, ErrRefreshExpired) {
		m.expired.Inc()
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsAuthFailure(err):
		return "rejected"
	default:
		return "error"
	}
}

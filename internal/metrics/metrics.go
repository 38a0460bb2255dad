package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "family"

// Metrics holds the collectors of the access-control core. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	redemptions    *prometheus.CounterVec
	lockouts       prometheus.Counter
	gameLockClaims *prometheus.CounterVec
	auditDropped   prometheus.Counter
	sweeperRemoved *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		redemptions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invitation_redemptions_total",
			Help:      "Invitation redemption attempts by outcome.",
		}, []string{"outcome"}),
		lockouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invitation_lockouts_total",
			Help:      "Invitations locked after reaching the failed attempt limit.",
		}),
		gameLockClaims: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "game_lock_claims_total",
			Help:      "Game lock claims by outcome.",
		}, []string{"outcome"}),
		auditDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_dropped_total",
			Help:      "Audit entries dropped because the writer buffer was full.",
		}),
		sweeperRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeper_removed_total",
			Help:      "Rows expired or removed by the background sweeper.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) Redemption(outcome string) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Lockout() {
	if m == nil {
		return
	}
	m.lockouts.Inc()
}

func (m *Metrics) GameLockClaim(outcome string) {
	if m == nil {
		return
	}
	m.gameLockClaims.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}

func (m *Metrics) SweeperRemoved(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sweeperRemoved.WithLabelValues(kind).Add(float64(n))
}

// Handler exposes the gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

package concierge

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/warp/room-concierge/generic"
)

// Metrics counts concierge outcomes. A nil *Metrics records nothing.
type Metrics struct {
	operations      *prometheus.CounterVec
	lockWait        prometheus.Histogram
	inconsistencies prometheus.Counter
	cascadeRooms    *prometheus.CounterVec
	auditFindings   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "concierge",
				Name:      "operations_total",
				Help:      "Concierge operations by name and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		lockWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "concierge",
				Name:      "room_lock_wait_seconds",
				Help:      "Time spent waiting for a room lock.",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
		),
		inconsistencies: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "concierge",
				Name:      "restore_inconsistencies_total",
				Help:      "Booking deletions that freed the room but failed to clear its events.",
			},
		),
		cascadeRooms: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "concierge",
				Name:      "cascade_rooms_total",
				Help:      "Rooms processed by room-type purges, by outcome.",
			},
			[]string{"outcome"},
		),
		auditFindings: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "concierge",
				Name:      "audit_findings",
				Help:      "Booking events not covered by a held ledger interval at the last audit.",
			},
		),
	}
	reg.MustRegister(m.operations, m.lockWait, m.inconsistencies, m.cascadeRooms, m.auditFindings)
	return m
}

func (m *Metrics) observe(operation string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, Outcome(err)).Inc()
}

func (m *Metrics) observeLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

func (m *Metrics) incInconsistency() {
	if m == nil {
		return
	}
	m.inconsistencies.Inc()
}

func (m *Metrics) incCascadeRoom(err error) {
	if m == nil {
		return
	}
	m.cascadeRooms.WithLabelValues(Outcome(err)).Inc()
}

func (m *Metrics) setAuditFindings(n int) {
	if m == nil {
		return
	}
	m.auditFindings.Set(float64(n))
}

// Outcome classifies an error for metric labels and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, generic.ErrInvalidRange), errors.Is(err, generic.ErrUnknownState):
		return "invalid"
	case errors.Is(err, generic.ErrConflict):
		return "conflict"
	case errors.Is(err, generic.ErrNotFound):
		return "not_found"
	case errors.Is(err, generic.ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, generic.ErrPartialCascade):
		return "partial"
	default:
		return "error"
	}
}

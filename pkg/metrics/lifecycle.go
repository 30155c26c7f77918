package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Aggregate labels
const (
	AggregateBatch         = "batch"
	AggregatePurchaseOrder = "purchase_order"
	AggregateOrder         = "order"
)

// Lifecycle records state machine activity and stock ledger writes.
// A nil *Lifecycle is valid and records nothing.
type Lifecycle struct {
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	movements   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewLifecycle registers the lifecycle metrics on the provided registerer.
func NewLifecycle(reg prometheus.Registerer) *Lifecycle {
	if reg == nil {
		return &Lifecycle{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brewops_lifecycle_transitions_total",
		Help: "Committed status transitions.",
	}, []string{"aggregate", "from", "to"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brewops_lifecycle_rejections_total",
		Help: "Transitions and operations rejected by adjacency, guards or invariants.",
	}, []string{"aggregate", "reason"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brewops_stock_movements_total",
		Help: "Stock ledger entries written.",
	}, []string{"type"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brewops_operation_duration_seconds",
		Help:    "Duration of lifecycle operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"aggregate", "operation"})
	reg.MustRegister(transitions, rejections, movements, duration)
	return &Lifecycle{
		transitions: transitions,
		rejections:  rejections,
		movements:   movements,
		duration:    duration,
	}
}

// IncTransition counts a committed transition.
func (l *Lifecycle) IncTransition(aggregate, from, to string) {
	if l == nil || l.transitions == nil {
		return
	}
	l.transitions.WithLabelValues(aggregate, from, to).Inc()
}

// IncRejection counts a refused operation under its error code.
func (l *Lifecycle) IncRejection(aggregate, reason string) {
	if l == nil || l.rejections == nil {
		return
	}
	l.rejections.WithLabelValues(aggregate, normalizeLabel(reason)).Inc()
}

// IncMovement counts a stock ledger entry.
func (l *Lifecycle) IncMovement(movementType string) {
	if l == nil || l.movements == nil {
		return
	}
	l.movements.WithLabelValues(normalizeLabel(movementType)).Inc()
}

// ObserveDuration records how long an operation took.
func (l *Lifecycle) ObserveDuration(aggregate, operation string, d time.Duration) {
	if l == nil || l.duration == nil {
		return
	}
	l.duration.WithLabelValues(aggregate, operation).Observe(d.Seconds())
}

// Handler exposes the gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

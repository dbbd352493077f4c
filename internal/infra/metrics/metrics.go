// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"health_notification_service/internal/domain/delivery"
	"health_notification_service/internal/domain/notification"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements app.Observer.
type Metrics struct {
	transitions     *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	deliveries      *prometheus.CounterVec
	actions         *prometheus.CounterVec
	slotsSeeded     prometheus.Counter
	cycleDuration   prometheus.Histogram
	HTTPRequestTime *prometheus.HistogramVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notification_transitions_total",
				Help: "Slot state transitions applied, by target status",
			},
			[]string{"to"},
		),
		conflicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notification_transition_conflicts_total",
				Help: "Transitions skipped because another actor changed the slot first",
			},
			[]string{"actor"}, // actor: cycle, action, seed
		),
		deliveries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notification_deliveries_total",
				Help: "Push delivery attempts",
			},
			[]string{"success", "error_kind"},
		),
		actions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notification_actions_total",
				Help: "User actions handled, by class",
			},
			[]string{"class"},
		),
		slotsSeeded: f.NewCounter(prometheus.CounterOpts{
			Name: "notification_slots_seeded_total",
			Help: "Slot records upserted by seeding",
		}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "notification_cycle_duration_seconds",
			Help:    "Wall time of one reconciliation cycle",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),
		HTTPRequestTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (m *Metrics) TransitionApplied(to notification.Status) {
	m.transitions.WithLabelValues(string(to)).Inc()
}

func (m *Metrics) TransitionConflict(actor string) {
	m.conflicts.WithLabelValues(actor).Inc()
}

func (m *Metrics) DeliveryAttempted(kind delivery.ErrorKind, success bool) {
	m.deliveries.WithLabelValues(strconv.FormatBool(success), string(kind)).Inc()
}

func (m *Metrics) ActionHandled(class notification.ActionClass) {
	m.actions.WithLabelValues(class.String()).Inc()
}

func (m *Metrics) SlotsSeeded(n int) {
	m.slotsSeeded.Add(float64(n))
}

func (m *Metrics) CycleCompleted(d time.Duration) {
	m.cycleDuration.Observe(d.Seconds())
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	m.HTTPRequestTime.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
}

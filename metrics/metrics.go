package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for notification processing.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Notifications by type and classification
	Notifications *prometheus.CounterVec

	// Messages that could not be parsed
	Malformed prometheus.Counter

	// Purge attempts by result: "success", "failure"
	Purges *prometheus.CounterVec

	PurgeLatency prometheus.Histogram

	// Status reports by status and result: "sent", "lost"
	StatusReports *prometheus.CounterVec
}

// New registers every metric with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ownership_cache_notifications_total",
			Help: "Total notifications processed by type and decision",
		}, []string{"type", "decision"}),

		Malformed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ownership_cache_malformed_messages_total",
			Help: "Total messages that could not be parsed into a notification",
		}),

		Purges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ownership_cache_purges_total",
			Help: "Total ownership cache purges by result",
		}, []string{"result"}),

		PurgeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ownership_cache_purge_duration_seconds",
			Help:    "Duration of ownership cache purges",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		StatusReports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ownership_cache_status_reports_total",
			Help: "Total deletion status reports by status and result",
		}, []string{"status", "result"}),
	}
}

func (m *Metrics) IncrementNotification(notificationType, decision string) {
	if m != nil {
		m.Notifications.WithLabelValues(notificationType, decision).Inc()
	}
}

func (m *Metrics) IncrementMalformed() {
	if m != nil {
		m.Malformed.Inc()
	}
}

// ObservePurge records a purge attempt and its duration.
func (m *Metrics) ObservePurge(err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.Purges.WithLabelValues(result).Inc()
	m.PurgeLatency.Observe(d.Seconds())
}

// IncrementReport records a status report; lost reports never reached the authority.
func (m *Metrics) IncrementReport(status string, lost bool) {
	if m == nil {
		return
	}
	result := "sent"
	if lost {
		result = "lost"
	}
	m.StatusReports.WithLabelValues(status, result).Inc()
}

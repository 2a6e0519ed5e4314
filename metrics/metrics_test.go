package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementNotification("DELETE", "purge")
	m.IncrementNotification("DELETE", "purge")
	m.IncrementMalformed()
	m.ObservePurge(nil, 10*time.Millisecond)
	m.ObservePurge(errors.New("boom"), time.Millisecond)
	m.IncrementReport("DONE", false)
	m.IncrementReport("NOT_DONE", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues("DELETE", "purge")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Malformed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Purges.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Purges.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusReports.WithLabelValues("DONE", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusReports.WithLabelValues("NOT_DONE", "lost")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PurgeLatency))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementNotification("HEARTBEAT", "skip")
		m.IncrementMalformed()
		m.ObservePurge(nil, time.Second)
		m.IncrementReport("DONE", false)
	})
}

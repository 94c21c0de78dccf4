package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Initiation("accepted")
	m.Initiation("accepted")
	m.Callback("duplicate")
	m.ProviderCall("submit", "ok", 120*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.initiations.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callbacks.WithLabelValues("duplicate")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Initiation("accepted")
		m.Callback("matched")
		m.ProviderCall("token", "ok", time.Second)
		m.Sweep("resolved")
		m.Request("GET", "/health", "200", time.Millisecond)
	})
}

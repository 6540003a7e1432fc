package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics counts session traffic on a private registry. The host has
// no network listener, so the registry is exported with WriteTextfile.
// A nil *SessionMetrics records nothing.
type SessionMetrics struct {
	registry *prometheus.Registry
	commands *prometheus.CounterVec
	replies  *prometheus.CounterVec
	faults   prometheus.Counter
	dispatch *prometheus.HistogramVec
}

func NewSessionMetrics() *SessionMetrics {
	m := &SessionMetrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fbrowserhelper",
				Subsystem: "session",
				Name:      "commands_total",
				Help:      "Decoded commands by tag.",
			},
			[]string{"command"},
		),
		replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fbrowserhelper",
				Subsystem: "session",
				Name:      "replies_total",
				Help:      "Reply frames written by tag.",
			},
			[]string{"type"},
		),
		faults: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fbrowserhelper",
				Subsystem: "session",
				Name:      "faults_total",
				Help:      "Panics recovered during dispatch.",
			},
		),
		dispatch: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fbrowserhelper",
				Subsystem: "session",
				Name:      "dispatch_duration_seconds",
				Help:      "Dispatch duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command"},
		),
	}
	m.registry.MustRegister(m.commands, m.replies, m.faults, m.dispatch)
	return m
}

func (m *SessionMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *SessionMetrics) RecordCommand(command string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command).Inc()
	m.dispatch.WithLabelValues(command).Observe(duration.Seconds())
}

func (m *SessionMetrics) RecordReply(tag string) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(tag).Inc()
}

func (m *SessionMetrics) RecordFault() {
	if m == nil {
		return
	}
	m.faults.Inc()
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *SessionMetrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

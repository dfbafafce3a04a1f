package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stream outcomes used as metric labels.
const (
	OutcomeCompleted    = "completed"
	OutcomeError        = "error"
	OutcomeDisconnected = "disconnected"
)

// StreamMetrics holds the metrics recorded by the chat stream relay.
type StreamMetrics struct {
	StreamsTotal    *prometheus.CounterVec
	FragmentsTotal  *prometheus.CounterVec
	StreamDuration  *prometheus.HistogramVec
	ActiveStreams   prometheus.Gauge
	MalformedEvents prometheus.Counter
}

// NewStreamMetrics registers the stream metrics with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewStreamMetrics(reg prometheus.Registerer) *StreamMetrics {
	factory := promauto.With(reg)
	return &StreamMetrics{
		StreamsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billchat",
			Subsystem: "chat_stream",
			Name:      "streams_total",
			Help:      "Chat streams relayed, by producer and outcome.",
		}, []string{"producer", "outcome"}),
		FragmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billchat",
			Subsystem: "chat_stream",
			Name:      "fragments_total",
			Help:      "Content fragments written to clients, by producer.",
		}, []string{"producer"}),
		StreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "billchat",
			Subsystem: "chat_stream",
			Name:      "duration_seconds",
			Help:      "Time from stream open to close.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"producer", "outcome"}),
		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "billchat",
			Subsystem: "chat_stream",
			Name:      "active",
			Help:      "Streams currently open.",
		}),
		MalformedEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "billchat",
			Subsystem: "upstream",
			Name:      "malformed_events_total",
			Help:      "Upstream events skipped because their payload could not be decoded.",
		}),
	}
}

// RecordStream records one finished stream.
func (m *StreamMetrics) RecordStream(producer, outcome string, fragments int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StreamsTotal.WithLabelValues(producer, outcome).Inc()
	m.FragmentsTotal.WithLabelValues(producer).Add(float64(fragments))
	m.StreamDuration.WithLabelValues(producer, outcome).Observe(elapsed.Seconds())
}

// StreamOpened increments the active stream gauge and returns a func that decrements it.
func (m *StreamMetrics) StreamOpened() func() {
	if m == nil {
		return func() {}
	}
	m.ActiveStreams.Inc()
	return m.ActiveStreams.Dec
}

// MalformedEvent counts one skipped upstream event.
func (m *StreamMetrics) MalformedEvent() {
	if m == nil {
		return
	}
	m.MalformedEvents.Inc()
}

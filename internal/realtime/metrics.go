package realtime

import "github.com/prometheus/client_golang/prometheus"

const namespace = "skillswap"

// Metrics holds Prometheus metrics for event streams. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	OpenStreams prometheus.Gauge
	Pushes      *prometheus.CounterVec
	Delivered   prometheus.Counter
	Dropped     prometheus.Counter
}

// NewMetrics creates and registers stream metrics on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OpenStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "open_streams",
			Help:      "Number of open event streams.",
		}),
		Pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "pushes_total",
			Help:      "Pushes to users with at least one open stream, by event name.",
		}, []string{"event"}),
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "frames_queued_total",
			Help:      "Frames queued onto open streams.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "frames_dropped_total",
			Help:      "Frames dropped because the stream was closed or stalled.",
		}),
	}

	reg.MustRegister(m.OpenStreams, m.Pushes, m.Delivered, m.Dropped)
	return m
}

func (m *Metrics) opened() {
	if m != nil {
		m.OpenStreams.Inc()
	}
}

func (m *Metrics) closed() {
	if m != nil {
		m.OpenStreams.Dec()
	}
}

func (m *Metrics) pushed(event string) {
	if m != nil {
		m.Pushes.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) delivered() {
	if m != nil {
		m.Delivered.Inc()
	}
}

func (m *Metrics) dropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BridgeMetrics holds Prometheus metrics for the polling relay.
type BridgeMetrics struct {
	Ticks               prometheus.Counter
	TickDuration        prometheus.Histogram
	QueueDepth          prometheus.Gauge
	CommandsForwarded   prometheus.Counter
	CommandsFailed      prometheus.Counter
	MessagesTotal       *prometheus.CounterVec
	SnapshotsEmitted    prometheus.Counter
	SnapshotsSuppressed prometheus.Counter
	ChartFlushes        prometheus.Counter
	ProducerAlive       prometheus.Gauge
}

// Message routes used as the "route" label of MessagesTotal.
const (
	RouteChart       = "chart"
	RoutePassThrough = "pass_through"
	RouteDropped     = "dropped"
)

// NewBridgeMetrics creates and registers bridge metrics on the given registry.
func NewBridgeMetrics(reg prometheus.Registerer) *BridgeMetrics {
	m := &BridgeMetrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "ticks_total",
			Help:      "Total number of poll ticks executed.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "tick_duration_seconds",
			Help:      "Duration of a poll tick in seconds.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .0167, .025, .05, .1, .25},
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "command_queue_depth",
			Help:      "Commands waiting for the next tick.",
		}),
		CommandsForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "commands_forwarded_total",
			Help:      "Commands delivered to the producer.",
		}),
		CommandsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "commands_failed_total",
			Help:      "Commands dropped because the producer refused them or was absent.",
		}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "messages_total",
			Help:      "Producer messages by route (chart, pass_through, dropped).",
		}, []string{"route"}),
		SnapshotsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "snapshots_emitted_total",
			Help:      "Snapshots broadcast to viewers.",
		}),
		SnapshotsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "snapshots_suppressed_total",
			Help:      "Snapshots not broadcast because they equal the last emitted one.",
		}),
		ChartFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "chart_flushes_total",
			Help:      "Viewer-triggered chart bucket flushes.",
		}),
		ProducerAlive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "producer_alive",
			Help:      "1 while a producer is attached and alive, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		m.Ticks, m.TickDuration, m.QueueDepth,
		m.CommandsForwarded, m.CommandsFailed, m.MessagesTotal,
		m.SnapshotsEmitted, m.SnapshotsSuppressed, m.ChartFlushes, m.ProducerAlive,
	)
	return m
}

// The recording methods below accept a nil receiver so components can run without metrics.

func (m *BridgeMetrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.Ticks.Inc()
	m.TickDuration.Observe(d.Seconds())
}

func (m *BridgeMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

func (m *BridgeMetrics) CommandForwarded() {
	if m == nil {
		return
	}
	m.CommandsForwarded.Inc()
}

func (m *BridgeMetrics) CommandFailed() {
	if m == nil {
		return
	}
	m.CommandsFailed.Inc()
}

func (m *BridgeMetrics) MessageRouted(route string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(route).Inc()
}

func (m *BridgeMetrics) SnapshotEmitted() {
	if m == nil {
		return
	}
	m.SnapshotsEmitted.Inc()
}

func (m *BridgeMetrics) SnapshotSuppressed() {
	if m == nil {
		return
	}
	m.SnapshotsSuppressed.Inc()
}

func (m *BridgeMetrics) ChartFlushed() {
	if m == nil {
		return
	}
	m.ChartFlushes.Inc()
}

func (m *BridgeMetrics) SetProducerAlive(alive bool) {
	if m == nil {
		return
	}
	if alive {
		m.ProducerAlive.Set(1)
		return
	}
	m.ProducerAlive.Set(0)
}

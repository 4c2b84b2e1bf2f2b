package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebSocketMetrics holds Prometheus metrics for viewer connections.
type WebSocketMetrics struct {
	ActiveConnections prometheus.Gauge
	MessagesSent      prometheus.Counter
	InboundEvents     *prometheus.CounterVec
	SlowEvicted       prometheus.Counter
	PingFailures      prometheus.Counter
	IdleDisconnects   prometheus.Counter
	Rejected          *prometheus.CounterVec
}

// NewWebSocketMetrics creates and registers WebSocket metrics on the given registry.
func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of connected viewers.",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_sent_total",
			Help:      "Total number of frames written to viewers.",
		}),
		InboundEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "inbound_events_total",
			Help:      "Viewer events received, by event name.",
		}, []string{"event"}),
		SlowEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "slow_clients_evicted_total",
			Help:      "Viewers disconnected because their send buffer was full.",
		}),
		PingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "ping_failures_total",
			Help:      "Failed keepalive pings.",
		}),
		IdleDisconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "idle_disconnects_total",
			Help:      "Viewers disconnected after the idle timeout.",
		}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "rejected_connections_total",
			Help:      "Viewer connections refused, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.ActiveConnections, m.MessagesSent, m.InboundEvents, m.SlowEvicted,
		m.PingFailures, m.IdleDisconnects, m.Rejected)
	return m
}

func (m *WebSocketMetrics) Connected() {
	if m == nil {
		return
	}
	m.ActiveConnections.Inc()
}

func (m *WebSocketMetrics) Disconnected() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}

func (m *WebSocketMetrics) Sent() {
	if m == nil {
		return
	}
	m.MessagesSent.Inc()
}

func (m *WebSocketMetrics) Inbound(event string) {
	if m == nil {
		return
	}
	m.InboundEvents.WithLabelValues(event).Inc()
}

func (m *WebSocketMetrics) Evicted() {
	if m == nil {
		return
	}
	m.SlowEvicted.Inc()
}

func (m *WebSocketMetrics) PingFailed() {
	if m == nil {
		return
	}
	m.PingFailures.Inc()
}

func (m *WebSocketMetrics) IdleDisconnected() {
	if m == nil {
		return
	}
	m.IdleDisconnects.Inc()
}

func (m *WebSocketMetrics) Reject(reason string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(reason).Inc()
}

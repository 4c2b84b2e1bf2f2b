package httpserver

import (
	"context"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/webmon/internal/adapter/metrics"
	ws "github.com/pscheid92/webmon/internal/adapter/websocket"
	"github.com/pscheid92/webmon/internal/domain"
	"github.com/pscheid92/webmon/internal/platform/config"
	"github.com/jonboulle/clockwork"
)

// --- Mock implementations ---

type fakeBridge struct {
	mu         sync.Mutex
	attached   bool
	alive      bool
	snapshot   domain.Snapshot
	bucket     domain.ChartBucket
	commands   []domain.Command
	connects   int
	flushCalls int
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{attached: true, alive: true}
}

func (b *fakeBridge) OnViewerConnected() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connects++
}

func (b *fakeBridge) SubmitCommand(cmd domain.Command) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = append(b.commands, cmd)
}

func (b *fakeBridge) FlushCharts() domain.ChartBucket {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushCalls++
	if b.bucket == nil {
		return domain.ChartBucket{}
	}
	return b.bucket
}

func (b *fakeBridge) CurrentSnapshot() (domain.Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot, b.snapshot != nil
}

func (b *fakeBridge) ProducerAttached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attached
}

func (b *fakeBridge) ProducerAlive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alive
}

func (b *fakeBridge) submitted() []domain.Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Command(nil), b.commands...)
}

func (b *fakeBridge) connectCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connects
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:             "development",
		Port:               "0",
		AppURL:             "http://localhost:8080",
		MaxViewers:         100,
		MaxViewersPerIP:    10,
		ViewerConnectRate:  100,
		ViewerConnectBurst: 100,
	}
}

func newTestServer(t *testing.T, bridge *fakeBridge, opts ...func(*Server)) *Server {
	t.Helper()

	hub := ws.NewHub(clockwork.NewRealClock(), 0, nil)
	t.Cleanup(hub.Stop)

	srv := NewServer(testConfig(), bridge, hub, nil, nil, nil, nil)

	for _, opt := range opts {
		opt(srv)
	}

	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withLimits(limits *ConnectionLimits) func(*Server) {
	return func(s *Server) {
		s.limits = limits
	}
}

func withWebSocketMetrics(m *metrics.WebSocketMetrics) func(*Server) {
	return func(s *Server) {
		s.wsMetrics = m
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware()(handler)(c)
}

func healthOK(_ context.Context) error { return nil }

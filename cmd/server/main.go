package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/webmon/internal/adapter/httpserver"
	"github.com/pscheid92/webmon/internal/adapter/metrics"
	"github.com/pscheid92/webmon/internal/adapter/notify"
	"github.com/pscheid92/webmon/internal/adapter/producer"
	"github.com/pscheid92/webmon/internal/adapter/websocket"
	"github.com/pscheid92/webmon/internal/bridge"
	"github.com/pscheid92/webmon/internal/domain"
	"github.com/pscheid92/webmon/internal/platform/config"
	"github.com/pscheid92/webmon/internal/platform/logging"
	"github.com/pscheid92/webmon/internal/platform/retry"
	"github.com/pscheid92/webmon/internal/platform/version"
)

const (
	shutdownTimeout       = 10 * time.Second
	connectInitialBackoff = 250 * time.Millisecond
	connectMaxBackoff     = 2 * time.Second
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupProducer returns nil when no producer is configured or reachable;
// the bridge then runs without one.
func setupProducer(ctx context.Context, cfg *config.Config, m *metrics.RedisMetrics) *producer.Connector {
	clientCfg, err := producer.ResolveClientConfig(cfg.ProducerClient, cfg.ProducerRedisURL, cfg.ProducerKeyPrefix)
	if errors.Is(err, domain.ErrNoProducer) {
		slog.Warn("No producer configured")
		return nil
	}
	if err != nil {
		slog.Error("Invalid producer configuration", "error", err)
		return nil
	}

	policy := retry.Policy{
		MaxAttempts:    cfg.ProducerConnectAttempts,
		InitialBackoff: connectInitialBackoff,
		MaxBackoff:     connectMaxBackoff,
	}
	conn, err := producer.Connect(ctx, clientCfg, policy, m)
	if err != nil {
		slog.Error("Producer unreachable", "error", err)
		return nil
	}
	return conn
}

func healthChecks(b *bridge.Bridge, conn *producer.Connector) []httpserver.HealthCheck {
	checks := []httpserver.HealthCheck{
		{Name: "producer", Check: b.Ready},
	}
	if conn != nil {
		checks = append(checks, httpserver.HealthCheck{Name: "producer_redis", Check: conn.Ping})
	}
	return checks
}

// waitForShutdown blocks until a signal, a producer-gone trigger or a listener failure.
func waitForShutdown(srv *httpserver.Server, b *bridge.Bridge, serveErr <-chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Shutdown signal received", "signal", sig.String())
	case <-srv.ShutdownRequested():
		slog.Info("Shutdown requested by producer-gone notification")
	case <-b.ProducerGone():
		// The notification normally arrives first; this covers a failed notify.
		slog.Info("Producer gone, shutting down")
	case err := <-serveErr:
		if err != nil {
			slog.Error("Server error", "error", err)
		}
	}
}

func runGracefulShutdown(srv *httpserver.Server, hub *websocket.Hub, b *bridge.Bridge, conn *producer.Connector) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}

	hub.Stop()

	if err := b.Stop(ctx); err != nil {
		slog.Error("Bridge shutdown error", "error", err)
	}

	if conn != nil {
		if err := conn.Close(); err != nil {
			slog.Error("Failed to close producer connection", "error", err)
		}
	}
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	closeLog, err := logging.InitLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer func() { _ = closeLog() }()

	info := version.Get()
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", info.Version, "pid", info.PID)

	reg := metrics.NewRegistry()
	bridgeMetrics := metrics.NewBridgeMetrics(reg)
	wsMetrics := metrics.NewWebSocketMetrics(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)
	redisMetrics := metrics.NewRedisMetrics(reg)

	conn := setupProducer(context.Background(), cfg, redisMetrics)

	// Pass nil explicitly to avoid a typed-nil interface
	var p domain.Producer
	if conn != nil {
		p = conn
	}

	hub := websocket.NewHub(clock, cfg.MaxViewers, wsMetrics)
	notifier := notify.NewHTTPNotifier(cfg.ShutdownNotifyURL, nil)

	b := bridge.New(p, hub, bridge.Options{
		TickInterval:   cfg.TickInterval,
		OpTimeout:      cfg.ProducerOpTimeout,
		ChartKinds:     cfg.ChartKindList(),
		OnProducerGone: notifier.Notify,
		Clock:          clock,
		Metrics:        bridgeMetrics,
	})

	srv := httpserver.NewServer(cfg, b, hub, reg, httpMetrics, wsMetrics, healthChecks(b, conn))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	waitForShutdown(srv, b, serveErr)

	runGracefulShutdown(srv, hub, b, conn)
	slog.Info("Shutdown complete")
}

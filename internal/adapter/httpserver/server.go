package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/webmon/internal/adapter/metrics"
	ws "github.com/pscheid92/webmon/internal/adapter/websocket"
	"github.com/pscheid92/webmon/internal/platform/config"
	"github.com/prometheus/client_golang/prometheus"
)

// bridgeService is the part of the bridge the HTTP surface talks to.
type bridgeService interface {
	ws.ViewerHandler
	ProducerAttached() bool
	ProducerAlive() bool
}

// viewerHub serves upgraded viewer connections.
type viewerHub interface {
	ServeViewer(ctx context.Context, conn *websocket.Conn, handler ws.ViewerHandler) error
	ClientCount() int
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	bridge   bridgeService
	hub      viewerHub
	upgrader websocket.Upgrader
	limits   *ConnectionLimits

	registry     *prometheus.Registry
	httpMetrics  *metrics.HTTPMetrics
	wsMetrics    *metrics.WebSocketMetrics
	healthChecks []HealthCheck
	startTime    time.Time

	shutdownOnce      sync.Once
	shutdownRequested chan struct{}
}

func NewServer(cfg *config.Config, bridge bridgeService, hub viewerHub, reg *prometheus.Registry, httpMetrics *metrics.HTTPMetrics, wsMetrics *metrics.WebSocketMetrics, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:   e,
		config: cfg,
		bridge: bridge,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     ws.NewCheckOrigin(cfg.AppURL, cfg.IsDevelopment()),
		},
		limits:            NewConnectionLimits(int64(cfg.MaxViewers), cfg.MaxViewersPerIP, cfg.ViewerConnectRate, cfg.ViewerConnectBurst),
		registry:          reg,
		httpMetrics:       httpMetrics,
		wsMetrics:         wsMetrics,
		healthChecks:      healthChecks,
		startTime:         time.Now(),
		shutdownRequested: make(chan struct{}),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ShutdownRequested is closed when the producer-gone notification arrives.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdownRequested
}

// ServeHTTP exposes the router, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

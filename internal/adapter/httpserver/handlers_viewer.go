package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	ws "github.com/pscheid92/webmon/internal/adapter/websocket"
)

func (s *Server) handleWebSocket(c echo.Context) error {
	ctx := c.Request().Context()
	ip := c.RealIP()

	ok, reason := s.limits.Acquire(ip)
	if !ok {
		s.wsMetrics.Reject(string(reason))
		slog.WarnContext(ctx, "Viewer connection rejected", "ip", ip, "reason", reason)
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many viewer connections")
	}
	defer s.limits.Release(ip)

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		slog.DebugContext(ctx, "Failed to upgrade viewer connection", "error", err)
		return nil
	}

	if err := s.hub.ServeViewer(ctx, conn, s.bridge); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, ws.ErrHubStopped) {
			level = slog.LevelDebug
		}
		slog.Log(ctx, level, "Viewer session ended with error", "ip", ip, "error", err)
	}
	return nil
}

package httpserver

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/webmon/internal/domain"
	apperrors "github.com/pscheid92/webmon/internal/platform/errors"
)

const maxCommandBodySize = 64 * 1024

func (s *Server) handleSubmitCommand(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCommandBodySize+1))
	if err != nil {
		return apperrors.ValidationError("failed to read request body")
	}
	if len(body) > maxCommandBodySize {
		return apperrors.ValidationError("command too large").WithField("max_bytes", maxCommandBodySize)
	}

	obj, err := domain.DecodeObject(body)
	if err != nil {
		return apperrors.ValidationError("command must be a JSON object")
	}

	if !s.bridge.ProducerAttached() {
		return apperrors.UnavailableError("no producer attached", nil)
	}

	s.bridge.SubmitCommand(domain.Command(obj))

	if err := c.JSON(http.StatusAccepted, map[string]string{"status": "queued"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleFlushCharts(c echo.Context) error {
	bucket := s.bridge.FlushCharts()

	if err := c.JSON(http.StatusOK, bucket); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleGetSnapshot(c echo.Context) error {
	snap, ok := s.bridge.CurrentSnapshot()
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}

	if err := c.JSON(http.StatusOK, snap); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// handleShutdown receives the producer-gone notification and asks the
// process to stop. Repeated calls are accepted and ignored.
func (s *Server) handleShutdown(c echo.Context) error {
	first := false
	s.shutdownOnce.Do(func() {
		first = true
		close(s.shutdownRequested)
	})

	if first {
		slog.InfoContext(c.Request().Context(), "Shutdown requested")
	}

	if err := c.JSON(http.StatusAccepted, map[string]string{"status": "shutting_down"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

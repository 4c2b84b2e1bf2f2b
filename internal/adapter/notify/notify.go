// Package notify tells the HTTP surface that the producer is gone.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pscheid92/webmon/internal/platform/correlation"
)

const (
	defaultTimeout      = 2 * time.Second
	correlationIDHeader = "X-Correlation-ID"
)

// HTTPNotifier posts an empty request to a shutdown endpoint.
type HTTPNotifier struct {
	url    string
	client *http.Client
}

func NewHTTPNotifier(url string, client *http.Client) *HTTPNotifier {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPNotifier{url: url, client: client}
}

// Notify delivers one notification. Any non-2xx answer is an error.
func (n *HTTPNotifier) Notify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build shutdown request: %w", err)
	}
	if id, ok := correlation.ID(ctx); ok {
		req.Header.Set(correlationIDHeader, id)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to notify %s: %w", n.url, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("shutdown endpoint %s answered %d", n.url, resp.StatusCode)
	}

	slog.DebugContext(ctx, "Shutdown notification delivered", "url", n.url, "status", resp.StatusCode)
	return nil
}

package bridge

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pscheid92/webmon/internal/adapter/metrics"
	"github.com/pscheid92/webmon/internal/platform/correlation"
)

// Notifier tells the hosting transport layer to stop serving.
type Notifier func(ctx context.Context) error

const defaultNotifyTimeout = 5 * time.Second

// ShutdownCoordinator owns the producer liveness flag. The first ProducerGone call
// flips it and fires the notifier; later calls do nothing.
type ShutdownCoordinator struct {
	notify        Notifier
	notifyTimeout time.Duration
	metrics       *metrics.BridgeMetrics

	alive    atomic.Bool
	once     sync.Once
	gone     chan struct{}
	cause    error
	notified chan struct{}
}

// NewShutdownCoordinator starts alive only when a producer is attached. A nil notify is allowed.
func NewShutdownCoordinator(attached bool, notify Notifier, notifyTimeout time.Duration, m *metrics.BridgeMetrics) *ShutdownCoordinator {
	if notifyTimeout <= 0 {
		notifyTimeout = defaultNotifyTimeout
	}
	c := &ShutdownCoordinator{
		notify:        notify,
		notifyTimeout: notifyTimeout,
		metrics:       m,
		gone:          make(chan struct{}),
		notified:      make(chan struct{}),
	}
	c.alive.Store(attached)
	m.SetProducerAlive(attached)
	return c
}

// Alive reports whether producer operations may still be attempted.
func (c *ShutdownCoordinator) Alive() bool {
	return c.alive.Load()
}

// ProducerGone marks the producer as permanently unavailable. cause is recorded for
// diagnostics and may be nil for a cooperative shutdown request.
func (c *ShutdownCoordinator) ProducerGone(ctx context.Context, cause error) {
	c.once.Do(func() {
		c.cause = cause
		c.alive.Store(false)
		c.metrics.SetProducerAlive(false)
		close(c.gone)

		if cause != nil {
			slog.WarnContext(ctx, "Producer gone, shutting down", "error", cause)
		} else {
			slog.InfoContext(ctx, "Producer requested shutdown")
		}

		id, _ := correlation.ID(ctx)
		go c.fireNotify(id)
	})
}

func (c *ShutdownCoordinator) fireNotify(correlationID string) {
	defer close(c.notified)
	if c.notify == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.notifyTimeout)
	defer cancel()
	if correlationID != "" {
		ctx = correlation.WithID(ctx, correlationID)
	}

	if err := c.notify(ctx); err != nil {
		slog.ErrorContext(ctx, "Shutdown notification failed", "error", err)
		return
	}
	slog.InfoContext(ctx, "Shutdown notification sent")
}

// Gone is closed when the producer has been declared gone.
func (c *ShutdownCoordinator) Gone() <-chan struct{} {
	return c.gone
}

// Cause returns the error passed to the first ProducerGone call. Only meaningful after Gone is closed.
func (c *ShutdownCoordinator) Cause() error {
	select {
	case <-c.gone:
		return c.cause
	default:
		return nil
	}
}

// Notified is closed once the notifier has returned.
func (c *ShutdownCoordinator) Notified() <-chan struct{} {
	return c.notified
}

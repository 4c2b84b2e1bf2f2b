package bridge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/webmon/internal/adapter/metrics"
	"github.com/pscheid92/webmon/internal/domain"
)

// Options configures a Bridge. Zero values fall back to the package defaults.
type Options struct {
	TickInterval  time.Duration
	OpTimeout     time.Duration
	ChartKinds    []string
	NotifyTimeout time.Duration

	// OnProducerGone is invoked once, asynchronously, when the producer is lost.
	OnProducerGone Notifier

	Clock   clockwork.Clock
	Metrics *metrics.BridgeMetrics
}

// Bridge is the surface the transport layer talks to. All methods are safe for concurrent use.
type Bridge struct {
	attached bool
	queue    *CommandQueue
	charts   *ChartAggregator
	dedup    *SnapshotDeduper
	shutdown *ShutdownCoordinator
	poll     *PollCycle
	loop     *Supervisor
	metrics  *metrics.BridgeMetrics

	ctx    context.Context
	cancel context.CancelFunc
}

// New wires a bridge around producer. Pass a nil producer to run without one: commands are
// still accepted and viewers can connect, but every tick is a no-op.
func New(producer domain.Producer, out domain.Broadcaster, opts Options) *Bridge {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}
	if opts.ChartKinds == nil {
		opts.ChartKinds = DefaultChartKinds
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	attached := producer != nil
	b := &Bridge{
		attached: attached,
		queue:    NewCommandQueue(),
		charts:   NewChartAggregator(opts.ChartKinds),
		dedup:    NewSnapshotDeduper(),
		shutdown: NewShutdownCoordinator(attached, opts.OnProducerGone, opts.NotifyTimeout, opts.Metrics),
		metrics:  opts.Metrics,
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())

	b.poll = &PollCycle{
		producer:  producer,
		out:       out,
		queue:     b.queue,
		charts:    b.charts,
		dedup:     b.dedup,
		shutdown:  b.shutdown,
		clock:     opts.Clock,
		interval:  opts.TickInterval,
		opTimeout: opts.OpTimeout,
		metrics:   opts.Metrics,
	}
	b.loop = NewSupervisor(b.poll.Run)

	if !attached {
		slog.Warn("No producer attached, running in degraded mode")
	}
	return b
}

// SubmitCommand queues cmd for delivery on the next tick. It never blocks on the producer
// and never fails, even when no producer is attached.
func (b *Bridge) SubmitCommand(cmd domain.Command) {
	b.queue.Enqueue(cmd)
	b.metrics.SetQueueDepth(b.queue.Len())
}

// OnViewerConnected starts the poll loop on the first call. Later calls are no-ops.
func (b *Bridge) OnViewerConnected() {
	if b.loop.Start(b.ctx) {
		slog.Info("First viewer connected, poll loop started")
	}
}

// FlushCharts returns and clears every chart bucket.
func (b *Bridge) FlushCharts() domain.ChartBucket {
	b.metrics.ChartFlushed()
	return b.charts.Flush()
}

// CurrentSnapshot returns the last snapshot broadcast to viewers.
func (b *Bridge) CurrentSnapshot() (domain.Snapshot, bool) {
	return b.dedup.Last()
}

// ProducerAttached reports whether the bridge was built with a producer.
func (b *Bridge) ProducerAttached() bool {
	return b.attached
}

// ProducerAlive reports whether producer operations are still being attempted.
func (b *Bridge) ProducerAlive() bool {
	return b.shutdown.Alive()
}

// ProducerGone is closed once the producer requested shutdown or was lost.
func (b *Bridge) ProducerGone() <-chan struct{} {
	return b.shutdown.Gone()
}

// Ready fails once the producer has been declared gone. A bridge without a producer stays ready.
func (b *Bridge) Ready(_ context.Context) error {
	select {
	case <-b.shutdown.Gone():
		if cause := b.shutdown.Cause(); cause != nil {
			return cause
		}
		return errors.New("producer requested shutdown")
	default:
		return nil
	}
}

// Stop cancels the poll loop and waits for it to return, or until ctx is done.
func (b *Bridge) Stop(ctx context.Context) error {
	b.cancel()
	if !b.loop.Started() {
		return nil
	}
	select {
	case <-b.loop.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/webmon/internal/adapter/metrics"
	"github.com/pscheid92/webmon/internal/domain"
	"github.com/pscheid92/webmon/internal/platform/correlation"
)

const (
	// DefaultTickInterval is roughly one frame at 60 Hz.
	DefaultTickInterval = 16700 * time.Microsecond
	// DefaultOpTimeout bounds a single producer call so a stalled producer cannot stall the loop forever.
	DefaultOpTimeout = time.Second
)

// PollCycle performs one relay pass per tick. Only the poll loop goroutine calls tick.
type PollCycle struct {
	producer  domain.Producer
	out       domain.Broadcaster
	queue     *CommandQueue
	charts    *ChartAggregator
	dedup     *SnapshotDeduper
	shutdown  *ShutdownCoordinator
	clock     clockwork.Clock
	interval  time.Duration
	opTimeout time.Duration
	metrics   *metrics.BridgeMetrics
}

// Run ticks every interval until ctx is cancelled. A panicking tick is logged and the loop continues.
func (p *PollCycle) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.safeTick(ctx)
		}
	}
}

func (p *PollCycle) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Poll tick panicked", "panic", fmt.Sprint(r))
		}
	}()
	p.tick(ctx)
}

func (p *PollCycle) tick(ctx context.Context) {
	if !p.shutdown.Alive() {
		return
	}

	start := p.clock.Now()
	tickCtx := correlation.WithNewID(ctx)
	defer func() {
		p.metrics.ObserveTick(p.clock.Since(start))
		p.metrics.SetQueueDepth(p.queue.Len())
	}()

	if p.checkShutdown(tickCtx) {
		return
	}
	if p.forwardCommands(tickCtx) {
		return
	}
	if p.relayMessages(tickCtx) {
		return
	}
	p.emitSnapshot(tickCtx)
}

// lost reports whether err means the producer is gone, and if so triggers shutdown.
func (p *PollCycle) lost(ctx context.Context, err error) bool {
	if !errors.Is(err, domain.ErrProducerGone) {
		return false
	}
	p.shutdown.ProducerGone(ctx, err)
	return true
}

func (p *PollCycle) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.opTimeout)
}

func (p *PollCycle) checkShutdown(ctx context.Context) bool {
	opCtx, cancel := p.opContext(ctx)
	requested, err := p.producer.ShutdownRequested(opCtx)
	cancel()

	if err != nil {
		if p.lost(ctx, err) {
			return true
		}
		slog.WarnContext(ctx, "Shutdown flag check failed", "error", err)
		return false
	}
	if requested {
		p.shutdown.ProducerGone(ctx, nil)
		return true
	}
	return false
}

func (p *PollCycle) forwardCommands(ctx context.Context) bool {
	cmds := p.queue.DrainAll()
	for i, cmd := range cmds {
		opCtx, cancel := p.opContext(ctx)
		err := p.producer.TrySendCommand(opCtx, cmd)
		cancel()

		if err == nil {
			p.metrics.CommandForwarded()
			continue
		}

		p.metrics.CommandFailed()
		if p.lost(ctx, err) {
			if rest := len(cmds) - i - 1; rest > 0 {
				slog.WarnContext(ctx, "Dropping commands after producer loss", "count", rest)
			}
			return true
		}
		slog.WarnContext(ctx, "Command not delivered", "error", err)
	}

	if len(cmds) > 0 {
		slog.DebugContext(ctx, "Forwarded commands", "count", len(cmds))
	}
	return false
}

func (p *PollCycle) relayMessages(ctx context.Context) bool {
	for ctx.Err() == nil {
		opCtx, cancel := p.opContext(ctx)
		msg, ok, err := p.producer.TryReceiveMessage(opCtx)
		cancel()

		if err != nil {
			if p.lost(ctx, err) {
				return true
			}
			if errors.Is(err, domain.ErrMalformedPayload) {
				slog.DebugContext(ctx, "Dropping malformed message", "error", err)
				p.metrics.MessageRouted(metrics.RouteDropped)
				continue
			}
			slog.WarnContext(ctx, "Message receive failed", "error", err)
			return false
		}
		if !ok {
			return false
		}

		p.route(ctx, msg)
	}
	return false
}

func (p *PollCycle) route(ctx context.Context, msg domain.Message) {
	if len(msg) == 0 {
		p.metrics.MessageRouted(metrics.RouteDropped)
		return
	}
	if p.charts.Record(msg) {
		p.metrics.MessageRouted(metrics.RouteChart)
		return
	}

	if err := p.out.Broadcast(domain.EventMessage, msg); err != nil {
		slog.WarnContext(ctx, "Message broadcast failed", "error", err)
		p.metrics.MessageRouted(metrics.RouteDropped)
		return
	}
	p.metrics.MessageRouted(metrics.RoutePassThrough)
}

func (p *PollCycle) emitSnapshot(ctx context.Context) {
	opCtx, cancel := p.opContext(ctx)
	snap, ok, err := p.producer.ReadSnapshot(opCtx)
	cancel()

	if err != nil {
		if p.lost(ctx, err) {
			return
		}
		slog.WarnContext(ctx, "Snapshot read failed", "error", err)
		return
	}
	if !ok {
		return
	}

	emit, err := p.dedup.ShouldEmit(snap)
	if err != nil {
		slog.WarnContext(ctx, "Dropping unencodable snapshot", "error", err)
		return
	}
	if !emit {
		p.metrics.SnapshotSuppressed()
		return
	}

	if err := p.out.Broadcast(domain.EventSnapshot, snap); err != nil {
		slog.WarnContext(ctx, "Snapshot broadcast failed", "error", err)
		return
	}
	p.metrics.SnapshotEmitted()
}

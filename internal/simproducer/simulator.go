// Package simproducer is a stand-in producer for local development. It writes
// state into the shared Redis keys the bridge polls and answers commands.
package simproducer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/webmon/internal/domain"
)

const (
	DefaultInterval = 100 * time.Millisecond

	chunkEvery = 10
	logEvery   = 50

	// ActionQuit makes the simulator request shutdown and stop.
	ActionQuit = "quit"
	// ActionPause freezes the published state until ActionResume.
	ActionPause  = "pause"
	ActionResume = "resume"
)

// Emitter is the write side of the shared resource.
type Emitter interface {
	PublishSnapshot(ctx context.Context, s domain.Snapshot) error
	Emit(ctx context.Context, msg domain.Message) error
	NextCommand(ctx context.Context) (domain.Command, bool, error)
	RequestShutdown(ctx context.Context) error
	Reset(ctx context.Context) error
}

type Simulator struct {
	emitter  Emitter
	clock    clockwork.Clock
	interval time.Duration

	tick   int
	paused bool
	loaded int
}

func New(emitter Emitter, clock clockwork.Clock, interval time.Duration) *Simulator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Simulator{emitter: emitter, clock: clock, interval: interval}
}

// Run clears stale state, then advances one step per interval until ctx is
// cancelled or a quit command arrives. Either way it sets the shutdown flag.
func (s *Simulator) Run(ctx context.Context) error {
	if err := s.emitter.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset producer keys: %w", err)
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Simulated producer started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			return s.shutdown()
		case <-ticker.Chan():
			quit, err := s.Step(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Simulation step failed", "tick", s.tick, "error", err)
				continue
			}
			if quit {
				return s.shutdown()
			}
		}
	}
}

// Step handles pending commands and, unless paused, publishes one frame.
// It reports true once a quit command was seen.
func (s *Simulator) Step(ctx context.Context) (bool, error) {
	quit, err := s.drainCommands(ctx)
	if err != nil || quit {
		return quit, err
	}
	if s.paused {
		return false, nil
	}

	s.tick++

	if err := s.emitter.Emit(ctx, domain.Message{"frame_time": frameTime(s.tick)}); err != nil {
		return false, fmt.Errorf("failed to emit frame time: %w", err)
	}
	if s.tick%chunkEvery == 0 {
		s.loaded++
		if err := s.emitter.Emit(ctx, domain.Message{"chunk_loaded": s.loaded}); err != nil {
			return false, fmt.Errorf("failed to emit chunk: %w", err)
		}
	}
	if s.tick%logEvery == 0 {
		if err := s.emitter.Emit(ctx, domain.Message{"log": fmt.Sprintf("reached tick %d", s.tick)}); err != nil {
			return false, fmt.Errorf("failed to emit log line: %w", err)
		}
	}

	if err := s.emitter.PublishSnapshot(ctx, s.snapshot()); err != nil {
		return false, fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return false, nil
}

func (s *Simulator) drainCommands(ctx context.Context) (bool, error) {
	for {
		cmd, ok, err := s.emitter.NextCommand(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}

		action, _ := cmd["action"].(string)
		slog.InfoContext(ctx, "Command received", "action", action)

		switch action {
		case ActionQuit:
			return true, nil
		case ActionPause:
			s.paused = true
		case ActionResume:
			s.paused = false
		}

		if err := s.emitter.Emit(ctx, domain.Message{"command_ack": map[string]any(cmd)}); err != nil {
			return false, fmt.Errorf("failed to acknowledge command: %w", err)
		}
		// A paused producer still publishes once so viewers see the flag flip.
		if err := s.emitter.PublishSnapshot(ctx, s.snapshot()); err != nil {
			return false, fmt.Errorf("failed to publish snapshot: %w", err)
		}
	}
}

func (s *Simulator) snapshot() domain.Snapshot {
	return domain.Snapshot{
		"tick":          s.tick,
		"paused":        s.paused,
		"chunks_loaded": s.loaded,
	}
}

func (s *Simulator) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.emitter.RequestShutdown(ctx); err != nil {
		return fmt.Errorf("failed to set shutdown flag: %w", err)
	}
	slog.InfoContext(ctx, "Simulated producer stopped", "tick", s.tick)
	return nil
}

// frameTime produces a repeating 14..20 ms sawtooth.
func frameTime(tick int) float64 {
	return 14 + float64(tick%7)
}

package bridge

import (
	"context"
	"log/slog"
	"sync"
)

// Supervisor starts a long-running loop at most once, however many goroutines race to start it.
type Supervisor struct {
	run func(ctx context.Context)

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

func NewSupervisor(run func(ctx context.Context)) *Supervisor {
	return &Supervisor{
		run:  run,
		done: make(chan struct{}),
	}
}

// Start launches the loop if it is not running yet and reports whether this call launched it.
// The loop runs until ctx is cancelled.
func (s *Supervisor) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return false
	}
	s.started = true

	go func() {
		defer close(s.done)
		s.run(ctx)
		slog.InfoContext(ctx, "Poll loop stopped")
	}()
	return true
}

func (s *Supervisor) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Done is closed once a started loop has returned. It never closes if the loop was never started.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

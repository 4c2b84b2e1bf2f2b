package bridge

import (
	"sync"

	"github.com/pscheid92/webmon/internal/domain"
)

// CommandQueue is an unbounded FIFO of commands waiting for the next tick.
// Enqueue is safe from any goroutine; DrainAll is called by the poll loop only.
type CommandQueue struct {
	mu      sync.Mutex
	pending []domain.Command
}

func NewCommandQueue() *CommandQueue {
	return &CommandQueue{}
}

func (q *CommandQueue) Enqueue(cmd domain.Command) {
	q.mu.Lock()
	q.pending = append(q.pending, cmd)
	q.mu.Unlock()
}

// DrainAll removes and returns every queued command in submission order.
// It returns an empty slice when nothing is queued.
func (q *CommandQueue) DrainAll() []domain.Command {
	q.mu.Lock()
	drained := q.pending
	q.pending = nil
	q.mu.Unlock()

	if drained == nil {
		return []domain.Command{}
	}
	return drained
}

func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

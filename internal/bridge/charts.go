package bridge

import (
	"slices"
	"sync"

	"github.com/pscheid92/webmon/internal/domain"
)

// DefaultChartKinds are the message keys batched for on-demand delivery.
var DefaultChartKinds = []string{"frame_time", "chunk_loaded"}

// ChartAggregator buckets high-frequency producer messages by chart kind until a
// viewer asks for them. The poll loop appends while viewer goroutines flush, so
// both sides go through mu and Flush swaps the whole map.
type ChartAggregator struct {
	kinds []string

	mu      sync.Mutex
	buckets map[string][]any
}

// NewChartAggregator recognizes kinds in the given order; the first kind present
// in a message claims it.
func NewChartAggregator(kinds []string) *ChartAggregator {
	return &ChartAggregator{
		kinds:   slices.Clone(kinds),
		buckets: make(map[string][]any, len(kinds)),
	}
}

func (a *ChartAggregator) Kinds() []string {
	return slices.Clone(a.kinds)
}

// Classify returns the chart kind and payload of msg, or ok=false for a pass-through message.
func (a *ChartAggregator) Classify(msg domain.Message) (kind string, payload any, ok bool) {
	for _, k := range a.kinds {
		if v, present := msg[k]; present {
			return k, v, true
		}
	}
	return "", nil, false
}

// Record appends msg's payload to its bucket and reports whether msg was a chart message.
func (a *ChartAggregator) Record(msg domain.Message) bool {
	kind, payload, ok := a.Classify(msg)
	if !ok {
		return false
	}

	a.mu.Lock()
	a.buckets[kind] = append(a.buckets[kind], payload)
	a.mu.Unlock()
	return true
}

// Flush returns everything recorded since the previous flush and empties the buckets.
// Every recognized kind is present in the result, with an empty slice when nothing arrived.
func (a *ChartAggregator) Flush() domain.ChartBucket {
	a.mu.Lock()
	taken := a.buckets
	a.buckets = make(map[string][]any, len(a.kinds))
	a.mu.Unlock()

	out := make(domain.ChartBucket, len(a.kinds))
	for _, k := range a.kinds {
		values := taken[k]
		if values == nil {
			values = []any{}
		}
		out[k] = values
	}
	return out
}

// Pending returns the number of recorded values not yet flushed.
func (a *ChartAggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, values := range a.buckets {
		n += len(values)
	}
	return n
}

package bridge

import (
	"sync"
	"testing"

	"github.com/pscheid92/webmon/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartAggregator_RecordAndFlush(t *testing.T) {
	a := NewChartAggregator(DefaultChartKinds)

	assert.True(t, a.Record(domain.Message{"frame_time": map[string]any{"ms": 16.2}}))
	assert.True(t, a.Record(domain.Message{"chunk_loaded": map[string]any{"ms": 4.0}}))

	got := a.Flush()
	require.Len(t, got["frame_time"], 1)
	require.Len(t, got["chunk_loaded"], 1)
	assert.Equal(t, map[string]any{"ms": 16.2}, got["frame_time"][0])

	again := a.Flush()
	assert.Equal(t, domain.ChartBucket{"frame_time": {}, "chunk_loaded": {}}, again)
}

func TestChartAggregator_PassThroughNotRecorded(t *testing.T) {
	a := NewChartAggregator(DefaultChartKinds)

	assert.False(t, a.Record(domain.Message{"log": "hello"}))
	assert.False(t, a.Record(domain.Message{}))
	assert.Equal(t, 0, a.Pending())
}

func TestChartAggregator_FirstConfiguredKindWins(t *testing.T) {
	a := NewChartAggregator([]string{"chunk_loaded", "frame_time"})

	msg := domain.Message{"frame_time": 1.0, "chunk_loaded": 2.0}
	kind, payload, ok := a.Classify(msg)
	require.True(t, ok)
	assert.Equal(t, "chunk_loaded", kind)
	assert.Equal(t, 2.0, payload)

	a.Record(msg)
	got := a.Flush()
	assert.Equal(t, []any{2.0}, got["chunk_loaded"])
	assert.Empty(t, got["frame_time"])
}

func TestChartAggregator_PreservesOrderWithinKind(t *testing.T) {
	a := NewChartAggregator(DefaultChartKinds)
	for i := range 5 {
		a.Record(domain.Message{"frame_time": i})
	}

	assert.Equal(t, []any{0, 1, 2, 3, 4}, a.Flush()["frame_time"])
}

func TestChartAggregator_KindsIsACopy(t *testing.T) {
	kinds := []string{"frame_time"}
	a := NewChartAggregator(kinds)
	kinds[0] = "mutated"

	got := a.Kinds()
	got[0] = "also_mutated"
	assert.Equal(t, []string{"frame_time"}, a.Kinds())
}

func TestChartAggregator_FlushConcurrentWithRecord(t *testing.T) {
	a := NewChartAggregator(DefaultChartKinds)

	const total = 5000
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := range total {
			a.Record(domain.Message{"frame_time": i})
		}
	}()

	var mu sync.Mutex
	seen := make(map[int]int)
	collect := func(b domain.ChartBucket) {
		mu.Lock()
		defer mu.Unlock()
		for _, v := range b["frame_time"] {
			seen[v.(int)]++
		}
	}

	for flushing := true; flushing; {
		select {
		case <-done:
			flushing = false
		default:
			collect(a.Flush())
		}
	}
	wg.Wait()
	collect(a.Flush())

	require.Len(t, seen, total)
	for v, n := range seen {
		if n != 1 {
			t.Fatalf("value %d flushed %d times", v, n)
		}
	}
}

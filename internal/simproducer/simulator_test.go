package simproducer

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/webmon/internal/adapter/producer"
	"github.com/pscheid92/webmon/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrefix = "sim"

func setupSimulator(t *testing.T) (*Simulator, *miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sim := New(producer.NewEmitter(rdb, testPrefix), clockwork.NewFakeClock(), 0)
	return sim, mr, rdb
}

func messages(t *testing.T, mr *miniredis.Miniredis) []string {
	t.Helper()
	if !mr.Exists(testPrefix + ":messages") {
		return nil
	}
	list, err := mr.List(testPrefix + ":messages")
	require.NoError(t, err)
	return list
}

func TestStep_PublishesFrameAndSnapshot(t *testing.T) {
	sim, mr, _ := setupSimulator(t)
	ctx := context.Background()

	quit, err := sim.Step(ctx)
	require.NoError(t, err)
	assert.False(t, quit)

	msgs := messages(t, mr)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"frame_time":15}`, msgs[0])

	snap, err := mr.Get(testPrefix + ":snapshot")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tick":1,"paused":false,"chunks_loaded":0}`, snap)
}

func TestStep_EmitsChunksAndLogsPeriodically(t *testing.T) {
	sim, mr, _ := setupSimulator(t)
	ctx := context.Background()

	for range logEvery {
		_, err := sim.Step(ctx)
		require.NoError(t, err)
	}

	var chunks, logs int
	for _, m := range messages(t, mr) {
		obj, err := domain.DecodeObject([]byte(m))
		require.NoError(t, err)
		if _, ok := obj["chunk_loaded"]; ok {
			chunks++
		}
		if _, ok := obj["log"]; ok {
			logs++
		}
	}
	assert.Equal(t, logEvery/chunkEvery, chunks)
	assert.Equal(t, 1, logs)
}

func TestStep_PauseAndResume(t *testing.T) {
	sim, mr, _ := setupSimulator(t)
	ctx := context.Background()

	_, err := mr.Lpush(testPrefix+":commands", `{"action":"pause"}`)
	require.NoError(t, err)

	_, err = sim.Step(ctx)
	require.NoError(t, err)
	_, err = sim.Step(ctx)
	require.NoError(t, err)

	snap, err := mr.Get(testPrefix + ":snapshot")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tick":0,"paused":true,"chunks_loaded":0}`, snap)

	msgs := messages(t, mr)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"command_ack":{"action":"pause"}}`, msgs[0])

	_, err = mr.Lpush(testPrefix+":commands", `{"action":"resume"}`)
	require.NoError(t, err)
	_, err = sim.Step(ctx)
	require.NoError(t, err)

	snap, err = mr.Get(testPrefix + ":snapshot")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tick":1,"paused":false,"chunks_loaded":0}`, snap)
}

func TestRun_QuitCommandSetsShutdownFlag(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	clock := clockwork.NewFakeClock()
	sim := New(producer.NewEmitter(rdb, testPrefix), clock, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	_, err := mr.Lpush(testPrefix+":commands", `{"action":"quit"}`)
	require.NoError(t, err)
	clock.Advance(50 * time.Millisecond)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("simulator did not stop on quit")
	}
	assert.True(t, mr.Exists(testPrefix+":shutdown"))
}

func TestRun_CancelSetsShutdownFlagAndResetClearsOldOne(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set(testPrefix+":shutdown", "1"))
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	clock := clockwork.NewFakeClock()
	sim := New(producer.NewEmitter(rdb, testPrefix), clock, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	assert.False(t, mr.Exists(testPrefix+":shutdown"))

	cancel()
	require.NoError(t, <-done)
	assert.True(t, mr.Exists(testPrefix+":shutdown"))
}

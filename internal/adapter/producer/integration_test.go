package producer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pscheid92/webmon/internal/domain"
	"github.com/pscheid92/webmon/internal/platform/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	containerOnce sync.Once
	containerURL  string
	containerErr  error
)

// redisContainerURL starts one Redis container for the package on first use.
func redisContainerURL(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		container, err := tcredis.Run(ctx, "redis:7-alpine",
			testcontainers.WithWaitStrategy(
				wait.ForLog("Ready to accept connections").
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			containerErr = err
			return
		}
		endpoint, err := container.Endpoint(ctx, "")
		if err != nil {
			containerErr = err
			return
		}
		containerURL = "redis://" + endpoint
	})
	if containerErr != nil {
		t.Skipf("redis container unavailable: %v", containerErr)
	}
	return containerURL
}

func TestConnector_Integration_RoundTrip(t *testing.T) {
	url := redisContainerURL(t)
	ctx := context.Background()

	c, err := Connect(ctx, ClientConfig{RedisURL: url, KeyPrefix: "it"}, retry.Policy{MaxAttempts: 3}, nil)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	em := NewEmitter(c.rdb, "it")
	require.NoError(t, em.Reset(ctx))

	require.NoError(t, em.PublishSnapshot(ctx, domain.Snapshot{"tick": 1}))
	require.NoError(t, em.Emit(ctx, domain.Message{"chunk_loaded": map[string]any{"ms": 2}}))
	require.NoError(t, c.TrySendCommand(ctx, domain.Command{"op": "pause"}))

	snap, ok, err := c.ReadSnapshot(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.0, snap["tick"])

	msg, ok, err := c.TryReceiveMessage(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, msg, "chunk_loaded")

	cmd, ok, err := em.NextCommand(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pause", cmd["op"])

	require.NoError(t, em.RequestShutdown(ctx))
	requested, err := c.ShutdownRequested(ctx)
	require.NoError(t, err)
	assert.True(t, requested)
}

package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/webmon/internal/adapter/metrics"
	"github.com/pscheid92/webmon/internal/domain"
	"github.com/pscheid92/webmon/internal/platform/retry"
	goredis "github.com/redis/go-redis/v9"
)

// Connector implements domain.Producer over a shared Redis instance.
type Connector struct {
	rdb  *goredis.Client
	keys keys
}

var _ domain.Producer = (*Connector)(nil)

// Connect dials the producer's Redis and pings it under policy. The returned error means
// the producer is unreachable and the bridge should run without one.
func Connect(ctx context.Context, cfg ClientConfig, policy retry.Policy, m *metrics.RedisMetrics) (*Connector, error) {
	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse producer redis URL: %w", err)
	}
	// The poll loop never waits on the producer; retries are the caller's concern.
	opts.MaxRetries = -1

	rdb := goredis.NewClient(opts)
	if m != nil {
		rdb.AddHook(&MetricsHook{metrics: m})
	}

	if policy.OnRetry == nil {
		policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
			slog.WarnContext(ctx, "Producer ping failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		}
	}
	err = retry.DoVoid(ctx, policy, classifyConnectError, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to reach producer at %s: %w", opts.Addr, err)
	}

	slog.InfoContext(ctx, "Producer connected", "addr", opts.Addr, "key_prefix", cfg.KeyPrefix)
	return newConnector(rdb, cfg.KeyPrefix), nil
}

func newConnector(rdb *goredis.Client, prefix string) *Connector {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Connector{rdb: rdb, keys: newKeys(prefix)}
}

func (c *Connector) ReadSnapshot(ctx context.Context) (domain.Snapshot, bool, error) {
	raw, err := c.rdb.Get(ctx, c.keys.snapshot).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrapOpError("read snapshot", err)
	}

	obj, err := domain.DecodeObject(raw)
	if err != nil {
		return nil, false, fmt.Errorf("read snapshot: %w", err)
	}
	return domain.Snapshot(obj), true, nil
}

func (c *Connector) TrySendCommand(ctx context.Context, cmd domain.Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("send command: %w: %w", domain.ErrMalformedPayload, err)
	}
	if err := c.rdb.RPush(ctx, c.keys.commands, data).Err(); err != nil {
		return wrapOpError("send command", err)
	}
	return nil
}

func (c *Connector) TryReceiveMessage(ctx context.Context) (domain.Message, bool, error) {
	raw, err := c.rdb.LPop(ctx, c.keys.messages).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrapOpError("receive message", err)
	}

	obj, err := domain.DecodeObject(raw)
	if err != nil {
		return nil, false, fmt.Errorf("receive message: %w", err)
	}
	return domain.Message(obj), true, nil
}

func (c *Connector) ShutdownRequested(ctx context.Context) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.keys.shutdown).Result()
	if err != nil {
		return false, wrapOpError("check shutdown flag", err)
	}
	return n > 0, nil
}

// Ping verifies the Redis connection.
func (c *Connector) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return wrapOpError("ping", err)
	}
	return nil
}

func (c *Connector) Close() error {
	return c.rdb.Close()
}

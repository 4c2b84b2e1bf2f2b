package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pscheid92/webmon/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Emitter is the producer's side of the key layout. A producer written in Go uses it to
// publish state and consume commands; cmd/simproducer uses it.
type Emitter struct {
	rdb  *goredis.Client
	keys keys
}

func NewEmitter(rdb *goredis.Client, prefix string) *Emitter {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Emitter{rdb: rdb, keys: newKeys(prefix)}
}

// PublishSnapshot replaces the current snapshot.
func (e *Emitter) PublishSnapshot(ctx context.Context, s domain.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return e.rdb.Set(ctx, e.keys.snapshot, data, 0).Err()
}

// Emit appends a message for the bridge.
func (e *Emitter) Emit(ctx context.Context, msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return e.rdb.RPush(ctx, e.keys.messages, data).Err()
}

// NextCommand pops the oldest pending command, reporting false when none is queued.
func (e *Emitter) NextCommand(ctx context.Context) (domain.Command, bool, error) {
	raw, err := e.rdb.LPop(ctx, e.keys.commands).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to pop command: %w", err)
	}
	obj, err := domain.DecodeObject(raw)
	if err != nil {
		return nil, false, err
	}
	return domain.Command(obj), true, nil
}

// RequestShutdown sets the flag telling the bridge the producer is exiting.
func (e *Emitter) RequestShutdown(ctx context.Context) error {
	return e.rdb.Set(ctx, e.keys.shutdown, "1", 0).Err()
}

// Reset clears every key, including a previous shutdown flag.
func (e *Emitter) Reset(ctx context.Context) error {
	return e.rdb.Del(ctx, e.keys.snapshot, e.keys.commands, e.keys.messages, e.keys.shutdown).Err()
}

package bridge

import (
	"context"
	"sync"

	"github.com/pscheid92/webmon/internal/domain"
)

type fakeProducer struct {
	mu sync.Mutex

	snapshots    []domain.Snapshot
	snapshotErr  error
	messages     []domain.Message
	messageErrs  []error
	sent         []domain.Command
	sendErr      func(domain.Command) error
	shutdown     bool
	shutdownErr  error
	blockOnRead  bool
	panicOnRead  bool
	calls        int
	snapshotRead int
}

func (f *fakeProducer) ReadSnapshot(ctx context.Context) (domain.Snapshot, bool, error) {
	f.mu.Lock()
	f.calls++
	block, boom := f.blockOnRead, f.panicOnRead
	f.mu.Unlock()

	if boom {
		panic("producer exploded")
	}
	if block {
		<-ctx.Done()
		return nil, false, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshotRead++
	if f.snapshotErr != nil {
		return nil, false, f.snapshotErr
	}
	if len(f.snapshots) == 0 {
		return nil, false, nil
	}
	snap := f.snapshots[0]
	if len(f.snapshots) > 1 {
		f.snapshots = f.snapshots[1:]
	}
	return snap, true, nil
}

func (f *fakeProducer) TrySendCommand(_ context.Context, cmd domain.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.sendErr != nil {
		if err := f.sendErr(cmd); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeProducer) TryReceiveMessage(_ context.Context) (domain.Message, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.messageErrs) > 0 {
		err := f.messageErrs[0]
		f.messageErrs = f.messageErrs[1:]
		if err != nil {
			return nil, false, err
		}
	}
	if len(f.messages) == 0 {
		return nil, false, nil
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, true, nil
}

func (f *fakeProducer) ShutdownRequested(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.shutdown, f.shutdownErr
}

func (f *fakeProducer) push(msgs ...domain.Message) {
	f.mu.Lock()
	f.messages = append(f.messages, msgs...)
	f.mu.Unlock()
}

func (f *fakeProducer) setSnapshots(snaps ...domain.Snapshot) {
	f.mu.Lock()
	f.snapshots = snaps
	f.mu.Unlock()
}

func (f *fakeProducer) sentCommands() []domain.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Command, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeProducer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type broadcastEvent struct {
	Event   string
	Payload any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
	err    error
}

func (r *recordingBroadcaster) Broadcast(event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, broadcastEvent{Event: event, Payload: payload})
	return nil
}

func (r *recordingBroadcaster) all() []broadcastEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]broadcastEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingBroadcaster) ofKind(event string) []broadcastEvent {
	var out []broadcastEvent
	for _, e := range r.all() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

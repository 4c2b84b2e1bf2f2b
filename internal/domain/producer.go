package domain

import "context"

// Producer is the connector to the external producer process. All methods are
// non-blocking polls: an empty resource is reported through the bool result,
// never by waiting. A connection-level failure is reported as an error wrapping
// ErrProducerGone.
type Producer interface {
	ReadSnapshot(ctx context.Context) (Snapshot, bool, error)
	TrySendCommand(ctx context.Context, cmd Command) error
	TryReceiveMessage(ctx context.Context) (Message, bool, error)
	// ShutdownRequested reports the producer's explicit "exiting" flag.
	ShutdownRequested(ctx context.Context) (bool, error)
}

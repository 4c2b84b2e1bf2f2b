package domain

import "errors"

var (
	// ErrProducerGone marks a definitive loss of the producer: an explicit shutdown
	// flag or a connection-level failure on any connector operation.
	ErrProducerGone = errors.New("producer gone")

	// ErrMalformedPayload marks a message, snapshot or command whose shape is not a JSON object.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrNoProducer is returned by operations that need a producer when none is attached.
	ErrNoProducer = errors.New("no producer attached")
)

// Package producer connects the bridge to a producer process through a shared Redis instance.
//
// The producer owns four keys under a common prefix:
//
//	<prefix>:snapshot   JSON object, overwritten on every state change
//	<prefix>:commands   list, the bridge RPUSHes commands, the producer pops them
//	<prefix>:messages   list, the producer RPUSHes messages, the bridge LPOPs them
//	<prefix>:shutdown   present once the producer is exiting
//
// Every call is a single non-blocking Redis command. Connection-level failures are
// reported as domain.ErrProducerGone.
package producer

// Package bridge relays state between one polled producer and any number of viewers.
//
// A single PollCycle goroutine, started lazily on the first viewer connection, drains the
// CommandQueue into the producer, drains producer messages (chart kinds are bucketed, the
// rest pass through), and broadcasts the snapshot when it differs from the last one sent.
// A producer shutdown flag or connection failure flips the ShutdownCoordinator, which turns
// every later tick into a no-op and tells the transport layer to stop serving.
package bridge

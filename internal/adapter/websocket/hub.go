package websocket

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/webmon/internal/adapter/metrics"
	"github.com/pscheid92/webmon/internal/domain"
)

const (
	commandTimeout    = 5 * time.Second
	stopTimeout       = 10 * time.Second
	commandBufferSize = 256
)

var (
	ErrHubStopped = errors.New("websocket hub stopped")
	ErrHubFull    = errors.New("maximum number of viewers reached")
)

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	id         uuid.UUID
	connection *websocket.Conn
	// welcome runs inside the actor so the first frame is ordered against broadcasts.
	welcome      func() ([]byte, bool)
	replyChannel chan registerReply
}

type registerReply struct {
	client *clientWriter
	err    error
}

type unregisterCmd struct {
	baseHubCmd
	id uuid.UUID
}

type broadcastCmd struct {
	baseHubCmd
	data []byte
}

type sendCmd struct {
	baseHubCmd
	id   uuid.UUID
	data []byte
}

type countCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub owns every viewer connection. A single goroutine serializes registration and
// fan-out; each viewer gets its own buffered writer so one slow viewer cannot stall the rest.
type Hub struct {
	cmdCh      chan hubCmd
	clock      clockwork.Clock
	clients    map[uuid.UUID]*clientWriter
	maxClients int
	metrics    *metrics.WebSocketMetrics
	done       chan struct{}
	stopOnce   sync.Once
}

var _ domain.Broadcaster = (*Hub)(nil)

// NewHub starts the hub goroutine. maxClients <= 0 means unlimited.
func NewHub(clock clockwork.Clock, maxClients int, m *metrics.WebSocketMetrics) *Hub {
	h := &Hub{
		cmdCh:      make(chan hubCmd, commandBufferSize),
		clock:      clock,
		clients:    make(map[uuid.UUID]*clientWriter),
		maxClients: maxClients,
		metrics:    m,
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// submit queues cmd for the actor, failing if the hub is stopped or stuck.
func (h *Hub) submit(cmd hubCmd) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case h.cmdCh <- cmd:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-timer.Chan():
		return fmt.Errorf("hub command timed out after %v", commandTimeout)
	}
}

func (h *Hub) register(conn *websocket.Conn, welcome func() ([]byte, bool)) (*clientWriter, error) {
	replyCh := make(chan registerReply, 1)
	cmd := registerCmd{id: uuid.New(), connection: conn, welcome: welcome, replyChannel: replyCh}
	if err := h.submit(cmd); err != nil {
		return nil, err
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case reply := <-replyCh:
		return reply.client, reply.err
	case <-h.done:
		return nil, ErrHubStopped
	case <-timer.Chan():
		return nil, fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a viewer and closes its connection.
func (h *Hub) Unregister(id uuid.UUID) {
	_ = h.submit(unregisterCmd{id: id})
}

// Broadcast sends an event to every connected viewer.
func (h *Hub) Broadcast(event string, payload any) error {
	data, err := encodeEvent(event, payload)
	if err != nil {
		return err
	}
	return h.submit(broadcastCmd{data: data})
}

// SendTo sends an event to a single viewer. Unknown viewers are ignored.
func (h *Hub) SendTo(id uuid.UUID, event string, payload any) error {
	data, err := encodeEvent(event, payload)
	if err != nil {
		return err
	}
	return h.submit(sendCmd{id: id, data: data})
}

// ClientCount returns the number of connected viewers, or -1 if the hub does not answer.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	if err := h.submit(countCmd{replyChannel: replyCh}); err != nil {
		return -1
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-h.done:
		return -1
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop closes every viewer with a close frame and waits for the hub goroutine to exit.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		select {
		case h.cmdCh <- stopCmd{}:
		case <-h.done:
			return
		}

		timeout := h.clock.NewTimer(stopTimeout)
		defer timeout.Stop()

		select {
		case <-h.done:
			slog.Info("Hub stopped gracefully")
		case <-timeout.Chan():
			slog.Warn("Hub stop timeout exceeded", "timeout", stopTimeout)
		}
	})
}

func (h *Hub) run() {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered", "panic", r)
			h.closeAllClients("hub panic")
		}
	}()

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.id)
		case broadcastCmd:
			h.handleBroadcast(c.data)
		case sendCmd:
			h.handleSend(c)
		case countCmd:
			c.replyChannel <- len(h.clients)
		case stopCmd:
			h.handleStop()
			return
		default:
			slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if h.maxClients > 0 && len(h.clients) >= h.maxClients {
		slog.Warn("Rejecting viewer: max viewers reached", "max_viewers", h.maxClients)
		h.metrics.Reject("max_viewers")
		_ = c.connection.Close()
		c.replyChannel <- registerReply{err: ErrHubFull}
		return
	}

	cw := newClientWriter(c.id, c.connection, h.clock, h.metrics)
	h.clients[c.id] = cw
	h.metrics.Connected()

	if c.welcome != nil {
		if data, ok := c.welcome(); ok {
			cw.enqueue(data)
		}
	}

	slog.Debug("Viewer registered", "client_id", c.id.String(), "total_clients", len(h.clients))
	c.replyChannel <- registerReply{client: cw}
}

func (h *Hub) handleUnregister(id uuid.UUID) {
	cw, exists := h.clients[id]
	if !exists {
		return
	}

	cw.stop()
	delete(h.clients, id)
	h.metrics.Disconnected()

	slog.Debug("Viewer unregistered", "client_id", id.String(), "remaining_clients", len(h.clients))
}

func (h *Hub) handleBroadcast(data []byte) {
	var slow []uuid.UUID
	for id, cw := range h.clients {
		if !cw.enqueue(data) {
			slow = append(slow, id)
		}
	}

	for _, id := range slow {
		h.evict(id)
	}
}

func (h *Hub) handleSend(c sendCmd) {
	cw, exists := h.clients[c.id]
	if !exists {
		return
	}
	if !cw.enqueue(c.data) {
		h.evict(c.id)
	}
}

func (h *Hub) evict(id uuid.UUID) {
	slog.Warn("Disconnecting slow viewer", "client_id", id.String())
	h.metrics.Evicted()
	h.handleUnregister(id)
}

func (h *Hub) handleStop() {
	total := len(h.clients)
	slog.Info("Hub shutting down", "total_clients", total)
	h.closeAllClients("Server shutting down")
	slog.Info("Hub shutdown complete", "disconnected_clients", total)
}

// closeAllClients closes every viewer with the given reason.
func (h *Hub) closeAllClients(reason string) {
	for id, cw := range h.clients {
		cw.stopGraceful(reason)
		delete(h.clients, id)
		h.metrics.Disconnected()
	}
}

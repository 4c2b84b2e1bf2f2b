package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/pscheid92/webmon/internal/domain"
	"github.com/pscheid92/webmon/internal/platform/version"
)

const maxMessageSize = 64 * 1024

// ViewerHandler receives what viewers ask for. *bridge.Bridge implements it.
type ViewerHandler interface {
	OnViewerConnected()
	SubmitCommand(cmd domain.Command)
	FlushCharts() domain.ChartBucket
	CurrentSnapshot() (domain.Snapshot, bool)
}

type viewerSession struct {
	hub     *Hub
	client  *clientWriter
	handler ViewerHandler

	// receiveCount counts connection_test events on this connection.
	receiveCount int
}

// ServeViewer registers conn, sends it the current snapshot, and handles its events
// until the connection closes. It takes ownership of conn.
func (h *Hub) ServeViewer(ctx context.Context, conn *websocket.Conn, handler ViewerHandler) error {
	welcome := func() ([]byte, bool) {
		snap, ok := handler.CurrentSnapshot()
		if !ok {
			return nil, false
		}
		data, err := encodeEvent(domain.EventSnapshot, snap)
		return data, err == nil
	}

	cw, err := h.register(conn, welcome)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer h.Unregister(cw.id)

	handler.OnViewerConnected()

	s := &viewerSession{hub: h, client: cw, handler: handler}
	s.readLoop(ctx)
	return nil
}

func (s *viewerSession) readLoop(ctx context.Context) {
	conn := s.client.connection
	conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.DebugContext(ctx, "Viewer connection closed", "client_id", s.client.id.String(), "error", err)
			}
			return
		}

		s.client.updateReadDeadline()
		s.client.recordActivity()
		s.dispatch(ctx, data)
	}
}

func (s *viewerSession) dispatch(ctx context.Context, data []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
		slog.WarnContext(ctx, "Ignoring malformed viewer frame", "client_id", s.client.id.String())
		s.hub.metrics.Inbound("malformed")
		return
	}

	switch env.Event {
	case domain.EventCommand:
		s.hub.metrics.Inbound(env.Event)
		cmd, err := domain.DecodeObject(env.Data)
		if err != nil {
			slog.WarnContext(ctx, "Ignoring command that is not a JSON object", "client_id", s.client.id.String(), "error", err)
			return
		}
		s.handler.SubmitCommand(domain.Command(cmd))

	case domain.EventChartRequest:
		s.hub.metrics.Inbound(env.Event)
		s.reply(ctx, domain.EventChartData, s.handler.FlushCharts())

	case domain.EventConnectionTest:
		s.hub.metrics.Inbound(env.Event)
		s.receiveCount++
		var payload any
		if len(env.Data) > 0 {
			_ = json.Unmarshal(env.Data, &payload)
		}
		s.reply(ctx, domain.EventConnectionResponse, map[string]any{"data": payload, "count": s.receiveCount})

	case domain.EventInputDataRequest:
		s.hub.metrics.Inbound(env.Event)
		info := version.Get()
		s.reply(ctx, domain.EventInputDataResponse, map[string]any{"client": info.Client, "pid": info.PID})

	default:
		s.hub.metrics.Inbound("unknown")
		slog.DebugContext(ctx, "Ignoring unknown viewer event", "event", env.Event)
	}
}

func (s *viewerSession) reply(ctx context.Context, event string, payload any) {
	if err := s.hub.SendTo(s.client.id, event, payload); err != nil {
		slog.WarnContext(ctx, "Failed to reply to viewer", "client_id", s.client.id.String(), "event", event, "error", err)
	}
}

package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/pscheid92/webmon/internal/adapter/metrics"
	"github.com/pscheid92/webmon/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startViewerServer(t *testing.T, srv *Server) string {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestHandleWebSocket_SendsCurrentSnapshotOnJoin(t *testing.T) {
	bridge := newFakeBridge()
	bridge.snapshot = domain.Snapshot{"tick": float64(7)}
	url := startViewerServer(t, newTestServer(t, bridge))

	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, domain.EventSnapshot, msg.Event)
	assert.JSONEq(t, `{"tick":7}`, string(msg.Data))

	assert.Eventually(t, func() bool { return bridge.connectCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandleWebSocket_CommandReachesBridge(t *testing.T) {
	bridge := newFakeBridge()
	url := startViewerServer(t, newTestServer(t, bridge))

	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": "command",
		"data":  map[string]any{"action": "step"},
	}))

	assert.Eventually(t, func() bool { return len(bridge.submitted()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, domain.Command{"action": "step"}, bridge.submitted()[0])
}

func TestHandleWebSocket_RejectsOverPerIPLimit(t *testing.T) {
	reg := prometheus.NewRegistry()
	wsMetrics := metrics.NewWebSocketMetrics(reg)
	srv := newTestServer(t, newFakeBridge(),
		withLimits(NewConnectionLimits(10, 1, 100, 100)),
		withWebSocketMetrics(wsMetrics),
	)
	url := startViewerServer(t, srv)

	first, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })

	_, resp, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, gorillaws.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	_ = resp.Body.Close()

	assert.InDelta(t, 1, testutil.ToFloat64(wsMetrics.Rejected.WithLabelValues(string(LimitReasonPerIP))), 0)
}

func TestHandleWebSocket_ReleasesSlotOnDisconnect(t *testing.T) {
	srv := newTestServer(t, newFakeBridge(), withLimits(NewConnectionLimits(1, 1, 100, 100)))
	url := startViewerServer(t, srv)

	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.limits.Current() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return srv.limits.Current() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandleWebSocket_RejectsForeignOrigin(t *testing.T) {
	url := startViewerServer(t, newTestServer(t, newFakeBridge()))

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := gorillaws.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
}

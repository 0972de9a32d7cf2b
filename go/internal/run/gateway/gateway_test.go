package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type lifecycle struct {
	kind      string
	sessionID string
	connID    string
}

type recordingObserver struct {
	events chan lifecycle
}

func (o *recordingObserver) Connected(sessionID, connID string) {
	o.events <- lifecycle{"connected", sessionID, connID}
}

func (o *recordingObserver) Disconnected(sessionID, connID string) {
	o.events <- lifecycle{"disconnected", sessionID, connID}
}

func (o *recordingObserver) SnapshotRequested(sessionID, connID string) {
	o.events <- lifecycle{"snapshot_request", sessionID, connID}
}

func newTestGateway(t *testing.T) (*Service, *recordingObserver, string) {
	t.Helper()
	svc := NewService(DefaultConfig())
	obs := &recordingObserver{events: make(chan lifecycle, 16)}
	svc.SetObserver(obs)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go svc.Start(ctx)

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return svc, obs, srv.URL
}

func dial(t *testing.T, baseURL, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws/run?session_id=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func expect(t *testing.T, obs *recordingObserver, kind string) lifecycle {
	t.Helper()
	select {
	case ev := <-obs.events:
		if ev.kind != kind {
			t.Fatalf("expected %s, got %+v", kind, ev)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", kind)
		return lifecycle{}
	}
}

func read(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func TestViewerLifecycle(t *testing.T) {
	svc, obs, url := newTestGateway(t)
	cm := svc.Transport()

	conn := dial(t, url, "gym")
	joined := expect(t, obs, "connected")
	if joined.sessionID != "gym" || joined.connID == "" {
		t.Fatalf("unexpected connect notification: %+v", joined)
	}
	if got := cm.ConnectionCount("gym"); got != 1 {
		t.Fatalf("expected 1 connection, got %d", got)
	}

	if err := cm.Send("gym", joined.connID, []byte(`{"type":"snapshot"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := read(t, conn); got != `{"type":"snapshot"}` {
		t.Fatalf("unexpected payload %s", got)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"snapshot_request"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if req := expect(t, obs, "snapshot_request"); req.connID != joined.connID {
		t.Fatalf("snapshot request from wrong connection: %+v", req)
	}

	conn.Close()
	left := expect(t, obs, "disconnected")
	if left.connID != joined.connID {
		t.Fatalf("unexpected disconnect notification: %+v", left)
	}
	if got := cm.ConnectionCount("gym"); got != 0 {
		t.Fatalf("expected no connections, got %d", got)
	}
}

func TestBroadcastReachesOnlyTheSession(t *testing.T) {
	svc, obs, url := newTestGateway(t)
	cm := svc.Transport()

	a := dial(t, url, "gym")
	expect(t, obs, "connected")
	b := dial(t, url, "gym")
	expect(t, obs, "connected")
	other := dial(t, url, "pool")
	expect(t, obs, "connected")

	cm.Broadcast("gym", []byte(`{"n":1}`))
	for _, conn := range []*websocket.Conn{a, b} {
		if got := read(t, conn); got != `{"n":1}` {
			t.Fatalf("unexpected payload %s", got)
		}
	}

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Fatalf("expected other session to receive nothing")
	}

	stats := svc.GetStats()
	if stats.TotalConnections != 3 || stats.ActiveSessions != 2 || stats.SessionConnections["gym"] != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSendToUnknownConnection(t *testing.T) {
	svc, _, _ := newTestGateway(t)
	if err := svc.Transport().Send("gym", "nobody", []byte("{}")); err == nil {
		t.Fatalf("expected an error for an unknown connection")
	}
}

func TestRunConnectionRequiresSessionID(t *testing.T) {
	_, _, url := newTestGateway(t)
	res, err := http.Get(url + "/ws/run")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
}

func TestConnectionStatsEndpoint(t *testing.T) {
	_, obs, url := newTestGateway(t)
	dial(t, url, "gym")
	expect(t, obs, "connected")

	res, err := http.Get(url + "/ws/stats")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()

	var stats ConnectionStats
	if err := json.NewDecoder(res.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalConnections != 1 || stats.SessionConnections["gym"] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsTestServer starts the router on a real listener and returns a dialable
// WebSocket URL.
func wsTestServer(t *testing.T, srv *Server) (*httptest.Server, string) {
	t.Helper()

	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	return ts, wsURL
}

func dialWS(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

// readMsg reads one message with a deadline.
func readMsg(t *testing.T, ws *websocket.Conn) wsOutbound {
	t.Helper()

	//nolint:errcheck // Best-effort deadline for test reads
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg wsOutbound
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	return msg
}

// waitFor polls a condition until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocket_DemoAuthReceivesInitialState(t *testing.T) {
	srv := testServer(t)
	_, wsURL := wsTestServer(t, srv)

	ws := dialWS(t, wsURL)
	if err := ws.WriteJSON(wsInbound{Type: WSTypeAuth, DemoMode: true}); err != nil {
		t.Fatalf("write auth: %v", err)
	}

	msg := readMsg(t, ws)
	if msg.Type != WSTypeInitialState {
		t.Fatalf("first message type = %q, want initial_state", msg.Type)
	}
	if msg.Data == nil || msg.Data.BridgeID != "demo" {
		t.Errorf("initial_state data = %+v, want demo snapshot", msg.Data)
	}
	if len(msg.Data.Rooms) == 0 {
		t.Error("initial_state snapshot has no rooms")
	}

	if !srv.coordinator.Active("demo") {
		t.Error("no polling task after auth")
	}
}

func TestWebSocket_PingPong(t *testing.T) {
	srv := testServer(t)
	_, wsURL := wsTestServer(t, srv)

	ws := dialWS(t, wsURL)

	// Ping works before auth too; liveness is independent of identity.
	if err := ws.WriteJSON(wsInbound{Type: WSTypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if msg := readMsg(t, ws); msg.Type != WSTypePong {
		t.Errorf("response type = %q, want pong", msg.Type)
	}
}

func TestWebSocket_AuthErrors(t *testing.T) {
	srv := testServer(t)
	_, wsURL := wsTestServer(t, srv)

	tests := []struct {
		name string
		msg  wsInbound
	}{
		{"invalid token", wsInbound{Type: WSTypeAuth, SessionToken: "bogus"}},
		{"missing fields", wsInbound{Type: WSTypeAuth}},
		{"unknown type", wsInbound{Type: "subscribe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := dialWS(t, wsURL)
			if err := ws.WriteJSON(tt.msg); err != nil {
				t.Fatalf("write: %v", err)
			}
			msg := readMsg(t, ws)
			if msg.Type != WSTypeError {
				t.Errorf("response type = %q, want error", msg.Type)
			}
			if msg.Message == "" {
				t.Error("error message is empty")
			}
		})
	}

	// None of the failed auths may have started polling.
	if srv.coordinator.Active("demo") || srv.coordinator.Active("hue-1") {
		t.Error("failed auth started a polling task")
	}
}

func TestWebSocket_ExpiredTokenRejected(t *testing.T) {
	srv := testServerTTL(t, time.Millisecond)
	_, wsURL := wsTestServer(t, srv)

	sess := srv.sessions.Create("demo", "owner")
	time.Sleep(10 * time.Millisecond)

	ws := dialWS(t, wsURL)
	if err := ws.WriteJSON(wsInbound{Type: WSTypeAuth, SessionToken: sess.Token}); err != nil {
		t.Fatalf("write auth: %v", err)
	}
	if msg := readMsg(t, ws); msg.Type != WSTypeError {
		t.Errorf("expired token response = %q, want error", msg.Type)
	}
}

func TestWebSocket_SessionTokenAuth(t *testing.T) {
	srv := testServer(t)
	_, wsURL := wsTestServer(t, srv)

	srv.credentials.Store(context.Background(), "hue-1", "app-key")
	sess := srv.sessions.Create("hue-1", "owner")

	ws := dialWS(t, wsURL)
	if err := ws.WriteJSON(wsInbound{Type: WSTypeAuth, SessionToken: sess.Token}); err != nil {
		t.Fatalf("write auth: %v", err)
	}

	msg := readMsg(t, ws)
	if msg.Type != WSTypeInitialState {
		t.Fatalf("response type = %q, want initial_state", msg.Type)
	}
	if msg.Data.BridgeID != "hue-1" {
		t.Errorf("snapshot bridge = %q, want hue-1", msg.Data.BridgeID)
	}
}

func TestWebSocket_StateUpdatesFlow(t *testing.T) {
	srv := testServer(t)
	_, wsURL := wsTestServer(t, srv)

	ws := dialWS(t, wsURL)
	if err := ws.WriteJSON(wsInbound{Type: WSTypeAuth, DemoMode: true}); err != nil {
		t.Fatalf("write auth: %v", err)
	}
	if msg := readMsg(t, ws); msg.Type != WSTypeInitialState {
		t.Fatalf("first message = %q, want initial_state", msg.Type)
	}

	// The demo source drifts every few polls; a state_update must arrive.
	deadline := time.Now().Add(3 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("no state_update received")
		}
		msg := readMsg(t, ws)
		if msg.Type != WSTypeStateUpdate {
			continue
		}
		if len(msg.Changes) == 0 {
			t.Fatal("state_update carries no deltas")
		}
		return
	}
}

// TestWebSocket_SharedPollingLifecycle walks the full subscriber scenario:
// two clients share one polling task, the task survives the first
// disconnect, stops after the last, and a reconnect gets a fresh full
// initial_state.
func TestWebSocket_SharedPollingLifecycle(t *testing.T) {
	srv := testServer(t)
	_, wsURL := wsTestServer(t, srv)

	clientA := dialWS(t, wsURL)
	if err := clientA.WriteJSON(wsInbound{Type: WSTypeAuth, DemoMode: true}); err != nil {
		t.Fatalf("client A auth: %v", err)
	}
	if msg := readMsg(t, clientA); msg.Type != WSTypeInitialState {
		t.Fatalf("client A first message = %q, want initial_state", msg.Type)
	}
	if !srv.coordinator.Active("demo") {
		t.Fatal("no polling task after first subscriber")
	}

	clientB := dialWS(t, wsURL)
	if err := clientB.WriteJSON(wsInbound{Type: WSTypeAuth, DemoMode: true}); err != nil {
		t.Fatalf("client B auth: %v", err)
	}
	if msg := readMsg(t, clientB); msg.Type != WSTypeInitialState {
		t.Fatalf("client B first message = %q, want initial_state", msg.Type)
	}

	// A disconnects; B keeps the task alive.
	clientA.Close()
	waitFor(t, "client A unregister", func() bool { return srv.hub.ClientCount() == 1 })
	if !srv.coordinator.Active("demo") {
		t.Fatal("polling stopped while a subscriber remains")
	}

	// B disconnects; the task stops.
	clientB.Close()
	waitFor(t, "polling stop", func() bool { return !srv.coordinator.Active("demo") })

	// Reconnect: the next subscriber gets a fresh full snapshot, not a
	// stale cached delta.
	clientC := dialWS(t, wsURL)
	if err := clientC.WriteJSON(wsInbound{Type: WSTypeAuth, DemoMode: true}); err != nil {
		t.Fatalf("client C auth: %v", err)
	}
	msg := readMsg(t, clientC)
	if msg.Type != WSTypeInitialState {
		t.Fatalf("client C first message = %q, want initial_state", msg.Type)
	}
	if msg.Data == nil || len(msg.Data.Rooms) == 0 {
		t.Error("reconnect initial_state is not a full snapshot")
	}
}

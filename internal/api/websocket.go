package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/homelink-core/internal/infrastructure/config"
	"github.com/nerrad567/homelink-core/internal/infrastructure/logging"
	"github.com/nerrad567/homelink-core/internal/snapshot"
)

// WebSocket message types.
const (
	WSTypeAuth         = "auth"
	WSTypePing         = "ping"
	WSTypePong         = "pong"
	WSTypeInitialState = "initial_state"
	WSTypeStateUpdate  = "state_update"
	WSTypeError        = "error"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256
)

// wsInbound is a message received from a client.
type wsInbound struct {
	Type         string `json:"type"`
	SessionToken string `json:"sessionToken,omitempty"`
	DemoMode     bool   `json:"demoMode,omitempty"`
}

// wsOutbound is a message sent to a client. Exactly one payload field is
// populated per type.
type wsOutbound struct {
	Type    string             `json:"type"`
	Data    *snapshot.Snapshot `json:"data,omitempty"`
	Changes []snapshot.Delta   `json:"changes,omitempty"`
	Message string             `json:"message,omitempty"`
}

// Hub manages WebSocket connections and fans state deltas out to the
// connections attached to each bridge. It implements live.Broadcaster.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	id   string
	srv  *Server
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// bridgeID is set on successful auth; empty means unauthenticated.
	bridgeID string
	mu       sync.RWMutex
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until the context is cancelled, then disconnects all clients.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "conn_id", client.id, "clients", h.ClientCount())
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "conn_id", client.id, "clients", h.ClientCount())
}

// BroadcastState sends a state_update to every connection attached to the
// given bridge.
//
// Lock ordering: the client list is snapshotted under the hub lock, which
// is released before any per-client send.
func (h *Hub) BroadcastState(bridgeID string, deltas []snapshot.Delta) {
	data, err := json.Marshal(wsOutbound{
		Type:    WSTypeStateUpdate,
		Changes: deltas,
	})
	if err != nil {
		h.logger.Error("failed to marshal state update", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		if client.bridge() == bridgeID {
			client.trySend(data)
			sent++
		}
	}
	if sent > 0 {
		h.logger.Debug("state update sent", "bridge_id", bridgeID, "deltas", len(deltas), "recipients", sent)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// handleWebSocket upgrades the HTTP connection to a WebSocket connection.
// The connection starts unauthenticated; the client must send an auth
// message before it receives any state.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		id:   uuid.New().String(),
		srv:  s,
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, wsSendBufferSize),
	}

	s.hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads messages from the WebSocket connection. On exit the
// connection's subscription is detached, so a dead connection can never
// keep a polling task alive.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.srv.coordinator.Detach(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "conn_id", c.id, "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "conn_id", c.id, "error", err)
			}
			return
		}
		// Any client message resets the read deadline (keeps connection
		// alive even if the client doesn't answer protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClient) handleMessage(data []byte) {
	var msg wsInbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeAuth:
		c.handleAuth(msg)
	case WSTypePing:
		c.sendMessage(wsOutbound{Type: WSTypePong})
	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

// handleAuth resolves the client's identity and attaches it to a bridge
// group. Auth failures are reported to this connection only and leave it
// unattached. Re-authenticating moves the connection to the new bridge.
func (c *WSClient) handleAuth(msg wsInbound) {
	var bridgeID string
	switch {
	case msg.DemoMode:
		// Demo mode needs no token and attaches to the synthetic bridge.
		if _, ok := c.srv.selector.Config("demo"); !ok {
			c.sendError("demo mode is not configured")
			return
		}
		bridgeID = "demo"
	case msg.SessionToken != "":
		view := c.srv.sessions.Lookup(msg.SessionToken)
		if view == nil {
			c.sendError("invalid or expired session token")
			return
		}
		bridgeID = view.BridgeID
	default:
		c.sendError("auth requires sessionToken or demoMode")
		return
	}

	c.srv.coordinator.Attach(c.id, bridgeID)

	c.hub.logger.Info("websocket client authenticated", "conn_id", c.id, "bridge_id", bridgeID)

	// Send full state immediately so the client doesn't wait for the next
	// poll. Served from the polling task's cache when it has one. The
	// bridge attachment for broadcasts is recorded only after the
	// initial_state is queued, so it is always the first state message
	// this connection sees.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := c.srv.coordinator.InitialSnapshot(ctx, bridgeID)
	if err != nil {
		c.hub.logger.Warn("initial snapshot failed", "bridge_id", bridgeID, "error", err)
		c.sendError("bridge state unavailable: " + err.Error())
		c.setBridge(bridgeID)
		return
	}
	c.sendMessage(wsOutbound{Type: WSTypeInitialState, Data: snap})
	c.setBridge(bridgeID)
}

// bridge returns the bridge this client is attached to, or "".
func (c *WSClient) bridge() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bridgeID
}

// setBridge records the client's bridge attachment.
func (c *WSClient) setBridge(bridgeID string) {
	c.mu.Lock()
	c.bridgeID = bridgeID
	c.mu.Unlock()
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected during
// broadcast) and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// sendMessage marshals and sends a message to this client.
func (c *WSClient) sendMessage(msg wsOutbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an error message to this client.
func (c *WSClient) sendError(message string) {
	c.sendMessage(wsOutbound{Type: WSTypeError, Message: message})
}

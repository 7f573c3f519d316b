package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// Frame WebSocket: hub + per-client pumps
// ============================================================================
// The renderer consumes the pet's per-tick output over a WebSocket:
//   - A Hub tracks connected clients and fans out serialized frames.
//   - Per-client write pumps so one slow client doesn't block others; slow
//     clients are disconnected when their send buffer fills.
//   - The read pump accepts renderer feedback ({"type":"seal_position"}) and
//     forwards it into the daemon event channel.
//
// Messages are JSON text frames with an envelope: {type, ts, data}. The
// initial message on connect is "frame_init" carrying the latest frame.
// ============================================================================

// frameEnvelope is the wire format envelope for WS messages.
type frameEnvelope struct {
	Type string      `json:"type"`
	Ts   *time.Time  `json:"ts,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// marshalFrame serializes a frame into its broadcast envelope.
func marshalFrame(msgType string, f Frame, at time.Time) ([]byte, error) {
	return json.Marshal(frameEnvelope{Type: msgType, Ts: &at, Data: f})
}

// ============================================================================
// Hub
// ============================================================================

type Hub struct {
	logger *slog.Logger

	// Buffered broadcast channel for already-serialized JSON frames.
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu        sync.Mutex
	clients   map[*Client]struct{}
	lastFrame []byte // latest broadcast, replayed to new clients as frame_init

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size.
	SendBuf int

	// BroadcastBuf is the hub inbound broadcast queue size.
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 32
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 128
	}

	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		clients:    make(map[*Client]struct{}),
		sendBuf:    sendBuf,
	}
}

// Run processes hub events until ctx is canceled.
// It disconnects all clients on shutdown.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub stopping (context canceled)")
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client registered", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			// Collect slow clients first, then remove them after unlocking,
			// to avoid mutating the map while ranging over it.
			var slow []*Client

			h.mu.Lock()
			h.lastFrame = msg
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		// Closing send signals writePump to exit. Guard against double-close.
		safeCloseChan(c.send)

		h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
	}
}

func safeCloseChan(ch chan []byte) {
	defer func() {
		_ = recover() // ignore "close of closed channel"
	}()
	close(ch)
}

// BroadcastBytes enqueues a pre-serialized JSON WS frame for broadcast.
// It never blocks; if the hub queue is full it drops the message. Dropping a
// frame is harmless: the next tick supersedes it.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws hub broadcast queue full, dropping frame", "bytes", len(msg))
	}
}

// LastFrame returns the most recently broadcast frame, or nil.
func (h *Hub) LastFrame() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastFrame
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	remoteAddr string
	logger     *slog.Logger
}

// NewClient creates a client with a buffered send channel.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	sendBuf := 32
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// closeStatus extracts a human-readable websocket close code / text when possible.
func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

// writePump writes messages from the send queue to the websocket.
// It exits on write error or when send is closed.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed: hub is disconnecting us.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logWSExit("writePump", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logWSExit("writePump", err)
				return
			}
		}
	}
}

// readPump reads renderer feedback messages and forwards them to the daemon.
// It exits on read error, then unregisters the client.
func (c *Client) readPump(ctx context.Context, events chan<- Event) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			// Continue to read.
		}

		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				c.logWSExit("readPump", err)
			}
			if c.hub != nil {
				c.hub.unregister <- c
			}
			return
		}

		ev, err := UnmarshalEvent(msg)
		if err != nil {
			c.logger.Warn("ws ignoring malformed message", "remote_addr", c.remoteAddr, "error", err)
			continue
		}

		select {
		case events <- ev:
		default:
			c.logger.Warn("event queue full, dropping ws event", "remote_addr", c.remoteAddr)
		}
	}
}

func (c *Client) logWSExit(pump string, err error) {
	if code, text, ok := closeStatus(err); ok {
		c.logger.Info("ws "+pump+" exiting (close)", "remote_addr", c.remoteAddr, "code", code, "reason", text)
	} else {
		c.logger.Info("ws "+pump+" exiting", "remote_addr", c.remoteAddr, "error", err)
	}
}

// ============================================================================
// HTTP Handler + server wiring helpers
// ============================================================================

type Server struct {
	logger *slog.Logger

	hub *Hub

	// Renderer feedback flows into the daemon through this channel.
	events chan<- Event
}

type ServerConfig struct {
	Hub HubConfig
}

// NewServer constructs the WS frame server components. Call Register on a
// mux and start hub.Run(ctx).
func NewServer(logger *slog.Logger, events chan<- Event, cfg ServerConfig) *Server {
	hub := NewHub(logger, cfg.Hub)
	return &Server{
		logger: logger,
		hub:    hub,
		events: events,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Register registers the WS handler on the provided mux.
func (s *Server) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleFrameWS)
}

var upgrader = websocket.Upgrader{
	// The daemon binds to localhost; renderer and daemon share the machine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleFrameWS upgrades and registers a client, then replays the latest
// frame as frame_init so the renderer can draw before the next tick lands.
func (s *Server) handleFrameWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	c := NewClient(s.hub, conn, r.RemoteAddr, s.logger)

	// Queue the replay before registering so it precedes any live frame.
	if last := s.hub.LastFrame(); last != nil {
		var env frameEnvelope
		if json.Unmarshal(last, &env) == nil {
			// Rewrite the envelope type so clients can distinguish the replay.
			env.Type = "frame_init"
			if b, err := json.Marshal(env); err == nil {
				c.send <- b
			}
		}
	}

	s.hub.register <- c

	// Do not tie the pumps to r.Context(): net/http cancels it when this
	// handler returns, which would stop the pumps immediately. Connection
	// lifetime is managed by the hub and by websocket read/write errors.
	go c.writePump(context.Background())
	go c.readPump(context.Background(), s.events)
}

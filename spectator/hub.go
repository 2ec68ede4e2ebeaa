// Package spectator exposes a running game read-only over HTTP: a websocket
// stream of snapshots, the current state as JSON, the leaderboard as an HTML
// page, and history stats. It also has the client side used by snakewatch.
package spectator

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/brensch/snekcade/game"
)

// Message types on the websocket stream.
const (
	MsgWelcome  = "welcome"
	MsgSnapshot = "snapshot"
)

// Message is the envelope for every websocket frame.
type Message struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	// Spectating is read-only, so any origin may watch.
	CheckOrigin:       func(r *http.Request) bool { return true },
	ReadBufferSize:    1024,
	WriteBufferSize:   4096,
	EnableCompression: true,
}

type client struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
}

// Hub fans snapshots out to websocket spectators. It implements
// round.Renderer; Render never blocks on a slow client, which just misses
// frames.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*client
	last    []byte
	lastSn  game.Snapshot
	hasLast bool
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{logger: logger, clients: make(map[string]*client)}
}

// Render records snap as the latest state and broadcasts it.
func (h *Hub) Render(snap game.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error("encode snapshot", "err", err)
		return
	}
	frame, err := json.Marshal(Message{Type: MsgSnapshot, Data: data})
	if err != nil {
		h.logger.Error("encode frame", "err", err)
		return
	}

	h.mu.Lock()
	h.last = frame
	h.lastSn = snap
	h.hasLast = true
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		select {
		case c.send <- frame:
		default:
		}
	}
}

// Latest returns the most recently rendered snapshot.
func (h *Hub) Latest() (game.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastSn, h.hasLast
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams snapshots until the peer leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}
	ws.EnableWriteCompression(true)

	c := &client{id: uuid.New().String(), ws: ws, send: make(chan []byte, sendBuffer)}

	welcome, _ := json.Marshal(Message{Type: MsgWelcome, ID: c.id})
	c.send <- welcome

	h.mu.Lock()
	if h.last != nil {
		c.send <- h.last
	}
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("spectator connected", "id", c.id, "spectators", n)

	done := make(chan struct{})
	go h.writeLoop(c, done)
	h.readLoop(c)

	h.mu.Lock()
	delete(h.clients, c.id)
	n = len(h.clients)
	h.mu.Unlock()
	close(done)
	_ = ws.Close()
	h.logger.Info("spectator disconnected", "id", c.id, "spectators", n)
}

// readLoop discards anything the spectator sends and returns when the
// connection closes.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("spectator read error", "id", c.id, "err", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.logger.Debug("spectator write failed", "id", c.id, "err", err)
				_ = c.ws.Close()
				return
			}
		}
	}
}

// Close disconnects every spectator.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = c.ws.Close()
	}
}

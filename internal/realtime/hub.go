// Package realtime fans game events out to websocket subscribers. Each
// game has one Redis pub/sub subscription shared by all of its clients.
package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sagaforge/saga-engine/internal/services/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The event feed is read-only and carries no credentials, so
		// cross-origin subscribers are accepted.
		return true
	},
}

// Hub bridges the event broadcaster's pub/sub channels to websocket
// connections.
type Hub struct {
	broadcaster *events.Broadcaster
	logger      *slog.Logger

	mu    sync.Mutex
	feeds map[uuid.UUID]*feed
}

// feed is one game's subscription and its attached clients.
type feed struct {
	clients map[*client]struct{}
	cancel  context.CancelFunc
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(b *events.Broadcaster, logger *slog.Logger) *Hub {
	return &Hub{
		broadcaster: b,
		logger:      logger,
		feeds:       make(map[uuid.UUID]*feed),
	}
}

// ServeHTTP upgrades GET /v1/events/{gameID} to a websocket and streams
// the game's events until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	idPart := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/events"), "/")
	gameID, err := uuid.Parse(idPart)
	if err != nil {
		http.Error(w, "Invalid game ID format", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.attach(gameID, c)
	h.logger.Info("Websocket client connected", "game_id", gameID.String(), "remote_addr", r.RemoteAddr)

	go c.writePump()
	c.readPump()

	h.detach(gameID, c)
	h.logger.Info("Websocket client disconnected", "game_id", gameID.String())
}

// attach adds a client to the game's feed, opening the pub/sub
// subscription if this is the first client.
func (h *Hub) attach(gameID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, ok := h.feeds[gameID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		f = &feed{
			clients: make(map[*client]struct{}),
			cancel:  cancel,
		}
		h.feeds[gameID] = f
		go h.pump(ctx, gameID, f)
	}
	f.clients[c] = struct{}{}
}

// detach removes a client, tearing the feed down when it empties.
func (h *Hub) detach(gameID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, ok := h.feeds[gameID]
	if !ok {
		return
	}
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		close(c.send)
	}
	if len(f.clients) == 0 {
		f.cancel()
		delete(h.feeds, gameID)
	}
}

// pump forwards pub/sub payloads to every attached client. A client
// whose buffer is full is dropped rather than allowed to stall the
// feed.
func (h *Hub) pump(ctx context.Context, gameID uuid.UUID, f *feed) {
	pubsub := h.broadcaster.Subscribe(ctx, gameID)
	defer func() {
		if err := pubsub.Close(); err != nil {
			h.logger.Error("Failed to close pubsub", "error", err)
		}
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.mu.Lock()
			for c := range f.clients {
				select {
				case c.send <- []byte(msg.Payload):
				default:
					delete(f.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// readPump drains the connection so pings and close frames are
// processed. Client input is otherwise ignored.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

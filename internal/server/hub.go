package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handsphere/internal/detector"
	"github.com/ayusman/handsphere/internal/engine"
	"github.com/ayusman/handsphere/internal/logging"
	"github.com/ayusman/handsphere/internal/metrics"
)

// Message types on the WebSocket. Control and scene messages are produced by
// the app; the rest are hub-local.
const (
	MessageInit  = "init"
	MessageError = "error"
	MessageFrame = "frame"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	maxMessageSize = 64 << 10
)

// Ingestor interprets a frame received from a remote landmark source.
type Ingestor func(ctx context.Context, frame detector.Frame) engine.ControlUpdate

// envelope is the wire format of every WebSocket message.
type envelope struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type errorData struct {
	Error string `json:"error"`
}

// HubConfig configures a Hub.
type HubConfig struct {
	// SendBuf is the per-client outbound queue size.
	SendBuf int
	// BroadcastBuf is the hub inbound broadcast queue size.
	BroadcastBuf int

	// Ingest receives validated "frame" messages. Nil disables ingest.
	Ingest Ingestor
	// Init builds the payload of the message sent to each new client.
	Init func() any

	Metrics *metrics.Manager
}

// Hub tracks WebSocket clients and fans broadcasts out to them. Slow clients
// whose send queue is full are disconnected.
type Hub struct {
	logger  *slog.Logger
	metrics *metrics.Manager
	ingest  Ingestor
	init    func() any

	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}

	mu      sync.Mutex
	clients map[*client]struct{}

	sendBuf int
	now     func() time.Time
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
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
		metrics:    cfg.Metrics,
		ingest:     cfg.Ingest,
		init:       cfg.Init,
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
		sendBuf:    sendBuf,
		now:        time.Now,
	}
}

// Run processes hub events until ctx is canceled, then disconnects all
// clients. Connections arriving after Run returns are closed immediately.
// Run must be called once.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub stopping")
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetClients(n)
			h.logger.Info("ws client registered", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			var slow []*client

			h.mu.Lock()
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

// Clients returns the number of registered clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast serialises payload in an envelope of the given type and queues
// it for every client. It never blocks; a full queue drops the message.
func (h *Hub) Broadcast(kind string, payload any) {
	msg, err := h.encode(kind, payload)
	if err != nil {
		h.logger.Warn("ws broadcast encode failed", "type", kind, "error", err)
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws hub broadcast queue full, dropping message", "type", kind, "bytes", len(msg))
	}
}

func (h *Hub) encode(kind string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	ts := h.now()
	return json.Marshal(envelope{Type: kind, Ts: &ts, Data: data})
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.conn.Close()
		c.closeSend()
		delete(h.clients, c)
	}
	h.metrics.SetClients(0)
}

func (h *Hub) removeClient(c *client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	_ = c.conn.Close()
	c.closeSend()
	h.metrics.SetClients(n)
	h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades the connection, registers the client and sends the
// init message.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, h.sendBuf),
		remoteAddr: r.RemoteAddr,
	}

	if h.init != nil {
		if msg, err := h.encode(MessageInit, h.init()); err == nil {
			c.send <- msg
		}
	}

	select {
	case h.register <- c:
	case <-h.done:
		h.logger.Debug("ws hub stopped, refusing client", "remote_addr", r.RemoteAddr)
		_ = conn.Close()
		return
	}

	// The pumps outlive the request; the hub and connection errors end them.
	go c.writePump()
	go c.readPump()
}

// handleMessage processes one inbound message from c.
func (h *Hub) handleMessage(c *client, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.reject(c, fmt.Errorf("invalid message: %w", err))
		return
	}

	switch env.Type {
	case MessageFrame:
		if h.ingest == nil {
			h.reject(c, errors.New("frame ingest disabled"))
			return
		}
		var frame detector.Frame
		if err := json.Unmarshal(env.Data, &frame); err != nil {
			h.reject(c, fmt.Errorf("%w: %v", detector.ErrInvalidFrame, err))
			return
		}
		if err := frame.Validate(); err != nil {
			h.reject(c, err)
			return
		}
		if frame.Timestamp.IsZero() {
			frame.Timestamp = h.now()
		}
		h.ingest(context.Background(), frame)
	default:
		h.reject(c, fmt.Errorf("unknown message type %q", env.Type))
	}
}

func (h *Hub) reject(c *client, err error) {
	h.metrics.RejectFrame("websocket")
	h.logger.Debug("ws message rejected", "remote_addr", c.remoteAddr, "error", err)

	msg, encErr := h.encode(MessageError, errorData{Error: err.Error()})
	if encErr != nil {
		return
	}
	c.trySend(msg)
}

type client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

func (c *client) closeSend() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

// trySend queues msg unless the queue is full or closed.
func (c *client) trySend(msg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	logger := c.hub.logger
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					logger.Debug("ws writePump exiting", "remote_addr", c.remoteAddr, "error", err)
				}
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

func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if code, text, ok := closeStatus(err); ok {
				c.hub.logger.Debug("ws readPump exiting (close)", "remote_addr", c.remoteAddr, "code", code, "reason", text)
			} else {
				c.hub.logger.Debug("ws readPump exiting", "remote_addr", c.remoteAddr, "error", err)
			}
			select {
			case c.hub.unregister <- c:
			case <-c.hub.done:
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.hub.handleMessage(c, raw)
	}
}

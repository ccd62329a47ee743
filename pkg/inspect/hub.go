package inspect

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vango-dev/vstore/pkg/reactive"
	"github.com/vango-dev/vstore/pkg/store"
	"github.com/vango-dev/vstore/pkg/value"
)

// MessageType identifies a message pushed to inspector clients.
type MessageType string

const (
	MessageHello   MessageType = "hello"
	MessageChanged MessageType = "changed"
)

// Message is sent to clients as a JSON text frame.
type Message struct {
	Type   MessageType     `json:"type"`
	Client string          `json:"client,omitempty"`
	Field  string          `json:"field,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
	Fields []string        `json:"fields,omitempty"`
}

const writeWait = 5 * time.Second

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans field changes out to connected WebSocket clients. It registers
// one listener per store field. Wakes only mark the field dirty; a hub
// goroutine reads and broadcasts dirty fields, so store writes never wait
// on a client.
type Hub struct {
	store     *store.Store
	logger    *slog.Logger
	upgrader  websocket.Upgrader
	listeners []*fieldListener

	mu      sync.RWMutex
	clients map[*client]bool

	dirtyMu sync.Mutex
	dirty   map[string]bool
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// HubOption configures a Hub.
type HubOption func(*hubConfig)

type hubConfig struct {
	origins []string
}

// WithAllowedOrigins lets browsers on the given origins connect, for
// example "http://localhost:3000". "*" allows any origin. By default only
// same-origin requests and clients that send no Origin header are accepted.
func WithAllowedOrigins(origins ...string) HubOption {
	return func(c *hubConfig) {
		c.origins = append(c.origins, origins...)
	}
}

// NewHub creates a hub for s and subscribes it to every field.
func NewHub(s *store.Store, logger *slog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	var cfg hubConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Hub{
		store:   s,
		logger:  logger.With("component", "inspect.hub"),
		clients: make(map[*client]bool),
		dirty:   make(map[string]bool),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.origins),
		},
	}
	for _, name := range s.Fields() {
		l := &fieldListener{id: reactive.NextID(), hub: h, field: name}
		if err := s.SubscribeListener(l, name); err != nil {
			h.logger.Warn("subscribe failed", "field", name, "error", err)
			continue
		}
		h.listeners = append(h.listeners, l)
	}
	go h.run()
	return h
}

// originChecker returns nil, gorilla's same-origin check, when no extra
// origins are allowed.
func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimSuffix(strings.ToLower(o), "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed["*"] {
			return true
		}
		if allowed[strings.ToLower(origin)] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// fieldListener forwards wakes of one field to the hub.
type fieldListener struct {
	id    uint64
	hub   *Hub
	field string
}

func (l *fieldListener) ID() uint64 { return l.id }

func (l *fieldListener) MarkDirty() { l.hub.markDirty(l.field) }

func (h *Hub) markDirty(field string) {
	h.dirtyMu.Lock()
	h.dirty[field] = true
	h.dirtyMu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case <-h.wake:
			for _, field := range h.takeDirty() {
				h.fieldChanged(field)
			}
		}
	}
}

// takeDirty drains the dirty set in field declaration order.
func (h *Hub) takeDirty() []string {
	h.dirtyMu.Lock()
	defer h.dirtyMu.Unlock()

	var out []string
	for _, name := range h.store.Fields() {
		if h.dirty[name] {
			out = append(out, name)
		}
	}
	clear(h.dirty)
	return out
}

func (h *Hub) fieldChanged(field string) {
	if h.ClientCount() == 0 {
		return
	}
	v, err := h.store.State().Resolve(field)
	if err != nil {
		h.logger.Warn("reading changed field failed", "field", field, "error", err)
		return
	}
	raw, err := value.Encode(v)
	if err != nil {
		h.logger.Warn("encoding changed field failed", "field", field, "error", err)
		return
	}
	h.broadcast(Message{Type: MessageChanged, Field: field, Value: raw})
}

// ServeHTTP upgrades the request and keeps the connection until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn}
	logger := h.logger.With("client", c.id)

	hello, _ := json.Marshal(Message{Type: MessageHello, Client: c.id, Fields: h.store.Fields()})
	if err := c.send(hello); err != nil {
		conn.Close()
		return
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	logger.Debug("inspector connected")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				logger.Debug("inspector read error", "error", err)
			}
			break
		}
	}

	h.remove(c)
	logger.Debug("inspector disconnected")
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.conn.Close()
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(data); err != nil {
			h.logger.Debug("dropping inspector", "client", c.id, "error", err)
			h.remove(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unsubscribes from the store, stops the broadcast goroutine and
// disconnects every client.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })
	for _, l := range h.listeners {
		h.store.Unsubscribe(l, l.field)
	}
	h.listeners = nil

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
}

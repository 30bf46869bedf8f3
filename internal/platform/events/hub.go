// Package events pushes live change notifications to browser clients over
// WebSockets. Clients subscribe to topics such as "visit/<id>" or
// "patient/<id>" and receive every event published to them.
package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Event types published by the domain services.
const (
	TypeVisitScheduled     = "visit.scheduled"
	TypeVisitStatusChanged = "visit.status_changed"
	TypeVisitCompleted     = "visit.completed"
	TypeTemplateSaved      = "template.saved"
)

type Event struct {
	Type       string          `json:"type"`
	Topic      string          `json:"topic"`
	Resource   string          `json:"resource"`
	ResourceID string          `json:"resourceId,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Topic names the stream for one resource.
func Topic(resource, id string) string {
	return resource + "/" + id
}

// NewEvent builds an event for resource/id on that resource's topic. data
// is encoded as JSON; an unencodable value is dropped.
func NewEvent(typ, resource, id string, data interface{}) Event {
	ev := Event{
		Type:       typ,
		Topic:      Topic(resource, id),
		Resource:   resource,
		ResourceID: id,
		Timestamp:  time.Now().UTC(),
	}
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			ev.Data = b
		}
	}
	return ev
}

// Publisher is implemented by Hub. Services hold a Publisher so that they
// can run without one.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// ClientMessage is sent by a client to change its subscriptions.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

type Client struct {
	ID     string
	UserID string
	Topics []string
	Send   chan []byte
}

// Hub tracks connected clients by topic.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	all     map[*Client]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client and subscribes it to its initial topics.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.all[client] = struct{}{}
	h.subscribeLocked(client, client.Topics)
}

// Unregister drops a client from every topic and closes its Send channel.
// Unregistering twice is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.all[client]; !ok {
		return
	}
	h.unsubscribeLocked(client, client.Topics)
	delete(h.all, client)
	close(client.Send)
}

func (h *Hub) Subscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var added []string
	for _, t := range topics {
		if _, ok := h.clients[t][client]; !ok {
			added = append(added, t)
		}
	}
	h.subscribeLocked(client, added)
	client.Topics = append(client.Topics, added...)
}

func (h *Hub) Unsubscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(client, topics)

	remove := make(map[string]bool, len(topics))
	for _, t := range topics {
		remove[t] = true
	}
	kept := client.Topics[:0]
	for _, t := range client.Topics {
		if !remove[t] {
			kept = append(kept, t)
		}
	}
	client.Topics = kept
}

func (h *Hub) subscribeLocked(client *Client, topics []string) {
	for _, t := range topics {
		if h.clients[t] == nil {
			h.clients[t] = make(map[*Client]struct{})
		}
		h.clients[t][client] = struct{}{}
	}
}

func (h *Hub) unsubscribeLocked(client *Client, topics []string) {
	for _, t := range topics {
		if subs, ok := h.clients[t]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.clients, t)
			}
		}
	}
}

// ProcessMessage applies a subscribe or unsubscribe request. Unknown
// actions are ignored.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(client, msg.Topics)
	case "unsubscribe":
		h.Unsubscribe(client, msg.Topics)
	}
}

// Broadcast sends event to every subscriber of topic. Slow clients whose
// buffer is full miss the event.
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("failed to encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[topic] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn().Str("client_id", client.ID).Str("topic", topic).Msg("event dropped, client buffer full")
		}
	}
}

func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Broadcast(event.Topic, event)
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// Handler upgrades HTTP requests to WebSocket connections on the hub.
type Handler struct {
	hub      *Hub
	upgrader gorillawebsocket.Upgrader
	userID   func(ctx context.Context) string
}

// NewHandler accepts connections from the given browser origins. An empty
// list or "*" accepts any origin. userID labels clients for logging and
// may be nil.
func NewHandler(hub *Hub, origins []string, userID func(ctx context.Context) string) *Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Handler{
		hub:    hub,
		userID: userID,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/events", h.Connect)
}

// Connect upgrades the request and runs the client until it disconnects.
func (h *Handler) Connect(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		return nil
	}

	client := &Client{
		ID:     uuid.New().String(),
		Topics: []string{},
		Send:   make(chan []byte, 256),
	}
	if h.userID != nil {
		client.UserID = h.userID(c.Request().Context())
	}
	h.hub.Register(client)
	h.hub.logger.Debug().Str("client_id", client.ID).Str("user_id", client.UserID).Msg("event client connected")

	go h.writePump(client, ws)
	go h.readPump(client, ws)
	return nil
}

func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		ws.Close()
	}()
	ws.SetReadLimit(64 << 10)
	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		h.hub.ProcessMessage(client, msg)
	}
}

func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer ws.Close()
	for message := range client.Send {
		ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}

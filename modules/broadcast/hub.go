package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	domain "github.com/example/taskboard/domain/task"
	"github.com/gofiber/contrib/websocket"
)

// Conn is the slice of the websocket connection the hub needs. It is
// satisfied by *websocket.Conn; tests substitute fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents one connected subscriber.
type Client struct {
	ID          string
	User        string
	Conn        Conn
	ConnectedAt time.Time
}

// Event is the envelope pushed to subscribers.
type Event map[string]any

// broadcastRequest pairs an event with an optional excluded client.
type broadcastRequest struct {
	event     Event
	excludeID string
}

// Hub owns the set of live subscriber connections and fans events out to
// them. The registry is scoped to the Hub instance, so independent hubs can
// coexist (and be exercised in tests) without shared state.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastRequest
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastRequest, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It accepts a context for graceful
// shutdown. Events queued to one connection are written sequentially by this
// loop, so delivery is ordered per connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case req := <-h.broadcast:
			h.handleBroadcast(req)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Register adds a client to the hub. The client immediately receives a
// "connected" acknowledgement.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast queues an event for delivery to every open connection except
// excludeID (pass "" to deliver to all). Delivery is fire-and-forget.
func (h *Hub) Broadcast(event Event, excludeID string) {
	h.broadcast <- broadcastRequest{event: event, excludeID: excludeID}
}

// NotifyMutation broadcasts a task mutation notice to all connections,
// including the originator. kind is the suffix of the event type
// ("created", "updated", ...).
func (h *Hub) NotifyMutation(kind string, task domain.Task, extra map[string]any) {
	event := Event{
		"type":      "task:" + kind,
		"task":      task,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	for k, v := range extra {
		event[k] = v
	}
	h.Broadcast(event, "")
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	if client.ConnectedAt.IsZero() {
		client.ConnectedAt = time.Now()
	}
	h.clients[client.ID] = client
	h.mu.Unlock()

	log.Printf("[hub] Client %s registered", client.ID)
	ack, err := json.Marshal(Event{
		"type":      "connected",
		"timestamp": client.ConnectedAt.Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("[hub] Failed to marshal connected ack: %v", err)
		return
	}
	h.sendToClient(client, ack)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		log.Printf("[hub] Client %s unregistered", client.ID)
	}
}

func (h *Hub) handleBroadcast(req broadcastRequest) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(req.event)
	if err != nil {
		log.Printf("[hub] Failed to marshal broadcast event: %v", err)
		return
	}

	for id, client := range h.clients {
		if id == req.excludeID {
			continue
		}
		h.sendToClient(client, data)
	}
}

// sendToClient writes one event. A failed write is logged and swallowed: a
// connection closing mid-send must never abort delivery to the others.
func (h *Hub) sendToClient(client *Client, data []byte) {
	if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[hub] Failed to send to client %s: %v", client.ID, err)
	}
}

// closeAllClients closes all connected client connections.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
}

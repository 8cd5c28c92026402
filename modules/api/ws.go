package api

import (
	"encoding/json"
	"log"
	"time"

	"github.com/example/taskboard/modules/broadcast"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// wsMessage is the inbound client control message.
type wsMessage struct {
	Type   string          `json:"type"`
	User   string          `json:"user,omitempty"`
	TaskID string          `json:"task_id,omitempty"`
	Task   json.RawMessage `json:"task,omitempty"`
}

// Inbound message types.
const (
	wsTypePing        = "ping"
	wsTypeTyping      = "typing"
	wsTypeTaskCreated = "task_created"
)

// handleWebSocket handles WebSocket connections at /ws.
func (m *Module) handleWebSocket(c *websocket.Conn) {
	client := &broadcast.Client{
		ID:          uuid.New().String(),
		User:        c.Query("user", "anonymous"),
		Conn:        c,
		ConnectedAt: time.Now(),
	}

	m.hub.Register(client)
	defer func() {
		m.hub.Unregister(client)
		log.Printf("[api] WebSocket client disconnected: %s (%s)", client.ID, client.User)
	}()

	log.Printf("[api] WebSocket client connected: %s (%s)", client.ID, client.User)

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] Client %s closed connection", client.ID)
			} else {
				log.Printf("[api] Read error from %s: %v", client.ID, err)
			}
			break
		}

		var msg wsMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			m.sendWSError(c, "Invalid message format")
			continue
		}

		switch msg.Type {
		case wsTypePing:
			// Heartbeat is answered synchronously, not fanned out.
			_ = c.WriteJSON(broadcast.Event{
				"type":      "pong",
				"timestamp": time.Now().Format(time.RFC3339),
			})
		case wsTypeTyping:
			m.handleTyping(client, msg)
		case wsTypeTaskCreated:
			m.handleTaskNotice(c, msg)
		default:
			m.sendWSError(c, "Unknown message type: "+msg.Type)
		}
	}
}

// handleTyping fans a typing indicator out to every other connection.
func (m *Module) handleTyping(client *broadcast.Client, msg wsMessage) {
	user := msg.User
	if user == "" {
		user = client.User
	}
	event := broadcast.Event{
		"type":      "user:typing",
		"user":      user,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if msg.TaskID != "" {
		event["task_id"] = msg.TaskID
	}
	m.hub.Broadcast(event, client.ID)
}

// handleTaskNotice fans an informational creation notice out to all
// connections. The notice is not authoritative; real mutations go through
// the repository.
func (m *Module) handleTaskNotice(c *websocket.Conn, msg wsMessage) {
	if len(msg.Task) == 0 {
		m.sendWSError(c, "task payload is required")
		return
	}
	m.hub.Broadcast(broadcast.Event{
		"type":      "task:created",
		"task":      msg.Task,
		"timestamp": time.Now().Format(time.RFC3339),
	}, "")
}

func (m *Module) sendWSError(c *websocket.Conn, message string) {
	_ = c.WriteJSON(broadcast.Event{
		"type":  "error",
		"error": message,
	})
}

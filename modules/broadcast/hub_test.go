package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	domain "github.com/example/taskboard/domain/task"
)

// fakeConn records written frames. failWrites makes every write fail.
type fakeConn struct {
	mu         sync.Mutex
	messages   [][]byte
	failWrites bool
	closed     bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errors.New("connection reset")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.messages = append(c.messages, buf)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *fakeConn) last(t *testing.T) map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		t.Fatal("no messages received")
	}
	var event map[string]any
	if err := json.Unmarshal(c.messages[len(c.messages)-1], &event); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return event
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Wait()
	})
	return hub
}

func connect(t *testing.T, hub *Hub, id, user string) (*Client, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	client := &Client{ID: id, User: user, Conn: conn}
	hub.Register(client)
	// Registration is acknowledged with a "connected" frame.
	waitFor(t, func() bool { return conn.count() >= 1 })
	return client, conn
}

func TestRegisterSendsConnectedAck(t *testing.T) {
	hub := startHub(t)
	_, conn := connect(t, hub, "c1", "alice")

	ack := conn.last(t)
	if ack["type"] != "connected" {
		t.Errorf("ack type = %v, want connected", ack["type"])
	}
	if _, ok := ack["timestamp"].(string); !ok {
		t.Errorf("ack timestamp missing or not a string: %v", ack["timestamp"])
	}
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", hub.ClientCount())
	}
}

func TestNotifyMutationReachesAllClients(t *testing.T) {
	hub := startHub(t)
	_, conn1 := connect(t, hub, "c1", "alice")
	_, conn2 := connect(t, hub, "c2", "bob")

	hub.NotifyMutation("updated", domain.Task{ID: "t1", Title: "Ship it"}, map[string]any{
		"linked": "docs/plan.md",
	})

	waitFor(t, func() bool { return conn1.count() >= 2 && conn2.count() >= 2 })

	for _, conn := range []*fakeConn{conn1, conn2} {
		event := conn.last(t)
		if event["type"] != "task:updated" {
			t.Errorf("type = %v, want task:updated", event["type"])
		}
		if event["linked"] != "docs/plan.md" {
			t.Errorf("extra field linked = %v, want docs/plan.md", event["linked"])
		}
		task, ok := event["task"].(map[string]any)
		if !ok {
			t.Fatalf("task payload missing: %v", event)
		}
		if task["id"] != "t1" {
			t.Errorf("task id = %v, want t1", task["id"])
		}
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	hub := startHub(t)
	_, sender := connect(t, hub, "c1", "alice")
	_, other := connect(t, hub, "c2", "bob")

	hub.Broadcast(Event{"type": "user:typing", "user": "alice"}, "c1")

	waitFor(t, func() bool { return other.count() >= 2 })

	event := other.last(t)
	if event["type"] != "user:typing" {
		t.Errorf("type = %v, want user:typing", event["type"])
	}
	// The sender only ever saw its connected ack.
	if sender.count() != 1 {
		t.Errorf("sender received %d frames, want 1", sender.count())
	}
}

func TestFailingConnectionDoesNotBlockOthers(t *testing.T) {
	hub := startHub(t)

	broken := &fakeConn{failWrites: true}
	hub.Register(&Client{ID: "dead", User: "ghost", Conn: broken})
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	_, healthy := connect(t, hub, "live", "alice")

	hub.NotifyMutation("created", domain.Task{ID: "t1"}, nil)

	waitFor(t, func() bool { return healthy.count() >= 2 })
	if event := healthy.last(t); event["type"] != "task:created" {
		t.Errorf("type = %v, want task:created", event["type"])
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	hub := startHub(t)
	client, conn := connect(t, hub, "c1", "alice")
	_, stayConn := connect(t, hub, "c2", "bob")

	hub.Unregister(client)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.NotifyMutation("deleted", domain.Task{ID: "t1"}, nil)
	waitFor(t, func() bool { return stayConn.count() >= 2 })

	if conn.count() != 1 {
		t.Errorf("unregistered client received %d frames, want 1 (the ack)", conn.count())
	}
}

func TestShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	conn := &fakeConn{}
	hub.Register(&Client{ID: "c1", User: "alice", Conn: conn})
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	cancel()
	hub.Wait()

	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	if !closed {
		t.Error("client connection not closed on shutdown")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount after shutdown = %d, want 0", hub.ClientCount())
	}
}

package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/example/taskboard/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Module is an EventConsumerModule that turns task mutation events into
// WebSocket fan-out. Mutation notices always reach every connection,
// including the one whose request caused the mutation.
type Module struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new broadcast module with its own hub.
func NewModule() *Module {
	return &Module{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Hub returns the WebSocket hub for the API module to use.
func (m *Module) Hub() *Hub {
	return m.hub
}

// Start launches the hub loop.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[broadcast] Module started - WebSocket hub running")
	return nil
}

// Stop shuts down the hub.
func (m *Module) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[broadcast] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers subscribes to every task mutation event.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskCreatedV1, m.handleTaskEvent, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskUpdatedV1, m.handleTaskEvent, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskArchivedV1, m.handleTaskEvent, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskArchived consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskRestoredV1, m.handleTaskEvent, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskRestored consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskDeletedV1, m.handleTaskEvent, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskCommentedV1, m.handleTaskEvent, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskCommented consumer: %w", err)
	}

	log.Println("[broadcast] Registered consumers for task mutation events")
	return nil
}

// handleTaskEvent fans one mutation event out to all subscribers.
func (m *Module) handleTaskEvent(_ context.Context, event events.TaskEvent, _ *mono.Msg) error {
	log.Printf("[broadcast] Broadcasting task:%s for task %s", event.Kind, event.Task.ID)
	m.hub.NotifyMutation(event.Kind, event.Task, event.Extra)
	return nil
}

package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/taskboard/modules/brain"
	"github.com/example/taskboard/modules/broadcast"
	"github.com/example/taskboard/modules/task"
	"github.com/example/taskboard/modules/team"
	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Module is the HTTP/WebSocket driving adapter.
type Module struct {
	app         *fiber.App
	tasks       task.TaskPort
	hub         *broadcast.Hub
	prober      team.Prober
	scanner     brain.Scanner
	addr        string
	corsOrigins string
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the API module. prober and scanner are injected
// collaborators; either may be nil to disable its endpoint.
func NewModule(addr, corsOrigins string, prober team.Prober, scanner brain.Scanner) *Module {
	return &Module{
		addr:        addr,
		corsOrigins: corsOrigins,
		prober:      prober,
		scanner:     scanner,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"tasks"}
}

// SetDependencyServiceContainer receives service containers from
// dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "tasks" {
		m.tasks = task.NewAdapter(container)
	}
}

// SetHub sets the broadcast hub (called from main.go).
func (m *Module) SetHub(hub *broadcast.Hub) {
	m.hub = hub
}

// Start initializes the Fiber HTTP server.
func (m *Module) Start(_ context.Context) error {
	if m.tasks == nil {
		return fmt.Errorf("tasks adapter dependency not set")
	}
	if m.hub == nil {
		return fmt.Errorf("broadcast hub dependency not set")
	}

	m.app = fiber.New(fiber.Config{
		AppName:               "taskboard",
		DisableStartupMessage: true,
		ErrorHandler:          fiberErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	m.app.Use(recover.New())
	m.app.Use(loggerMiddleware())
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: m.corsOrigins,
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.setupRoutes()

	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()

	log.Printf("[api] HTTP server started on %s", m.addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr":              m.addr,
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// setupRoutes configures all HTTP routes.
func (m *Module) setupRoutes() {
	m.app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	m.app.Get("/tasks", m.listTasks)
	m.app.Post("/tasks", m.createTask)
	m.app.Get("/tasks/:id", m.getTask)
	m.app.Patch("/tasks/:id", m.updateTask)
	m.app.Patch("/tasks/:id/archive", m.archiveTask)
	m.app.Post("/tasks/:id/restore", m.restoreTask)
	m.app.Delete("/tasks/:id", m.deleteTask)

	m.app.Get("/tasks/:id/comments", m.listComments)
	m.app.Post("/tasks/:id/comments", m.addComment)

	m.app.Post("/tasks/:id/documents", m.linkDocument)
	m.app.Delete("/tasks/:id/documents/*", m.unlinkDocument)
	m.app.Get("/task-documents", m.taskDocuments)

	m.app.Get("/stats", m.stats)
	m.app.Get("/team", m.teamStatus)
	m.app.Get("/brain/documents", m.brainDocuments)
}

// fiberErrorHandler handles errors escaping route handlers.
func fiberErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

// loggerMiddleware returns a Fiber middleware for request logging.
func loggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Upgrade") == "websocket" {
			return c.Next()
		}
		err := c.Next()
		log.Printf("[api] %s %s %d", c.Method(), c.Path(), c.Response().StatusCode())
		return err
	}
}

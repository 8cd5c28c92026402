package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/taskboard/config"
	"github.com/example/taskboard/modules/api"
	"github.com/example/taskboard/modules/brain"
	"github.com/example/taskboard/modules/broadcast"
	"github.com/example/taskboard/modules/store"
	"github.com/example/taskboard/modules/task"
	"github.com/example/taskboard/modules/team"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== taskboard - task tracking with live push ===")

	cfg, err := config.Load(os.Getenv("TASKBOARD_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	taskModule := task.NewModule(store.New(cfg.DataFile), cfg.DefaultActor)
	broadcastModule := broadcast.NewModule()
	apiModule := api.NewModule(
		cfg.ListenAddr,
		cfg.CORSOrigins,
		team.NewProcessProber(peersFromConfig(cfg)),
		scannerFromConfig(cfg),
	)

	// Inject broadcast hub into API module
	// (the hub is not exposed via ServiceContainer)
	apiModule.SetHub(broadcastModule.Hub())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - tasks: core repository (ServiceProviderModule + EventEmitterModule)
	// - broadcast: event consumer fanning mutations out over WebSocket
	// - api: driving adapter (Fiber HTTP/WebSocket server, depends on tasks)
	app.Register(taskModule)
	app.Register(broadcastModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func peersFromConfig(cfg *config.Config) []team.Peer {
	peers := make([]team.Peer, 0, len(cfg.Peers))
	for _, p := range cfg.Peers {
		peers = append(peers, team.Peer{Name: p.Name, Pattern: p.Pattern, Model: p.Model})
	}
	return peers
}

func scannerFromConfig(cfg *config.Config) brain.Scanner {
	if cfg.BrainDir == "" {
		return nil
	}
	return brain.NewDirScanner(cfg.BrainDir)
}

func printStartupInfo(cfg *config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost%s):", cfg.ListenAddr)
	log.Println("  GET    /health                      - Health check")
	log.Println("  GET    /tasks?project&status        - List tasks (overdue first)")
	log.Println("  POST   /tasks                       - Create a task")
	log.Println("  GET    /tasks/:id                   - Task detail with history")
	log.Println("  PATCH  /tasks/:id                   - Partial update")
	log.Println("  PATCH  /tasks/:id/archive           - Archive")
	log.Println("  POST   /tasks/:id/restore           - Restore")
	log.Println("  DELETE /tasks/:id                   - Permanent delete")
	log.Println("  POST   /tasks/:id/comments          - Comment")
	log.Println("  POST   /tasks/:id/documents         - Link a document")
	log.Println("  DELETE /tasks/:id/documents/:path   - Unlink a document")
	log.Println("  GET    /task-documents              - Document reverse index")
	log.Println("  GET    /stats                       - Board statistics")
	log.Println("  GET    /team                        - Peer process status")
	log.Println("  GET    /brain/documents             - Scanned markdown documents")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost%s/ws):", cfg.ListenAddr)
	log.Println("  Server events: connected, task:created, task:updated, task:archived,")
	log.Println("                 task:restored, task:deleted, task:commented, user:typing, pong")
	log.Println("  Client messages: ping, typing, task_created")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}

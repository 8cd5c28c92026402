package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":3000" {
		t.Errorf("ListenAddr = %q, want :3000", cfg.ListenAddr)
	}
	if cfg.DataFile != "data/board.json" {
		t.Errorf("DataFile = %q, want data/board.json", cfg.DataFile)
	}
	if cfg.DefaultActor != "system" {
		t.Errorf("DefaultActor = %q, want system", cfg.DefaultActor)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":3000" {
		t.Errorf("ListenAddr = %q, want :3000", cfg.ListenAddr)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
listen_addr: ":8081"
data_file: /var/lib/taskboard/board.json
default_actor: board-bot
peers:
  - name: reviewer
    pattern: "reviewer --daemon"
    model: large
brain_dir: /srv/brain
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8081" {
		t.Errorf("ListenAddr = %q, want :8081", cfg.ListenAddr)
	}
	if cfg.DataFile != "/var/lib/taskboard/board.json" {
		t.Errorf("DataFile = %q", cfg.DataFile)
	}
	if cfg.DefaultActor != "board-bot" {
		t.Errorf("DefaultActor = %q", cfg.DefaultActor)
	}
	if len(cfg.Peers) != 1 || cfg.Peers[0].Name != "reviewer" || cfg.Peers[0].Model != "large" {
		t.Errorf("Peers = %+v", cfg.Peers)
	}
	if cfg.BrainDir != "/srv/brain" {
		t.Errorf("BrainDir = %q, want /srv/brain", cfg.BrainDir)
	}
	// Unset fields keep their defaults.
	if cfg.CORSOrigins == "" {
		t.Error("CORSOrigins default lost")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TASKBOARD_DATA", "/tmp/override.json")
	t.Setenv("TASKBOARD_ACTOR", "env-actor")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://example.com")
	t.Setenv("TASKBOARD_BRAIN_DIR", "/tmp/brain")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q, want :9000", cfg.ListenAddr)
	}
	if cfg.DataFile != "/tmp/override.json" {
		t.Errorf("DataFile = %q", cfg.DataFile)
	}
	if cfg.DefaultActor != "env-actor" {
		t.Errorf("DefaultActor = %q", cfg.DefaultActor)
	}
	if cfg.CORSOrigins != "https://example.com" {
		t.Errorf("CORSOrigins = %q", cfg.CORSOrigins)
	}
	if cfg.BrainDir != "/tmp/brain" {
		t.Errorf("BrainDir = %q", cfg.BrainDir)
	}
}

func TestPortEnvWithColon(t *testing.T) {
	t.Setenv("PORT", ":7777")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":7777" {
		t.Errorf("ListenAddr = %q, want :7777", cfg.ListenAddr)
	}
}

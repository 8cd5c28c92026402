// Package config loads application settings from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application settings.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":3000".
	ListenAddr string `yaml:"listen_addr"`

	// DataFile is the path of the JSON board snapshot.
	DataFile string `yaml:"data_file"`

	// DefaultActor is the fallback identity for mutations that carry no
	// actor.
	DefaultActor string `yaml:"default_actor"`

	// CORSOrigins is a comma-separated list of allowed origins.
	CORSOrigins string `yaml:"cors_origins"`

	// Peers are the names of peer processes the team prober checks.
	Peers []Peer `yaml:"peers"`

	// BrainDir is the directory the document scanner walks for markdown
	// files. Empty disables scanning.
	BrainDir string `yaml:"brain_dir"`
}

// Peer describes one probed peer process.
type Peer struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"` // process match pattern for pgrep -f
	Model   string `yaml:"model,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr:   ":3000",
		DataFile:     "data/board.json",
		DefaultActor: "system",
		CORSOrigins:  "http://localhost:3000,http://localhost:8080",
	}
}

// Load reads the YAML file at path (if path is non-empty and the file
// exists) over the defaults, then applies environment overrides. A present
// but malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to env overrides.
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.ListenAddr = ":" + strings.TrimPrefix(port, ":")
	}
	if v := os.Getenv("TASKBOARD_DATA"); v != "" {
		c.DataFile = v
	}
	if v := os.Getenv("TASKBOARD_ACTOR"); v != "" {
		c.DefaultActor = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSOrigins = v
	}
	if v := os.Getenv("TASKBOARD_BRAIN_DIR"); v != "" {
		c.BrainDir = v
	}
}

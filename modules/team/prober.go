// Package team reports the online state of known peer processes. The core
// only consumes the shaped status records; probing is best-effort and a
// failed probe degrades to offline rather than propagating.
package team

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const probeTimeout = 2 * time.Second

// PeerStatus is the probed state of one peer process.
type PeerStatus struct {
	Name   string `json:"name"`
	Online bool   `json:"online"`
	Model  string `json:"model,omitempty"`
}

// Peer identifies a process to probe.
type Peer struct {
	Name    string
	Pattern string
	Model   string
}

// Prober reports peer statuses. Implementations must never fail the whole
// probe because one peer is unreachable.
type Prober interface {
	Probe(ctx context.Context) []PeerStatus
}

// ProcessProber probes peers by matching running processes with pgrep.
type ProcessProber struct {
	peers []Peer
	// runner is swapped in tests.
	runner func(ctx context.Context, pattern string) bool
}

// NewProcessProber creates a prober over the configured peers.
func NewProcessProber(peers []Peer) *ProcessProber {
	return &ProcessProber{
		peers:  peers,
		runner: pgrepRunning,
	}
}

// Probe checks all peers concurrently and returns their statuses in
// configuration order.
func (p *ProcessProber) Probe(ctx context.Context) []PeerStatus {
	statuses := make([]PeerStatus, len(p.peers))

	g, ctx := errgroup.WithContext(ctx)
	for i, peer := range p.peers {
		i, peer := i, peer
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			statuses[i] = PeerStatus{
				Name:   peer.Name,
				Online: p.runner(probeCtx, peer.Pattern),
				Model:  peer.Model,
			}
			return nil
		})
	}
	// Goroutines never return errors; a failed probe is just offline.
	_ = g.Wait()

	return statuses
}

// pgrepRunning reports whether any process matches pattern.
func pgrepRunning(ctx context.Context, pattern string) bool {
	if strings.TrimSpace(pattern) == "" {
		return false
	}
	err := exec.CommandContext(ctx, "pgrep", "-f", pattern).Run()
	return err == nil
}

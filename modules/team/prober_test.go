package team

import (
	"context"
	"testing"
)

func TestProbeReportsConfigOrder(t *testing.T) {
	prober := NewProcessProber([]Peer{
		{Name: "builder", Pattern: "builder --watch", Model: "small"},
		{Name: "reviewer", Pattern: "reviewer --daemon"},
		{Name: "ghost", Pattern: "nope"},
	})
	prober.runner = func(_ context.Context, pattern string) bool {
		return pattern != "nope"
	}

	statuses := prober.Probe(context.Background())
	if len(statuses) != 3 {
		t.Fatalf("statuses = %d, want 3", len(statuses))
	}

	want := []PeerStatus{
		{Name: "builder", Online: true, Model: "small"},
		{Name: "reviewer", Online: true},
		{Name: "ghost", Online: false},
	}
	for i, w := range want {
		if statuses[i] != w {
			t.Errorf("statuses[%d] = %+v, want %+v", i, statuses[i], w)
		}
	}
}

func TestProbeNoPeers(t *testing.T) {
	statuses := NewProcessProber(nil).Probe(context.Background())
	if len(statuses) != 0 {
		t.Errorf("statuses = %v, want empty", statuses)
	}
}

func TestProbeFailedPeerIsOffline(t *testing.T) {
	prober := NewProcessProber([]Peer{{Name: "down", Pattern: "down"}})
	prober.runner = func(_ context.Context, _ string) bool { return false }

	statuses := prober.Probe(context.Background())
	if statuses[0].Online {
		t.Error("failed probe must report offline")
	}
}

func TestPgrepBlankPattern(t *testing.T) {
	if pgrepRunning(context.Background(), "   ") {
		t.Error("blank pattern must never match")
	}
}

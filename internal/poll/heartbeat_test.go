package poll

import (
	"testing"
	"time"
)

func TestHeartbeatDisabled(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHeartbeat(start)

	if hb := h.Check(start.Add(time.Hour), 0, 1); hb != nil {
		t.Errorf("expected nil with interval 0, got %+v", hb)
	}
}

func TestHeartbeatInterval(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHeartbeat(start)
	interval := 15 * time.Minute

	if hb := h.Check(start.Add(14*time.Minute), interval, 10); hb != nil {
		t.Fatalf("expected no heartbeat before interval, got %+v", hb)
	}

	hb := h.Check(start.Add(15*time.Minute), interval, 42)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", hb.Uptime)
	}
	if hb.Ticks != 42 {
		t.Errorf("Ticks: got %d, want 42", hb.Ticks)
	}

	if hb := h.Check(start.Add(20*time.Minute), interval, 50); hb != nil {
		t.Errorf("expected no heartbeat 5m after last, got %+v", hb)
	}
	if hb := h.Check(start.Add(30*time.Minute), interval, 60); hb == nil {
		t.Error("expected second heartbeat at 30m")
	}
}

package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSchedulerDefaults(t *testing.T) {
	s := NewScheduler(t.TempDir(), 0, 0)

	if s.intervalMinutes <= 0 {
		t.Errorf("interval = %d, want a positive default", s.intervalMinutes)
	}
	if s.maxAgeHours <= 0 {
		t.Errorf("max age = %d, want a positive default", s.maxAgeHours)
	}

	// Starting with an unset config section must not panic the ticker
	s.Start()
	s.Stop()
}

func TestSweepRemovesStaleFiles(t *testing.T) {
	dir := t.TempDir()

	stale := filepath.Join(dir, "stale.mp4")
	if err := os.WriteFile(stale, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write stale file: %v", err)
	}
	old := time.Now().Add(-5 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("failed to age stale file: %v", err)
	}

	fresh := filepath.Join(dir, "fresh.mp4")
	if err := os.WriteFile(fresh, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write fresh file: %v", err)
	}

	s := NewScheduler(dir, 30, 4)
	s.sweep()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale file survived the sweep")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh file should survive the sweep: %v", err)
	}
}

package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Scheduler periodically sweeps the scratch directory. Extraction and
// sampling remove their own temp files on every exit path; the sweep
// only catches files left behind by a killed process.
type Scheduler struct {
	tempDir         string
	intervalMinutes int
	maxAgeHours     int
	stopChan        chan struct{}
}

// NewScheduler creates a cleanup scheduler for tempDir. Zero or
// negative interval and age fall back to sane defaults.
func NewScheduler(tempDir string, intervalMinutes, maxAgeHours int) *Scheduler {
	if intervalMinutes <= 0 {
		intervalMinutes = 30
	}
	if maxAgeHours <= 0 {
		maxAgeHours = 4
	}
	return &Scheduler{
		tempDir:         tempDir,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		stopChan:        make(chan struct{}),
	}
}

// Start sweeps once immediately, then on every tick
func (s *Scheduler) Start() {
	log.Println("Running initial scratch directory sweep...")
	s.sweep()

	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %dm, max age: %dh)",
		s.intervalMinutes, s.maxAgeHours)
}

// Stop halts the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Cleanup scheduler stopped")
}

// sweep removes scratch files older than the configured age. The
// scratch directory is flat, so a plain listing suffices.
func (s *Scheduler) sweep() {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		log.Printf("Error reading scratch directory: %v", err)
		return
	}

	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour

	var deletedCount int
	var deletedSize int64

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		age := now.Sub(info.ModTime())
		if age <= maxAge {
			continue
		}

		path := filepath.Join(s.tempDir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("Failed to delete stale scratch file %s: %v", path, err)
			continue
		}

		deletedCount++
		deletedSize += info.Size()
	}

	if deletedCount > 0 {
		log.Printf("Sweep complete: %d stale files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
}

// EnsureTempDirExists creates the scratch directory if needed
func EnsureTempDirExists(tempDir string) error {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return err
	}
	log.Printf("Scratch directory ready: %s", tempDir)
	return nil
}

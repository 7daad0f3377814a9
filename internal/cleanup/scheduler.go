package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Scheduler prunes stale intermediates from the scratch area. Canonical
// copies, extracted WAVs and cut files for abandoned projects add up fast;
// anything a project still needs gets re-derived from the source on demand.
type Scheduler struct {
	scratchDir      string
	intervalMinutes int
	maxAgeHours     int
	stopChan        chan struct{}
}

// NewScheduler creates a cleanup scheduler for the scratch directory.
func NewScheduler(scratchDir string, intervalMinutes, maxAgeHours int) *Scheduler {
	return &Scheduler{
		scratchDir:      scratchDir,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the cleanup scheduler.
func (s *Scheduler) Start() {
	log.Println("Running initial scratch cleanup...")
	s.cleanOldFiles()

	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.cleanOldFiles()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %dm, max age: %dh)",
		s.intervalMinutes, s.maxAgeHours)
}

// Stop stops the cleanup scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Cleanup scheduler stopped")
}

// cleanOldFiles removes scratch files older than maxAgeHours, then any
// project directories the sweep left empty.
func (s *Scheduler) cleanOldFiles() {
	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour

	var deletedCount int
	var deletedSize int64
	var emptied []string

	err := filepath.Walk(s.scratchDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}

		if info.IsDir() {
			if path != s.scratchDir {
				emptied = append(emptied, path)
			}
			return nil
		}

		age := now.Sub(info.ModTime())
		if age > maxAge {
			size := info.Size()
			if err := os.Remove(path); err != nil {
				log.Printf("Failed to delete old file %s: %v", path, err)
			} else {
				deletedCount++
				deletedSize += size
				log.Printf("Deleted old scratch file: %s (age: %s, size: %dKB)",
					filepath.Base(path), age.Round(time.Hour), size/1024)
			}
		}

		return nil
	})

	if err != nil {
		log.Printf("Error during cleanup: %v", err)
	}

	// Deepest first, so nested empty dirs collapse upward. os.Remove
	// refuses non-empty directories, which is exactly what we want.
	for i := len(emptied) - 1; i >= 0; i-- {
		os.Remove(emptied[i])
	}

	if deletedCount > 0 {
		log.Printf("Cleanup complete: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
}

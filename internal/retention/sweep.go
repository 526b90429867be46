package retention

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vigia/internal/metrics"
)

// Config configures the retention sweeper.
type Config struct {
	DetectionsRoot   string
	LogsRoot         string
	RetentionDays    int
	LogRetentionDays int
}

// Sweeper normalizes day-folder names and deletes folders older than the
// retention window. Per-folder failures are reported and never stop the
// sweep of the remaining folders.
type Sweeper struct {
	cfg Config
	now func() time.Time
}

// NewSweeper creates a sweeper over the two storage roots.
func NewSweeper(cfg Config) *Sweeper {
	return &Sweeper{cfg: cfg, now: time.Now}
}

// Sweep runs both cleanup passes and returns the combined report.
func (s *Sweeper) Sweep() []string {
	report := s.SweepDetections()
	return append(report, s.SweepLogs()...)
}

// SweepDetections walks detections_root/{camera}/{day}: non-canonical day
// names are renamed to canonical form first, then any folder dated strictly
// before the retention cutoff is removed. A folder aged exactly the window
// is kept.
func (s *Sweeper) SweepDetections() []string {
	var report []string

	cameras, err := os.ReadDir(s.cfg.DetectionsRoot)
	if err != nil {
		return append(report, fmt.Sprintf("cannot read detections root %s: %v", s.cfg.DetectionsRoot, err))
	}

	cutoff := s.cutoff(s.cfg.RetentionDays)
	for _, cam := range cameras {
		if !cam.IsDir() {
			continue
		}
		camDir := filepath.Join(s.cfg.DetectionsRoot, cam.Name())
		days, err := os.ReadDir(camDir)
		if err != nil {
			report = append(report, fmt.Sprintf("cannot read camera folder %s: %v", cam.Name(), err))
			continue
		}
		for _, day := range days {
			if !day.IsDir() {
				continue
			}
			report = append(report, s.sweepDayFolder(camDir, day.Name(), cutoff, "detections")...)
		}
	}
	return report
}

// SweepLogs removes expired day folders directly under the logs root. Log
// folders are assumed canonically named; anything unparseable is reported
// and skipped.
func (s *Sweeper) SweepLogs() []string {
	var report []string

	days, err := os.ReadDir(s.cfg.LogsRoot)
	if err != nil {
		return append(report, fmt.Sprintf("cannot read logs root %s: %v", s.cfg.LogsRoot, err))
	}

	cutoff := s.cutoff(s.cfg.LogRetentionDays)
	for _, day := range days {
		if !day.IsDir() {
			continue
		}
		name := day.Name()
		date, err := time.Parse(CanonicalFormat, name)
		if err != nil {
			report = append(report, fmt.Sprintf("ignoring log folder %q: not a date", name))
			continue
		}
		if !date.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.cfg.LogsRoot, name)); err != nil {
			report = append(report, fmt.Sprintf("failed to delete log folder %s: %v", name, err))
			continue
		}
		metrics.RetentionDeleted.WithLabelValues("logs").Inc()
		report = append(report, fmt.Sprintf("deleted expired log folder %s", name))
	}
	return report
}

func (s *Sweeper) sweepDayFolder(parent, name string, cutoff time.Time, root string) []string {
	var report []string

	finalName, _, msg := normalizeFolder(parent, name)
	if msg != "" {
		report = append(report, msg)
	}

	// Deletion is decided on the canonical name only; a folder that could
	// not be normalized is preserved.
	date, err := time.Parse(CanonicalFormat, finalName)
	if err != nil {
		return report
	}
	if !date.Before(cutoff) {
		return report
	}

	if err := os.RemoveAll(filepath.Join(parent, finalName)); err != nil {
		return append(report, fmt.Sprintf("failed to delete %s: %v", finalName, err))
	}
	metrics.RetentionDeleted.WithLabelValues(root).Inc()
	return append(report, fmt.Sprintf("deleted expired folder %s in %s", finalName, filepath.Base(parent)))
}

// cutoff is today's UTC midnight minus the retention window. Folder dates
// parse to UTC midnights, so a folder aged exactly the window compares equal
// and survives, independent of the time of day the sweep runs.
func (s *Sweeper) cutoff(days int) time.Time {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, -days)
}

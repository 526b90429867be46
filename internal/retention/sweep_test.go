package retention

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestSweeper(t *testing.T, now time.Time, days int) (*Sweeper, string, string) {
	t.Helper()
	detections := t.TempDir()
	logs := t.TempDir()
	s := NewSweeper(Config{
		DetectionsRoot:   detections,
		LogsRoot:         logs,
		RetentionDays:    days,
		LogRetentionDays: days,
	})
	s.now = func() time.Time { return now }
	return s, detections, logs
}

func mkDayFolder(t *testing.T, root string, parts ...string) string {
	t.Helper()
	path := filepath.Join(append([]string{root}, parts...)...)
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSweepDetectionsDeletesExpiredFolders(t *testing.T) {
	now := time.Date(2024, 4, 15, 9, 30, 0, 0, time.UTC)
	s, detections, _ := newTestSweeper(t, now, 30)

	old := now.AddDate(0, 0, -31).Format(CanonicalFormat)
	recent := now.AddDate(0, 0, -29).Format(CanonicalFormat)
	mkDayFolder(t, detections, "cam_1", old)
	mkDayFolder(t, detections, "cam_1", recent)

	s.SweepDetections()

	if _, err := os.Stat(filepath.Join(detections, "cam_1", old)); !os.IsNotExist(err) {
		t.Fatalf("folder aged 31 days should be deleted")
	}
	if _, err := os.Stat(filepath.Join(detections, "cam_1", recent)); err != nil {
		t.Fatalf("folder aged 29 days should be kept: %v", err)
	}
}

func TestSweepDetectionsKeepsFolderAtExactBoundary(t *testing.T) {
	// The cutoff compares UTC midnights with a strict "before", so a folder
	// aged exactly the retention window survives regardless of the sweep's
	// time of day.
	now := time.Date(2024, 4, 15, 23, 59, 59, 0, time.UTC)
	s, detections, _ := newTestSweeper(t, now, 30)

	boundary := now.AddDate(0, 0, -30).Format(CanonicalFormat)
	mkDayFolder(t, detections, "cam_1", boundary)

	s.SweepDetections()

	if _, err := os.Stat(filepath.Join(detections, "cam_1", boundary)); err != nil {
		t.Fatalf("folder aged exactly 30 days should be kept: %v", err)
	}
}

func TestSweepDetectionsNormalizesBeforeDeleting(t *testing.T) {
	now := time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)
	s, detections, _ := newTestSweeper(t, now, 30)

	// 2024-03-01 is 45 days before "now": it must be renamed, then deleted.
	mkDayFolder(t, detections, "cam_1", "01_03_2024")
	// Fresh folder in a historical format: renamed, kept.
	fresh := now.AddDate(0, 0, -1)
	freshAlt := fresh.Format("02-01-2006")
	mkDayFolder(t, detections, "cam_1", freshAlt)

	s.SweepDetections()

	if _, err := os.Stat(filepath.Join(detections, "cam_1", "01_03_2024")); !os.IsNotExist(err) {
		t.Fatalf("expired folder kept its historical name")
	}
	if _, err := os.Stat(filepath.Join(detections, "cam_1", "2024-03-01")); !os.IsNotExist(err) {
		t.Fatalf("expired folder should be deleted after rename")
	}
	if _, err := os.Stat(filepath.Join(detections, "cam_1", fresh.Format(CanonicalFormat))); err != nil {
		t.Fatalf("fresh folder should be renamed and kept: %v", err)
	}
}

func TestSweepDetectionsReportsUnrecognizedAndKeepsThem(t *testing.T) {
	now := time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)
	s, detections, _ := newTestSweeper(t, now, 30)

	mkDayFolder(t, detections, "cam_1", "notadate")

	report := s.SweepDetections()

	if _, err := os.Stat(filepath.Join(detections, "cam_1", "notadate")); err != nil {
		t.Fatalf("unrecognized folder must never be deleted: %v", err)
	}
	found := false
	for _, line := range report {
		if line == `unrecognized folder name "notadate", left untouched` {
			found = true
		}
	}
	if !found {
		t.Fatalf("unrecognized folder not reported: %v", report)
	}
}

func TestSweepLogsDeletesOnlyParseableExpiredFolders(t *testing.T) {
	now := time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)
	s, _, logs := newTestSweeper(t, now, 30)

	old := now.AddDate(0, 0, -31).Format(CanonicalFormat)
	recent := now.AddDate(0, 0, -5).Format(CanonicalFormat)
	mkDayFolder(t, logs, old)
	mkDayFolder(t, logs, recent)
	mkDayFolder(t, logs, "tmp")

	s.SweepLogs()

	if _, err := os.Stat(filepath.Join(logs, old)); !os.IsNotExist(err) {
		t.Fatalf("expired log folder should be deleted")
	}
	if _, err := os.Stat(filepath.Join(logs, recent)); err != nil {
		t.Fatalf("recent log folder should be kept: %v", err)
	}
	if _, err := os.Stat(filepath.Join(logs, "tmp")); err != nil {
		t.Fatalf("non-date log folder should be kept: %v", err)
	}
}

func TestSweepContinuesPastUnreadableCameraFolder(t *testing.T) {
	now := time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)
	s, detections, _ := newTestSweeper(t, now, 30)

	// A camera entry that is a file, not a directory, is skipped.
	if err := os.WriteFile(filepath.Join(detections, "stray.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	old := now.AddDate(0, 0, -40).Format(CanonicalFormat)
	mkDayFolder(t, detections, "cam_2", old)

	s.SweepDetections()

	if _, err := os.Stat(filepath.Join(detections, "cam_2", old)); !os.IsNotExist(err) {
		t.Fatalf("sweep did not reach cam_2 past the stray file")
	}
}

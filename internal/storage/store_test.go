package storage

import (
	"encoding/base64"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vigia/pkg/models"
)

func newTestStore(t *testing.T) (*Store, string, string) {
	t.Helper()
	detections := t.TempDir()
	logs := t.TempDir()
	s := NewStore(detections, logs)
	s.now = func() time.Time {
		return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	}
	return s, detections, logs
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestWriteDetectionCreatesRecordAndImage(t *testing.T) {
	s, detections, _ := newTestStore(t)

	event := models.DetectionEvent{
		CameraName: "cam_1",
		ID:         "det_1",
		Confidence: 0.85,
		Class:      "truck",
		Time:       "2024-03-01 09:59:58",
		Image:      base64.StdEncoding.EncodeToString([]byte("img")),
	}
	if err := s.WriteDetection(event); err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(detections, "cam_1", "2024-03-01")
	rows := readCSV(t, filepath.Join(dir, "detections.csv"))
	if len(rows) != 2 {
		t.Fatalf("expected header plus one record, got %d", len(rows))
	}
	header := rows[0]
	want := []string{"id", "camera", "confidence", "class", "time"}
	for i := range want {
		if header[i] != want[i] {
			t.Fatalf("header = %v, want %v", header, want)
		}
	}
	if rows[1][2] != "0.85" || rows[1][3] != "CAMIÓN" {
		t.Fatalf("unexpected record: %v", rows[1])
	}

	if _, err := os.Stat(filepath.Join(dir, "imagenes", "det_1.png")); err != nil {
		t.Fatalf("image missing: %v", err)
	}
}

func TestWriteDetectionAppendsWithoutRepeatingHeader(t *testing.T) {
	s, detections, _ := newTestStore(t)

	for _, id := range []string{"a", "b"} {
		err := s.WriteDetection(models.DetectionEvent{CameraName: "cam_1", ID: id, Confidence: 0.7, Class: "person"})
		if err != nil {
			t.Fatal(err)
		}
	}

	rows := readCSV(t, filepath.Join(detections, "cam_1", "2024-03-01", "detections.csv"))
	if len(rows) != 3 {
		t.Fatalf("expected header plus two records, got %d", len(rows))
	}
}

func TestWriteDetectionUsesDefaultClassForUnknownCategory(t *testing.T) {
	s, detections, _ := newTestStore(t)

	err := s.WriteDetection(models.DetectionEvent{CameraName: "cam_1", ID: "x", Confidence: 0.7, Class: "dragon"})
	if err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, filepath.Join(detections, "cam_1", "2024-03-01", "detections.csv"))
	if rows[1][3] != "INDEFINIDA" {
		t.Fatalf("unknown category should fall back to default, got %q", rows[1][3])
	}
}

func TestWriteDetectionSurvivesBadImage(t *testing.T) {
	s, detections, _ := newTestStore(t)

	// Not valid base64: the image is skipped but the record is still kept.
	err := s.WriteDetection(models.DetectionEvent{CameraName: "cam_1", ID: "y", Confidence: 0.7, Class: "person", Image: "%%%"})
	if err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(detections, "cam_1", "2024-03-01")
	if _, err := os.Stat(filepath.Join(dir, "imagenes", "y.png")); !os.IsNotExist(err) {
		t.Fatalf("bad image should not produce a file")
	}
	rows := readCSV(t, filepath.Join(dir, "detections.csv"))
	if len(rows) != 2 {
		t.Fatalf("record should be written despite the bad image")
	}
}

func TestWriteLogAppendsDatedRows(t *testing.T) {
	s, _, logs := newTestStore(t)

	if err := s.WriteLog(models.LogEvent{System: "detector", Traceback: "boom"}); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteLog(models.LogEvent{System: "processor", Traceback: "bang"}); err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, filepath.Join(logs, "2024-03-01", "logs.csv"))
	if len(rows) != 3 {
		t.Fatalf("expected header plus two rows, got %d", len(rows))
	}
	if rows[0][0] != "date" || rows[1][0] != "2024-03-01" || rows[2][1] != "processor" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

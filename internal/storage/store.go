package storage

import (
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vigia/internal/logger"
	"vigia/pkg/models"
)

const dayFormat = "2006-01-02"

var (
	detectionHeader = []string{"id", "camera", "confidence", "class", "time"}
	logHeader       = []string{"date", "system", "traceback"}
)

// Store owns the on-disk record of delivered detections and system logs:
// per-camera/per-day CSV files plus the captured images, and a per-day log
// CSV.
type Store struct {
	detectionsRoot string
	logsRoot       string
	now            func() time.Time
}

// NewStore creates a store over the two storage roots. Directories are
// created on demand as records arrive.
func NewStore(detectionsRoot, logsRoot string) *Store {
	return &Store{detectionsRoot: detectionsRoot, logsRoot: logsRoot, now: time.Now}
}

// WriteDetection persists the image and appends the CSV record for one
// detection. An undecodable or empty image is logged and skipped; the CSV
// record is still written.
func (s *Store) WriteDetection(event models.DetectionEvent) error {
	day := s.now().Format(dayFormat)
	dir := filepath.Join(s.detectionsRoot, event.CameraName, day)
	imgDir := filepath.Join(dir, "imagenes")
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		return fmt.Errorf("create detection directory: %w", err)
	}

	if err := s.writeImage(imgDir, event); err != nil {
		logger.Warnf("Failed to store image for detection %s: %v", event.ID, err)
	}

	class := models.LookupClass(event.Class)
	row := []string{
		event.ID,
		event.CameraName,
		strconv.FormatFloat(event.Confidence, 'f', -1, 64),
		strings.ToUpper(class.DisplayName),
		event.Time,
	}
	if err := appendRow(filepath.Join(dir, "detections.csv"), detectionHeader, row); err != nil {
		return fmt.Errorf("append detection record: %w", err)
	}
	return nil
}

// WriteLog appends one row to the day's log record.
func (s *Store) WriteLog(event models.LogEvent) error {
	day := s.now().Format(dayFormat)
	dir := filepath.Join(s.logsRoot, day)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	row := []string{day, event.System, event.Traceback}
	if err := appendRow(filepath.Join(dir, "logs.csv"), logHeader, row); err != nil {
		return fmt.Errorf("append log record: %w", err)
	}
	return nil
}

func (s *Store) writeImage(dir string, event models.DetectionEvent) error {
	if event.Image == "" {
		return fmt.Errorf("empty image payload")
	}
	raw, err := base64.StdEncoding.DecodeString(event.Image)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	path := filepath.Join(dir, event.ID+".png")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

// appendRow appends one CSV row, writing the header first when the file is
// new.
func appendRow(path string, header, row []string) error {
	_, statErr := os.Stat(path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

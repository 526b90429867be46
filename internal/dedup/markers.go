package dedup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MarkerStore persists one file per processed detection identity. The marker
// is created before the event is handed to transport, so a crash between the
// two can suppress a delivery but never duplicate one.
type MarkerStore struct {
	dir string
}

// NewMarkerStore opens (creating if needed) the marker directory.
func NewMarkerStore(dir string) (*MarkerStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create marker directory: %w", err)
	}
	return &MarkerStore{dir: dir}, nil
}

// Mark records the identity with its payload. Returns false when a marker
// for the identity already exists.
func (s *MarkerStore) Mark(id string, payload []byte) (bool, error) {
	f, err := os.OpenFile(s.path(id), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create marker for %s: %w", id, err)
	}
	defer f.Close()

	if _, err := f.Write(payload); err != nil {
		return false, fmt.Errorf("write marker for %s: %w", id, err)
	}
	return true, nil
}

// Seen reports whether a marker exists for the identity.
func (s *MarkerStore) Seen(id string) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// Sweep removes markers older than maxAge and returns how many were removed.
// A marker's age bounds the window in which a re-delivered identity is
// suppressed.
func (s *MarkerStore) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read marker directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (s *MarkerStore) path(id string) string {
	// Identities embed timestamps; keep them filesystem-safe.
	safe := strings.NewReplacer("/", "_", "\\", "_").Replace(id)
	return filepath.Join(s.dir, safe+".json")
}

package dedup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMarkIsIdempotent(t *testing.T) {
	store, err := NewMarkerStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	fresh, err := store.Mark("2024-03-01 10:00:00_7", []byte(`{"id":"x"}`))
	if err != nil || !fresh {
		t.Fatalf("first mark: (%v, %v)", fresh, err)
	}
	fresh, err = store.Mark("2024-03-01 10:00:00_7", []byte(`{"id":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	if fresh {
		t.Fatalf("second mark must report an existing marker")
	}
	if !store.Seen("2024-03-01 10:00:00_7") {
		t.Fatalf("marker not visible via Seen")
	}
}

func TestSweepRemovesOnlyExpiredMarkers(t *testing.T) {
	dir := t.TempDir()
	store, err := NewMarkerStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Mark("old", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Mark("fresh", nil); err != nil {
		t.Fatal(err)
	}

	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "old.json"), past, past); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Sweep(15 * time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed marker, got %d", removed)
	}
	if store.Seen("old") {
		t.Fatalf("expired marker survived the sweep")
	}
	if !store.Seen("fresh") {
		t.Fatalf("fresh marker was removed")
	}
}

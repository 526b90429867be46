package retention

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CanonicalFormat is the single accepted folder-name date format that all
// retention logic normalizes toward.
const CanonicalFormat = "2006-01-02"

// alternateFormats are the historical folder-name formats, tried in priority
// order. First match wins.
var alternateFormats = []string{
	"02-01-2006",
	"02_01_2006",
	"2006_01_02",
	"02 01 2006",
}

// Outcome describes what normalization did to one folder name.
type Outcome int

const (
	// AlreadyCanonical means the name needed no change.
	AlreadyCanonical Outcome = iota
	// Renamed means the folder was renamed to canonical form.
	Renamed
	// Collision means the canonical name already exists; nothing was touched.
	Collision
	// Unrecognized means no format matched; the folder is left untouched.
	Unrecognized
	// RenameFailed means the rename itself errored; the folder keeps its
	// old name.
	RenameFailed
)

// ParseFolderDate parses a folder name under the canonical format first,
// then each historical format in order. ok is false when nothing matches.
func ParseFolderDate(name string) (date time.Time, canonical bool, ok bool) {
	if t, err := time.Parse(CanonicalFormat, name); err == nil {
		return t, true, true
	}
	for _, layout := range alternateFormats {
		if t, err := time.Parse(layout, name); err == nil {
			return t, false, true
		}
	}
	return time.Time{}, false, false
}

// normalizeFolder renames parent/name to canonical form when possible. It
// returns the folder's final name, the outcome, and a report line ("" when
// nothing noteworthy happened).
func normalizeFolder(parent, name string) (string, Outcome, string) {
	date, canonical, ok := ParseFolderDate(name)
	if !ok {
		return name, Unrecognized, fmt.Sprintf("unrecognized folder name %q, left untouched", name)
	}
	if canonical {
		return name, AlreadyCanonical, ""
	}

	target := date.Format(CanonicalFormat)
	targetPath := filepath.Join(parent, target)
	if _, err := os.Stat(targetPath); err == nil {
		return name, Collision, fmt.Sprintf("not renaming %q: %q already exists", name, target)
	}
	if err := os.Rename(filepath.Join(parent, name), targetPath); err != nil {
		return name, RenameFailed, fmt.Sprintf("failed to rename %q: %v", name, err)
	}
	return target, Renamed, fmt.Sprintf("renamed %q to %q", name, target)
}

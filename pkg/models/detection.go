package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DetectionEvent is one tracked-object sighting produced by the detector.
// JSON field names are fixed by the detector's wire format.
type DetectionEvent struct {
	CameraName string  `json:"nombre_camara"`
	ID         string  `json:"id"`
	Confidence float64 `json:"confianza"`
	Class      string  `json:"clase"`
	Time       string  `json:"tiempo"`
	Image      string  `json:"imagen"`
}

// ParseDetections decodes a queue payload. The detector sends either a single
// object or an array of objects; both decode to a slice.
func ParseDetections(payload []byte) ([]DetectionEvent, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty detection payload")
	}

	if trimmed[0] == '[' {
		var events []DetectionEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("decode detection array: %w", err)
		}
		return events, nil
	}

	var event DetectionEvent
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return nil, fmt.Errorf("decode detection: %w", err)
	}
	return []DetectionEvent{event}, nil
}

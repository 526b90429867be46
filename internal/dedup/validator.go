package dedup

import (
	"context"
	"encoding/json"
	"fmt"

	"vigia/internal/logger"
	"vigia/internal/metrics"
	"vigia/internal/transport"
	"vigia/pkg/models"
)

// Result classifies the outcome of validating one detection.
type Result int

const (
	// Accepted means the detection passed the gate and was handed to the
	// transport.
	Accepted Result = iota
	// Suppressed means the identity was already processed.
	Suppressed
	// Rejected means the detection was dropped and will not be retried.
	Rejected
)

// Validator gates detections by confidence, suppresses re-deliveries of an
// already-processed identity, and hands fresh events to the transport.
type Validator struct {
	threshold float64
	markers   *MarkerStore
	sender    transport.Sender
}

// NewValidator creates a validator.
func NewValidator(threshold float64, markers *MarkerStore, sender transport.Sender) *Validator {
	return &Validator{threshold: threshold, markers: markers, sender: sender}
}

// ProcessPayload handles one queue payload end to end: gate every detection
// it contains, then flush the transport buffer. The flush runs even when the
// live payload was malformed, so buffered backlog catches up opportunistically.
func (v *Validator) ProcessPayload(ctx context.Context, payload []byte) {
	events, err := models.ParseDetections(payload)
	if err != nil {
		logger.Warnf("Discarding malformed detection payload: %v", err)
		metrics.EventsRejected.WithLabelValues("malformed").Inc()
	}

	for _, event := range events {
		result, err := v.Validate(ctx, event)
		switch {
		case err != nil:
			logger.Errorf("Failed to validate detection %s: %v", event.ID, err)
			metrics.EventsRejected.WithLabelValues("error").Inc()
		case result == Accepted:
			logger.Infof("Detection %s from %s accepted", event.ID, event.CameraName)
			metrics.EventsAccepted.Inc()
		case result == Suppressed:
			logger.Debugf("Detection %s already processed, suppressed", event.ID)
			metrics.EventsSuppressed.Inc()
		case result == Rejected:
			// Below-threshold detections drop silently.
			metrics.EventsRejected.WithLabelValues("below_threshold").Inc()
		}
	}

	v.sender.FlushBuffer(ctx)
}

// Validate applies the confidence gate and the dedup marker to one
// detection. The marker is persisted before the send, trading a possible
// lost alert after a crash for the guarantee of at most one alert per
// identity.
func (v *Validator) Validate(ctx context.Context, event models.DetectionEvent) (Result, error) {
	if event.Confidence <= v.threshold {
		return Rejected, nil
	}
	if event.ID == "" {
		return Rejected, fmt.Errorf("detection without id")
	}

	raw, err := json.Marshal(event)
	if err != nil {
		return Rejected, fmt.Errorf("encode detection %s: %w", event.ID, err)
	}

	fresh, err := v.markers.Mark(event.ID, raw)
	if err != nil {
		return Rejected, fmt.Errorf("persist marker: %w", err)
	}
	if !fresh {
		return Suppressed, nil
	}

	v.sender.Deliver(ctx, string(raw), transport.DetectionsPath)
	return Accepted, nil
}

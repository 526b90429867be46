package dedup

import (
	"context"
	"encoding/json"
	"testing"

	"vigia/pkg/models"
)

// recordingSender captures transport calls without any network.
type recordingSender struct {
	delivered []string
	paths     []string
	flushes   int
}

func (s *recordingSender) Deliver(ctx context.Context, payload, path string) {
	s.delivered = append(s.delivered, payload)
	s.paths = append(s.paths, path)
}

func (s *recordingSender) FlushBuffer(ctx context.Context) {
	s.flushes++
}

func newTestValidator(t *testing.T, threshold float64) (*Validator, *recordingSender) {
	t.Helper()
	markers, err := NewMarkerStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sender := &recordingSender{}
	return NewValidator(threshold, markers, sender), sender
}

func detectionPayload(t *testing.T, event models.DetectionEvent) []byte {
	t.Helper()
	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestValidateRejectsAtOrBelowThreshold(t *testing.T) {
	v, sender := newTestValidator(t, 0.5)
	ctx := context.Background()

	for _, confidence := range []float64{0.1, 0.5} {
		event := models.DetectionEvent{ID: "d1", CameraName: "cam_1", Confidence: confidence}
		result, err := v.Validate(ctx, event)
		if err != nil {
			t.Fatal(err)
		}
		if result != Rejected {
			t.Fatalf("confidence %v: expected Rejected, got %v", confidence, result)
		}
	}
	if len(sender.delivered) != 0 {
		t.Fatalf("below-threshold detections must not reach transport")
	}
	if v.markers.Seen("d1") {
		t.Fatalf("below-threshold detections must not be marked")
	}
}

func TestValidateSuppressesRedelivery(t *testing.T) {
	v, sender := newTestValidator(t, 0.5)
	ctx := context.Background()
	event := models.DetectionEvent{ID: "d2", CameraName: "cam_1", Confidence: 0.9}

	result, err := v.Validate(ctx, event)
	if err != nil || result != Accepted {
		t.Fatalf("first delivery: got (%v, %v)", result, err)
	}
	result, err = v.Validate(ctx, event)
	if err != nil || result != Suppressed {
		t.Fatalf("second delivery: got (%v, %v)", result, err)
	}
	if len(sender.delivered) != 1 {
		t.Fatalf("expected exactly one transport call, got %d", len(sender.delivered))
	}
}

func TestValidateRequiresIdentity(t *testing.T) {
	v, sender := newTestValidator(t, 0.5)

	result, err := v.Validate(context.Background(), models.DetectionEvent{CameraName: "cam_1", Confidence: 0.9})
	if result != Rejected || err == nil {
		t.Fatalf("expected rejection with error, got (%v, %v)", result, err)
	}
	if len(sender.delivered) != 0 {
		t.Fatalf("identity-less detection must not be sent")
	}
}

func TestProcessPayloadHandlesArrays(t *testing.T) {
	v, sender := newTestValidator(t, 0.5)

	payload := []byte(`[` +
		`{"nombre_camara":"cam_1","id":"a1","confianza":0.9,"clase":"person","tiempo":"t","imagen":""},` +
		`{"nombre_camara":"cam_1","id":"a2","confianza":0.2,"clase":"person","tiempo":"t","imagen":""}]`)
	v.ProcessPayload(context.Background(), payload)

	if len(sender.delivered) != 1 {
		t.Fatalf("expected one accepted detection, got %d", len(sender.delivered))
	}
	var sent models.DetectionEvent
	if err := json.Unmarshal([]byte(sender.delivered[0]), &sent); err != nil {
		t.Fatal(err)
	}
	if sent.ID != "a1" {
		t.Fatalf("wrong detection sent: %q", sent.ID)
	}
}

func TestProcessPayloadFlushesBufferEvenWhenMalformed(t *testing.T) {
	v, sender := newTestValidator(t, 0.5)

	v.ProcessPayload(context.Background(), []byte("{not json"))

	if len(sender.delivered) != 0 {
		t.Fatalf("malformed payload must not be delivered")
	}
	if sender.flushes != 1 {
		t.Fatalf("buffer catch-up must run after a malformed payload, flushes=%d", sender.flushes)
	}
}

func TestProcessPayloadFlushesAfterLiveEvent(t *testing.T) {
	v, sender := newTestValidator(t, 0.5)
	event := models.DetectionEvent{ID: "d3", CameraName: "cam_1", Confidence: 0.8}

	v.ProcessPayload(context.Background(), detectionPayload(t, event))

	if sender.flushes != 1 {
		t.Fatalf("expected one flush after the live event, got %d", sender.flushes)
	}
	if len(sender.delivered) != 1 {
		t.Fatalf("expected one delivery, got %d", len(sender.delivered))
	}
}

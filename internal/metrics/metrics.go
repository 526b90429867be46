package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vigia/internal/logger"
)

var (
	// EventsConsumed counts payloads taken off the detections queue.
	EventsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigia_events_consumed_total",
		Help: "Detection payloads popped from the queue.",
	})

	// EventsAccepted counts detections handed to the transport.
	EventsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigia_events_accepted_total",
		Help: "Detections that passed validation and were sent.",
	})

	// EventsSuppressed counts re-deliveries dropped by the dedup marker.
	EventsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigia_events_suppressed_total",
		Help: "Detections suppressed as already processed.",
	})

	// EventsRejected counts dropped detections by reason.
	EventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigia_events_rejected_total",
		Help: "Detections dropped during validation.",
	}, []string{"reason"})

	// TransportFailures counts live sends that fell back to the buffer.
	TransportFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigia_transport_failures_total",
		Help: "Deliveries parked on the buffer queue.",
	})

	// BufferFlushed counts buffered payloads delivered on a later flush.
	BufferFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigia_buffer_flushed_total",
		Help: "Buffered payloads delivered after a retry.",
	})

	// DetectionsStored counts detection records written by the alert server.
	DetectionsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigia_detections_stored_total",
		Help: "Detection records persisted to storage.",
	})

	// LogsStored counts log rows written by the alert server.
	LogsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigia_logs_stored_total",
		Help: "Log rows persisted to storage.",
	})

	// RetentionDeleted counts folders removed by the daily sweep.
	RetentionDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigia_retention_deleted_total",
		Help: "Day folders removed by the retention sweep.",
	}, []string{"root"})
)

// Serve exposes the Prometheus endpoint until ctx is cancelled. An empty
// address disables the endpoint.
func Serve(ctx context.Context, addr string) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	go func() {
		logger.Infof("Metrics endpoint listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Metrics server error: %v", err)
		}
	}()
}

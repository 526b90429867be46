package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"vigia/internal/display"
	"vigia/internal/logger"
	"vigia/internal/metrics"
	"vigia/internal/storage"
	"vigia/pkg/models"
)

// Acknowledgement and rejection strings are part of the wire protocol.
const (
	DetectionAck  = "Detección recibida"
	LogAck        = "Log recibido"
	RejectionText = "Ruta no válida"
)

// Dispatcher receives accepted detections for rendering.
type Dispatcher interface {
	Dispatch(alert display.Alert)
}

// Config configures the alert websocket server.
type Config struct {
	Host string
	Port int
}

// Router accepts detector and processor connections on the detections and
// logs channels, persists every accepted message, and hands detections to
// the display collaborator.
type Router struct {
	store      *storage.Store
	dispatcher Dispatcher
	upgrader   websocket.Upgrader
}

// NewRouter creates a router over the given store and display dispatcher.
func NewRouter(store *storage.Store, dispatcher Dispatcher) *Router {
	return &Router{
		store:      store,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler with the channel routes mounted.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/detections", rt.handleDetections)
	mux.HandleFunc("/logs", rt.handleLogs)
	mux.HandleFunc("/", rt.handleUnknown)
	return mux
}

// Serve runs the websocket server until ctx is cancelled.
func (rt *Router) Serve(ctx context.Context, cfg Config) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{Addr: addr, Handler: rt.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("Alert server listening on ws://%s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("alert server: %w", err)
	}
	return nil
}

func (rt *Router) handleDetections(w http.ResponseWriter, r *http.Request) {
	conn, err := rt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("Failed to upgrade detections connection: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()[:8]
	logger.Infof("Detections client connected (conn=%s)", connID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			logger.Debugf("Detections client gone (conn=%s): %v", connID, err)
			return
		}
		if !rt.processDetection(message) {
			// Malformed or unstorable messages are not acknowledged.
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(DetectionAck)); err != nil {
			logger.Debugf("Failed to acknowledge detection (conn=%s): %v", connID, err)
			return
		}
	}
}

func (rt *Router) handleLogs(w http.ResponseWriter, r *http.Request) {
	conn, err := rt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("Failed to upgrade logs connection: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()[:8]
	logger.Infof("Logs client connected (conn=%s)", connID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			logger.Debugf("Logs client gone (conn=%s): %v", connID, err)
			return
		}

		event, err := models.ParseLogEvent(message)
		if err != nil {
			logger.Warnf("Discarding malformed log message: %v", err)
			continue
		}
		if err := rt.store.WriteLog(event); err != nil {
			logger.Errorf("Failed to store log from %s: %v", event.System, err)
			continue
		}
		metrics.LogsStored.Inc()

		if err := conn.WriteMessage(websocket.TextMessage, []byte(LogAck)); err != nil {
			logger.Debugf("Failed to acknowledge log (conn=%s): %v", connID, err)
			return
		}
	}
}

// handleUnknown rejects any path other than the two channels: the client
// gets the fixed rejection text and the connection is closed.
func (rt *Router) handleUnknown(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, RejectionText, http.StatusNotFound)
		return
	}
	conn, err := rt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	logger.Warnf("Rejecting connection on unknown path %s", r.URL.Path)
	conn.WriteMessage(websocket.TextMessage, []byte(RejectionText))
}

// processDetection parses, stores, and dispatches one detection message.
// It reports whether the message should be acknowledged.
func (rt *Router) processDetection(message []byte) bool {
	var event models.DetectionEvent
	if err := json.Unmarshal(message, &event); err != nil {
		logger.Warnf("Discarding malformed detection message: %v", err)
		return false
	}
	if event.ID == "" || event.CameraName == "" {
		logger.Warnf("Discarding detection without identity (id=%q camera=%q)", event.ID, event.CameraName)
		return false
	}

	if err := rt.store.WriteDetection(event); err != nil {
		logger.Errorf("Failed to store detection %s: %v", event.ID, err)
		return false
	}
	metrics.DetectionsStored.Inc()

	image, err := base64.StdEncoding.DecodeString(event.Image)
	if err != nil {
		logger.Warnf("Detection %s carries an undecodable image: %v", event.ID, err)
		image = nil
	}
	rt.dispatcher.Dispatch(display.Alert{
		Camera: event.CameraName,
		Time:   event.Time,
		Class:  models.LookupClass(event.Class),
		Image:  image,
	})
	return true
}

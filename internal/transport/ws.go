package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"vigia/internal/logger"
	"vigia/internal/metrics"
	"vigia/internal/queue"
	"vigia/pkg/models"
)

// Server paths for the two alert channels.
const (
	DetectionsPath = "detections"
	LogsPath       = "logs"
)

// Sender delivers payloads to the alert server. Deliver never reports
// failure to the caller; undelivered payloads are parked durably and resent
// by FlushBuffer.
type Sender interface {
	Deliver(ctx context.Context, payload, path string)
	FlushBuffer(ctx context.Context)
}

// Config configures the websocket client.
type Config struct {
	ServerURL   string
	DialTimeout time.Duration
}

// Client sends payloads to the alert server over short-lived websocket
// connections, one message and one acknowledgement per connection.
type Client struct {
	serverURL string
	timeout   time.Duration
	dialer    *websocket.Dialer
	buffer    queue.Queue
}

// NewClient creates a websocket client with a durable fallback buffer.
func NewClient(cfg Config, buffer queue.Queue) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("transport server URL is empty")
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		serverURL: strings.TrimRight(cfg.ServerURL, "/"),
		timeout:   timeout,
		dialer:    &websocket.Dialer{HandshakeTimeout: timeout},
		buffer:    buffer,
	}, nil
}

// Deliver sends payload to the given server path. Any transport failure
// parks the payload on the buffer queue and the call returns normally. Each
// live send is preceded by a flush of the buffered backlog, so an old
// buffered event can reach the server after a newer live one.
func (c *Client) Deliver(ctx context.Context, payload, path string) {
	c.FlushBuffer(ctx)

	if err := c.sendOnce(ctx, payload, path); err != nil {
		logger.Warnf("Alert endpoint unavailable, buffering %s payload: %v", path, err)
		metrics.TransportFailures.Inc()
		c.park(ctx, payload)
	}
}

// FlushBuffer resends parked payloads. Entries that fail again go back on
// the buffer queue; nothing is dropped.
func (c *Client) FlushBuffer(ctx context.Context) {
	entries, err := c.buffer.Drain(ctx)
	if err != nil {
		logger.Errorf("Failed to drain buffer queue: %v", err)
		return
	}

	for _, entry := range entries {
		if entry == "" {
			continue
		}
		if err := c.sendOnce(ctx, entry, DetectionsPath); err != nil {
			logger.Warnf("Buffered payload still undeliverable: %v", err)
			c.park(ctx, entry)
			continue
		}
		metrics.BufferFlushed.Inc()
	}
}

// ReportError ships a system traceback to the alert server's logs channel.
func (c *Client) ReportError(ctx context.Context, system, traceback string) {
	payload, err := json.Marshal(models.LogEvent{System: system, Traceback: traceback})
	if err != nil {
		return
	}
	c.Deliver(ctx, string(payload), LogsPath)
}

func (c *Client) sendOnce(ctx context.Context, payload, path string) error {
	conn, _, err := c.dialer.DialContext(ctx, c.serverURL+"/"+path, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", path, err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		return fmt.Errorf("send on %s: %w", path, err)
	}

	conn.SetReadDeadline(time.Now().Add(c.timeout))
	if _, _, err := conn.ReadMessage(); err != nil {
		return fmt.Errorf("await ack on %s: %w", path, err)
	}
	return nil
}

func (c *Client) park(ctx context.Context, payload string) {
	if err := c.buffer.Push(ctx, payload); err != nil {
		logger.Errorf("Failed to buffer undelivered payload: %v", err)
	}
}

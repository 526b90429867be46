package display

import (
	"vigia/internal/logger"
	"vigia/pkg/models"
)

// Alert is what the display collaborator renders for one detection.
type Alert struct {
	Camera string
	Time   string
	Class  models.Class
	Image  []byte
}

// Display renders one alert. Implementations own their execution context;
// the dispatcher never waits on them.
type Display interface {
	Show(alert Alert)
}

// Dispatcher decouples the network flow from the display collaborator with a
// buffered one-way hand-off. A saturated display drops the alert rather than
// block the router.
type Dispatcher struct {
	alerts chan Alert
}

// NewDispatcher starts the forwarding goroutine for the given display.
func NewDispatcher(d Display, depth int) *Dispatcher {
	if depth <= 0 {
		depth = 32
	}
	disp := &Dispatcher{alerts: make(chan Alert, depth)}
	go disp.forward(d)
	return disp
}

// Dispatch enqueues one alert, fire-and-forget.
func (p *Dispatcher) Dispatch(alert Alert) {
	select {
	case p.alerts <- alert:
	default:
		logger.Warnf("Display queue full, dropping alert for camera %s", alert.Camera)
	}
}

// Close stops the forwarding goroutine once pending alerts are shown.
func (p *Dispatcher) Close() {
	close(p.alerts)
}

func (p *Dispatcher) forward(d Display) {
	for alert := range p.alerts {
		d.Show(alert)
	}
}

// LogDisplay stands in for the GUI popup: it logs the alert and the sound
// the popup would play.
type LogDisplay struct{}

// Show logs the alert.
func (LogDisplay) Show(alert Alert) {
	logger.Infof("[ALERTA] camera=%s time=%s class=%s sound=%s image_bytes=%d",
		alert.Camera, alert.Time, alert.Class.DisplayName, alert.Class.Sound, len(alert.Image))
}

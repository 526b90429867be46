package models

import (
	"encoding/json"
	"fmt"
)

// LogEvent is a system traceback shipped to the alert server's logs channel.
type LogEvent struct {
	System    string `json:"sistema"`
	Traceback string `json:"traceback"`
}

// ParseLogEvent decodes one logs-channel message.
func ParseLogEvent(payload []byte) (LogEvent, error) {
	var event LogEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return LogEvent{}, fmt.Errorf("decode log event: %w", err)
	}
	return event, nil
}

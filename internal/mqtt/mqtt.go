// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// Topic is the MQTT topic for hotplate events.
const Topic = "lab/hotplate/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "lab/hotplate/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a hotplate event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event is a heater or stirrer state change prepared for publishing. The
// caller maps the controller's internal events onto this wire shape so the
// mqtt package does not depend on the control packages.
type Event struct {
	Timestamp   time.Time
	Source      string // "heater" or "stirrer"
	Type        string // e.g., "HEATER_ON", "STIRRER_START"
	Temperature *float64
	RPM         *float64
	Mode        string // active heating mode, for heater events
	Reason      string // fault reason, when applicable
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown,
// heartbeat). Lifecycle events normally carry a full status snapshot in
// RawPayload; the bare timestamp/event/reason form exists for the broker
// last-will, which must be formatted before any snapshot exists.
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Plate PlatePayload `json:"plate"`
}

// PlatePayload contains the event details.
type PlatePayload struct {
	Timestamp   string   `json:"timestamp"`
	Source      string   `json:"source"`
	Event       string   `json:"event"`
	Temperature *float64 `json:"temperature,omitempty"`
	RPM         *float64 `json:"rpm,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// FormatPayload creates the JSON payload for a hotplate event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Plate: PlatePayload{
			Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
			Source:      event.Source,
			Event:       event.Type,
			Temperature: event.Temperature,
			RPM:         event.RPM,
			Mode:        event.Mode,
			Reason:      event.Reason,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

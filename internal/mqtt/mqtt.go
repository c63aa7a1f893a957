// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/heater-control/internal/therm"
)

// Topic is the MQTT topic for heater transition and fault events.
const Topic = "energy/heater/control/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "energy/heater/control/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a heater event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event therm.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Heater HeaterPayload `json:"heater"`
}

// HeaterPayload contains the heater event details.
type HeaterPayload struct {
	Timestamp string        `json:"timestamp"`
	Event     string        `json:"event"`
	Device    uint8         `json:"device"`
	Mode      string        `json:"mode"`
	TempC     *float64      `json:"temp_c,omitempty"`
	Fault     *FaultPayload `json:"fault,omitempty"`
}

// FaultPayload carries the latched record on FAULT events.
type FaultPayload struct {
	Kind string `json:"kind"`
	Site string `json:"site"`
}

// FormatPayload creates the JSON payload for a heater event.
func FormatPayload(event therm.Event) ([]byte, error) {
	inner := HeaterPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Type),
		Device:    event.DeviceID,
		Mode:      string(event.Mode),
	}
	if event.Type == therm.EventFault {
		inner.Fault = &FaultPayload{
			Kind: event.Kind.String(),
			Site: event.Site.String(),
		}
	} else {
		temp := event.TempC
		inner.TempC = &temp
	}
	return json.Marshal(Payload{Heater: inner})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
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

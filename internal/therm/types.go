// Package therm contains the control core for the heater daemon: the
// fault latch, the stall detector, the per-device thermostat state
// machine, and the shared status LED aggregator.
// The package touches no hardware directly — sensors and output lines
// are injected through the narrow Sensor and Line interfaces, and time
// is always injectable via time.Time parameters.
package therm

import "time"

// Mode is the operating mode of a single thermostat.
type Mode string

const (
	ModeHeating Mode = "HEATING"
	ModeCooling Mode = "COOLING"
	ModeOff     Mode = "OFF"
)

// FaultKind classifies the condition that latched a fault.
type FaultKind uint8

const (
	FaultNone FaultKind = iota
	FaultSensorDisconnected
	FaultOverTemperature
	FaultStallNoRise
	FaultRegistrationOverflow
	FaultUnspecified
)

func (k FaultKind) String() string {
	switch k {
	case FaultSensorDisconnected:
		return "SensorDisconnected"
	case FaultOverTemperature:
		return "OverTemperature"
	case FaultStallNoRise:
		return "StallNoRise"
	case FaultRegistrationOverflow:
		return "RegistrationOverflow"
	case FaultUnspecified:
		return "Unspecified"
	default:
		return "None"
	}
}

// Site identifies the logical call site that raised a fault. It replaces
// source line numbers in diagnostics: callers pass it explicitly.
type Site uint8

const (
	SiteNone Site = iota
	SiteSampleRead
	SiteUpdateOverMax
	SiteUpdateStall
	SiteRegisterDevice
	SiteRegisterReaction
)

func (s Site) String() string {
	switch s {
	case SiteSampleRead:
		return "sample-read"
	case SiteUpdateOverMax:
		return "update-over-max"
	case SiteUpdateStall:
		return "update-stall"
	case SiteRegisterDevice:
		return "register-device"
	case SiteRegisterReaction:
		return "register-reaction"
	default:
		return "none"
	}
}

// FaultRecord describes the first fault latched in this process.
// It is written once and never modified afterwards.
type FaultRecord struct {
	Time     time.Time
	DeviceID uint8
	Site     Site
	Kind     FaultKind
}

// Sensor supplies temperature samples for one device.
type Sensor interface {
	// Read returns the current temperature in Celsius.
	// Any error is treated as a disconnected sensor.
	Read() (float64, error)
}

// Line drives a single binary output (a relay or the status LED).
// Set is fire-and-forget: implementations handle their own write errors.
type Line interface {
	Set(on bool)
}

// EventType represents a state transition event.
type EventType string

const (
	EventHeatOn  EventType = "HEAT_ON"
	EventHeatOff EventType = "HEAT_OFF"
	EventFault   EventType = "FAULT"
)

// Event represents a transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	DeviceID  uint8
	Mode      Mode
	TempC     float64

	// Fault details, set only for EventFault.
	Kind FaultKind
	Site Site
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	HeatOn  int
	HeatOff int
	Faults  int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}

// Package status provides a thread-safe status tracker for the
// heater-control daemon. It is read by the HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/heater-control/internal/therm"
)

// DeviceStatus is a point-in-time view of one thermostat.
type DeviceStatus struct {
	ID       uint8
	Mode     therm.Mode
	Heating  bool
	TempC    float64
	HaveTemp bool
	TargetC  float64
	MaxC     float64
}

// Config contains daemon configuration for display.
type Config struct {
	TickMs        int64
	SampleMs      int64
	StallWindowMs int64
	MinRiseC      float64
	AllowanceC    float64
	HeartbeatMs   int64
	Broker        string
	HTTPPort      string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Devices       []DeviceStatus
	Display       therm.DisplayState
	Fault         *therm.FaultRecord
	Counts        therm.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets device states, display state, fault record, and event
// counts. Called from the run loop after every sampling pass.
func (t *Tracker) Update(devices []DeviceStatus, display therm.DisplayState, fault *therm.FaultRecord, counts therm.EventCounts) {
	t.mu.Lock()
	t.snap.Devices = devices
	t.snap.Display = display
	t.snap.Fault = fault
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Devices = append([]DeviceStatus(nil), t.snap.Devices...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

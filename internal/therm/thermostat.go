package therm

import (
	"fmt"
	"time"
)

// DefaultAllowance is the hysteresis half-width around the target.
// No mode transition happens inside [target-allowance, target+allowance],
// which keeps the relay from chattering.
const DefaultAllowance = 0.25 // °C

// DeviceConfig holds the immutable per-device configuration.
type DeviceConfig struct {
	ID      uint8
	TargetC float64
	MaxC    float64

	// Policy overrides; zero values select the defaults.
	Allowance   float64
	StallWindow time.Duration
	MinRise     float64
}

// Thermostat is the hysteresis state machine for one heating element.
// It owns its sensor, relay, and stall detector exclusively. Anything may
// force it off (via ForceOff) but only the thermostat itself turns the
// heater on.
type Thermostat struct {
	id        uint8
	target    float64
	max       float64
	allowance float64

	sensor Sensor
	relay  Line
	latch  *Latch
	stall  *StallDetector

	mode      Mode
	energized bool
	lastTemp  float64
	haveTemp  bool
}

// NewThermostat builds a thermostat in Cooling mode with the relay
// de-energized. The target plus allowance must stay below the maximum,
// otherwise the over-temperature cutoff could fire inside the normal
// control band.
func NewThermostat(cfg DeviceConfig, sensor Sensor, relay Line, latch *Latch) (*Thermostat, error) {
	if sensor == nil || relay == nil || latch == nil {
		return nil, fmt.Errorf("device %d: sensor, relay and latch are required", cfg.ID)
	}
	allowance := cfg.Allowance
	if allowance <= 0 {
		allowance = DefaultAllowance
	}
	if cfg.TargetC+allowance >= cfg.MaxC {
		return nil, fmt.Errorf("device %d: target %.2f°C + allowance %.2f°C must stay below max %.2f°C",
			cfg.ID, cfg.TargetC, allowance, cfg.MaxC)
	}
	return &Thermostat{
		id:        cfg.ID,
		target:    cfg.TargetC,
		max:       cfg.MaxC,
		allowance: allowance,
		sensor:    sensor,
		relay:     relay,
		latch:     latch,
		stall:     NewStallDetector(cfg.StallWindow, cfg.MinRise),
		mode:      ModeCooling,
	}, nil
}

// Begin drives the relay to its de-energized state unconditionally,
// establishing a known electrical state before the first cycle.
func (t *Thermostat) Begin() {
	t.relay.Set(false)
	t.energized = false
}

// ID returns the device id.
func (t *Thermostat) ID() uint8 { return t.id }

// Mode returns the current operating mode.
func (t *Thermostat) Mode() Mode { return t.mode }

// Target returns the configured target temperature.
func (t *Thermostat) Target() float64 { return t.target }

// Max returns the configured maximum safe temperature.
func (t *Thermostat) Max() float64 { return t.max }

// Heating reports whether the relay is currently energized.
func (t *Thermostat) Heating() bool { return t.energized }

// LastTemp returns the most recent valid sample, if there has been one.
func (t *Thermostat) LastTemp() (float64, bool) {
	return t.lastTemp, t.haveTemp
}

func (t *Thermostat) energize() {
	if t.energized {
		return
	}
	t.relay.Set(true)
	t.energized = true
}

func (t *Thermostat) deEnergize() {
	if !t.energized {
		return
	}
	t.relay.Set(false)
	t.energized = false
}

// ForceOff drops the relay no matter what. This is the latch reaction
// for the device: when a fault is latched the mode becomes Off for good.
// The relay write must stay unconditional; the fail-safe path never
// trusts the cached electrical state.
func (t *Thermostat) ForceOff() {
	t.relay.Set(false)
	t.energized = false
	if t.latch.Faulted() {
		t.mode = ModeOff
	}
}

// Update applies the transition table once for a valid sample.
// Callers must only pass temperatures that were actually read.
func (t *Thermostat) Update(tempC float64, now time.Time) {
	if t.mode == ModeOff {
		return
	}
	if tempC >= t.max {
		t.latch.Raise(FaultOverTemperature, t.id, SiteUpdateOverMax, now)
		t.ForceOff()
		return
	}

	switch t.mode {
	case ModeHeating:
		if t.stall.Observe(tempC, now) {
			t.latch.Raise(FaultStallNoRise, t.id, SiteUpdateStall, now)
			t.ForceOff()
			return
		}
		if tempC >= t.target+t.allowance {
			t.deEnergize()
			t.mode = ModeCooling
		}
	case ModeCooling:
		if tempC <= t.target-t.allowance {
			t.stall.Reset()
			t.energize()
			t.mode = ModeHeating
		}
	}
}

// Cycle runs one sampling pass. With a fault already latched it is a
// complete no-op: no sensor read, no update — the device is failed safe.
// A bad read latches SensorDisconnected and drops the relay without
// consulting the state table. Otherwise the sample goes through Update.
// The returned event, if any, is the heater transition this pass caused;
// fault events are reported by the Controller, which sees the latch trip.
func (t *Thermostat) Cycle(now time.Time) *Event {
	if t.latch.Faulted() {
		return nil
	}

	tempC, err := t.sensor.Read()
	if err != nil {
		t.latch.Raise(FaultSensorDisconnected, t.id, SiteSampleRead, now)
		t.ForceOff()
		return nil
	}

	t.lastTemp = tempC
	t.haveTemp = true

	wasEnergized := t.energized
	t.Update(tempC, now)

	if t.latch.Faulted() || t.energized == wasEnergized {
		return nil
	}
	typ := EventHeatOff
	if t.energized {
		typ = EventHeatOn
	}
	return &Event{
		Timestamp: now,
		Type:      typ,
		DeviceID:  t.id,
		Mode:      t.mode,
		TempC:     tempC,
	}
}

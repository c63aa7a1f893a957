package therm

import "time"

// DefaultMaxDevices bounds the aggregator registry.
const DefaultMaxDevices = 4

// DisplayState is the logical pattern selected for the shared status LED.
type DisplayState uint8

const (
	DisplayPanic DisplayState = iota
	DisplayAnyHeating
	DisplayIdle
)

func (s DisplayState) String() string {
	switch s {
	case DisplayPanic:
		return "PANIC"
	case DisplayAnyHeating:
		return "HEATING"
	default:
		return "IDLE"
	}
}

// HalfPeriods maps each display state to its blink half-period: the LED
// is lit for that long, then dark for that long.
type HalfPeriods map[DisplayState]time.Duration

// DefaultHalfPeriods returns the stock blink table: rapid for panic,
// steady for heating, slow pulse when idle.
func DefaultHalfPeriods() HalfPeriods {
	return HalfPeriods{
		DisplayPanic:      50 * time.Millisecond,
		DisplayAnyHeating: 1000 * time.Millisecond,
		DisplayIdle:       10 * time.Second,
	}
}

// HeatReporter is the read-only view the aggregator has of a thermostat.
type HeatReporter interface {
	Heating() bool
}

// Aggregator drives the single shared status LED from the union of all
// device states and the fault latch. It holds non-owning references to
// the devices and never mutates them. It is the only writer of the
// indicator line.
type Aggregator struct {
	latch       *Latch
	line        Line
	halfPeriods HalfPeriods
	maxDevices  int

	devices  []HeatReporter
	state    DisplayState
	lit      bool
	lastFlip time.Time
	started  bool
}

// NewAggregator creates an aggregator with a registry capped at
// maxDevices (<= 0 selects DefaultMaxDevices). A nil halfPeriods table
// selects DefaultHalfPeriods.
func NewAggregator(latch *Latch, line Line, maxDevices int, halfPeriods HalfPeriods) *Aggregator {
	if maxDevices <= 0 {
		maxDevices = DefaultMaxDevices
	}
	if halfPeriods == nil {
		halfPeriods = DefaultHalfPeriods()
	}
	return &Aggregator{
		latch:       latch,
		line:        line,
		halfPeriods: halfPeriods,
		maxDevices:  maxDevices,
	}
}

// Register adds a read-only device reference. Registration happens once
// at startup; exceeding the fixed capacity is itself a fault and the
// reference is not added.
func (a *Aggregator) Register(dev HeatReporter, now time.Time) {
	if dev == nil {
		a.latch.Raise(FaultUnspecified, 0, SiteRegisterDevice, now)
		return
	}
	if len(a.devices) >= a.maxDevices {
		a.latch.Raise(FaultRegistrationOverflow, 0, SiteRegisterDevice, now)
		return
	}
	a.devices = append(a.devices, dev)
}

// Registered returns the number of registered devices.
func (a *Aggregator) Registered() int { return len(a.devices) }

// State returns the display state selected by the last Tick.
func (a *Aggregator) State() DisplayState { return a.state }

// Lit reports the LED phase written by the last Tick.
func (a *Aggregator) Lit() bool { return a.lit }

// Tick recomputes the display state and advances the blink phase. On a
// state change the phase resets to lit and the timer restarts; otherwise
// the phase flips once the half-period has elapsed. Tick must run far
// more often than the sensing cadence so the 50 ms panic pattern is
// visible.
func (a *Aggregator) Tick(now time.Time) {
	state := a.selectState()
	if !a.started || state != a.state {
		a.state = state
		a.lit = true
		a.lastFlip = now
		a.started = true
	} else if now.Sub(a.lastFlip) >= a.halfPeriod(state) {
		a.lit = !a.lit
		a.lastFlip = now
	}
	a.line.Set(a.lit)
}

// selectState: the latch wins over everything, then any heating device,
// then idle.
func (a *Aggregator) selectState() DisplayState {
	if a.latch.Faulted() {
		return DisplayPanic
	}
	for _, d := range a.devices {
		if d.Heating() {
			return DisplayAnyHeating
		}
	}
	return DisplayIdle
}

func (a *Aggregator) halfPeriod(s DisplayState) time.Duration {
	if d, ok := a.halfPeriods[s]; ok && d > 0 {
		return d
	}
	return DefaultHalfPeriods()[s]
}

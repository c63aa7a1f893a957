package therm

import "time"

// Stall policy defaults: three minutes of active heating with less than
// a quarter degree of rise means something is wrong (sensor fault, stuck
// relay, failed thermal path).
const (
	DefaultStallWindow = 180 * time.Second
	DefaultMinRise     = 0.25 // °C
)

// StallDetector flags "heating without sufficient temperature rise".
// Each detector is owned by exactly one Thermostat, which resets it on
// every Cooling→Heating transition. Not safe for concurrent use.
type StallDetector struct {
	window    time.Duration
	minRise   float64
	startTime time.Time
	startTemp float64
	primed    bool
}

// NewStallDetector creates a detector with the given window and minimum
// rise. Zero values select the defaults.
func NewStallDetector(window time.Duration, minRise float64) *StallDetector {
	if window <= 0 {
		window = DefaultStallWindow
	}
	if minRise <= 0 {
		minRise = DefaultMinRise
	}
	return &StallDetector{window: window, minRise: minRise}
}

// Reset discards the current window. The next Observe starts a new one.
func (d *StallDetector) Reset() {
	d.primed = false
}

// Observe feeds one sample. The first call after Reset captures the
// window baseline and returns false. Later calls return true exactly
// when the window has elapsed and the temperature has risen less than
// the minimum. A clean elapsed window does not re-baseline: the detector
// keeps comparing against the same start point until Reset.
func (d *StallDetector) Observe(tempC float64, now time.Time) bool {
	if !d.primed {
		d.startTime = now
		d.startTemp = tempC
		d.primed = true
		return false
	}
	return now.Sub(d.startTime) >= d.window && tempC-d.startTemp < d.minRise
}

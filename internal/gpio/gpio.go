// Package gpio provides GPIO output control with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Output drives a single GPIO output line (a relay input or the status
// LED). Set is fire-and-forget: implementations deal with write errors
// themselves, so control logic never has to reason about a failed write
// mid-transition.
type Output interface {
	// Set drives the line on or off, in logical terms. Active-low
	// wiring is handled underneath.
	Set(on bool)

	// Close drives the line off and releases it.
	Close() error
}

// DefaultLEDPin is the stock status LED pin (BCM numbering).
const DefaultLEDPin = 21

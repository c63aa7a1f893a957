//go:build linux

package gpio

import (
	"fmt"
	"log"

	"github.com/warthog618/go-gpiocdev"
)

// RealChip owns the GPIO character device and every output line
// requested through it. Closing the chip drives all lines off first, so
// relays never stay energized across a daemon restart.
type RealChip struct {
	chip  *gpiocdev.Chip
	lines []*RealOutput
}

// NewRealChip opens the default GPIO character device.
func NewRealChip() (*RealChip, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &RealChip{chip: chip}, nil
}

// RequestOutput requests pin as an output line, initially driven off.
// activeLow marks lines wired to modules that energize on a low level
// (common for cheap relay boards); logical Set(true) then drives the
// pin low.
func (c *RealChip) RequestOutput(pin int, activeLow bool) (*RealOutput, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := c.chip.RequestLine(pin, opts...)
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}
	out := &RealOutput{line: line, pin: pin}
	c.lines = append(c.lines, out)
	return out, nil
}

// Close drives every requested line off, releases them, and closes the
// chip.
func (c *RealChip) Close() error {
	var errs []error
	for _, out := range c.lines {
		if err := out.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealOutput is one requested output line on actual hardware.
type RealOutput struct {
	line *gpiocdev.Line
	pin  int
}

// Set drives the line. Write errors are logged rather than propagated:
// the control core treats line writes as fire-and-forget and a stuck
// line surfaces through the stall detector instead.
func (o *RealOutput) Set(on bool) {
	v := 0
	if on {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		log.Printf("gpio: set pin %d: %v", o.pin, err)
	}
}

// Close drives the line off and releases it.
func (o *RealOutput) Close() error {
	if o.line == nil {
		return nil
	}
	var errs []error
	if err := o.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("drive pin %d off: %w", o.pin, err))
	}
	if err := o.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", o.pin, err))
	}
	o.line = nil
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

//go:build !linux

package gpio

import "errors"

// RealChip is not available on non-Linux platforms.
type RealChip struct{}

// NewRealChip returns an error on non-Linux platforms.
func NewRealChip() (*RealChip, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// RequestOutput is not implemented on non-Linux platforms.
func (c *RealChip) RequestOutput(pin int, activeLow bool) (*RealOutput, error) {
	return nil, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (c *RealChip) Close() error {
	return nil
}

// RealOutput is not available on non-Linux platforms.
type RealOutput struct{}

// Set does nothing on non-Linux platforms.
func (o *RealOutput) Set(on bool) {}

// Close does nothing on non-Linux platforms.
func (o *RealOutput) Close() error {
	return nil
}

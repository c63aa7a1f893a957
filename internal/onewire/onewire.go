// Package onewire reads DS18B20 temperature sensors with hardware
// abstraction. The real implementation reads the Linux w1 sysfs files;
// the fake implementation allows testing without hardware.
package onewire

import "errors"

// ErrDisconnected reports that the sensor is unreachable or returned an
// invalid reading. It is never a valid temperature.
var ErrDisconnected = errors.New("onewire: sensor disconnected")

// Sensor reads a single temperature probe.
type Sensor interface {
	// Read returns the temperature in Celsius.
	Read() (float64, error)

	// ID returns the w1 bus id of the probe (e.g. "28-0316a2799fff").
	ID() string
}

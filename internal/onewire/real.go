package onewire

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultSysfsRoot is where the w1 kernel driver exposes slave devices.
const DefaultSysfsRoot = "/sys/bus/w1/devices"

// RealSensor reads one DS18B20 probe through the Linux w1 sysfs
// interface. The kernel's "temperature" attribute holds millidegrees
// Celsius as plain text.
type RealSensor struct {
	id   string
	path string
}

// NewRealSensor creates a sensor for the given w1 device id, e.g.
// "28-0316a2799fff".
func NewRealSensor(id string) *RealSensor {
	return NewRealSensorAt(DefaultSysfsRoot, id)
}

// NewRealSensorAt creates a sensor rooted at a non-standard sysfs path.
// Useful for tests with a scratch directory.
func NewRealSensorAt(root, id string) *RealSensor {
	return &RealSensor{
		id:   id,
		path: filepath.Join(root, id, "temperature"),
	}
}

// ID returns the w1 device id.
func (s *RealSensor) ID() string { return s.id }

// Read returns the temperature in Celsius. A missing device, an
// unreadable file, or an unparseable value is reported as
// ErrDisconnected. The DS18B20 power-on reset value (+85.000°C) is also
// treated as disconnected: it means the probe never ran a conversion,
// which on a heater controller must fail safe rather than read as a
// plausible temperature.
func (s *RealSensor) Read() (float64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return 0, fmt.Errorf("%w: empty reading", ErrDisconnected)
	}
	milli, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad reading %q", ErrDisconnected, raw)
	}
	if milli == 85000 {
		return 0, fmt.Errorf("%w: power-on reset value", ErrDisconnected)
	}
	return float64(milli) / 1000.0, nil
}

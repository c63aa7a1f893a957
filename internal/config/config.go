// Package config loads and validates the heater-control YAML
// configuration: one policy block plus one entry per heating device.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration file structure.
type Config struct {
	Policy  Policy   `yaml:"policy"`
	Devices []Device `yaml:"devices"`
}

// Policy holds the global control constants.
type Policy struct {
	AllowanceC    float64 `yaml:"allowance_c"`
	StallWindowMs int64   `yaml:"stall_window_ms"`
	MinRiseC      float64 `yaml:"min_rise_c"`
	MaxDevices    int     `yaml:"max_devices"`
	MaxReactions  int     `yaml:"max_reactions"`
	Blink         Blink   `yaml:"blink"`
}

// Blink holds the status LED half-periods per display state.
type Blink struct {
	PanicMs   int64 `yaml:"panic_ms"`
	HeatingMs int64 `yaml:"heating_ms"`
	IdleMs    int64 `yaml:"idle_ms"`
}

// Device describes one heating element.
type Device struct {
	ID       uint8   `yaml:"id"`
	TargetC  float64 `yaml:"target_c"`
	MaxC     float64 `yaml:"max_c"`
	Sensor   string  `yaml:"sensor"`    // w1 device id, e.g. 28-0316a2799fff
	RelayPin int     `yaml:"relay_pin"` // BCM numbering

	// ActiveLow marks relay modules that energize on a low level.
	ActiveLow bool `yaml:"active_low"`
}

// Defaults applied by Normalize.
const (
	DefaultAllowanceC    = 0.25
	DefaultStallWindowMs = 180_000
	DefaultMinRiseC      = 0.25
	DefaultMaxDevices    = 4
	DefaultMaxReactions  = 4
	DefaultPanicMs       = 50
	DefaultHeatingMs     = 1000
	DefaultIdleMs        = 10_000
)

// Load reads, decodes, normalizes, and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes, normalizes, and validates raw YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	Normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize fills unset policy fields with the defaults. It never
// touches device entries.
func Normalize(cfg *Config) {
	p := &cfg.Policy
	if p.AllowanceC == 0 {
		p.AllowanceC = DefaultAllowanceC
	}
	if p.StallWindowMs == 0 {
		p.StallWindowMs = DefaultStallWindowMs
	}
	if p.MinRiseC == 0 {
		p.MinRiseC = DefaultMinRiseC
	}
	if p.MaxDevices == 0 {
		p.MaxDevices = DefaultMaxDevices
	}
	if p.MaxReactions == 0 {
		p.MaxReactions = DefaultMaxReactions
	}
	if p.Blink.PanicMs == 0 {
		p.Blink.PanicMs = DefaultPanicMs
	}
	if p.Blink.HeatingMs == 0 {
		p.Blink.HeatingMs = DefaultHeatingMs
	}
	if p.Blink.IdleMs == 0 {
		p.Blink.IdleMs = DefaultIdleMs
	}
}

// StallWindow returns the stall window as a duration.
func (p Policy) StallWindow() time.Duration {
	return time.Duration(p.StallWindowMs) * time.Millisecond
}

// PanicHalfPeriod returns the panic blink half-period.
func (b Blink) PanicHalfPeriod() time.Duration {
	return time.Duration(b.PanicMs) * time.Millisecond
}

// HeatingHalfPeriod returns the heating blink half-period.
func (b Blink) HeatingHalfPeriod() time.Duration {
	return time.Duration(b.HeatingMs) * time.Millisecond
}

// IdleHalfPeriod returns the idle blink half-period.
func (b Blink) IdleHalfPeriod() time.Duration {
	return time.Duration(b.IdleMs) * time.Millisecond
}

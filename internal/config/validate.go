package config

import "fmt"

// Validate checks configuration correctness after Normalize. It performs
// declarative validation only and never mutates the configuration.
func Validate(cfg *Config) error {
	p := cfg.Policy

	if p.AllowanceC < 0 {
		return fmt.Errorf("policy: allowance_c must not be negative")
	}
	if p.StallWindowMs < 0 || p.MinRiseC < 0 {
		return fmt.Errorf("policy: stall window and min rise must not be negative")
	}
	if p.MaxDevices < 1 {
		return fmt.Errorf("policy: max_devices must be at least 1")
	}
	if p.MaxReactions < 1 {
		return fmt.Errorf("policy: max_reactions must be at least 1")
	}
	if p.Blink.PanicMs < 1 || p.Blink.HeatingMs < 1 || p.Blink.IdleMs < 1 {
		return fmt.Errorf("policy: blink half-periods must be positive")
	}

	if len(cfg.Devices) == 0 {
		return fmt.Errorf("no devices configured")
	}
	if len(cfg.Devices) > p.MaxDevices {
		return fmt.Errorf("%d devices configured but max_devices is %d",
			len(cfg.Devices), p.MaxDevices)
	}
	// Every device needs a latch reaction slot.
	if len(cfg.Devices) > p.MaxReactions {
		return fmt.Errorf("%d devices configured but max_reactions is %d",
			len(cfg.Devices), p.MaxReactions)
	}

	ids := make(map[uint8]bool)
	sensors := make(map[string]bool)
	pins := make(map[int]bool)

	for _, d := range cfg.Devices {
		if ids[d.ID] {
			return fmt.Errorf("device %d: duplicate id", d.ID)
		}
		ids[d.ID] = true

		if d.Sensor == "" {
			return fmt.Errorf("device %d: sensor is required", d.ID)
		}
		if sensors[d.Sensor] {
			return fmt.Errorf("device %d: sensor %q already assigned", d.ID, d.Sensor)
		}
		sensors[d.Sensor] = true

		if d.RelayPin < 0 {
			return fmt.Errorf("device %d: relay_pin must not be negative", d.ID)
		}
		if pins[d.RelayPin] {
			return fmt.Errorf("device %d: relay_pin %d already assigned", d.ID, d.RelayPin)
		}
		pins[d.RelayPin] = true

		// Keep the over-temperature cutoff outside the control band.
		if d.TargetC+p.AllowanceC >= d.MaxC {
			return fmt.Errorf("device %d: target_c %.2f + allowance %.2f must stay below max_c %.2f",
				d.ID, d.TargetC, p.AllowanceC, d.MaxC)
		}
	}

	return nil
}

package therm

import "time"

// Controller wires the latch, the thermostats, and the status LED into
// the two entry points the driver loop calls: Tick at high frequency for
// the LED, Sample at the fixed sensing cadence for the thermostats.
type Controller struct {
	latch      *Latch
	aggregator *Aggregator
	devices    []*Thermostat

	startTime     time.Time
	counts        EventCounts
	lastHeartbeat time.Time
}

// NewController creates a controller. startTime is used for uptime in
// heartbeat events.
func NewController(latch *Latch, aggregator *Aggregator, startTime time.Time) *Controller {
	return &Controller{
		latch:         latch,
		aggregator:    aggregator,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// AddDevice wires a thermostat in: its fail-safe becomes a latch
// reaction and the aggregator gets a read-only reference. Call once per
// device, at startup.
func (c *Controller) AddDevice(t *Thermostat, now time.Time) {
	c.devices = append(c.devices, t)
	c.latch.OnFault(t.ForceOff, now)
	c.aggregator.Register(t, now)
}

// Devices returns the wired thermostats, in registration order.
func (c *Controller) Devices() []*Thermostat { return c.devices }

// Counts returns cumulative event counts since startup.
func (c *Controller) Counts() EventCounts { return c.counts }

// Faulted reports whether the shared latch has tripped.
func (c *Controller) Faulted() bool { return c.latch.Faulted() }

// Display returns the LED display state selected by the last Tick.
func (c *Controller) Display() DisplayState { return c.aggregator.State() }

// FaultRecord returns the latched record, if any.
func (c *Controller) FaultRecord() (FaultRecord, bool) { return c.latch.Record() }

// Tick drives the status LED. Call on every loop iteration.
func (c *Controller) Tick(now time.Time) {
	c.aggregator.Tick(now)
}

// Sample runs one sensing cycle across every device and returns the
// events the cycle produced. Once a fault is latched, sampling freezes
// entirely — the record is re-dumped and no sensor is read again; only
// the LED keeps ticking.
func (c *Controller) Sample(now time.Time) []Event {
	if c.latch.Faulted() {
		c.latch.Dump()
		return nil
	}

	var events []Event
	for _, t := range c.devices {
		faultedBefore := c.latch.Faulted()

		if ev := t.Cycle(now); ev != nil {
			events = append(events, *ev)
			switch ev.Type {
			case EventHeatOn:
				c.counts.HeatOn++
			case EventHeatOff:
				c.counts.HeatOff++
			}
		}

		// A fault raised mid-pass is visible to every later device's
		// Cycle, which no-ops. Report it exactly once.
		if !faultedBefore && c.latch.Faulted() {
			rec, _ := c.latch.Record()
			events = append(events, Event{
				Timestamp: now,
				Type:      EventFault,
				DeviceID:  rec.DeviceID,
				Mode:      ModeOff,
				Kind:      rec.Kind,
				Site:      rec.Site,
			})
			c.counts.Faults++
		}
	}
	return events
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed
// since the last heartbeat (or startup). Returns nil if the interval has
// not elapsed or is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}
	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.counts,
	}
}

// Shutdown drops every relay. Called on process exit so heaters never
// stay energized across a daemon restart.
func (c *Controller) Shutdown() {
	for _, t := range c.devices {
		t.relay.Set(false)
		t.energized = false
	}
}

package internal

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/heater-control/internal/config"
	"github.com/sweeney/heater-control/internal/gpio"
	"github.com/sweeney/heater-control/internal/mqtt"
	"github.com/sweeney/heater-control/internal/onewire"
	"github.com/sweeney/heater-control/internal/status"
	"github.com/sweeney/heater-control/internal/therm"
)

var integrationConfig = []byte(`
policy:
  allowance_c: 0.25
devices:
  - id: 1
    target_c: 24.0
    max_c: 28.0
    sensor: 28-0316a2799fff
    relay_pin: 17
  - id: 2
    target_c: 55.0
    max_c: 70.0
    sensor: 28-0316a28a21ff
    relay_pin: 27
    active_low: true
`)

// harness wires the full control stack from a parsed config using fakes
// for every hardware boundary.
type harness struct {
	cfg     *config.Config
	latch   *therm.Latch
	agg     *therm.Aggregator
	ctrl    *therm.Controller
	led     *gpio.FakeOutput
	relays  []*gpio.FakeOutput
	sensors []*onewire.FakeSensor
}

var integrationStart = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// newHarness builds the stack exactly the way the daemon does at
// startup: latch, aggregator, controller, then one thermostat per
// config device. scripts supplies one temperature script per device.
func newHarness(t *testing.T, raw []byte, scripts ...[]float64) *harness {
	t.Helper()

	cfg, err := config.Parse(raw)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if len(scripts) != len(cfg.Devices) {
		t.Fatalf("harness: %d scripts for %d devices", len(scripts), len(cfg.Devices))
	}

	latch := therm.NewLatch(cfg.Policy.MaxReactions)
	latch.SetLogf(func(string, ...any) {})
	led := gpio.NewFakeOutput(gpio.DefaultLEDPin)
	agg := therm.NewAggregator(latch, led, cfg.Policy.MaxDevices, therm.HalfPeriods{
		therm.DisplayPanic:      cfg.Policy.Blink.PanicHalfPeriod(),
		therm.DisplayAnyHeating: cfg.Policy.Blink.HeatingHalfPeriod(),
		therm.DisplayIdle:       cfg.Policy.Blink.IdleHalfPeriod(),
	})
	ctrl := therm.NewController(latch, agg, integrationStart)

	h := &harness{cfg: cfg, latch: latch, agg: agg, ctrl: ctrl, led: led}
	for i, d := range cfg.Devices {
		sensor := onewire.NewFakeSensor(d.Sensor, scripts[i])
		relay := gpio.NewFakeOutput(d.RelayPin)
		th, err := therm.NewThermostat(therm.DeviceConfig{
			ID:          d.ID,
			TargetC:     d.TargetC,
			MaxC:        d.MaxC,
			Allowance:   cfg.Policy.AllowanceC,
			StallWindow: cfg.Policy.StallWindow(),
			MinRise:     cfg.Policy.MinRiseC,
		}, sensor, relay, latch)
		if err != nil {
			t.Fatalf("device %d: %v", d.ID, err)
		}
		th.Begin()
		ctrl.AddDevice(th, integrationStart)
		h.sensors = append(h.sensors, sensor)
		h.relays = append(h.relays, relay)
	}
	return h
}

// runSamples simulates the sampling loop: n cycles at the given
// interval, publishing every event like the daemon does.
func (h *harness) runSamples(t *testing.T, pub *mqtt.FakePublisher, n int, interval time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		now := integrationStart.Add(time.Duration(i) * interval)
		for _, event := range h.ctrl.Sample(now) {
			// Publish errors must never stop the loop.
			_ = pub.Publish(event)
		}
	}
}

func TestIntegrationFullFlow(t *testing.T) {
	// Device 1 starts cold, heats up past the band, settles.
	// Device 2 stays inside its band the whole time.
	h := newHarness(t, integrationConfig,
		[]float64{23.0, 23.4, 23.9, 24.3, 24.1},
		[]float64{55.0, 55.1, 54.9, 55.0, 55.0},
	)
	pub := mqtt.NewFakePublisher()

	h.runSamples(t, pub, 5, 2*time.Second)

	if len(pub.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.Events))
	}

	on := pub.Events[0]
	if on.Type != therm.EventHeatOn || on.DeviceID != 1 {
		t.Errorf("event 0: expected HEAT_ON device 1, got %s device %d", on.Type, on.DeviceID)
	}
	if on.Mode != therm.ModeHeating {
		t.Errorf("event 0: expected mode HEATING, got %s", on.Mode)
	}
	if on.TempC != 23.0 {
		t.Errorf("event 0: expected temp 23.0, got %.2f", on.TempC)
	}

	off := pub.Events[1]
	if off.Type != therm.EventHeatOff || off.DeviceID != 1 {
		t.Errorf("event 1: expected HEAT_OFF device 1, got %s device %d", off.Type, off.DeviceID)
	}
	if off.Mode != therm.ModeCooling {
		t.Errorf("event 1: expected mode COOLING, got %s", off.Mode)
	}

	// Device 2 never left its band.
	for _, ev := range pub.Events {
		if ev.DeviceID == 2 {
			t.Errorf("unexpected event for device 2: %s", ev.Type)
		}
	}

	// Wire format checks on the published payloads.
	for i, payload := range pub.Payloads {
		var parsed mqtt.Payload
		if err := json.Unmarshal(payload, &parsed); err != nil {
			t.Fatalf("payload %d: invalid JSON: %v", i, err)
		}
		if parsed.Heater.Timestamp == "" {
			t.Errorf("payload %d: missing timestamp", i)
		}
		if parsed.Heater.Event == "" {
			t.Errorf("payload %d: missing event", i)
		}
		if parsed.Heater.TempC == nil {
			t.Errorf("payload %d: missing temp_c", i)
		}
	}
}

func TestIntegrationOverTemperatureFault(t *testing.T) {
	// Device 2 runs away past its 70C maximum while device 1 is heating.
	// One fault must drop both relays and force both modes off.
	h := newHarness(t, integrationConfig,
		[]float64{23.0, 23.2, 23.4},
		[]float64{55.0, 62.0, 71.5},
	)
	pub := mqtt.NewFakePublisher()

	h.runSamples(t, pub, 3, 2*time.Second)

	var fault *therm.Event
	for i := range pub.Events {
		if pub.Events[i].Type == therm.EventFault {
			if fault != nil {
				t.Fatal("fault published more than once")
			}
			fault = &pub.Events[i]
		}
	}
	if fault == nil {
		t.Fatal("expected a FAULT event")
	}
	if fault.Kind != therm.FaultOverTemperature {
		t.Errorf("expected OverTemperature, got %s", fault.Kind)
	}
	if fault.DeviceID != 2 {
		t.Errorf("expected device 2, got %d", fault.DeviceID)
	}
	if fault.Site != therm.SiteUpdateOverMax {
		t.Errorf("expected site update-over-max, got %s", fault.Site)
	}

	for i, relay := range h.relays {
		if relay.On {
			t.Errorf("relay %d still energized after fault", i)
		}
	}
	for _, th := range h.ctrl.Devices() {
		if th.Mode() != therm.ModeOff {
			t.Errorf("device %d: expected mode OFF, got %s", th.ID(), th.Mode())
		}
	}
}

func TestIntegrationStallFault(t *testing.T) {
	// Device 1 heats but the temperature never rises: with the default
	// 180s window, the fifth flat sample at 60s intervals trips the
	// stall detector.
	h := newHarness(t, integrationConfig,
		[]float64{23.0, 23.0, 23.0, 23.0, 23.0},
		[]float64{55.0, 55.0, 55.0, 55.0, 55.0},
	)
	pub := mqtt.NewFakePublisher()

	h.runSamples(t, pub, 5, time.Minute)

	var fault *therm.Event
	for i := range pub.Events {
		if pub.Events[i].Type == therm.EventFault {
			fault = &pub.Events[i]
		}
	}
	if fault == nil {
		t.Fatal("expected a FAULT event")
	}
	if fault.Kind != therm.FaultStallNoRise {
		t.Errorf("expected StallNoRise, got %s", fault.Kind)
	}
	if fault.DeviceID != 1 {
		t.Errorf("expected device 1, got %d", fault.DeviceID)
	}
	if fault.Site != therm.SiteUpdateStall {
		t.Errorf("expected site update-stall, got %s", fault.Site)
	}
}

func TestIntegrationSensorDisconnectMidRun(t *testing.T) {
	h := newHarness(t, integrationConfig,
		[]float64{23.0, 23.3},
		[]float64{55.0, 55.0},
	)
	pub := mqtt.NewFakePublisher()

	h.runSamples(t, pub, 2, 2*time.Second)
	h.sensors[0].Disconnect()
	h.runSamples(t, pub, 1, 2*time.Second)

	last := pub.Events[len(pub.Events)-1]
	if last.Type != therm.EventFault {
		t.Fatalf("expected FAULT, got %s", last.Type)
	}
	if last.Kind != therm.FaultSensorDisconnected {
		t.Errorf("expected SensorDisconnected, got %s", last.Kind)
	}
	if last.Site != therm.SiteSampleRead {
		t.Errorf("expected site sample-read, got %s", last.Site)
	}
}

// countingSensor wraps a sensor and counts Read calls, for asserting
// that sampling stops after a latched fault.
type countingSensor struct {
	inner therm.Sensor
	reads int
}

func (s *countingSensor) Read() (float64, error) {
	s.reads++
	return s.inner.Read()
}

func TestIntegrationSamplingFreezesAfterFault(t *testing.T) {
	h := newHarness(t, integrationConfig,
		[]float64{23.0, 29.0},
		[]float64{55.0, 55.0},
	)
	pub := mqtt.NewFakePublisher()

	// Rebuild device 1 with a counting sensor in front of the script.
	counter := &countingSensor{inner: h.sensors[0]}
	relay := gpio.NewFakeOutput(17)
	th, err := therm.NewThermostat(therm.DeviceConfig{
		ID: 1, TargetC: 24.0, MaxC: 28.0,
	}, counter, relay, h.latch)
	if err != nil {
		t.Fatalf("NewThermostat: %v", err)
	}
	th.Begin()
	// Fresh controller so only the counting device is sampled; the latch
	// and aggregator are shared with the harness.
	ctrl := therm.NewController(h.latch, h.agg, integrationStart)
	ctrl.AddDevice(th, integrationStart)

	for i := 0; i < 5; i++ {
		now := integrationStart.Add(time.Duration(i) * 2 * time.Second)
		for _, event := range ctrl.Sample(now) {
			_ = pub.Publish(event)
		}
	}

	// Reads 1 and 2 happen; the second latches OverTemperature and the
	// remaining three cycles never touch the sensor.
	if counter.reads != 2 {
		t.Errorf("expected 2 sensor reads, got %d", counter.reads)
	}
	if !h.latch.Faulted() {
		t.Fatal("expected latched fault")
	}

	var faults int
	for _, ev := range pub.Events {
		if ev.Type == therm.EventFault {
			faults++
		}
	}
	if faults != 1 {
		t.Errorf("expected exactly 1 FAULT event, got %d", faults)
	}
}

func TestIntegrationFaultPayloadFormat(t *testing.T) {
	h := newHarness(t, integrationConfig,
		[]float64{29.5},
		[]float64{55.0},
	)
	pub := mqtt.NewFakePublisher()

	h.runSamples(t, pub, 1, 2*time.Second)

	if len(pub.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(pub.Payloads))
	}
	var parsed mqtt.Payload
	if err := json.Unmarshal(pub.Payloads[0], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Heater.Event != "FAULT" {
		t.Errorf("expected FAULT, got %q", parsed.Heater.Event)
	}
	if parsed.Heater.Mode != "OFF" {
		t.Errorf("expected mode OFF, got %q", parsed.Heater.Mode)
	}
	if parsed.Heater.Fault == nil {
		t.Fatal("expected fault block")
	}
	if parsed.Heater.Fault.Kind != "OverTemperature" {
		t.Errorf("expected kind OverTemperature, got %q", parsed.Heater.Fault.Kind)
	}
	if parsed.Heater.Fault.Site != "update-over-max" {
		t.Errorf("expected site update-over-max, got %q", parsed.Heater.Fault.Site)
	}
	if parsed.Heater.TempC != nil {
		t.Error("fault payload should not carry temp_c")
	}
}

func TestIntegrationLEDPatterns(t *testing.T) {
	h := newHarness(t, integrationConfig,
		[]float64{23.0},
		[]float64{55.0},
	)
	pub := mqtt.NewFakePublisher()

	// Idle at startup.
	h.ctrl.Tick(integrationStart)
	if h.agg.State() != therm.DisplayIdle {
		t.Fatalf("expected IDLE, got %s", h.agg.State())
	}
	if !h.led.On {
		t.Error("expected LED lit at phase start")
	}

	// Device 1 starts heating.
	h.runSamples(t, pub, 1, 2*time.Second)
	now := integrationStart.Add(2 * time.Second)
	h.ctrl.Tick(now)
	if h.agg.State() != therm.DisplayAnyHeating {
		t.Fatalf("expected HEATING, got %s", h.agg.State())
	}

	// Heating blink: 1s half-period from the config defaults.
	h.ctrl.Tick(now.Add(999 * time.Millisecond))
	if !h.led.On {
		t.Error("LED flipped before the heating half-period elapsed")
	}
	h.ctrl.Tick(now.Add(1000 * time.Millisecond))
	if h.led.On {
		t.Error("LED did not flip at the heating half-period")
	}

	// Trip the latch: panic pattern takes over at 50ms.
	h.latch.Raise(therm.FaultUnspecified, 0, therm.SiteNone, now)
	h.ctrl.Tick(now.Add(1001 * time.Millisecond))
	if h.agg.State() != therm.DisplayPanic {
		t.Fatalf("expected PANIC, got %s", h.agg.State())
	}
	panicStart := now.Add(1001 * time.Millisecond)
	if !h.led.On {
		t.Error("expected LED lit at panic phase start")
	}
	h.ctrl.Tick(panicStart.Add(50 * time.Millisecond))
	if h.led.On {
		t.Error("LED did not flip at the panic half-period")
	}
}

func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	h := newHarness(t, integrationConfig,
		[]float64{23.0, 24.5},
		[]float64{55.0, 55.0},
	)
	pub := mqtt.NewFakePublisher()
	pub.PublishError = errors.New("broker unavailable")

	h.runSamples(t, pub, 2, 2*time.Second)

	// Nothing recorded, but the thermostat kept cycling.
	if len(pub.Events) != 0 {
		t.Errorf("expected 0 recorded events, got %d", len(pub.Events))
	}
	if h.ctrl.Counts().HeatOn != 1 || h.ctrl.Counts().HeatOff != 1 {
		t.Errorf("expected counts 1/1, got %+v", h.ctrl.Counts())
	}
}

func TestIntegrationStatusSnapshot(t *testing.T) {
	// Full path: controller state into the tracker, out through the
	// JSON status endpoint format.
	h := newHarness(t, integrationConfig,
		[]float64{23.0, 29.0},
		[]float64{55.0, 55.0},
	)
	pub := mqtt.NewFakePublisher()
	tracker := status.NewTracker(integrationStart, status.Config{
		SampleMs: 2000,
		Broker:   "tcp://192.168.1.200:1883",
	})

	h.runSamples(t, pub, 2, 2*time.Second)
	h.ctrl.Tick(integrationStart.Add(4 * time.Second))

	devices := make([]status.DeviceStatus, 0, len(h.ctrl.Devices()))
	for _, th := range h.ctrl.Devices() {
		temp, have := th.LastTemp()
		devices = append(devices, status.DeviceStatus{
			ID: th.ID(), Mode: th.Mode(), Heating: th.Heating(),
			TempC: temp, HaveTemp: have, TargetC: th.Target(), MaxC: th.Max(),
		})
	}
	var fault *therm.FaultRecord
	if rec, ok := h.ctrl.FaultRecord(); ok {
		fault = &rec
	}
	tracker.Update(devices, h.ctrl.Display(), fault, h.ctrl.Counts())

	var parsed status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(tracker.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !parsed.Status.Faulted {
		t.Error("expected faulted=true")
	}
	if parsed.Status.Display != "PANIC" {
		t.Errorf("expected display PANIC, got %q", parsed.Status.Display)
	}
	if len(parsed.Status.Devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(parsed.Status.Devices))
	}
	if parsed.Status.Devices[0].Mode != "OFF" {
		t.Errorf("expected device 1 mode OFF, got %q", parsed.Status.Devices[0].Mode)
	}
	if parsed.Status.Counts.Faults != 1 {
		t.Errorf("expected 1 fault counted, got %d", parsed.Status.Counts.Faults)
	}
}

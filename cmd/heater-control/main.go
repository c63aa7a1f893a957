// Command heater-control runs fail-safe thermostats for one or more
// heating elements: DS18B20 sensors in, relays out, one shared status
// LED, and MQTT events for anyone listening.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/heater-control/internal/config"
	"github.com/sweeney/heater-control/internal/gpio"
	"github.com/sweeney/heater-control/internal/mqtt"
	"github.com/sweeney/heater-control/internal/onewire"
	"github.com/sweeney/heater-control/internal/status"
	"github.com/sweeney/heater-control/internal/therm"
	"github.com/sweeney/heater-control/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/heater-control.yaml", "Device configuration file")
	tick := flag.Duration("tick", 25*time.Millisecond, "Status LED tick interval")
	sample := flag.Duration("sample", 2*time.Second, "Temperature sampling interval")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	ledPin := flag.Int("led-pin", gpio.DefaultLEDPin, "BCM pin number for the status LED")
	printState := flag.Bool("print-state", false, "Read every sensor once, print, and exit")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")

	flag.Parse()

	if err := run(*configPath, *tick, *sample, *broker, *heartbeat, *ledPin, *printState, *httpAddr); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(configPath string, tick, sample time.Duration, broker string, heartbeat time.Duration, ledPin int, printState bool, httpAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	sensors := make([]onewire.Sensor, len(cfg.Devices))
	for i, d := range cfg.Devices {
		sensors[i] = onewire.NewRealSensor(d.Sensor)
	}

	// Print state mode: one read per sensor, no outputs touched.
	if printState {
		for i, d := range cfg.Devices {
			temp, err := sensors[i].Read()
			if err != nil {
				fmt.Printf("device %d (%s): DISCONNECTED (%v)\n", d.ID, d.Sensor, err)
				continue
			}
			fmt.Printf("device %d (%s): %.3f C\n", d.ID, d.Sensor, temp)
		}
		return nil
	}

	// Initialize GPIO outputs
	chip, err := gpio.NewRealChip()
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer chip.Close()

	led, err := chip.RequestOutput(ledPin, false)
	if err != nil {
		return fmt.Errorf("init led: %w", err)
	}

	// Assemble the control core
	startTime := time.Now()
	latch := therm.NewLatch(cfg.Policy.MaxReactions)
	aggregator := therm.NewAggregator(latch, led, cfg.Policy.MaxDevices, therm.HalfPeriods{
		therm.DisplayPanic:      cfg.Policy.Blink.PanicHalfPeriod(),
		therm.DisplayAnyHeating: cfg.Policy.Blink.HeatingHalfPeriod(),
		therm.DisplayIdle:       cfg.Policy.Blink.IdleHalfPeriod(),
	})
	ctrl := therm.NewController(latch, aggregator, startTime)

	for i, d := range cfg.Devices {
		relay, err := chip.RequestOutput(d.RelayPin, d.ActiveLow)
		if err != nil {
			return fmt.Errorf("init relay for device %d: %w", d.ID, err)
		}
		th, err := therm.NewThermostat(therm.DeviceConfig{
			ID:          d.ID,
			TargetC:     d.TargetC,
			MaxC:        d.MaxC,
			Allowance:   cfg.Policy.AllowanceC,
			StallWindow: cfg.Policy.StallWindow(),
			MinRise:     cfg.Policy.MinRiseC,
		}, sensors[i], relay, latch)
		if err != nil {
			return err
		}
		th.Begin()
		ctrl.AddDevice(th, startTime)
		log.Printf("device %d: sensor=%s relay=%d target=%.2fC max=%.2fC",
			d.ID, d.Sensor, d.RelayPin, d.TargetC, d.MaxC)
	}

	// Initialize MQTT. A dead broker must never keep the thermostats
	// from running — continue without a publisher and let the replay
	// buffer pick up once it connects.
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if real, err := mqtt.NewRealPublisher(broker); err != nil {
		log.Printf("mqtt connect: %v (continuing without broker)", err)
	} else {
		publisher = real
		mqttStatus = real
		defer real.Close()
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(startTime, status.Config{
		TickMs:        tick.Milliseconds(),
		SampleMs:      sample.Milliseconds(),
		StallWindowMs: cfg.Policy.StallWindowMs,
		MinRiseC:      cfg.Policy.MinRiseC,
		AllowanceC:    cfg.Policy.AllowanceC,
		HeartbeatMs:   heartbeat.Milliseconds(),
		Broker:        broker,
		HTTPPort:      httpAddr,
	})
	updateTracker(ctrl, tracker, mqttStatus)

	// Publish startup event with full status snapshot
	if publisher != nil {
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: devices=%d tick=%v sample=%v broker=%s heartbeat=%v",
		len(cfg.Devices), tick, sample, broker, heartbeat)

	tickTicker := time.NewTicker(tick)
	defer tickTicker.Stop()
	sampleTicker := time.NewTicker(sample)
	defer sampleTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctrl, publisher, mqttStatus, tracker, heartbeat, time.Now, tickTicker.C, sampleTicker.C, sigCh)
}

func runLoop(ctrl *therm.Controller, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick, sample <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			// Relays first. The event is best-effort.
			ctrl.Shutdown()

			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				updateTracker(ctrl, tracker, mqttStatus)
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if publisher != nil {
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("failed to publish shutdown event: %v", err)
				} else {
					log.Printf("published shutdown event")
				}
			}
			return nil

		case <-tick:
			ctrl.Tick(now())

		case <-sample:
			t := now()
			frozen := ctrl.Faulted()
			events := ctrl.Sample(t)

			if !frozen {
				for _, th := range ctrl.Devices() {
					logDeviceState(th)
				}
			}

			for _, event := range events {
				if event.Type == therm.EventFault {
					log.Printf("event: FAULT %s device=%d site=%s", event.Kind, event.DeviceID, event.Site)
				} else {
					log.Printf("event: %s device=%d temp=%.2f", event.Type, event.DeviceID, event.TempC)
				}
				if publisher != nil {
					if err := publisher.Publish(event); err != nil {
						log.Printf("publish error: %v", err)
						// Don't crash on publish failure
					}
				}
			}

			// Check for heartbeat
			if hbData := ctrl.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v heat_on=%d heat_off=%d faults=%d",
					hbData.Uptime, hbData.Counts.HeatOn, hbData.Counts.HeatOff, hbData.Counts.Faults)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					updateTracker(ctrl, tracker, mqttStatus)
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if publisher != nil {
					if err := publisher.PublishSystem(hbEvent); err != nil {
						log.Printf("heartbeat publish error: %v", err)
					}
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				updateTracker(ctrl, tracker, mqttStatus)
			}
		}
	}
}

func logDeviceState(th *therm.Thermostat) {
	if temp, ok := th.LastTemp(); ok {
		log.Printf("device %d: temp=%.2fC mode=%s heating=%v", th.ID(), temp, th.Mode(), th.Heating())
		return
	}
	log.Printf("device %d: temp=? mode=%s heating=%v", th.ID(), th.Mode(), th.Heating())
}

func deviceStatuses(ctrl *therm.Controller) []status.DeviceStatus {
	devs := ctrl.Devices()
	out := make([]status.DeviceStatus, 0, len(devs))
	for _, th := range devs {
		temp, haveTemp := th.LastTemp()
		out = append(out, status.DeviceStatus{
			ID:       th.ID(),
			Mode:     th.Mode(),
			Heating:  th.Heating(),
			TempC:    temp,
			HaveTemp: haveTemp,
			TargetC:  th.Target(),
			MaxC:     th.Max(),
		})
	}
	return out
}

func updateTracker(ctrl *therm.Controller, tracker *status.Tracker, mqttStatus mqtt.ConnectionStatus) {
	var fault *therm.FaultRecord
	if rec, ok := ctrl.FaultRecord(); ok {
		fault = &rec
	}
	tracker.Update(deviceStatuses(ctrl), ctrl.Display(), fault, ctrl.Counts())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
}

package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Display       string       `json:"display"`
	Faulted       bool         `json:"faulted"`
	Fault         *FaultJSON   `json:"fault,omitempty"`
	Devices       []DeviceJSON `json:"devices"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Config        ConfigJSON   `json:"config"`
}

// DeviceJSON is the JSON representation of one thermostat.
type DeviceJSON struct {
	ID       uint8    `json:"id"`
	Mode     string   `json:"mode"`
	Heating  bool     `json:"heating"`
	TempC    *float64 `json:"temp_c,omitempty"`
	TargetC  float64  `json:"target_c"`
	MaxC     float64  `json:"max_c"`
}

// FaultJSON is the JSON representation of the latched fault record.
type FaultJSON struct {
	Kind   string `json:"kind"`
	Device uint8  `json:"device"`
	Site   string `json:"site"`
	Time   string `json:"time"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	HeatOn  int `json:"heat_on"`
	HeatOff int `json:"heat_off"`
	Faults  int `json:"faults"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs        int64   `json:"tick_ms"`
	SampleMs      int64   `json:"sample_ms"`
	StallWindowMs int64   `json:"stall_window_ms"`
	MinRiseC      float64 `json:"min_rise_c"`
	AllowanceC    float64 `json:"allowance_c"`
	HeartbeatMs   int64   `json:"heartbeat_ms"`
	Broker        string  `json:"broker"`
	HTTPPort      string  `json:"http_port"`
}

func buildInner(snap Snapshot) StatusInner {
	devices := make([]DeviceJSON, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		dj := DeviceJSON{
			ID:      d.ID,
			Mode:    string(d.Mode),
			Heating: d.Heating,
			TargetC: d.TargetC,
			MaxC:    d.MaxC,
		}
		if dj.Mode == "" {
			dj.Mode = "UNKNOWN"
		}
		if d.HaveTemp {
			temp := d.TempC
			dj.TempC = &temp
		}
		devices = append(devices, dj)
	}

	inner := StatusInner{
		Display:       snap.Display.String(),
		Faulted:       snap.Fault != nil,
		Devices:       devices,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			HeatOn:  snap.Counts.HeatOn,
			HeatOff: snap.Counts.HeatOff,
			Faults:  snap.Counts.Faults,
		},
		Config: ConfigJSON{
			TickMs:        snap.Config.TickMs,
			SampleMs:      snap.Config.SampleMs,
			StallWindowMs: snap.Config.StallWindowMs,
			MinRiseC:      snap.Config.MinRiseC,
			AllowanceC:    snap.Config.AllowanceC,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPPort:      snap.Config.HTTPPort,
		},
	}

	if snap.Fault != nil {
		inner.Fault = &FaultJSON{
			Kind:   snap.Fault.Kind.String(),
			Device: snap.Fault.DeviceID,
			Site:   snap.Fault.Site.String(),
			Time:   snap.Fault.Time.UTC().Format(time.RFC3339),
		}
	}

	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

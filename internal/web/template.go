package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/heater-control/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"temp": func(d status.DeviceStatus) string {
		if !d.HaveTemp {
			return "—"
		}
		return fmt.Sprintf("%.2f °C", d.TempC)
	},
	"modeClass": func(m string) string {
		switch m {
		case "HEATING":
			return "heating"
		case "COOLING":
			return "cooling"
		case "OFF":
			return "off"
		default:
			return "unknown"
		}
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Heater Control</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.heating { color: #c40; font-weight: bold; }
.cooling { color: #06c; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.fault { background: #fee; border: 1px solid #c00; padding: 0.5em 1em; }
.fault h2 { color: #c00; margin: 0.2em 0; }
</style>
</head>
<body>
<h1>Heater Control</h1>

{{if .Fault}}
<div class="fault">
<h2>FAULTED — all heaters off</h2>
<p>{{.Fault.Kind}} on device {{.Fault.DeviceID}} ({{.Fault.Site}}) at {{.Fault.Time.UTC.Format "2006-01-02T15:04:05Z"}}</p>
<p>Restart the daemon after fixing the cause to clear the latch.</p>
</div>
{{end}}

<h2>Devices</h2>
<table>
<tr><th>ID</th><th>Mode</th><th>Temp</th><th>Target</th><th>Max</th></tr>
{{range .Devices}}
<tr>
<td>{{.ID}}</td>
<td class="{{modeClass (printf "%s" .Mode)}}">{{.Mode}}</td>
<td>{{temp .}}</td>
<td>{{printf "%.2f" .TargetC}} °C</td>
<td>{{printf "%.2f" .MaxC}} °C</td>
</tr>
{{end}}
</table>

<h2>Status LED</h2>
<table>
<tr><th>Pattern</th><td>{{.Display}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Heat on</th><td>{{.Counts.HeatOn}}</td></tr>
<tr><th>Heat off</th><td>{{.Counts.HeatOff}}</td></tr>
<tr><th>Faults</th><td>{{.Counts.Faults}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Sample</th><td>{{.Config.SampleMs}}ms</td></tr>
<tr><th>Stall window</th><td>{{.Config.StallWindowMs}}ms</td></tr>
<tr><th>Allowance</th><td>{{printf "%.2f" .Config.AllowanceC}} °C</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but the template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}

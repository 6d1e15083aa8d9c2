package web

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"time"

	"github.com/sweeney/hotplate-controller/internal/status"
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
	"temp": func(v float64, ok bool) string {
		if !ok {
			return "—"
		}
		return fmt.Sprintf("%.1f °C", v)
	},
	"rpm": func(v float64) string {
		if math.IsNaN(v) {
			return "—"
		}
		return fmt.Sprintf("%.0f rpm", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Hotplate Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.fault { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
button { font-family: monospace; margin-right: 6px; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Hotplate Controller<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Heater</h2>
<table>
<tr><th>Mode</th><td id="mode">{{.Heater.Mode.DisplayName}}</td></tr>
<tr><th>Temperature</th><td id="temperature">{{temp .Heater.Temperature .Heater.HasReading}}</td></tr>
<tr><th>Target</th><td id="target">{{temp .Heater.Target .Heater.TargetSet}}</td></tr>
<tr><th>Heating</th><td id="heating" class="{{if .Heater.Heating}}on{{else}}off{{end}}">{{if .Heater.Heating}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Fault</th><td id="heater-fault" class="{{if .Heater.Fault}}fault{{else}}off{{end}}">{{if .Heater.Fault}}FAULT{{else}}none{{end}}</td></tr>
<tr><th>Remaining</th><td id="remaining">{{if gt .Heater.Remaining 0}}{{uptime .Heater.Remaining}}{{else}}—{{end}}</td></tr>
</table>
<p>
<button onclick="action({action:'heater_off'})">Heater off</button>
</p>

<h2>Stirrer</h2>
<table>
<tr><th>Running</th><td id="stir-running" class="{{if .Stirrer.Running}}on{{else}}off{{end}}">{{if .Stirrer.Running}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Target</th><td id="stir-target">{{rpm .Stirrer.TargetRPM}}</td></tr>
<tr><th>Estimate</th><td id="stir-estimate">{{rpm .Stirrer.Estimate}}</td></tr>
</table>
<p>
<button onclick="action({action:'stirrer_start'})">Start</button>
<button onclick="action({action:'stirrer_stop'})">Stop</button>
<input id="rpm-input" type="number" min="0" step="50" placeholder="rpm">
<button onclick="action({action:'stirrer_rpm', rpm:+document.getElementById('rpm-input').value})">Set RPM</button>
</p>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td id="mqtt" class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Heater ON</th><td>{{.Counts.HeaterOn}}</td></tr>
<tr><th>Heater OFF</th><td>{{.Counts.HeaterOff}}</td></tr>
<tr><th>Faults</th><td>{{.Counts.Faults}}</td></tr>
<tr><th>Completed runs</th><td>{{.Counts.Completed}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Max temperature</th><td>{{.Config.MaxTemp}} °C</td></tr>
<tr><th>Mains</th><td>{{.Config.MainsHz}} Hz</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function text(id, v) { document.getElementById(id).textContent = v; }
  function onOff(id, on) {
    var el = document.getElementById(id);
    el.textContent = on ? "ON" : "OFF";
    el.className = on ? "on" : "off";
  }

  window.action = function(body) {
    fetch("/api/action", {
      method: "POST",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify(body)
    }).then(function(r) {
      if (!r.ok) { r.json().then(function(e) { alert(e.error); }); }
    });
  };

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var f = JSON.parse(ev.data);
        text("mode", f.mode);
        text("temperature", f.temperature != null ? f.temperature.toFixed(1) + " °C" : "—");
        text("target", f.target != null ? f.target.toFixed(1) + " °C" : "—");
        onOff("heating", f.heating);
        var fault = document.getElementById("heater-fault");
        fault.textContent = f.fault ? "FAULT" : "none";
        fault.className = f.fault ? "fault" : "off";
        text("remaining", f.remaining_seconds > 0 ? f.remaining_seconds + "s" : "—");
        onOff("stir-running", f.stirrer.running);
        text("stir-target", f.stirrer.target_rpm.toFixed(0) + " rpm");
        text("stir-estimate", f.stirrer.estimate_rpm != null ? f.stirrer.estimate_rpm.toFixed(0) + " rpm" : "—");
        var mq = document.getElementById("mqtt");
        mq.textContent = f.mqtt_connected ? "connected" : "disconnected";
        mq.className = f.mqtt_connected ? "connected" : "disconnected";
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}

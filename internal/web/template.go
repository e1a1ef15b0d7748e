package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/port-monitor/internal/ports"
	"github.com/sweeney/port-monitor/internal/status"
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
	"shade": func(v int) template.CSS {
		return template.CSS(fmt.Sprintf("background: rgb(%d,%d,%d)", v, v, v))
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Port Monitor</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
table.info { width: 100%; }
table.info th { width: 40%; }
table.ports td, table.ports th { padding: 0; border: 1px solid #999; width: 22px; height: 22px; text-align: center; font-size: 0.8em; }
table.ports th { background: #eee; color: #555; }
table.ports th.title { background: #555; color: white; font-size: 1.1em; }
.high { background: black; }
.low { background: white; }
.unknown { background: repeating-linear-gradient(45deg, #fff, #fff 3px, #bbb 3px, #bbb 5px); }
.none { background: #ccc; border-color: #ccc; }
.accessed::after { content: "\2022"; color: #e33; }
.legend td { border: none; }
.swatch { display: inline-block; width: 12px; height: 12px; border: 1px solid #999; vertical-align: middle; }
.swatch.analog { background: linear-gradient(to right, white, black); }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Port Monitor{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

{{range .Grids}}
<table class="ports">
<tr><th class="title">{{.Title}}</th>{{range .Cols}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr><th>{{.Heading}}</th>{{range .Cells}}{{if eq .State "none"}}<td class="none"></td>{{else}}<td id="port-{{.Port}}" class="{{.State}}{{if .Accessed}} accessed{{end}}"{{if eq .State "analog"}} style="{{shade .Shade}}"{{end}} title="{{.Port}}{{if .Label}} {{.Label}}{{end}}{{if ne .State "unknown"}}: {{.Value}}{{end}}"></td>{{end}}{{end}}</tr>
{{end}}</table>
{{end}}

<table class="legend">
<tr><td><span class="swatch high"></span> High</td>
<td><span class="swatch analog"></span> Analog</td>
<td><span class="swatch low"></span> Low</td>
<td><span class="swatch low accessed"></span> Accessed</td>
<td><span class="swatch unknown"></span> Unknown</td></tr>
</table>

{{if .Labelled}}
<h2>Labels</h2>
<table class="info">
{{range .Labelled}}<tr><th>{{.Port}}</th><td>{{.Label}}</td></tr>
{{end}}</table>
{{end}}

<h2>Connectivity</h2>
<table class="info">
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table class="info">
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Ticks</th><td>{{.Ticks}}</td></tr>
<tr><th>Backend</th><td>{{.Config.Backend}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "{{.Config.EventsTopic}}";
  var dot = document.getElementById("live-dot");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function setPort(p) {
    var el = document.getElementById("port-" + p.port);
    if (!el) return;
    var cls;
    el.style.background = "";
    if (!p.configured) {
      cls = "unknown";
    } else if (p.class === "analog") {
      cls = "analog";
      var v = Math.max(0, 255 - Math.floor(p.value / 4));
      el.style.background = "rgb(" + v + "," + v + "," + v + ")";
    } else {
      cls = p.value === 1 ? "high" : "low";
    }
    el.className = cls + (p.accessed ? " accessed" : "");
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.port) {
        setPort(msg.port);
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

type labelled struct {
	Port  string
	Label string
}

func renderHTML(w io.Writer, snap status.Snapshot) error {
	store := snap.Store()

	var named []labelled
	for _, ch := range ports.All() {
		if l, ok := snap.Labels[ch]; ok {
			named = append(named, labelled{Port: ch.String(), Label: l})
		}
	}

	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		Grids    []grid
		Labelled []labelled
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Grids: []grid{
			buildGrid(store, ports.Digital, snap.Labels),
			buildGrid(store, ports.Analog, snap.Labels),
		},
		Labelled: named,
	}
	return indexTmpl.Execute(w, data)
}

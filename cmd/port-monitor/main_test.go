package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/port-monitor/internal/gpio"
	"github.com/sweeney/port-monitor/internal/mqtt"
	"github.com/sweeney/port-monitor/internal/poll"
	"github.com/sweeney/port-monitor/internal/portio"
	"github.com/sweeney/port-monitor/internal/ports"
	"github.com/sweeney/port-monitor/internal/sampler"
	"github.com/sweeney/port-monitor/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}

	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestResolveWSBroker(t *testing.T) {
	tests := []struct {
		ws, broker, want string
	}{
		{"=broker", "tcp://192.168.1.200:1883", "ws://192.168.1.200:9001"},
		{"off", "tcp://192.168.1.200:1883", ""},
		{"", "tcp://192.168.1.200:1883", ""},
		{"wss://example.com/mqtt", "tcp://192.168.1.200:1883", "wss://example.com/mqtt"},
	}
	for _, tt := range tests {
		if got := resolveWSBroker(tt.ws, tt.broker); got != tt.want {
			t.Errorf("resolveWSBroker(%q, %q): got %q, want %q", tt.ws, tt.broker, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := parseLevel("debug"); err != nil || l.String() != "DEBUG" {
		t.Errorf("debug: got %v, %v", l, err)
	}
	if _, err := parseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestToJournalKey(t *testing.T) {
	if got := toJournalKey("error.port-id"); got != "ERROR_PORT_ID" {
		t.Errorf("got %q", got)
	}
}

func TestPrintPorts(t *testing.T) {
	store := ports.New()
	store.SetConfigured(ports.Digital, 3, true)
	store.SetValue(ports.Digital, 3, 1)
	store.SetConfigured(ports.Analog, 5, true)
	store.SetValue(ports.Analog, 5, 700)

	var buf bytes.Buffer
	if err := printPorts(&buf, store, map[ports.Channel]string{ports.A(5): "tank"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 ports, got %q", buf.String())
	}
	if f := strings.Fields(lines[1]); len(f) != 2 || f[0] != "D3" || f[1] != "1" {
		t.Errorf("D3 line: %q", lines[1])
	}
	if f := strings.Fields(lines[2]); len(f) != 3 || f[0] != "A5" || f[1] != "651" || f[2] != "tank" {
		t.Errorf("A5 line: %q", lines[2])
	}
}

// --- runLoop tests ---

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// scriptedStatus reports states[i] on the i-th IsConnected call and repeats
// the last state once the script runs out. runLoop asks once per tick.
type scriptedStatus struct {
	states []bool
	calls  int
}

func (s *scriptedStatus) IsConnected() bool {
	i := s.calls
	s.calls++
	if i >= len(s.states) {
		i = len(s.states) - 1
	}
	return s.states[i]
}

type harness struct {
	pins    *gpio.FakePins
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	d       daemon
}

func newHarness(probes ...sampler.Probe) *harness {
	store := ports.New()
	pins := gpio.NewFakePins()
	pio := portio.New(store, pins)
	pub := mqtt.NewFakePublisher()
	renderer := mqtt.NewRenderer(pub, time.Now)
	tracker := status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{}, nil)

	return &harness{
		pins:    pins,
		pub:     pub,
		tracker: tracker,
		d: daemon{
			io:        pio,
			sampler:   sampler.New(pio, probes),
			cycle:     poll.NewCycle(store, renderer),
			renderer:  renderer,
			publisher: pub,
			tracker:   tracker,
			now:       fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond),
		},
	}
}

// run drives runLoop for nTicks then delivers signal. Commands are queued
// before the first tick.
func (h *harness) run(t *testing.T, nTicks int, signal os.Signal, cmds ...mqtt.Command) error {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	commands := make(chan mqtt.Command, len(cmds))
	for _, c := range cmds {
		commands <- c
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(h.d, commands, tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	return <-errCh
}

func readProbe(ch ports.Channel) sampler.Probe {
	return sampler.Probe{Channel: ch, Mode: sampler.ModeRead}
}

func TestRunLoopPublishesProbedPorts(t *testing.T) {
	h := newHarness(readProbe(ports.D(3)), readProbe(ports.A(5)))
	h.pins.Digital[3] = true
	h.pins.SetAnalog(5, 700)

	if err := h.run(t, 3, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	// accessed toggles every tick but only the first draw is published
	if len(h.pub.Events) != 2 {
		t.Fatalf("expected 2 port events, got %d: %+v", len(h.pub.Events), h.pub.Events)
	}
	if e := h.pub.Events[0]; e.Channel != ports.D(3) || e.View.Value != 1 {
		t.Errorf("first event should be D3=1 (digital first), got %+v", e)
	}
	if e := h.pub.Events[1]; e.Channel != ports.A(5) || e.View.Value != 651 {
		t.Errorf("second event should be A5=651, got %+v", e)
	}

	snap := h.tracker.Snapshot()
	if snap.Ticks != 3 {
		t.Errorf("tracker ticks: got %d, want 3", snap.Ticks)
	}
	if v := snap.Port(ports.A(5)); !v.Configured || v.Value != 651 {
		t.Errorf("tracker A5: got %+v", v)
	}
}

func TestRunLoopAppliesCommands(t *testing.T) {
	h := newHarness()

	err := h.run(t, 1, syscall.SIGTERM, mqtt.Command{Channel: ports.D(7), Value: 1})
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(h.pins.Writes) != 1 || h.pins.Writes[0] != (gpio.Write{Index: 7, Value: 1}) {
		t.Errorf("expected hardware write D7=1, got %+v", h.pins.Writes)
	}
	if len(h.pub.Events) != 1 || h.pub.Events[0].Channel != ports.D(7) {
		t.Errorf("expected D7 event, got %+v", h.pub.Events)
	}
}

func TestRunLoopInvalidCommandIsFatal(t *testing.T) {
	h := newHarness()

	err := h.run(t, 1, syscall.SIGTERM, mqtt.Command{Channel: ports.A(16), Value: 1})
	if !errors.Is(err, ports.ErrInvalidPort) {
		t.Fatalf("expected ErrInvalidPort, got %v", err)
	}
	var ie *ports.IndexError
	if !errors.As(err, &ie) || ie.Code() != ports.ErrCodeInvalidPort {
		t.Errorf("expected *IndexError with code 1001, got %v", err)
	}

	if len(h.pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(h.pub.SystemEvents))
	}
	if se := h.pub.SystemEvents[0]; se.Event != "SHUTDOWN" || se.Reason != "FATAL" {
		t.Errorf("expected SHUTDOWN/FATAL, got %s/%s", se.Event, se.Reason)
	}
	if len(h.pins.Writes) != 0 {
		t.Errorf("invalid command reached hardware: %+v", h.pins.Writes)
	}
}

func TestRunLoopInvalidProbeIsFatal(t *testing.T) {
	h := newHarness(readProbe(ports.D(54)))

	err := h.run(t, 1, syscall.SIGTERM)
	if !errors.Is(err, ports.ErrInvalidPort) {
		t.Fatalf("expected ErrInvalidPort, got %v", err)
	}
}

func TestRunLoopReadErrorContinues(t *testing.T) {
	h := newHarness(readProbe(ports.D(3)))
	h.pins.ReadError = errors.New("bus fault")

	if err := h.run(t, 3, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if len(h.pub.Events) != 0 {
		t.Errorf("expected no port events, got %d", len(h.pub.Events))
	}
	if h.tracker.Snapshot().Ticks != 3 {
		t.Error("expected loop to keep ticking through read errors")
	}
}

func TestRunLoopPublishErrorContinues(t *testing.T) {
	h := newHarness(readProbe(ports.D(3)))
	h.pub.PublishError = errors.New("broker down")

	if err := h.run(t, 2, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if h.tracker.Snapshot().Ticks != 2 {
		t.Error("expected loop to keep ticking through publish errors")
	}
}

func TestRunLoopBackgroundWhileDisconnected(t *testing.T) {
	h := newHarness(readProbe(ports.D(3)))
	h.pins.Digital[3] = true
	h.d.mqttStatus = &scriptedStatus{states: []bool{false, false, true}}

	if err := h.run(t, 3, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if len(h.pub.Events) != 1 || h.pub.Events[0].Channel != ports.D(3) {
		t.Errorf("expected D3 published once after reconnect, got %+v", h.pub.Events)
	}
	if h.tracker.Snapshot().Ticks != 3 {
		t.Error("tracker should update while disconnected")
	}
}

func TestRunLoopStaysQuietWhileDisconnected(t *testing.T) {
	h := newHarness(readProbe(ports.D(3)))
	h.pins.Digital[3] = true
	h.d.mqttStatus = &scriptedStatus{states: []bool{false}}

	if err := h.run(t, 3, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if len(h.pub.Events) != 0 {
		t.Errorf("expected no port events while disconnected, got %+v", h.pub.Events)
	}
	if h.tracker.Snapshot().MQTTConnected {
		t.Error("tracker should report MQTT disconnected")
	}
}

func TestRunLoopRepublishesAfterReconnect(t *testing.T) {
	h := newHarness(readProbe(ports.D(3)))
	h.pins.Digital[3] = true
	h.d.mqttStatus = &scriptedStatus{states: []bool{true, false, true}}

	if err := h.run(t, 3, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	// same value, but the renderer forgot what it sent before the outage
	if len(h.pub.Events) != 2 {
		t.Errorf("expected D3 republished after reconnect, got %d events", len(h.pub.Events))
	}
}

func TestRunLoopNoRepublishWithoutOutage(t *testing.T) {
	h := newHarness(readProbe(ports.D(3)))
	h.pins.Digital[3] = true
	h.d.mqttStatus = &scriptedStatus{states: []bool{true}}

	if err := h.run(t, 3, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if len(h.pub.Events) != 1 {
		t.Errorf("expected a single D3 event, got %d", len(h.pub.Events))
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	h := newHarness()
	h.d.heartbeat = 15 * time.Minute
	// clock calls: t0 = start, t1..t4 = ticks
	h.d.now = fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 5*time.Minute)

	if err := h.run(t, 4, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	var heartbeats, shutdowns int
	for _, se := range h.pub.SystemEvents {
		switch se.Event {
		case "HEARTBEAT":
			heartbeats++
			if se.Retained {
				t.Error("HEARTBEAT should not be retained")
			}
			var parsed status.StatusJSON
			if err := json.Unmarshal(se.RawPayload, &parsed); err != nil {
				t.Fatalf("invalid heartbeat payload: %v", err)
			}
			if parsed.Status.Event != "HEARTBEAT" || parsed.Status.Ticks != 3 {
				t.Errorf("heartbeat payload: got %+v", parsed.Status)
			}
		case "SHUTDOWN":
			shutdowns++
		}
	}
	if heartbeats != 1 {
		t.Errorf("expected 1 HEARTBEAT event, got %d", heartbeats)
	}
	if shutdowns != 1 {
		t.Errorf("expected 1 SHUTDOWN event, got %d", shutdowns)
	}
}

func TestRunLoopHeartbeatIncludesNetworkInfo(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.42")
	t.Setenv(envNetworkWifiSSID, "HomeNet")

	h := newHarness()
	h.d.heartbeat = 15 * time.Minute
	h.d.now = fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 5*time.Minute)

	if err := h.run(t, 4, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	for _, se := range h.pub.SystemEvents {
		if se.Event != "HEARTBEAT" {
			continue
		}
		var parsed status.StatusJSON
		json.Unmarshal(se.RawPayload, &parsed)
		if parsed.Status.Network == nil || parsed.Status.Network.SSID != "HomeNet" {
			t.Errorf("expected network info in heartbeat, got %+v", parsed.Status.Network)
		}
		return
	}
	t.Fatal("no HEARTBEAT event")
}

func TestRunLoopShutdownSignals(t *testing.T) {
	for _, tc := range []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	} {
		t.Run(tc.want, func(t *testing.T) {
			h := newHarness()
			if err := h.run(t, 1, tc.sig); err != nil {
				t.Fatalf("runLoop returned error: %v", err)
			}

			if len(h.pub.SystemEvents) != 1 {
				t.Fatalf("expected 1 system event, got %d", len(h.pub.SystemEvents))
			}
			se := h.pub.SystemEvents[0]
			if se.Event != "SHUTDOWN" || se.Reason != tc.want {
				t.Errorf("got %s/%s, want SHUTDOWN/%s", se.Event, se.Reason, tc.want)
			}
			if !se.Retained {
				t.Error("expected Retained=true for SHUTDOWN")
			}
		})
	}
}

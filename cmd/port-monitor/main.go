// Command port-monitor tracks the state of every digital and analog port,
// publishes changes to MQTT and serves a status page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sweeney/port-monitor/internal/config"
	"github.com/sweeney/port-monitor/internal/gpio"
	"github.com/sweeney/port-monitor/internal/mqtt"
	"github.com/sweeney/port-monitor/internal/poll"
	"github.com/sweeney/port-monitor/internal/portio"
	"github.com/sweeney/port-monitor/internal/ports"
	"github.com/sweeney/port-monitor/internal/sampler"
	"github.com/sweeney/port-monitor/internal/status"
	"github.com/sweeney/port-monitor/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults apply when empty)")
	printState := flag.Bool("print-state", false, "Read every probe once, print the ports and exit")
	level := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	httpAddr := flag.String("http", "", "HTTP status address, overrides the config file (\"off\" disables)")

	flag.Parse()

	l, err := parseLevel(*level)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	logLevel.Set(l)
	slog.SetDefault(newLogger(os.Stderr))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	switch *httpAddr {
	case "":
	case "off":
		cfg.HTTP = ""
	default:
		cfg.HTTP = *httpAddr
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func openPins(cfg *config.Config) (gpio.Pins, error) {
	switch cfg.Backend.Kind {
	case config.BackendFake:
		return gpio.NewFakePins(), nil
	case config.BackendModbus:
		return gpio.NewModbusPins(cfg.ModbusPins())
	default:
		iio := cfg.Backend.IIODevice
		if iio == "" {
			iio = gpio.DefaultIIODevice
		}
		return gpio.NewRealPins(cfg.Backend.Chip, iio)
	}
}

func run(cfg *config.Config, printState bool) error {
	pins, err := openPins(cfg)
	if err != nil {
		return fmt.Errorf("init %s backend: %w", cfg.Backend.Kind, err)
	}
	defer pins.Close()

	store := ports.New()
	pio := portio.New(store, pins)
	smp := sampler.New(pio, cfg.SamplerProbes())

	if printState {
		if _, err := smp.Sample(); err != nil {
			return fmt.Errorf("read probes: %w", err)
		}
		return printPorts(os.Stdout, store, cfg.PortLabels())
	}

	if err := smp.Start(); err != nil {
		if errors.Is(err, ports.ErrInvalidPort) {
			return err
		}
		slog.Warn("initial writes failed", "error", err)
	}

	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)
	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     cfg.MQTT.Broker,
		ClientID:   cfg.MQTT.ClientID,
		Topics:     topics,
		BufferSize: cfg.MQTT.BufferSize,

		PublishTimeout: time.Duration(cfg.MQTT.PublishTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	commands := make(chan mqtt.Command, 16)
	if err := publisher.Subscribe(func(c mqtt.Command) {
		select {
		case commands <- c:
		default:
			slog.Warn("command queue full, dropping", "port", c.Channel.String())
		}
	}); err != nil {
		slog.Warn("subscribe to commands failed", "topic", topics.Set, "error", err)
	}

	wsBroker := resolveWSBroker(cfg.MQTT.WSBroker, cfg.MQTT.Broker)
	pollInterval := time.Duration(cfg.PollMs) * time.Millisecond
	heartbeat := time.Duration(cfg.HeartbeatMs) * time.Millisecond

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      int64(cfg.PollMs),
		HeartbeatMs: int64(cfg.HeartbeatMs),
		Broker:      cfg.MQTT.Broker,
		HTTPPort:    cfg.HTTP,
		WSBroker:    wsBroker,
		EventsTopic: topics.Events,
		Backend:     cfg.Backend.Kind,
	}, cfg.PortLabels())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())
	tracker.UpdatePorts(store.Bytes(), 0)

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		slog.Warn("failed to publish startup event", "error", err)
	} else {
		slog.Info("published startup event")
	}

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		slog.Info("http status server listening", "addr", cfg.HTTP)
	}

	slog.Info("started",
		"poll", pollInterval,
		"heartbeat", heartbeat,
		"broker", cfg.MQTT.Broker,
		"backend", cfg.Backend.Kind,
		"probes", len(smp.Probes()),
	)

	renderer := mqtt.NewRenderer(publisher, time.Now)
	cycle := poll.NewCycle(store, renderer)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(daemon{
		io:         pio,
		sampler:    smp,
		cycle:      cycle,
		renderer:   renderer,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		heartbeat:  heartbeat,
		now:        time.Now,
	}, commands, ticker.C, sigCh)
}

// daemon bundles what runLoop drives. renderer, tracker and mqttStatus may
// be nil.
type daemon struct {
	io         *portio.IO
	sampler    *sampler.Sampler
	cycle      *poll.Cycle
	renderer   *mqtt.Renderer
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration
	now        func() time.Time
}

// connected reports whether events can reach the broker. While it is false
// the refresh runs in the background and touched flags accumulate.
func (d daemon) connected() bool {
	return d.mqttStatus == nil || d.mqttStatus.IsConnected()
}

func (d daemon) publishStatus(event, reason string, ts time.Time) {
	ev := mqtt.SystemEvent{
		Timestamp: ts,
		Event:     event,
		Reason:    reason,
		Retained:  event != "HEARTBEAT",
	}
	if d.tracker != nil {
		if d.mqttStatus != nil {
			d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
		}
		ev.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), event, reason)
	}
	if err := d.publisher.PublishSystem(ev); err != nil {
		slog.Warn("failed to publish system event", "event", event, "error", err)
	} else {
		slog.Info("published system event", "event", event)
	}
}

// runLoop owns the port store: every read, write and refresh happens on its
// goroutine. It returns nil on a signal and an error when a port access
// names an invalid channel.
func runLoop(d daemon, commands <-chan mqtt.Command, tick <-chan time.Time, sig <-chan os.Signal) error {
	hb := poll.NewHeartbeat(d.now())
	var ticks uint64
	wasConnected := true

	fatal := func(err error) error {
		slog.Error("fatal port error", "error", err)
		d.publishStatus("SHUTDOWN", "FATAL", d.now())
		return err
	}

	for {
		select {
		case s := <-sig:
			slog.Info("shutting down", "signal", s.String())
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			d.publishStatus("SHUTDOWN", signalName, d.now())
			return nil

		case <-tick:
			t := d.now()

			if _, err := d.sampler.Sample(); err != nil {
				if errors.Is(err, ports.ErrInvalidPort) {
					return fatal(fmt.Errorf("sample: %w", err))
				}
				slog.Warn("port read error", "error", err)
			}

		drain:
			for {
				select {
				case c := <-commands:
					slog.Debug("command", "port", c.Channel.String(), "value", c.Value)
					if err := d.io.Write(c.Channel, c.Value); err != nil {
						if errors.Is(err, ports.ErrInvalidPort) {
							return fatal(fmt.Errorf("command: %w", err))
						}
						slog.Warn("command write error", "port", c.Channel.String(), "error", err)
					}
				default:
					break drain
				}
			}

			ticks++
			// sampled once so the tracker and the refresh agree
			connected := d.connected()

			// Update status tracker for HTTP consumers
			if d.tracker != nil {
				d.tracker.UpdatePorts(d.io.Store().Bytes(), ticks)
				if d.mqttStatus != nil {
					d.tracker.SetMQTTConnected(connected)
				}
			}

			if connected && !wasConnected {
				// the broker may have missed changes made while offline
				d.cycle.Invalidate()
				if d.renderer != nil {
					d.renderer.Forget()
				}
			}
			wasConnected = connected

			if n := d.cycle.Tick(connected); n > 0 {
				slog.Debug("refreshed ports", "drawn", n)
			}

			if hbData := hb.Check(t, d.heartbeat, ticks); hbData != nil {
				slog.Info("heartbeat", "uptime", hbData.Uptime, "ticks", hbData.Ticks)
				if d.tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						d.tracker.SetNetwork(net)
					}
				}
				d.publishStatus("HEARTBEAT", "", hbData.Timestamp)
			}
		}
	}
}

// printPorts writes one line per configured port.
func printPorts(w io.Writer, store *ports.Store, labels map[ports.Channel]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PORT\tVALUE\tLABEL")
	for _, ch := range ports.All() {
		if !store.IsConfigured(ch.Class, ch.Index) {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", ch, store.Value(ch.Class, ch.Index), labels[ch])
	}
	return tw.Flush()
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the ws_broker setting into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" or
// empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" || ws == "" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		slog.Warn("ws-broker: cannot parse broker", "broker", broker, "error", err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}

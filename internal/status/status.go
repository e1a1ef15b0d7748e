// Package status keeps a thread-safe copy of daemon state for readers
// outside the run loop, such as the HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/port-monitor/internal/ports"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
	EventsTopic string
	Backend     string
}

// Snapshot is a point-in-time view of daemon state. Ports is a copy of the
// store image, so a Snapshot is safe to use after the lock is released.
type Snapshot struct {
	Ports         [ports.StoreSize]byte
	Ticks         uint64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
	Labels        map[ports.Channel]string
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Store decodes the port image into a fresh store owned by the caller.
func (s Snapshot) Store() *ports.Store {
	st := ports.New()
	st.Load(s.Ports)
	return st
}

// Port returns the view of one channel. ch must be valid.
func (s Snapshot) Port(ch ports.Channel) ports.View {
	return s.Store().View(ch.Class, ch.Index)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, config and port
// labels. labels is not copied and must not be modified afterwards.
func NewTracker(startTime time.Time, cfg Config, labels map[ports.Channel]string) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Labels:    labels,
		},
	}
}

// UpdatePorts records the store image and tick count.
// Called from runLoop on every tick, before the touched flags are cleared.
func (t *Tracker) UpdatePorts(image [ports.StoreSize]byte, ticks uint64) {
	t.mu.Lock()
	t.snap.Ports = image
	t.snap.Ticks = ticks
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

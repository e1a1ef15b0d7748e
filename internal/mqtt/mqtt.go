// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/port-monitor/internal/ports"
)

// Topics are the MQTT topics used under one prefix.
type Topics struct {
	Events string // port events
	System string // system lifecycle events
	Set    string // incoming write commands
}

// NewTopics derives the topics from a prefix such as "devices/ports".
func NewTopics(prefix string) Topics {
	return Topics{
		Events: prefix + "/events",
		System: prefix + "/system",
		Set:    prefix + "/set",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a port event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event PortEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// CommandSource delivers write commands received from the broker.
type CommandSource interface {
	// Subscribe registers fn for every valid command. fn runs on the MQTT
	// client's goroutine and must not touch port state directly.
	Subscribe(fn func(Command)) error
}

// PortEvent is one redrawn channel.
type PortEvent struct {
	Timestamp time.Time
	Channel   ports.Channel
	View      ports.View
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Port PortPayload `json:"port"`
}

// PortPayload contains the port event details.
type PortPayload struct {
	Timestamp  string `json:"timestamp"`
	Port       string `json:"port"`
	Class      string `json:"class"`
	Index      int    `json:"index"`
	Configured bool   `json:"configured"`
	Accessed   bool   `json:"accessed"`
	Value      int    `json:"value"`
}

// FormatPayload creates the JSON payload for a port event.
func FormatPayload(event PortEvent) ([]byte, error) {
	payload := Payload{
		Port: PortPayload{
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Port:       event.Channel.String(),
			Class:      event.Channel.Class.String(),
			Index:      event.Channel.Index,
			Configured: event.View.Configured,
			Accessed:   event.View.Accessed,
			Value:      event.View.Value,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Command asks the daemon to write a port.
type Command struct {
	Channel ports.Channel
	Value   int
}

type commandPayload struct {
	Port  string `json:"port"`
	Value *int   `json:"value"`
}

// ParseCommand decodes {"port":"D3","value":1}. The port is validated here
// so that a bad remote request never reaches the port store.
func ParseCommand(data []byte) (Command, error) {
	var p commandPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Command{}, fmt.Errorf("parse command: %w", err)
	}
	if p.Value == nil {
		return Command{}, fmt.Errorf("parse command: missing value")
	}
	ch, err := ports.ParseChannel(p.Port)
	if err != nil {
		return Command{}, fmt.Errorf("parse command: %w", err)
	}
	return Command{Channel: ch, Value: *p.Value}, nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/port-monitor/internal/gpio"
	"github.com/sweeney/port-monitor/internal/ports"
	"github.com/sweeney/port-monitor/internal/sampler"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg.PollMs <= 0 {
		return fmt.Errorf("poll_ms must be > 0, got %d", cfg.PollMs)
	}
	if cfg.HeartbeatMs < 0 {
		return fmt.Errorf("heartbeat_ms must be >= 0, got %d", cfg.HeartbeatMs)
	}
	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if cfg.MQTT.TopicPrefix == "" {
		return fmt.Errorf("mqtt.topic_prefix is required")
	}
	if cfg.MQTT.BufferSize < 0 {
		return fmt.Errorf("mqtt.buffer_size must be >= 0, got %d", cfg.MQTT.BufferSize)
	}
	if cfg.MQTT.PublishTimeoutMs <= 0 {
		return fmt.Errorf("mqtt.publish_timeout_ms must be > 0, got %d", cfg.MQTT.PublishTimeoutMs)
	}

	switch cfg.Backend.Kind {
	case BackendFake:
	case BackendGPIOCdev:
		if cfg.Backend.Chip == "" {
			return fmt.Errorf("backend %q: chip is required", cfg.Backend.Kind)
		}
	case BackendModbus:
		if cfg.Backend.Modbus.Endpoint == "" {
			return fmt.Errorf("backend %q: modbus.endpoint is required", cfg.Backend.Kind)
		}
		if cfg.Backend.Modbus.TimeoutMs <= 0 {
			return fmt.Errorf("backend %q: modbus.timeout_ms must be > 0", cfg.Backend.Kind)
		}
	default:
		return fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
	}

	// each port may be driven by at most one probe
	owner := make(map[ports.Channel]int)
	for i, p := range cfg.Probes {
		ch, err := ports.ParseChannel(p.Port)
		if err != nil {
			return fmt.Errorf("probe %d: %w", i, err)
		}
		switch sampler.Mode(strings.ToLower(p.Mode)) {
		case sampler.ModeRead, sampler.ModeWrite:
		default:
			return fmt.Errorf("probe %d (%s): unknown mode %q", i, ch, p.Mode)
		}
		if prev, exists := owner[ch]; exists {
			return fmt.Errorf("probe %d: port %s already used by probe %d", i, ch, prev)
		}
		owner[ch] = i
	}

	for port := range cfg.Labels {
		if _, err := ports.ParseChannel(port); err != nil {
			return fmt.Errorf("label: %w", err)
		}
	}

	return nil
}

// SamplerProbes converts the probe list. It MUST be called only after Validate().
func (c *Config) SamplerProbes() []sampler.Probe {
	out := make([]sampler.Probe, 0, len(c.Probes))
	for _, p := range c.Probes {
		ch, _ := ports.ParseChannel(p.Port)
		out = append(out, sampler.Probe{Channel: ch, Mode: sampler.Mode(p.Mode), Value: p.Value})
	}
	return out
}

// PortLabels returns labels keyed by channel. It MUST be called only after
// Validate().
func (c *Config) PortLabels() map[ports.Channel]string {
	out := make(map[ports.Channel]string, len(c.Labels))
	for port, label := range c.Labels {
		ch, _ := ports.ParseChannel(port)
		out[ch] = label
	}
	return out
}

// ModbusPins returns the remote I/O settings for gpio.NewModbusPins.
func (c *Config) ModbusPins() gpio.ModbusConfig {
	m := c.Backend.Modbus
	return gpio.ModbusConfig{
		Endpoint:     m.Endpoint,
		UnitID:       m.UnitID,
		Timeout:      time.Duration(m.TimeoutMs) * time.Millisecond,
		CoilBase:     m.CoilBase,
		RegisterBase: m.RegisterBase,
	}
}

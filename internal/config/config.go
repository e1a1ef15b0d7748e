// Package config loads the daemon configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	PollMs      int    `yaml:"poll_ms"`
	HeartbeatMs int    `yaml:"heartbeat_ms"`
	HTTP        string `yaml:"http"`

	MQTT    MQTTConfig    `yaml:"mqtt"`
	Backend BackendConfig `yaml:"backend"`
	Probes  []ProbeConfig `yaml:"probes"`

	// Labels maps a port ("D2", "A0") to a short caption shown by the web UI.
	Labels map[string]string `yaml:"labels"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	WSBroker    string `yaml:"ws_broker"`
	BufferSize  int    `yaml:"buffer_size"`

	// PublishTimeoutMs bounds a single publish while connected.
	PublishTimeoutMs int `yaml:"publish_timeout_ms"`
}

// ---- HARDWARE ----

// Backend kinds.
const (
	BackendFake     = "fake"
	BackendGPIOCdev = "gpiocdev"
	BackendModbus   = "modbus"
)

type BackendConfig struct {
	Kind      string       `yaml:"kind"`
	Chip      string       `yaml:"chip"`
	IIODevice string       `yaml:"iio_device"`
	Modbus    ModbusConfig `yaml:"modbus"`
}

type ModbusConfig struct {
	Endpoint     string `yaml:"endpoint"`
	UnitID       uint8  `yaml:"unit_id"`
	TimeoutMs    int    `yaml:"timeout_ms"`
	CoilBase     uint16 `yaml:"coil_base"`
	RegisterBase uint16 `yaml:"register_base"`
}

// ---- PROBES ----

type ProbeConfig struct {
	Port  string `yaml:"port"`
	Mode  string `yaml:"mode"`
	Value int    `yaml:"value"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		PollMs:      100,
		HeartbeatMs: 15 * 60 * 1000,
		HTTP:        ":80",
		MQTT: MQTTConfig{
			Broker:      "tcp://192.168.1.200:1883",
			ClientID:    "port-monitor",
			TopicPrefix: "devices/ports",
			WSBroker:    "=broker",
			BufferSize:  100,

			PublishTimeoutMs: 2000,
		},
		Backend: BackendConfig{
			Kind: BackendGPIOCdev,
			Chip: "gpiochip0",
		},
	}
}

// Load reads a YAML file on top of Default. Unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

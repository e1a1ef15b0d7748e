package config

import (
	"strings"

	"github.com/sweeney/port-monitor/internal/ports"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.MQTT.TopicPrefix = strings.TrimRight(cfg.MQTT.TopicPrefix, "/")
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "port-monitor"
	}

	// canonical port spelling ("d3 " -> "D3")
	for i := range cfg.Probes {
		p := &cfg.Probes[i]
		ch, _ := ports.ParseChannel(p.Port)
		p.Port = ch.String()
		p.Mode = strings.ToLower(p.Mode)
	}

	if len(cfg.Labels) > 0 {
		labels := make(map[string]string, len(cfg.Labels))
		for port, label := range cfg.Labels {
			ch, _ := ports.ParseChannel(port)
			labels[ch.String()] = label
		}
		cfg.Labels = labels
	}
}

// Package sampler drives the configured probes through the tracked port
// wrappers: reads every tick, writes once at start-up.
package sampler

import (
	"errors"
	"fmt"

	"github.com/sweeney/port-monitor/internal/ports"
)

// Mode is what a probe does with its port.
type Mode string

const (
	ModeRead  Mode = "read"
	ModeWrite Mode = "write"
)

// Probe is one port the daemon accesses.
type Probe struct {
	Channel ports.Channel
	Mode    Mode
	Value   int // written value for ModeWrite
}

// PortIO is the tracked access the sampler needs. portio.IO satisfies it.
type PortIO interface {
	Read(ch ports.Channel) (int, error)
	Write(ch ports.Channel, value int) error
}

// Reading is the raw result of one read probe.
type Reading struct {
	Channel ports.Channel
	Raw     int
}

// Sampler runs probes in configuration order.
type Sampler struct {
	io     PortIO
	probes []Probe
}

// New creates a Sampler.
func New(io PortIO, probes []Probe) *Sampler {
	return &Sampler{io: io, probes: probes}
}

// Start performs every write probe once.
// An invalid port aborts immediately; hardware errors are collected.
func (s *Sampler) Start() error {
	var errs []error
	for _, p := range s.probes {
		if p.Mode != ModeWrite {
			continue
		}
		if err := s.io.Write(p.Channel, p.Value); err != nil {
			if errors.Is(err, ports.ErrInvalidPort) {
				return err
			}
			errs = append(errs, fmt.Errorf("write %s: %w", p.Channel, err))
		}
	}
	return errors.Join(errs...)
}

// Sample performs every read probe and returns the successful readings.
// An invalid port aborts immediately; hardware errors are collected and the
// remaining probes still run.
func (s *Sampler) Sample() ([]Reading, error) {
	var (
		out  []Reading
		errs []error
	)
	for _, p := range s.probes {
		if p.Mode != ModeRead {
			continue
		}
		v, err := s.io.Read(p.Channel)
		if err != nil {
			if errors.Is(err, ports.ErrInvalidPort) {
				return out, err
			}
			errs = append(errs, fmt.Errorf("read %s: %w", p.Channel, err))
			continue
		}
		out = append(out, Reading{Channel: p.Channel, Raw: v})
	}
	return out, errors.Join(errs...)
}

// Probes returns the configured probes.
func (s *Sampler) Probes() []Probe {
	return s.probes
}

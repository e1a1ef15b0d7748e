// Package portio wraps raw hardware access so that every port read or write
// is recorded in a ports.Store.
package portio

import (
	"github.com/sweeney/port-monitor/internal/ports"
)

// Hardware is the raw, untracked port access the wrappers delegate to.
// gpio.Pins satisfies it.
type Hardware interface {
	DigitalRead(index int) (bool, error)
	DigitalWrite(index int, value bool) error
	AnalogRead(index int) (int, error)
	AnalogWrite(index int, value int) error
}

// IO is the tracked replacement for direct hardware calls.
//
// Every method validates the index first and returns a *ports.IndexError
// without touching the store or the hardware when it is out of range. Like
// the Store, IO must be used from a single goroutine.
type IO struct {
	store *ports.Store
	hw    Hardware
}

// New wraps hw, recording into store.
func New(store *ports.Store, hw Hardware) *IO {
	return &IO{store: store, hw: hw}
}

// Store returns the store the wrappers record into.
func (io *IO) Store() *ports.Store {
	return io.store
}

// mark sets configured and touched, the bookkeeping shared by every access.
func (io *IO) mark(class ports.Class, index int) {
	io.store.SetConfigured(class, index, true)
	io.store.SetTouched(class, index, true)
}

// DigitalRead reads a digital line and records the level. A failed hardware
// read leaves the store unchanged.
func (io *IO) DigitalRead(index int) (bool, error) {
	if err := ports.Validate(ports.Digital, index); err != nil {
		return false, err
	}
	v, err := io.hw.DigitalRead(index)
	if err != nil {
		return false, err
	}
	io.mark(ports.Digital, index)
	io.store.SetAccessed(ports.Digital, index)
	io.store.SetValue(ports.Digital, index, boolToInt(v))
	return v, nil
}

// DigitalWrite records the level and drives the line.
func (io *IO) DigitalWrite(index int, value bool) error {
	if err := ports.Validate(ports.Digital, index); err != nil {
		return err
	}
	io.mark(ports.Digital, index)
	io.store.SetAccessed(ports.Digital, index)
	io.store.SetValue(ports.Digital, index, boolToInt(value))
	return io.hw.DigitalWrite(index, value)
}

// AnalogRead reads an analog line and records the quantized value.
func (io *IO) AnalogRead(index int) (int, error) {
	if err := ports.Validate(ports.Analog, index); err != nil {
		return 0, err
	}
	v, err := io.hw.AnalogRead(index)
	if err != nil {
		return 0, err
	}
	io.mark(ports.Analog, index)
	io.store.SetValue(ports.Analog, index, v)
	io.store.SetAccessed(ports.Analog, index)
	return v, nil
}

// AnalogWrite records the quantized value and outputs it. Writes do not
// toggle the accessed flag.
func (io *IO) AnalogWrite(index int, value int) error {
	if err := ports.Validate(ports.Analog, index); err != nil {
		return err
	}
	io.mark(ports.Analog, index)
	io.store.SetValue(ports.Analog, index, value)
	return io.hw.AnalogWrite(index, value)
}

// Read reads any channel. Digital levels are returned as 0 or 1.
func (io *IO) Read(ch ports.Channel) (int, error) {
	if ch.Class == ports.Analog {
		return io.AnalogRead(ch.Index)
	}
	v, err := io.DigitalRead(ch.Index)
	return boolToInt(v), err
}

// Write writes any channel. Any nonzero value drives a digital line high.
func (io *IO) Write(ch ports.Channel, value int) error {
	if ch.Class == ports.Analog {
		return io.AnalogWrite(ch.Index, value)
	}
	return io.DigitalWrite(ch.Index, value != 0)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

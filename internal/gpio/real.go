//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// ErrAnalogWriteUnsupported is returned by RealPins.AnalogWrite.
var ErrAnalogWriteUnsupported = errors.New("gpio: analog write not supported by this backend")

type line struct {
	l      *gpiocdev.Line
	output bool
}

// RealPins accesses actual hardware. Digital index N is line offset N on the
// chip; lines are requested on first use. Analog inputs come from IIO sysfs.
type RealPins struct {
	chip  *gpiocdev.Chip
	lines map[int]*line
	adc   IIOReader
}

// NewRealPins opens the GPIO chip. iioDir may be empty when no ADC is fitted.
func NewRealPins(chip, iioDir string) (*RealPins, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &RealPins{
		chip:  c,
		lines: make(map[int]*line),
		adc:   IIOReader{Dir: iioDir},
	}, nil
}

// input returns the line configured as input with pull-down, matching Pi
// boot defaults.
func (r *RealPins) input(index int) (*gpiocdev.Line, error) {
	ln, ok := r.lines[index]
	if !ok {
		l, err := r.chip.RequestLine(index, gpiocdev.AsInput, gpiocdev.WithPullDown)
		if err != nil {
			return nil, fmt.Errorf("request line %d: %w", index, err)
		}
		r.lines[index] = &line{l: l}
		return l, nil
	}
	if ln.output {
		if err := ln.l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			return nil, fmt.Errorf("reconfigure line %d: %w", index, err)
		}
		ln.output = false
	}
	return ln.l, nil
}

func (r *RealPins) output(index, value int) error {
	ln, ok := r.lines[index]
	if !ok {
		l, err := r.chip.RequestLine(index, gpiocdev.AsOutput(value))
		if err != nil {
			return fmt.Errorf("request line %d: %w", index, err)
		}
		r.lines[index] = &line{l: l, output: true}
		return nil
	}
	if !ln.output {
		if err := ln.l.Reconfigure(gpiocdev.AsOutput(value)); err != nil {
			return fmt.Errorf("reconfigure line %d: %w", index, err)
		}
		ln.output = true
		return nil
	}
	if err := ln.l.SetValue(value); err != nil {
		return fmt.Errorf("set line %d: %w", index, err)
	}
	return nil
}

// DigitalRead returns the level of the line. A line last driven as output is
// switched back to input.
func (r *RealPins) DigitalRead(index int) (bool, error) {
	l, err := r.input(index)
	if err != nil {
		return false, err
	}
	v, err := l.Value()
	if err != nil {
		return false, fmt.Errorf("read line %d: %w", index, err)
	}
	return v != 0, nil
}

// DigitalWrite drives the line, requesting it as output if needed.
func (r *RealPins) DigitalWrite(index int, value bool) error {
	v := 0
	if value {
		v = 1
	}
	return r.output(index, v)
}

// AnalogRead reads the IIO channel with the same index.
func (r *RealPins) AnalogRead(index int) (int, error) {
	if r.adc.Dir == "" {
		return 0, fmt.Errorf("read analog line %d: no iio device configured", index)
	}
	return r.adc.Read(index)
}

// AnalogWrite is not available on the character device backend.
func (r *RealPins) AnalogWrite(index int, value int) error {
	return ErrAnalogWriteUnsupported
}

// Close releases GPIO resources.
// Lines are reconfigured to input with pull-down (matching Pi boot defaults)
// before closing to leave a clean state for shutdown/reboot.
func (r *RealPins) Close() error {
	var errs []error

	for index, ln := range r.lines {
		if err := ln.l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", index, err))
		}
		if err := ln.l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", index, err))
		}
	}
	r.lines = make(map[int]*line)

	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}

//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealPins is not available on non-Linux platforms.
type RealPins struct{}

// NewRealPins returns an error on non-Linux platforms.
func NewRealPins(chip, iioDir string) (*RealPins, error) {
	return nil, errUnsupported
}

// DigitalRead is not implemented on non-Linux platforms.
func (r *RealPins) DigitalRead(index int) (bool, error) { return false, errUnsupported }

// DigitalWrite is not implemented on non-Linux platforms.
func (r *RealPins) DigitalWrite(index int, value bool) error { return errUnsupported }

// AnalogRead is not implemented on non-Linux platforms.
func (r *RealPins) AnalogRead(index int) (int, error) { return 0, errUnsupported }

// AnalogWrite is not implemented on non-Linux platforms.
func (r *RealPins) AnalogWrite(index int, value int) error { return errUnsupported }

// Close is not implemented on non-Linux platforms.
func (r *RealPins) Close() error {
	return nil
}

// Package ports tracks the live state of every digital and analog channel of
// the controller in one fixed-size bit-packed store.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time).
package ports

import (
	"fmt"
	"strconv"
	"strings"
)

// Class is the kind of a channel.
type Class uint8

const (
	Digital Class = iota
	Analog
)

// Channel counts per class.
const (
	DigitalCount = 54
	AnalogCount  = 16
)

func (c Class) String() string {
	switch c {
	case Digital:
		return "digital"
	case Analog:
		return "analog"
	}
	return "class(" + strconv.Itoa(int(c)) + ")"
}

// Count returns the number of channels of the class, or 0 for an unknown class.
func (c Class) Count() int {
	switch c {
	case Digital:
		return DigitalCount
	case Analog:
		return AnalogCount
	}
	return 0
}

// ParseClass accepts "digital"/"d" and "analog"/"a", case-insensitive.
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "digital", "d":
		return Digital, nil
	case "analog", "a":
		return Analog, nil
	}
	return 0, fmt.Errorf("ports: unknown class %q", s)
}

// Channel identifies one physical line. It is derived per access and never
// stored in the Store itself.
type Channel struct {
	Class Class
	Index int
}

// D returns the digital channel with the given index.
func D(index int) Channel { return Channel{Class: Digital, Index: index} }

// A returns the analog channel with the given index.
func A(index int) Channel { return Channel{Class: Analog, Index: index} }

// String renders the short form used on the device screen, e.g. "D3" or "A5".
func (c Channel) String() string {
	prefix := "D"
	if c.Class == Analog {
		prefix = "A"
	}
	return prefix + strconv.Itoa(c.Index)
}

// ParseChannel parses the short form ("D3", "a15"). The index is validated.
func ParseChannel(s string) (Channel, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return Channel{}, fmt.Errorf("ports: invalid channel %q", s)
	}
	class, err := ParseClass(s[:1])
	if err != nil {
		return Channel{}, fmt.Errorf("ports: invalid channel %q", s)
	}
	index, err := strconv.Atoi(s[1:])
	if err != nil {
		return Channel{}, fmt.Errorf("ports: invalid channel %q: %w", s, err)
	}
	ch := Channel{Class: class, Index: index}
	if err := ch.Validate(); err != nil {
		return Channel{}, err
	}
	return ch, nil
}

// View is a read-only copy of one channel's fields, as handed to renderers.
type View struct {
	Configured bool
	Touched    bool
	Accessed   bool
	Value      int
}

// All returns every channel in refresh order: digital 0..53, then analog 0..15.
func All() []Channel {
	out := make([]Channel, 0, DigitalCount+AnalogCount)
	for i := 0; i < DigitalCount; i++ {
		out = append(out, D(i))
	}
	for i := 0; i < AnalogCount; i++ {
		out = append(out, A(i))
	}
	return out
}

package gpio

import "fmt"

// FakePins is a test double that returns scripted port values and records
// writes.
type FakePins struct {
	// Digital holds the level returned by DigitalRead per line.
	// DigitalWrite updates it, so a written line reads back its value.
	Digital map[int]bool

	// AnalogSamples contains scripted readings per analog line.
	// Each call to AnalogRead consumes the next sample; once exhausted the
	// last sample is returned repeatedly.
	AnalogSamples map[int][]int

	// analogIndex tracks the position in AnalogSamples per line
	analogIndex map[int]int

	// Writes records every write in call order.
	Writes []Write

	// ReadError, if set, is returned by DigitalRead and AnalogRead.
	ReadError error

	// WriteError, if set, is returned by DigitalWrite and AnalogWrite.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// Write is one recorded write.
type Write struct {
	Analog bool
	Index  int
	Value  int
}

// NewFakePins creates a FakePins with no lines set.
func NewFakePins() *FakePins {
	return &FakePins{
		Digital:       make(map[int]bool),
		AnalogSamples: make(map[int][]int),
		analogIndex:   make(map[int]int),
	}
}

// SetAnalog scripts the readings of one analog line.
func (f *FakePins) SetAnalog(index int, samples ...int) {
	f.AnalogSamples[index] = samples
	f.analogIndex[index] = 0
}

// DigitalRead returns the current level of the line (false if never set).
func (f *FakePins) DigitalRead(index int) (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	return f.Digital[index], nil
}

// DigitalWrite records the write and updates the line level.
func (f *FakePins) DigitalWrite(index int, value bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	v := 0
	if value {
		v = 1
	}
	f.Writes = append(f.Writes, Write{Index: index, Value: v})
	f.Digital[index] = value
	return nil
}

// AnalogRead returns the next scripted sample for the line.
func (f *FakePins) AnalogRead(index int) (int, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}

	samples := f.AnalogSamples[index]
	if len(samples) == 0 {
		return 0, fmt.Errorf("no samples configured for analog line %d", index)
	}

	i := f.analogIndex[index]
	sample := samples[i]
	if i < len(samples)-1 {
		f.analogIndex[index] = i + 1
	}
	return sample, nil
}

// AnalogWrite records the write. Subsequent reads of the line return value.
func (f *FakePins) AnalogWrite(index int, value int) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Writes = append(f.Writes, Write{Analog: true, Index: index, Value: value})
	f.SetAnalog(index, value)
	return nil
}

// Close marks the pins as closed.
func (f *FakePins) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds scripted samples and clears recorded writes.
func (f *FakePins) Reset() {
	for k := range f.analogIndex {
		f.analogIndex[k] = 0
	}
	f.Writes = nil
	f.Closed = false
}

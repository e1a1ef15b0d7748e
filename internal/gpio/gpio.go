// Package gpio provides raw port access with hardware abstraction.
// The real implementation uses the Linux GPIO character device for digital
// lines and IIO sysfs for analog inputs. ModbusPins drives a remote I/O
// module. The fake implementation allows testing without hardware.
package gpio

// Pins performs raw, untracked port access. Indices are line numbers on the
// backend; range checking is the caller's job.
type Pins interface {
	// DigitalRead returns the level of a digital line.
	DigitalRead(index int) (bool, error)

	// DigitalWrite drives a digital line.
	DigitalWrite(index int, value bool) error

	// AnalogRead returns a raw ADC reading, nominally 0..1023.
	AnalogRead(index int) (int, error)

	// AnalogWrite outputs a raw analog value.
	AnalogWrite(index int, value int) error

	// Close releases hardware resources.
	Close() error
}

// Defaults for the real backend.
const (
	DefaultChip      = "gpiochip0"
	DefaultIIODevice = "/sys/bus/iio/devices/iio:device0"
)

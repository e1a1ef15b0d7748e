package ports

import (
	"errors"
	"fmt"
)

// ErrCodeInvalidPort is the fatal error code reported for an out-of-range
// channel index.
const ErrCodeInvalidPort = 1001

// ErrInvalidPort matches every *IndexError via errors.Is.
var ErrInvalidPort = errors.New("ports: invalid port")

// IndexError reports a class/index pair outside its valid range. It marks a
// programming or integration defect: callers must not continue with the
// offending channel.
type IndexError struct {
	Class Class
	Index int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("ports: fatal error %d: invalid %s port %d", e.Code(), e.Class, e.Index)
}

// Code returns the fixed fatal error code.
func (e *IndexError) Code() int { return ErrCodeInvalidPort }

func (e *IndexError) Is(target error) bool { return target == ErrInvalidPort }

// Validate checks that index is within [0, class.Count()).
func Validate(class Class, index int) error {
	if index < 0 || index >= class.Count() {
		return &IndexError{Class: class, Index: index}
	}
	return nil
}

// Validate checks the channel's index against its class range.
func (c Channel) Validate() error {
	return Validate(c.Class, c.Index)
}

// mustValidate panics with *IndexError. The Store never touches a bit for an
// invalid channel.
func mustValidate(class Class, index int) {
	if err := Validate(class, index); err != nil {
		panic(err)
	}
}

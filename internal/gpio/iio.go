package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IIOReader reads raw ADC values from a Linux industrial I/O device in sysfs.
type IIOReader struct {
	Dir string
}

// Read returns the raw value of in_voltage<index>_raw.
func (r IIOReader) Read(index int) (int, error) {
	path := filepath.Join(r.Dir, fmt.Sprintf("in_voltage%d_raw", index))
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read analog line %d: %w", index, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse analog line %d: %w", index, err)
	}
	return v, nil
}

package gpio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goburrow/modbus"
)

// ModbusConfig describes a remote I/O module reached over Modbus TCP.
type ModbusConfig struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration

	// CoilBase is the coil address of digital line 0.
	CoilBase uint16
	// RegisterBase is the register address of analog line 0. Reads use input
	// registers, writes use holding registers.
	RegisterBase uint16
}

// ModbusPins maps digital lines to coils and analog lines to registers of a
// remote I/O module.
type ModbusPins struct {
	client modbus.Client
	closer io.Closer
	cfg    ModbusConfig
}

// NewModbusPins connects to the module. One attempt, no retries.
func NewModbusPins(cfg ModbusConfig) (*ModbusPins, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus pins: endpoint required")
	}

	handler := modbus.NewTCPClientHandler(cfg.Endpoint)
	handler.Timeout = cfg.Timeout
	handler.SlaveId = cfg.UnitID
	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Endpoint, err)
	}

	return newModbusPins(modbus.NewClient(handler), handler, cfg), nil
}

func newModbusPins(client modbus.Client, closer io.Closer, cfg ModbusConfig) *ModbusPins {
	return &ModbusPins{client: client, closer: closer, cfg: cfg}
}

// DigitalRead reads one coil.
func (m *ModbusPins) DigitalRead(index int) (bool, error) {
	res, err := m.client.ReadCoils(m.cfg.CoilBase+uint16(index), 1)
	if err != nil {
		return false, fmt.Errorf("read coil %d: %w", index, err)
	}
	if len(res) < 1 {
		return false, errors.New("modbus: short read-coils payload")
	}
	return res[0]&1 != 0, nil
}

// DigitalWrite writes one coil (0xFF00 on, 0x0000 off).
func (m *ModbusPins) DigitalWrite(index int, value bool) error {
	var v uint16
	if value {
		v = 0xFF00
	}
	if _, err := m.client.WriteSingleCoil(m.cfg.CoilBase+uint16(index), v); err != nil {
		return fmt.Errorf("write coil %d: %w", index, err)
	}
	return nil
}

// AnalogRead reads one input register.
func (m *ModbusPins) AnalogRead(index int) (int, error) {
	res, err := m.client.ReadInputRegisters(m.cfg.RegisterBase+uint16(index), 1)
	if err != nil {
		return 0, fmt.Errorf("read register %d: %w", index, err)
	}
	if len(res) < 2 {
		return 0, errors.New("modbus: short read-registers payload")
	}
	return int(binary.BigEndian.Uint16(res)), nil
}

// AnalogWrite writes one holding register. Negative values are rejected.
func (m *ModbusPins) AnalogWrite(index int, value int) error {
	if value < 0 || value > 0xFFFF {
		return fmt.Errorf("write register %d: value %d out of range", index, value)
	}
	if _, err := m.client.WriteSingleRegister(m.cfg.RegisterBase+uint16(index), uint16(value)); err != nil {
		return fmt.Errorf("write register %d: %w", index, err)
	}
	return nil
}

// Close closes the TCP connection.
func (m *ModbusPins) Close() error {
	if m == nil || m.closer == nil {
		return nil
	}
	return m.closer.Close()
}

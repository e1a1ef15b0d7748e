package gpio

import (
	"errors"
	"testing"

	"github.com/goburrow/modbus"
)

// fakeModbus implements the parts of modbus.Client the pins use. Calling any
// other method panics on the nil embedded interface.
type fakeModbus struct {
	modbus.Client

	coils     map[uint16]bool
	registers map[uint16]uint16
	writes    []uint16 // addresses written
	err       error
}

func newFakeModbus() *fakeModbus {
	return &fakeModbus{coils: map[uint16]bool{}, registers: map[uint16]uint16{}}
}

func (f *fakeModbus) ReadCoils(address, quantity uint16) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.coils[address] {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

func (f *fakeModbus) WriteSingleCoil(address, value uint16) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.coils[address] = value == 0xFF00
	f.writes = append(f.writes, address)
	return []byte{byte(value >> 8), byte(value)}, nil
}

func (f *fakeModbus) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	v := f.registers[address]
	return []byte{byte(v >> 8), byte(v)}, nil
}

func (f *fakeModbus) WriteSingleRegister(address, value uint16) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.registers[address] = value
	f.writes = append(f.writes, address)
	return []byte{byte(value >> 8), byte(value)}, nil
}

type fakeCloser struct{ closed bool }

func (c *fakeCloser) Close() error {
	c.closed = true
	return nil
}

func TestModbusPinsDigital(t *testing.T) {
	fm := newFakeModbus()
	p := newModbusPins(fm, nil, ModbusConfig{CoilBase: 100})

	if err := p.DigitalWrite(3, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fm.writes) != 1 || fm.writes[0] != 103 {
		t.Errorf("expected write to coil 103, got %v", fm.writes)
	}

	v, err := p.DigitalRead(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v {
		t.Error("expected coil 103 high")
	}

	p.DigitalWrite(3, false)
	if v, _ := p.DigitalRead(3); v {
		t.Error("expected coil 103 low")
	}
}

func TestModbusPinsAnalog(t *testing.T) {
	fm := newFakeModbus()
	fm.registers[205] = 700
	p := newModbusPins(fm, nil, ModbusConfig{RegisterBase: 200})

	v, err := p.AnalogRead(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 700 {
		t.Errorf("expected 700, got %d", v)
	}

	if err := p.AnalogWrite(7, 599); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fm.registers[207] != 599 {
		t.Errorf("expected register 207 = 599, got %d", fm.registers[207])
	}
}

func TestModbusPinsAnalogWriteRange(t *testing.T) {
	p := newModbusPins(newFakeModbus(), nil, ModbusConfig{})

	if err := p.AnalogWrite(0, -1); err == nil {
		t.Error("expected error for negative value")
	}
	if err := p.AnalogWrite(0, 0x10000); err == nil {
		t.Error("expected error for value above 16 bits")
	}
}

func TestModbusPinsErrors(t *testing.T) {
	fm := newFakeModbus()
	fm.err = errors.New("exception 2")
	p := newModbusPins(fm, nil, ModbusConfig{})

	if _, err := p.DigitalRead(0); !errors.Is(err, fm.err) {
		t.Errorf("DigitalRead: expected wrapped error, got %v", err)
	}
	if err := p.DigitalWrite(0, true); !errors.Is(err, fm.err) {
		t.Errorf("DigitalWrite: expected wrapped error, got %v", err)
	}
	if _, err := p.AnalogRead(0); !errors.Is(err, fm.err) {
		t.Errorf("AnalogRead: expected wrapped error, got %v", err)
	}
	if err := p.AnalogWrite(0, 1); !errors.Is(err, fm.err) {
		t.Errorf("AnalogWrite: expected wrapped error, got %v", err)
	}
}

func TestModbusPinsClose(t *testing.T) {
	c := &fakeCloser{}
	p := newModbusPins(newFakeModbus(), c, ModbusConfig{})

	if err := p.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.closed {
		t.Error("expected underlying connection closed")
	}
}

func TestNewModbusPinsRequiresEndpoint(t *testing.T) {
	if _, err := NewModbusPins(ModbusConfig{}); err == nil {
		t.Error("expected error for empty endpoint")
	}
}

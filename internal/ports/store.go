package ports

// Store holds the state of all 70 channels in 43 bytes.
//
// Store is not safe for concurrent use. Exactly one goroutine may own it;
// other goroutines should work on a copy obtained with Bytes.
//
// Every method panics with *IndexError when given an invalid channel; use
// Validate at trust boundaries.
type Store struct {
	bits BitField
}

// New returns a zeroed store, as after power-on.
func New() *Store {
	return &Store{}
}

// Reset zeroes every field of every channel (power-on reset). It is the only
// way configured flags are cleared.
func (s *Store) Reset() {
	s.bits.Clear()
}

func (s *Store) get(class Class, index int, f Field) bool {
	mustValidate(class, index)
	return s.bits.Get(Address(class, index, f))
}

func (s *Store) set(class Class, index int, f Field, v bool) {
	mustValidate(class, index)
	s.bits.Set(Address(class, index, f), v)
}

// SetTouched sets the dirty flag read by the poll cycle.
func (s *Store) SetTouched(class Class, index int, v bool) {
	s.set(class, index, FieldTouched, v)
}

// IsTouched reports the dirty flag.
func (s *Store) IsTouched(class Class, index int) bool {
	return s.get(class, index, FieldTouched)
}

// SetConfigured sets the sticky "used since power-on" flag. Hardware wrappers
// set it on first access; nothing but Reset should clear it.
func (s *Store) SetConfigured(class Class, index int, v bool) {
	s.set(class, index, FieldConfigured, v)
}

// IsConfigured reports whether the channel has been used since the last reset.
func (s *Store) IsConfigured(class Class, index int) bool {
	return s.get(class, index, FieldConfigured)
}

// SetAccessed flips the activity indicator. Every call toggles; it is not
// idempotent.
func (s *Store) SetAccessed(class Class, index int) {
	s.set(class, index, FieldAccessed, !s.get(class, index, FieldAccessed))
}

// IsAccessed reads the activity indicator without changing it.
func (s *Store) IsAccessed(class Class, index int) bool {
	return s.get(class, index, FieldAccessed)
}

// SetValue records a channel value.
//
// Digital channels store 1 for any nonzero raw value. Analog channels store
// floor(raw/32) truncated to 5 bits; higher bits of the quantum are dropped.
// A negative raw value is not clamped: -1 floors to -1 and stores 31.
func (s *Store) SetValue(class Class, index int, raw int) {
	mustValidate(class, index)
	if class != Analog {
		s.bits.Set(Address(class, index, FieldValue), raw != 0)
		return
	}
	q := (raw >> analogQuantShift) & analogValueMask
	for i := 0; i < analogValueBits; i++ {
		bit := q>>(analogValueBits-1-i)&1 == 1
		s.bits.Set(Address(class, index, FieldValue+Field(i)), bit)
	}
}

// Value returns the recorded value: 0 or 1 for digital channels, 31 times the
// stored quantum for analog channels.
func (s *Store) Value(class Class, index int) int {
	mustValidate(class, index)
	if class != Analog {
		if s.bits.Get(Address(class, index, FieldValue)) {
			return 1
		}
		return 0
	}
	q := 0
	for i := 0; i < analogValueBits; i++ {
		q <<= 1
		if s.bits.Get(Address(class, index, FieldValue+Field(i))) {
			q |= 1
		}
	}
	return analogDecodeScale * q
}

// View returns a copy of all fields of one channel.
func (s *Store) View(class Class, index int) View {
	return View{
		Configured: s.IsConfigured(class, index),
		Touched:    s.IsTouched(class, index),
		Accessed:   s.IsAccessed(class, index),
		Value:      s.Value(class, index),
	}
}

// Bytes returns a copy of the raw store image.
func (s *Store) Bytes() [StoreSize]byte {
	return s.bits
}

// Load replaces the store contents with a raw image obtained from Bytes.
func (s *Store) Load(image [StoreSize]byte) {
	s.bits = image
}

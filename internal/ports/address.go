package ports

// Slot layout: digital channels first, then analog channels.
//
//	digital slot (4 bits): touched | accessed | configured | value
//	analog slot  (8 bits): touched | accessed | configured | value[4..0]
const (
	DigitalSlotBits = 4
	AnalogSlotBits  = 8

	// AnalogBase is the first bit of the analog region (54 * 4).
	AnalogBase = DigitalCount * DigitalSlotBits
	// StoreBits is the total bit count (216 + 16 * 8).
	StoreBits = AnalogBase + AnalogCount*AnalogSlotBits
	// StoreSize is the store size in bytes.
	StoreSize = StoreBits / 8
)

// Field is a local bit offset inside a channel slot.
type Field uint8

const (
	FieldTouched    Field = 0
	FieldAccessed   Field = 1
	FieldConfigured Field = 2
	FieldValue      Field = 3
)

// Analog value quantization. The stored quantum is floor(raw/32) in 5 bits,
// MSB at FieldValue. Decoding multiplies by 31, not 32.
const (
	analogValueBits   = 5
	analogValueMask   = 1<<analogValueBits - 1
	analogQuantShift  = 5
	analogDecodeScale = 31
)

// MaxAnalogValue is the largest value an analog channel reports (31 * 31).
const MaxAnalogValue = analogDecodeScale * analogValueMask

// Address maps a channel and local slot offset to an absolute bit position.
// It does no bounds checking.
func Address(class Class, index int, local Field) int {
	if class == Analog {
		return AnalogBase + index*AnalogSlotBits + int(local)
	}
	return index*DigitalSlotBits + int(local)
}

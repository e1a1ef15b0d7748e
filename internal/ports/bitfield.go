package ports

// BitField is fixed-size packed-bit storage. Bit n lives in byte n/8 at bit
// n%8 (LSB first).
type BitField [StoreSize]byte

// Get reports bit pos. pos must be below StoreBits.
func (b *BitField) Get(pos int) bool {
	return b[pos>>3]&(1<<(pos&7)) != 0
}

// Set sets or clears bit pos. pos must be below StoreBits.
func (b *BitField) Set(pos int, v bool) {
	mask := byte(1) << (pos & 7)
	if v {
		b[pos>>3] |= mask
	} else {
		b[pos>>3] &^= mask
	}
}

// Clear zeroes every bit.
func (b *BitField) Clear() {
	*b = BitField{}
}

package hwio

func SetBits32(v *uint32, mask uint32) {
	*v |= mask
}

func ClearBits32(v *uint32, mask uint32) {
	*v &^= mask
}

// Field32 extracts the field selected by mask, shifted down by pos.
func Field32(v uint32, mask uint32, pos uint) uint32 {
	return (v & mask) >> pos
}

// SetField32 replaces the field selected by mask with val << pos. Bits of val
// that don't fit in the field are dropped.
func SetField32(v *uint32, mask uint32, pos uint, val uint32) {
	*v = (*v &^ mask) | ((val << pos) & mask)
}

// Modify32 performs a read-modify-write of the register at addr.
func Modify32(b BankIO32, addr uint32, fn func(v uint32) uint32) {
	b.Write32(addr, fn(b.Read32(addr, false)))
}

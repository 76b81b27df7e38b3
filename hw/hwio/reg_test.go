package hwio

import "testing"

func TestReg32(t *testing.T) {
	r := Reg32{Value: 0x11, RoMask: 0xFFFFFFF0}

	if got := r.Read32(0, false); got != 0x11 {
		t.Errorf("invalid read: %x", got)
	}
	if got := r.Read32(9999, false); got != 0x11 {
		t.Errorf("invalid read with offset: %x", got)
	}

	r.Write32(0, 0x77)
	if r.Value != 0x17 {
		t.Errorf("writemask not respected: %x", r.Value)
	}
	r.Write32(9999, 0xFFFFFF88)
	if r.Value != 0x18 {
		t.Errorf("writemask with offset not respected: %x", r.Value)
	}
}

func TestReg32Flags(t *testing.T) {
	ro := Reg32{Name: "TYPE", Value: 0x800, Flags: ReadOnlyFlag}
	ro.Write32(0, 0)
	if ro.Value != 0x800 {
		t.Errorf("readonly reg was written: %x", ro.Value)
	}

	wo := Reg32{Name: "KEY", Value: 0x5FA, Flags: WriteOnlyFlag}
	if got := wo.Read32(0, false); got != 0 {
		t.Errorf("writeonly reg read = %x, want 0", got)
	}
	if got := wo.Read32(0, true); got != 0x5FA {
		t.Errorf("writeonly reg peek = %x, want 5fa", got)
	}
}

func TestReg32Callbacks(t *testing.T) {
	var writes [][2]uint32
	r := Reg32{
		ReadCb:  func(val uint32) uint32 { return val | 0x80000000 },
		PeekCb:  func(val uint32) uint32 { return 0x42 },
		WriteCb: func(old, val uint32) { writes = append(writes, [2]uint32{old, val}) },
	}

	r.Write32(0, 1)
	r.Write32(0, 2)
	if len(writes) != 2 || writes[0] != [2]uint32{0, 1} || writes[1] != [2]uint32{1, 2} {
		t.Errorf("write callbacks = %v", writes)
	}
	if got := r.Read32(0, false); got != 0x80000002 {
		t.Errorf("read callback = %x", got)
	}
	if got := r.Read32(0, true); got != 0x42 {
		t.Errorf("peek callback = %x", got)
	}
}

func TestBitops(t *testing.T) {
	var v uint32
	SetBits32(&v, 0x10001)
	if v != 0x10001 {
		t.Fatalf("SetBits32: %x", v)
	}
	ClearBits32(&v, 0x10000)
	if v != 1 {
		t.Fatalf("ClearBits32: %x", v)
	}

	// Bits 1-5 are replaced, bit 0 and bit 28 are kept.
	v = 0x1000002B
	SetField32(&v, 0x1F<<1, 1, 4)
	if v != 0x10000009 {
		t.Errorf("SetField32 = %08x, want 10000009", v)
	}
	if got := Field32(v, 0x1F<<1, 1); got != 4 {
		t.Errorf("Field32 = %d, want 4", got)
	}

	// out of range bits are dropped.
	SetField32(&v, 0x7<<24, 24, 0xF)
	if v != 0x17000009 {
		t.Errorf("SetField32 overflow = %08x, want 17000009", v)
	}
}

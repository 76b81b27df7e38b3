package hwio_test

import (
	"testing"

	"cm3mpu/hw/hwio"
)

// Unmapped
type openbus struct{}

func (ob *openbus) Read32(addr uint32, peek bool) uint32 {
	if peek {
		return 0xD4D4D4D4
	}
	return 0xD3D3D3D3
}
func (ob *openbus) Write32(addr uint32, val uint32) {}

type testTable struct {
	t   testing.TB
	Bus *hwio.Table

	// $E000ED90
	Type hwio.Reg32 `hwio:"bank=0,offset=0x0,reset=0x800,readonly"`
	// $E000ED94
	Ctrl hwio.Reg32 `hwio:"bank=0,offset=0x4,rwmask=0x7,wcb"`
	// $E000ED98
	Sel hwio.Reg32 `hwio:"bank=0,offset=0x8,rwmask=0xFF,rcb,pcb=PeekSel"`
	// $E000ED9C-$E000EDA3
	Banked hwio.Device `hwio:"bank=0,offset=0xC,size=0x8,rcb,wcb"`
	// $E000EF00
	Key hwio.Reg32 `hwio:"bank=1,offset=0x0,writeonly"`

	ctrlWrites int
	banked     [4][2]uint32
}

func newTestTable(tb testing.TB) *testTable {
	tbl := &testTable{t: tb}
	hwio.MustInitRegs(tbl)

	tbl.Bus = hwio.NewTable("ppb")
	tbl.Bus.MapBank(0xE000ED90, tbl, 0)
	tbl.Bus.MapBank(0xE000EF00, tbl, 1)
	return tbl
}

func (tbl *testTable) WriteCTRL(old, val uint32) { tbl.ctrlWrites++ }
func (tbl *testTable) ReadSEL(val uint32) uint32 { return val & 0x3 }
func (tbl *testTable) PeekSel(val uint32) uint32 { return 0x12 }

func (tbl *testTable) ReadBANKED(addr uint32) uint32 {
	return tbl.banked[tbl.Sel.Value&3][(addr-0xE000ED9C)/4]
}

func (tbl *testTable) WriteBANKED(addr uint32, val uint32) {
	tbl.banked[tbl.Sel.Value&3][(addr-0xE000ED9C)/4] = val
}

func (tbl *testTable) wantRead32(addr uint32, want uint32) {
	tbl.t.Helper()

	if got := tbl.Bus.Read32(addr, false); got != want {
		tbl.t.Errorf("Read32(%08X) = %08X, want %08X", addr, got, want)
	}
}

func (tbl *testTable) wantPeek32(addr uint32, want uint32) {
	tbl.t.Helper()

	if got := tbl.Bus.Peek32(addr); got != want {
		tbl.t.Errorf("Peek32(%08X) = %08X, want %08X", addr, got, want)
	}
}

func TestTableRegs(t *testing.T) {
	tbl := newTestTable(t)

	// Type
	tbl.wantRead32(0xE000ED90, 0x800)
	tbl.Bus.Write32(0xE000ED90, 0)
	tbl.wantRead32(0xE000ED90, 0x800)

	// Ctrl
	tbl.Bus.Write32(0xE000ED94, 0xFFFFFFFF)
	tbl.wantRead32(0xE000ED94, 0x7)
	if tbl.ctrlWrites != 1 {
		t.Errorf("ctrl write callback called %d times, want 1", tbl.ctrlWrites)
	}

	// Sel
	tbl.Bus.Write32(0xE000ED98, 0x1FE)
	tbl.wantRead32(0xE000ED98, 0x2)
	tbl.wantPeek32(0xE000ED98, 0x12)

	// Key
	tbl.Bus.Write32(0xE000EF00, 0x5FA)
	tbl.wantRead32(0xE000EF00, 0)
	tbl.wantPeek32(0xE000EF00, 0x5FA)
}

func TestTableDevice(t *testing.T) {
	tbl := newTestTable(t)

	for sel := range uint32(4) {
		tbl.Bus.Write32(0xE000ED98, sel)
		tbl.Bus.Write32(0xE000ED9C, 0x1000*sel)
		tbl.Bus.Write32(0xE000EDA0, 0x2000*sel+1)
	}
	for sel := range uint32(4) {
		tbl.Bus.Write32(0xE000ED98, sel)
		tbl.wantRead32(0xE000ED9C, 0x1000*sel)
		tbl.wantRead32(0xE000EDA0, 0x2000*sel+1)
	}
}

func TestTableUnmapped(t *testing.T) {
	tbl := newTestTable(t)

	tbl.wantRead32(0xE000ED00, 0)
	tbl.Bus.Unmapped = &openbus{}
	tbl.wantRead32(0xE000ED00, 0xD3D3D3D3)
	tbl.wantPeek32(0xE000ED00, 0xD4D4D4D4)
}

func TestTableOverlap(t *testing.T) {
	tbl := newTestTable(t)

	defer func() {
		if recover() == nil {
			t.Errorf("overlapping mapping should panic")
		}
	}()
	tbl.Bus.MapReg32(0xE000EDA0, &hwio.Reg32{Name: "dup"})
}

func TestInitRegsErrors(t *testing.T) {
	type missingCb struct {
		R hwio.Reg32 `hwio:"offset=0,rcb"`
	}
	if err := hwio.InitRegs(&missingCb{}); err == nil {
		t.Errorf("missing callback should fail")
	}

	type badOpt struct {
		R hwio.Reg32 `hwio:"offset=0,bogus"`
	}
	if err := hwio.InitRegs(&badOpt{}); err == nil {
		t.Errorf("unknown option should fail")
	}

	type noSize struct {
		D hwio.Device `hwio:"offset=0"`
	}
	if err := hwio.InitRegs(&noSize{}); err == nil {
		t.Errorf("device without size should fail")
	}

	if err := hwio.InitRegs(testTable{}); err == nil {
		t.Errorf("non-pointer bank should fail")
	}
}

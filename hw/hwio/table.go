package hwio

import (
	"fmt"
	"sort"

	"cm3mpu/emu/log"
)

// log unmapped accesses (useful when bringing up a new register bank, but
// verbose when probing address ranges)
const logUnmapped = true

type BankIO32 interface {
	// Read32 reads a word from the given address. If peek is true, the read
	// shouldn't have any side effects (debugging/tracing).
	Read32(addr uint32, peek bool) uint32
	Write32(addr uint32, val uint32)
}

type span struct {
	begin, end uint32 // inclusive
	io         BankIO32
}

// Table is a 32-bit address bus on which registers and devices are mapped.
type Table struct {
	Name string

	// Unmapped, if set, serves accesses to addresses where nothing is mapped.
	Unmapped BankIO32

	spans []span
}

func NewTable(name string) *Table {
	t := new(Table)
	t.Name = name
	t.Reset()
	return t
}

func (t *Table) Reset() {
	t.spans = nil
}

// MapBank maps a register bank, that is a structure containing Reg32 and
// Device fields. For this function to work, registers must have a struct tag
// "hwio", see InitRegs for the list of options. Only the registers of the
// given bank number are mapped, at addr plus their offset.
func (t *Table) MapBank(addr uint32, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		switch r := reg.regPtr.(type) {
		case *Reg32:
			t.MapReg32(addr+reg.offset, r)
		case *Device:
			t.MapDevice(addr+reg.offset, r)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) MapReg32(addr uint32, io *Reg32) {
	t.mapBus32(addr, 4, io)
}

func (t *Table) MapDevice(addr uint32, io *Device) {
	t.mapBus32(addr, uint32(io.Size), io)
}

func (t *Table) mapBus32(addr, size uint32, io BankIO32) {
	if size == 0 {
		panic(fmt.Errorf("bus %s: zero-sized mapping at %08x", t.Name, addr))
	}
	end := addr + size - 1
	if end < addr {
		panic(fmt.Errorf("bus %s: mapping at %08x wraps around", t.Name, addr))
	}

	i := sort.Search(len(t.spans), func(i int) bool { return t.spans[i].end >= addr })
	if i < len(t.spans) && t.spans[i].begin <= end {
		panic(fmt.Errorf("bus %s: mapping [%08x-%08x] overlaps [%08x-%08x]",
			t.Name, addr, end, t.spans[i].begin, t.spans[i].end))
	}

	log.ModHwIo.DebugZ("map").
		String("bus", t.Name).
		Hex32("addr", addr).
		Hex32("end", end).
		End()

	t.spans = append(t.spans, span{})
	copy(t.spans[i+1:], t.spans[i:])
	t.spans[i] = span{begin: addr, end: end, io: io}
}

func (t *Table) search(addr uint32) BankIO32 {
	i := sort.Search(len(t.spans), func(i int) bool { return t.spans[i].end >= addr })
	if i < len(t.spans) && t.spans[i].begin <= addr {
		return t.spans[i].io
	}
	return nil
}

// Read32 searches in the table for the device mapped at the given address and
// forward the read to it. Accesses to unmapped addresses are logged as errors
// if peek is false.
func (t *Table) Read32(addr uint32, peek bool) uint32 {
	io := t.search(addr)
	if io == nil {
		if t.Unmapped != nil {
			return t.Unmapped.Read32(addr, peek)
		}
		if logUnmapped && !peek {
			log.ModHwIo.ErrorZ("unmapped Read32").
				String("name", t.Name).
				Hex32("addr", addr).
				End()
		}
		return 0
	}
	return io.Read32(addr, peek)
}

// Peek32 is a convenience function.
func (t *Table) Peek32(addr uint32) uint32 {
	return t.Read32(addr, true)
}

func (t *Table) Write32(addr uint32, val uint32) {
	io := t.search(addr)
	if io == nil {
		if t.Unmapped != nil {
			t.Unmapped.Write32(addr, val)
			return
		}
		if logUnmapped {
			log.ModHwIo.ErrorZ("unmapped Write32").
				String("name", t.Name).
				Hex32("addr", addr).
				Hex32("val", val).
				End()
		}
		return
	}
	io.Write32(addr, val)
}

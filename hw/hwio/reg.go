package hwio

import (
	"fmt"

	"cm3mpu/emu/log"
)

type RWFlags uint8

const (
	ReadWriteFlag RWFlags = 0
	ReadOnlyFlag  RWFlags = (1 << iota)
	WriteOnlyFlag
)

// Reg32 is a 32-bit memory-mapped register. Bits set in RoMask are not
// affected by writes.
type Reg32 struct {
	Name   string
	Value  uint32
	RoMask uint32

	Flags   RWFlags
	ReadCb  func(val uint32) uint32
	PeekCb  func(val uint32) uint32
	WriteCb func(old uint32, val uint32)
}

func (reg Reg32) String() string {
	s := fmt.Sprintf("%s{%08x", reg.Name, reg.Value)
	if reg.ReadCb != nil {
		s += ",r!"
	}
	if reg.PeekCb != nil {
		s += ",p!"
	}
	if reg.WriteCb != nil {
		s += ",w!"
	}
	return s + "}"
}

func (reg *Reg32) write(val uint32) {
	old := reg.Value
	reg.Value = (reg.Value & reg.RoMask) | (val &^ reg.RoMask)
	if reg.WriteCb != nil {
		reg.WriteCb(old, reg.Value)
	}
}

func (reg *Reg32) Write32(addr uint32, val uint32) {
	if reg.Flags&ReadOnlyFlag != 0 {
		log.ModHwIo.ErrorZ("invalid Write32 to readonly reg").
			String("name", reg.Name).
			Hex32("addr", addr).
			Hex32("val", val).
			End()
		return
	}
	reg.write(val)
}

func (reg *Reg32) Read32(addr uint32, peek bool) uint32 {
	if peek {
		if reg.PeekCb != nil {
			return reg.PeekCb(reg.Value)
		}
		return reg.Value
	}
	if reg.Flags&WriteOnlyFlag != 0 {
		log.ModHwIo.ErrorZ("invalid Read32 from writeonly reg").
			String("name", reg.Name).
			Hex32("addr", addr).
			End()
		return 0
	}
	if reg.ReadCb != nil {
		return reg.ReadCb(reg.Value)
	}
	return reg.Value
}

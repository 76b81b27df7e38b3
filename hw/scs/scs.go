// Package scs simulates the part of the ARMv7-M System Control Space used by
// memory protection: the MPU register block and the fault status and address
// registers of the System Control Block.
package scs

import (
	"cm3mpu/emu/log"
	"cm3mpu/hw/hwdefs"
	"cm3mpu/hw/hwio"
)

// SCS is a simulated System Control Space. Its registers are reachable
// through Bus, at their architectural addresses.
type SCS struct {
	Bus *hwio.Table

	// SCB bank, mapped at SHCSR.
	SHCSR hwio.Reg32 `hwio:"bank=0,offset=0x0,rwmask=0x7FFFF"`
	CFSR  hwio.Reg32 `hwio:"bank=0,offset=0x4,wcb"`
	MMFAR hwio.Reg32 `hwio:"bank=0,offset=0x10"`

	// MPU bank, mapped at MPUBase.
	Type hwio.Reg32  `hwio:"bank=1,offset=0x0,reset=0x800,readonly"`
	Ctrl hwio.Reg32  `hwio:"bank=1,offset=0x4,rwmask=0x7"`
	RNR  hwio.Reg32  `hwio:"bank=1,offset=0x8,rwmask=0xFF"`
	RBAR hwio.Device `hwio:"bank=1,offset=0xC,size=0x4,rcb,wcb"`
	RASR hwio.Device `hwio:"bank=1,offset=0x10,size=0x4,rcb,wcb"`

	rbar [hwdefs.NumRegions]uint32
	rasr [hwdefs.NumRegions]uint32

	// MemManage is called when an access is denied and MemManage faults are
	// enabled in SHCSR. HardFault is called instead when they're not.
	MemManage func()
	HardFault func()
}

// New returns a simulated System Control Space in its reset state.
func New() *SCS {
	s := &SCS{}
	hwio.MustInitRegs(s)

	s.Bus = hwio.NewTable("ppb")
	s.Bus.MapBank(hwdefs.SCBBase, s, 0)
	s.Bus.MapBank(hwdefs.MPUBase, s, 1)
	return s
}

// WithType overrides the MPU_TYPE value, to simulate other MPU variants.
func (s *SCS) WithType(typ uint32) *SCS {
	s.Type.Value = typ
	return s
}

// Reset puts all registers back in their reset state.
func (s *SCS) Reset() {
	typ := s.Type.Value
	hwio.MustInitRegs(s)
	s.Type.Value = typ
	s.rbar = [hwdefs.NumRegions]uint32{}
	s.rasr = [hwdefs.NumRegions]uint32{}
}

// CFSR bits are write-one-to-clear.
func (s *SCS) WriteCFSR(old, val uint32) {
	s.CFSR.Value = old &^ val
}

// selected returns the region selected by MPU_RNR, or false if MPU_RNR is out
// of range.
func (s *SCS) selected() (uint32, bool) {
	rnr := s.RNR.Value & hwdefs.RNRRegionMask
	if rnr >= hwdefs.NumRegions {
		log.ModSCS.WarnZ("access to unimplemented region").
			Hex32("rnr", rnr).
			End()
		return 0, false
	}
	return rnr, true
}

// MPU_RBAR.REGION always reads as the selected region number.
func (s *SCS) ReadRBAR(addr uint32) uint32 {
	rnr, ok := s.selected()
	if !ok {
		return 0
	}
	return s.rbar[rnr] | rnr&hwdefs.RBARRegionMask
}

// Writing MPU_RBAR with VALID set also selects the region in its REGION field.
func (s *SCS) WriteRBAR(addr uint32, val uint32) {
	if val&hwdefs.RBARValid != 0 {
		s.RNR.Value = val & hwdefs.RBARRegionMask
	}
	rnr, ok := s.selected()
	if !ok {
		return
	}
	s.rbar[rnr] = val & hwdefs.RBARAddrMask
}

func (s *SCS) ReadRASR(addr uint32) uint32 {
	rnr, ok := s.selected()
	if !ok {
		return 0
	}
	return s.rasr[rnr]
}

func (s *SCS) WriteRASR(addr uint32, val uint32) {
	rnr, ok := s.selected()
	if !ok {
		return
	}
	s.rasr[rnr] = val & hwdefs.RASRWritable
	log.ModSCS.DebugZ("rasr").
		Hex32("region", rnr).
		Hex32("val", s.rasr[rnr]).
		End()
}

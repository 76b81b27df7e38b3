package scs

import (
	"cm3mpu/emu/log"
	"cm3mpu/hw/hwdefs"
	"cm3mpu/hw/hwio"
	"cm3mpu/hw/snapshot"
)

//go:generate go tool stringer -type=AccessKind -linecomment

type AccessKind uint8

const (
	Read  AccessKind = iota // read
	Write                   // write
	Exec                    // exec
)

// regionAt returns the highest-numbered enabled region containing addr, with
// its subregion enabled. Higher region numbers take priority on overlaps.
func (s *SCS) regionAt(addr uint32) (rasr uint32, found bool) {
	for i := hwdefs.NumRegions - 1; i >= 0; i-- {
		v := s.rasr[i]
		if v&hwdefs.RASREnable == 0 {
			continue
		}
		enc := hwio.Field32(v, hwdefs.RASRSizeMask, hwdefs.RASRSizePos)
		if enc < 4 {
			// reserved sizes, the region behaves as disabled.
			continue
		}
		size := uint64(1) << (enc + 1)
		base := uint64(s.rbar[i]) &^ (size - 1)
		if uint64(addr) < base || uint64(addr) >= base+size {
			continue
		}
		if size >= 256 {
			sub := (uint64(addr) - base) / (size / hwdefs.NumSubregions)
			srd := hwio.Field32(v, hwdefs.RASRSRDMask, hwdefs.RASRSRDPos)
			if srd&(1<<sub) != 0 {
				continue
			}
		}
		return v, true
	}
	return 0, false
}

func permits(rasr uint32, kind AccessKind, privileged bool) bool {
	ap := uint8(hwio.Field32(rasr, hwdefs.RASRAPMask, hwdefs.RASRAPPos))

	var read, write bool
	switch snapshot.AccessFromAP(ap) {
	case snapshot.AccessReadWrite:
		read, write = true, true
	case snapshot.AccessReadOnly:
		read = true
	case snapshot.AccessPrivRW:
		read, write = privileged, privileged
	case snapshot.AccessPrivRWUserRO:
		read, write = true, privileged
	case snapshot.AccessPrivRO:
		read = privileged
	}

	switch kind {
	case Read:
		return read
	case Write:
		return write
	case Exec:
		return read && rasr&hwdefs.RASRXN == 0
	}
	return false
}

// Check simulates a memory access through the MPU. It returns true if the
// access is permitted. A denied access updates the fault status and address
// registers and raises a MemManage fault, or a HardFault if MemManage faults
// are disabled.
func (s *SCS) Check(addr uint32, kind AccessKind, privileged bool) bool {
	ctrl := s.Ctrl.Value
	if ctrl&hwdefs.CtrlEnable == 0 {
		return true
	}

	if rasr, ok := s.regionAt(addr); ok {
		if permits(rasr, kind, privileged) {
			return true
		}
	} else if privileged && ctrl&hwdefs.CtrlPrivDefEna != 0 {
		return true
	}

	s.fault(addr, kind, privileged)
	return false
}

// CheckHandler simulates an access made by a HardFault or NMI handler. Such
// accesses are privileged, and bypass the MPU unless MPU_CTRL.HFNMIENA is set.
// A denied handler access locks up real hardware; here it takes the same
// fault path as Check.
func (s *SCS) CheckHandler(addr uint32, kind AccessKind) bool {
	if s.Ctrl.Value&hwdefs.CtrlHFNMIEna == 0 {
		return true
	}
	return s.Check(addr, kind, true)
}

func (s *SCS) fault(addr uint32, kind AccessKind, privileged bool) {
	log.ModSCS.InfoZ("access violation").
		Hex32("addr", addr).
		Stringer("kind", kind).
		Bool("priv", privileged).
		End()

	if kind == Exec {
		s.CFSR.Value |= hwdefs.CFSRIAccViol
	} else {
		s.CFSR.Value |= hwdefs.CFSRDAccViol | hwdefs.CFSRMMARValid
		s.MMFAR.Value = addr
	}

	if s.SHCSR.Value&hwdefs.SHCSRMemFaultEna != 0 {
		if s.MemManage != nil {
			s.MemManage()
		}
		return
	}

	log.ModSCS.WarnZ("MemManage disabled, escalating to HardFault").End()
	if s.HardFault != nil {
		s.HardFault()
	}
}

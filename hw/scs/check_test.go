package scs

import (
	"testing"

	"cm3mpu/hw/hwdefs"
)

func rasr(enc, ap uint32, xn bool, srd uint32) uint32 {
	v := hwdefs.RASREnable | enc<<hwdefs.RASRSizePos | ap<<hwdefs.RASRAPPos | srd<<hwdefs.RASRSRDPos
	if xn {
		v |= hwdefs.RASRXN
	}
	return v
}

func newCheckSCS() *SCS {
	s := New()
	s.Ctrl.Value = hwdefs.CtrlEnable | hwdefs.CtrlPrivDefEna
	s.SHCSR.Value = hwdefs.SHCSRMemFaultEna

	// 0: 32KiB flash at 0, read-only, executable.
	s.rbar[0] = 0x00000000
	s.rasr[0] = rasr(14, hwdefs.APReadOnly, false, 0)
	// 1: 16KiB SRAM, read-write, XN, last subregion disabled.
	s.rbar[1] = 0x20000000
	s.rasr[1] = rasr(13, hwdefs.APFull, true, 0x80)
	// 2: 2KiB stack guard inside SRAM, no access.
	s.rbar[2] = 0x20001000
	s.rasr[2] = rasr(10, hwdefs.APNoAccess, true, 0)
	// 3: 1KiB privileged only.
	s.rbar[3] = 0x20003000
	s.rasr[3] = rasr(9, hwdefs.APPrivRW, true, 0)
	// 4: 256B privileged RW, user RO.
	s.rbar[4] = 0x20003400
	s.rasr[4] = rasr(7, hwdefs.APPrivRWUsRO, true, 0)
	return s
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		addr uint32
		kind AccessKind
		priv bool
		want bool
	}{
		{"flash read", 0x100, Read, false, true},
		{"flash exec", 0x100, Exec, false, true},
		{"flash write", 0x100, Write, true, false},
		{"sram write", 0x20000010, Write, false, true},
		{"sram exec", 0x20000010, Exec, true, false},
		{"guard overrides sram", 0x20001004, Read, true, false},
		{"after guard", 0x20001800, Write, false, true},
		{"disabled subregion, privileged", 0x20003800, Write, true, true},
		{"disabled subregion, user", 0x20003800, Write, false, false},
		{"priv only, privileged", 0x20003000, Write, true, true},
		{"priv only, user", 0x20003000, Read, false, false},
		{"user ro, read", 0x20003400, Read, false, true},
		{"user ro, write", 0x20003400, Write, false, false},
		{"user ro, priv write", 0x20003400, Write, true, true},
		{"no region, privileged", 0x40000000, Write, true, true},
		{"no region, user", 0x40000000, Read, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newCheckSCS()
			faults := 0
			s.MemManage = func() { faults++ }

			if got := s.Check(tt.addr, tt.kind, tt.priv); got != tt.want {
				t.Errorf("Check(%08x, %v, %t) = %t, want %t", tt.addr, tt.kind, tt.priv, got, tt.want)
			}
			if wantFaults := map[bool]int{true: 0, false: 1}[tt.want]; faults != wantFaults {
				t.Errorf("MemManage called %d times, want %d", faults, wantFaults)
			}
		})
	}
}

func TestCheckFaultRegisters(t *testing.T) {
	s := newCheckSCS()

	s.Check(0x20001008, Write, false)
	if s.MMFAR.Value != 0x20001008 {
		t.Errorf("MMFAR = %08x", s.MMFAR.Value)
	}
	if want := uint32(hwdefs.CFSRDAccViol | hwdefs.CFSRMMARValid); s.CFSR.Value != want {
		t.Errorf("CFSR = %08x, want %08x", s.CFSR.Value, want)
	}

	s.CFSR.Value = 0
	s.Check(0x20000000, Exec, true)
	if s.CFSR.Value != hwdefs.CFSRIAccViol {
		t.Errorf("CFSR = %08x, want IACCVIOL", s.CFSR.Value)
	}
	if s.MMFAR.Value != 0x20001008 {
		t.Errorf("MMFAR updated on instruction fault: %08x", s.MMFAR.Value)
	}
}

func TestCheckDisabledUnit(t *testing.T) {
	s := newCheckSCS()
	s.Ctrl.Value = 0
	if !s.Check(0x20001000, Write, false) {
		t.Errorf("access denied with MPU disabled")
	}
}

func TestCheckNoBackground(t *testing.T) {
	s := newCheckSCS()
	s.Ctrl.Value = hwdefs.CtrlEnable
	if s.Check(0x40000000, Read, true) {
		t.Errorf("privileged access outside regions permitted without background region")
	}
}

func TestCheckHandler(t *testing.T) {
	s := newCheckSCS()

	var faults int
	s.MemManage = func() { faults++ }

	// HFNMIENA clear: the guard region is ignored.
	if !s.CheckHandler(0x20001004, Write) {
		t.Errorf("handler access denied with HFNMIENA clear")
	}
	if faults != 0 || s.CFSR.Value != 0 {
		t.Errorf("faults=%d CFSR=%08x, want no fault", faults, s.CFSR.Value)
	}

	s.Ctrl.Value |= hwdefs.CtrlHFNMIEna
	if s.CheckHandler(0x20001004, Write) {
		t.Errorf("handler access permitted with HFNMIENA set")
	}
	if faults != 1 || s.MMFAR.Value != 0x20001004 {
		t.Errorf("faults=%d MMFAR=%08x, want 1 and 20001004", faults, s.MMFAR.Value)
	}
	if !s.CheckHandler(0x20000010, Write) {
		t.Errorf("handler access to read-write region denied")
	}
}

func TestCheckEscalation(t *testing.T) {
	s := newCheckSCS()
	s.SHCSR.Value = 0

	var mm, hf int
	s.MemManage = func() { mm++ }
	s.HardFault = func() { hf++ }
	s.Check(0x20001000, Read, false)
	if mm != 0 || hf != 1 {
		t.Errorf("MemManage=%d HardFault=%d, want 0 and 1", mm, hf)
	}
}

// Package mpu drives the ARMv7-M Memory Protection Unit.
//
// The unit has 8 regions, selected through MPU_RNR and configured through
// MPU_RBAR and MPU_RASR. Every operation that touches a region first writes
// MPU_RNR, then reads and modifies the region registers: that sequence must
// not be interleaved with another region operation. On bare metal, pass an
// interrupt-masking sync.Locker with WithCriticalSection if region
// operations can be invoked from interrupt handlers; on a host, pass a
// sync.Mutex if several goroutines share a Manager.
package mpu

import (
	"sync"

	"cm3mpu/emu/log"
	"cm3mpu/hw/hwdefs"
	"cm3mpu/hw/hwio"
)

// Manager configures the MPU through a register bus. It has no state of its
// own: the registers are the state.
type Manager struct {
	bus hwio.BankIO32
	cs  sync.Locker
}

type Option func(*Manager)

// WithCriticalSection sets the lock held around every register sequence.
func WithCriticalSection(l sync.Locker) Option {
	return func(m *Manager) { m.cs = l }
}

type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

// New returns a Manager driving the MPU reachable through bus, at the
// architectural System Control Space addresses.
func New(bus hwio.BankIO32, opts ...Option) *Manager {
	m := &Manager{bus: bus, cs: nopLocker{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// dummyRASR is the configuration every region gets at init: disabled,
// execute-never, full access, shareable and cacheable, maximum size.
const dummyRASR = hwdefs.RASRXN |
	hwdefs.APFull<<hwdefs.RASRAPPos |
	hwdefs.RASRS | hwdefs.RASRC |
	hwdefs.SizeEncodingMax<<hwdefs.RASRSizePos

// Init checks the MPU type, resets all regions to a disabled dummy
// configuration, enables MemManage fault reporting and finally enables the
// unit with the background region on and protection off in fault handlers.
//
// If the MPU type doesn't match, Init returns an *InitError and doesn't touch
// any register.
func (m *Manager) Init() error {
	m.cs.Lock()
	defer m.cs.Unlock()

	typ := m.bus.Read32(hwdefs.MPUType, false)
	if typ != hwdefs.MPUTypeExpected {
		log.ModMPU.ErrorZ("unexpected MPU type").
			Hex32("type", typ).
			Hex32("want", hwdefs.MPUTypeExpected).
			End()
		return &InitError{Type: typ}
	}

	for i := range uint32(hwdefs.NumRegions) {
		m.bus.Write32(hwdefs.MPURNR, i)
		m.bus.Write32(hwdefs.MPURASR, dummyRASR)
	}
	log.ModMPU.DebugZ("regions reset").Hex32("rasr", dummyRASR).End()

	hwio.Modify32(m.bus, hwdefs.SHCSR, func(v uint32) uint32 {
		return v | hwdefs.SHCSRMemFaultEna
	})

	// The unit is enabled last, once regions and background policy are set.
	m.clearCtrl(hwdefs.CtrlHFNMIEna)
	m.setCtrl(hwdefs.CtrlPrivDefEna)
	m.setCtrl(hwdefs.CtrlEnable)

	log.ModMPU.InfoZ("mpu enabled").
		Hex32("ctrl", m.bus.Read32(hwdefs.MPUCtrl, false)).
		End()
	return nil
}

func (m *Manager) setCtrl(mask uint32) {
	hwio.Modify32(m.bus, hwdefs.MPUCtrl, func(v uint32) uint32 {
		hwio.SetBits32(&v, mask)
		return v
	})
}

func (m *Manager) clearCtrl(mask uint32) {
	hwio.Modify32(m.bus, hwdefs.MPUCtrl, func(v uint32) uint32 {
		hwio.ClearBits32(&v, mask)
		return v
	})
}

func (m *Manager) lockedCtrl(mask uint32, set bool) {
	m.cs.Lock()
	defer m.cs.Unlock()

	if set {
		m.setCtrl(mask)
	} else {
		m.clearCtrl(mask)
	}
	log.ModMPU.DebugZ("ctrl").
		Hex32("mask", mask).
		Bool("set", set).
		End()
}

// EnableUnit turns memory protection on.
func (m *Manager) EnableUnit() { m.lockedCtrl(hwdefs.CtrlEnable, true) }

// DisableUnit turns memory protection off. Region settings are kept.
func (m *Manager) DisableUnit() { m.lockedCtrl(hwdefs.CtrlEnable, false) }

// EnableBackgroundRegion makes the default memory map apply to privileged
// accesses that don't match any enabled region.
func (m *Manager) EnableBackgroundRegion() { m.lockedCtrl(hwdefs.CtrlPrivDefEna, true) }

// DisableBackgroundRegion makes accesses outside enabled regions fault, at
// any privilege level.
func (m *Manager) DisableBackgroundRegion() { m.lockedCtrl(hwdefs.CtrlPrivDefEna, false) }

// EnableDuringFaultHandlers keeps the MPU enforced while running HardFault
// and NMI handlers, or handlers running with FAULTMASK set.
func (m *Manager) EnableDuringFaultHandlers() { m.lockedCtrl(hwdefs.CtrlHFNMIEna, true) }

// DisableDuringFaultHandlers bypasses the MPU in HardFault and NMI handlers.
func (m *Manager) DisableDuringFaultHandlers() { m.lockedCtrl(hwdefs.CtrlHFNMIEna, false) }

package mpu

import (
	"cm3mpu/emu/log"
	"cm3mpu/hw/hwdefs"
	"cm3mpu/hw/hwio"
	"cm3mpu/hw/snapshot"
)

// selectRegion must be called with the critical section held.
func (m *Manager) selectRegion(region uint8) {
	m.bus.Write32(hwdefs.MPURNR, uint32(region))
}

// modifyRASR performs a read-modify-write of the RASR of the selected region.
func (m *Manager) modifyRASR(fn func(v uint32) uint32) {
	hwio.Modify32(m.bus, hwdefs.MPURASR, fn)
}

// SetRegionRange sets the base address and size of a region, leaving the other
// attributes untouched. size must be a power of two between 32 and 32768
// bytes and start must be aligned on size.
func (m *Manager) SetRegionRange(region uint8, start, size uint32) error {
	if err := ValidateRange(region, start, size); err != nil {
		return &RegionError{Op: "set range", Region: region, Err: err}
	}
	enc := mustEncodeSize(size)

	m.cs.Lock()
	defer m.cs.Unlock()

	m.selectRegion(region)
	m.bus.Write32(hwdefs.MPURBAR, start)
	m.modifyRASR(func(v uint32) uint32 {
		hwio.SetField32(&v, hwdefs.RASRSizeMask, hwdefs.RASRSizePos, uint32(enc))
		return v
	})

	log.ModMPU.DebugZ("set range").
		Uint8("region", region).
		Hex32("start", start).
		Hex32("size", size).
		End()
	return nil
}

// apFor maps a readable/writable pair to an AP encoding. Privileged-only
// encodings are not reachable from here.
func apFor(readable, writable bool) uint32 {
	switch {
	case readable && writable:
		return hwdefs.APFull
	case readable:
		return hwdefs.APReadOnly
	}
	return hwdefs.APNoAccess
}

// SetRegionPermissions sets the data access permissions of a region for both
// privileged and unprivileged code. A region that isn't readable is not
// accessible at all, whatever writable says.
func (m *Manager) SetRegionPermissions(region uint8, readable, writable bool) error {
	if err := checkRegion(region); err != nil {
		return &RegionError{Op: "set permissions", Region: region, Err: err}
	}
	ap := apFor(readable, writable)

	m.cs.Lock()
	defer m.cs.Unlock()

	m.selectRegion(region)
	m.modifyRASR(func(v uint32) uint32 {
		hwio.SetField32(&v, hwdefs.RASRAPMask, hwdefs.RASRAPPos, ap)
		return v
	})

	log.ModMPU.DebugZ("set permissions").
		Uint8("region", region).
		Hex8("ap", uint8(ap)).
		End()
	return nil
}

// SetRegionExecutable clears (executable) or sets the execute-never bit of a
// region.
func (m *Manager) SetRegionExecutable(region uint8, executable bool) error {
	if err := checkRegion(region); err != nil {
		return &RegionError{Op: "set executable", Region: region, Err: err}
	}
	return m.setRASRBits(region, hwdefs.RASRXN, !executable)
}

func (m *Manager) setRASRBits(region uint8, mask uint32, set bool) error {
	m.cs.Lock()
	defer m.cs.Unlock()

	m.selectRegion(region)
	m.modifyRASR(func(v uint32) uint32 {
		if set {
			hwio.SetBits32(&v, mask)
		} else {
			hwio.ClearBits32(&v, mask)
		}
		return v
	})

	log.ModMPU.DebugZ("rasr bits").
		Uint8("region", region).
		Hex32("mask", mask).
		Bool("set", set).
		End()
	return nil
}

func (m *Manager) EnableRegion(region uint8) error {
	if err := checkRegion(region); err != nil {
		return &RegionError{Op: "enable", Region: region, Err: err}
	}
	return m.setRASRBits(region, hwdefs.RASREnable, true)
}

func (m *Manager) DisableRegion(region uint8) error {
	if err := checkRegion(region); err != nil {
		return &RegionError{Op: "disable", Region: region, Err: err}
	}
	return m.setRASRBits(region, hwdefs.RASREnable, false)
}

// EnableSubregion clears the disable bit of one of the 8 subregions of a region.
func (m *Manager) EnableSubregion(region, subregion uint8) error {
	if err := checkSubregion(region, subregion); err != nil {
		return &RegionError{Op: "enable subregion", Region: region, Err: err}
	}
	return m.setRASRBits(region, 1<<(hwdefs.RASRSRDPos+uint32(subregion)), false)
}

// DisableSubregion sets the disable bit of one of the 8 subregions of a region.
// Accesses to a disabled subregion are handled as if the region didn't
// exist.
func (m *Manager) DisableSubregion(region, subregion uint8) error {
	if err := checkSubregion(region, subregion); err != nil {
		return &RegionError{Op: "disable subregion", Region: region, Err: err}
	}
	return m.setRASRBits(region, 1<<(hwdefs.RASRSRDPos+uint32(subregion)), true)
}

// RegionConfig is the full description of a region, applied at once by
// Configure.
type RegionConfig struct {
	Start uint32
	Size  uint32

	Readable   bool
	Writable   bool
	Executable bool

	// DisabledSubregions has one bit per subregion, set to disable it. It
	// must be 0 for regions smaller than 256 bytes.
	DisabledSubregions uint8

	Enabled bool
}

// ValidateConfig checks a region configuration without touching the
// hardware. It returns nil or one of the package sentinel errors.
func ValidateConfig(region uint8, cfg RegionConfig) error {
	if err := ValidateRange(region, cfg.Start, cfg.Size); err != nil {
		return err
	}
	if cfg.Size < 256 && cfg.DisabledSubregions != 0 {
		return ErrSubregionsUnsupported
	}
	return nil
}

// Configure replaces the whole configuration of a region. The region is
// disabled while its registers are rewritten, and enabled at the end if
// cfg.Enabled is set. Memory attributes (TEX, S, C, B) are preserved.
func (m *Manager) Configure(region uint8, cfg RegionConfig) error {
	if err := ValidateConfig(region, cfg); err != nil {
		return &RegionError{Op: "configure", Region: region, Err: err}
	}
	enc := mustEncodeSize(cfg.Size)
	ap := apFor(cfg.Readable, cfg.Writable)

	m.cs.Lock()
	defer m.cs.Unlock()

	m.selectRegion(region)
	m.modifyRASR(func(v uint32) uint32 { return v &^ hwdefs.RASREnable })
	m.bus.Write32(hwdefs.MPURBAR, cfg.Start)

	var rasr uint32
	m.modifyRASR(func(v uint32) uint32 {
		hwio.SetField32(&v, hwdefs.RASRSizeMask, hwdefs.RASRSizePos, uint32(enc))
		hwio.SetField32(&v, hwdefs.RASRAPMask, hwdefs.RASRAPPos, ap)
		hwio.SetField32(&v, hwdefs.RASRSRDMask, hwdefs.RASRSRDPos, uint32(cfg.DisabledSubregions))
		if cfg.Executable {
			v &^= hwdefs.RASRXN
		} else {
			v |= hwdefs.RASRXN
		}
		if cfg.Enabled {
			v |= hwdefs.RASREnable
		}
		rasr = v
		return v
	})

	log.ModMPU.DebugZ("configure").
		Uint8("region", region).
		Hex32("rbar", cfg.Start).
		Hex32("rasr", rasr).
		End()
	return nil
}

// Region reads back the current configuration of a region.
func (m *Manager) Region(region uint8) (snapshot.Region, error) {
	if err := checkRegion(region); err != nil {
		return snapshot.Region{}, &RegionError{Op: "read", Region: region, Err: err}
	}

	m.cs.Lock()
	defer m.cs.Unlock()

	return m.readRegion(region), nil
}

func (m *Manager) readRegion(region uint8) snapshot.Region {
	m.selectRegion(region)
	rbar := m.bus.Read32(hwdefs.MPURBAR, false)
	rasr := m.bus.Read32(hwdefs.MPURASR, false)

	enc := uint8(hwio.Field32(rasr, hwdefs.RASRSizeMask, hwdefs.RASRSizePos))
	ap := uint8(hwio.Field32(rasr, hwdefs.RASRAPMask, hwdefs.RASRAPPos))
	return snapshot.Region{
		Index:   region,
		Base:    rbar & hwdefs.RBARAddrMask,
		Size:    DecodeSize(enc),
		SizeEnc: enc,
		AP:      ap,
		Access:  snapshot.AccessFromAP(ap),
		Exec:    rasr&hwdefs.RASRXN == 0,
		SRD:     uint8(hwio.Field32(rasr, hwdefs.RASRSRDMask, hwdefs.RASRSRDPos)),
		TEX:     uint8(hwio.Field32(rasr, hwdefs.RASRTEXMask, hwdefs.RASRTEXPos)),
		S:       rasr&hwdefs.RASRS != 0,
		C:       rasr&hwdefs.RASRC != 0,
		B:       rasr&hwdefs.RASRB != 0,
		Enabled: rasr&hwdefs.RASREnable != 0,
	}
}

// Unit reads back the unit control register.
func (m *Manager) Unit() snapshot.Unit {
	ctrl := m.bus.Read32(hwdefs.MPUCtrl, false)
	return snapshot.Unit{
		Enabled:       ctrl&hwdefs.CtrlEnable != 0,
		Background:    ctrl&hwdefs.CtrlPrivDefEna != 0,
		FaultHandlers: ctrl&hwdefs.CtrlHFNMIEna != 0,
	}
}

// Snapshot reads back the unit and all of its regions.
func (m *Manager) Snapshot() snapshot.MPU {
	m.cs.Lock()
	defer m.cs.Unlock()

	var s snapshot.MPU
	s.Unit = m.Unit()
	for i := range uint8(hwdefs.NumRegions) {
		s.Regions[i] = m.readRegion(i)
	}
	return s
}

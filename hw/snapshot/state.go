// Package snapshot holds a decoded, register-independent view of the MPU
// state, as read back from the hardware.
package snapshot

import "cm3mpu/hw/hwdefs"

//go:generate go tool stringer -type=Access -trimprefix=Access

// Access is the data access permission of a region, as decoded from the AP
// field of MPU_RASR.
type Access uint8

const (
	AccessNone         Access = iota // no access
	AccessReadOnly                   // read-only, any privilege
	AccessReadWrite                  // full access, any privilege
	AccessPrivRW                     // privileged read/write, no user access
	AccessPrivRWUserRO               // privileged read/write, user read-only
	AccessPrivRO                     // privileged read-only, no user access
	AccessReserved                   // reserved AP encoding
)

// AccessFromAP decodes a 3-bit AP field.
func AccessFromAP(ap uint8) Access {
	switch ap & 0x7 {
	case hwdefs.APNoAccess:
		return AccessNone
	case hwdefs.APPrivRW:
		return AccessPrivRW
	case hwdefs.APPrivRWUsRO:
		return AccessPrivRWUserRO
	case hwdefs.APFull:
		return AccessReadWrite
	case hwdefs.APPrivRO:
		return AccessPrivRO
	case hwdefs.APReadOnly, hwdefs.APReadOnly2:
		return AccessReadOnly
	}
	return AccessReserved
}

type MPU struct {
	Unit    Unit
	Regions [hwdefs.NumRegions]Region
}

type Unit struct {
	Enabled       bool // MPU_CTRL.ENABLE
	Background    bool // MPU_CTRL.PRIVDEFENA
	FaultHandlers bool // MPU_CTRL.HFNMIENA
}

type Region struct {
	Index   uint8
	Base    uint32
	Size    uint32 // in bytes, decoded from SizeEnc
	SizeEnc uint8
	AP      uint8
	Access  Access
	Exec    bool  // !XN
	SRD     uint8 // subregion disable mask
	TEX     uint8
	S, C, B bool
	Enabled bool
}

// Contains reports whether addr lies within the region address range,
// regardless of its enabled and subregion state.
func (r Region) Contains(addr uint32) bool {
	return addr >= r.Base && uint64(addr) < uint64(r.Base)+uint64(r.Size)
}

// Subregion returns the index of the subregion containing addr. addr must be
// contained in the region.
func (r Region) Subregion(addr uint32) uint8 {
	return uint8((addr - r.Base) / (r.Size / hwdefs.NumSubregions))
}

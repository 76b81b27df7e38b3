// Package hwdefs holds the ARMv7-M System Control Space addresses and
// register field layouts shared by the MPU driver and the simulator.
package hwdefs

// System Control Block registers.
const (
	SHCSR = 0xE000ED24 // System Handler Control and State
	CFSR  = 0xE000ED28 // Configurable Fault Status
	MMFAR = 0xE000ED34 // MemManage Fault Address
)

// MPU register block.
const (
	MPUBase = 0xE000ED90

	MPUType = MPUBase + 0x00
	MPUCtrl = MPUBase + 0x04
	MPURNR  = MPUBase + 0x08
	MPURBAR = MPUBase + 0x0C
	MPURASR = MPUBase + 0x10

	MPUBankSize = 0x14
)

// SCB bank, from SHCSR up to and including MMFAR.
const (
	SCBBase     = SHCSR
	SCBBankSize = MMFAR + 4 - SHCSR
)

const (
	NumRegions    = 8
	NumSubregions = 8
)

// Value of MPU_TYPE on a unit with 8 unified regions.
const MPUTypeExpected = 0x00000800

// SHCSR fields.
const SHCSRMemFaultEna = 1 << 16

// CFSR MemManage status bits (MMFSR, low byte).
const (
	CFSRIAccViol  = 1 << 0
	CFSRDAccViol  = 1 << 1
	CFSRMMARValid = 1 << 7
	CFSRMMFSRMask = 0xFF
)

// MPU_CTRL fields.
const (
	CtrlEnable     = 1 << 0
	CtrlHFNMIEna   = 1 << 1
	CtrlPrivDefEna = 1 << 2
	CtrlMask       = CtrlEnable | CtrlHFNMIEna | CtrlPrivDefEna
)

// MPU_RNR fields.
const RNRRegionMask = 0xFF

// MPU_RBAR fields.
const (
	RBARRegionMask = 0xF
	RBARValid      = 1 << 4
	RBARAddrMask   = 0xFFFFFFE0
)

// MPU_RASR fields.
const (
	RASREnable = 1 << 0

	RASRSizePos  = 1
	RASRSizeMask = 0x1F << RASRSizePos

	RASRSRDPos  = 8
	RASRSRDMask = 0xFF << RASRSRDPos

	RASRB = 1 << 16
	RASRC = 1 << 17
	RASRS = 1 << 18

	RASRTEXPos  = 19
	RASRTEXMask = 0x7 << RASRTEXPos

	RASRAPPos  = 24
	RASRAPMask = 0x7 << RASRAPPos

	RASRXN = 1 << 28

	// Reserved bits (7:6, 23:22, 27, 31:29) read as zero.
	RASRWritable = RASREnable | RASRSizeMask | RASRSRDMask | RASRB | RASRC |
		RASRS | RASRTEXMask | RASRAPMask | RASRXN
)

// Access permission (AP) encodings.
const (
	APNoAccess   = 0b000
	APPrivRW     = 0b001
	APPrivRWUsRO = 0b010
	APFull       = 0b011
	APReserved   = 0b100
	APPrivRO     = 0b101
	APReadOnly   = 0b110
	APReadOnly2  = 0b111
)

// Size field encodings accepted by the driver.
const (
	MinRegionSize = 32
	MaxRegionSize = 32768 // RAM ceiling of the target, not a hardware limit

	SizeEncodingMax = 14
)

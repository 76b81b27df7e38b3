package mpu

import (
	"fmt"

	"cm3mpu/hw/hwdefs"
)

func isPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

// EncodeSize returns the MPU_RASR.SIZE encoding of a region size in bytes,
// that is log2(size)-1. Only sizes from 32 bytes to 32KiB are supported.
func EncodeSize(size uint32) (uint8, error) {
	switch size {
	case 32:
		return 4, nil
	case 64:
		return 5, nil
	case 128:
		return 6, nil
	case 256:
		return 7, nil
	case 512:
		return 8, nil
	case 1024:
		return 9, nil
	case 2048:
		return 10, nil
	case 4096:
		return 11, nil
	case 8192:
		return 12, nil
	case 16384:
		return 13, nil
	case 32768:
		return 14, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedSize, size)
}

// DecodeSize returns the region size in bytes for a SIZE field value. Unlike
// EncodeSize it covers the whole hardware range; the 4GiB region (encoding
// 31) is reported as 0.
func DecodeSize(enc uint8) uint32 {
	enc &= 0x1F
	if enc >= 31 {
		return 0
	}
	return 1 << (enc + 1)
}

func checkRegion(region uint8) error {
	if region >= hwdefs.NumRegions {
		return ErrInvalidRegion
	}
	return nil
}

func checkSubregion(region, subregion uint8) error {
	if err := checkRegion(region); err != nil {
		return err
	}
	if subregion >= hwdefs.NumSubregions {
		return ErrInvalidSubregion
	}
	return nil
}

// ValidateRange checks a region range request, in this order: region index,
// size validity, size ceiling, alignment. It returns the first failing check
// as one of ErrInvalidRegion, ErrInvalidSize, ErrSizeTooLarge and
// ErrMisaligned.
func ValidateRange(region uint8, start, size uint32) error {
	if err := checkRegion(region); err != nil {
		return err
	}
	if size < hwdefs.MinRegionSize || !isPowerOfTwo(size) {
		return ErrInvalidSize
	}
	if size > hwdefs.MaxRegionSize {
		return ErrSizeTooLarge
	}
	if start%size != 0 {
		return ErrMisaligned
	}
	return nil
}

// mustEncodeSize encodes a size already accepted by ValidateRange.
func mustEncodeSize(size uint32) uint8 {
	enc, err := EncodeSize(size)
	if err != nil {
		panic(fmt.Sprintf("mpu: validated size has no encoding: %v", err))
	}
	return enc
}

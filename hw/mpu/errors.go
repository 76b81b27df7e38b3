package mpu

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRegion       = errors.New("invalid region")
	ErrInvalidSubregion    = errors.New("invalid subregion")
	ErrInvalidSize         = errors.New("size must be a power of two, at least 32 bytes")
	ErrSizeTooLarge        = errors.New("size exceeds 32KiB ceiling")
	ErrMisaligned          = errors.New("base address not aligned to size")
	ErrUnsupportedHardware = errors.New("unsupported MPU")
	ErrUnsupportedSize     = errors.New("unsupported size")

	// Regions smaller than 256 bytes have no subregions.
	ErrSubregionsUnsupported = errors.New("region too small for subregions")
)

// RegionError reports a failed region-scoped operation.
type RegionError struct {
	Op     string
	Region uint8
	Err    error
}

func (err *RegionError) Error() string {
	return fmt.Sprintf("mpu: %s region %d: %v", err.Op, err.Region, err.Err)
}

func (err *RegionError) Unwrap() error {
	return err.Err
}

// InitError reports an MPU whose type register doesn't match the expected
// unit.
type InitError struct {
	Type uint32 // value read from MPU_TYPE
}

func (err *InitError) Error() string {
	return fmt.Sprintf("mpu: %v (MPU_TYPE=%08x)", ErrUnsupportedHardware, err.Type)
}

func (err *InitError) Unwrap() error {
	return ErrUnsupportedHardware
}

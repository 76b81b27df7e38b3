//go:build !linux

package hwio

import "errors"

var errPhysUnsupported = errors.New("phys: physical register access is only supported on linux")

type Phys struct {
	Name string
}

func OpenPhys(device string, base, size uint32) (*Phys, error) {
	return nil, errPhysUnsupported
}

func (p *Phys) Read32(addr uint32, peek bool) uint32 { return 0 }
func (p *Phys) Write32(addr uint32, val uint32)      {}
func (p *Phys) Close() error                         { return nil }

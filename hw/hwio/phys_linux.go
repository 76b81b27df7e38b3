//go:build linux

package hwio

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"cm3mpu/emu/log"
)

// Phys is a window of physical address space mapped through a memory device
// (usually /dev/mem). Accesses are performed as single aligned 32-bit loads
// and stores.
type Phys struct {
	Name string

	start uint32 // physical address of mem[0]
	base  uint32 // first address of the requested window
	size  uint32
	mem   []byte
}

// OpenPhys maps size bytes of physical memory starting at base.
func OpenPhys(device string, base, size uint32) (*Phys, error) {
	if base%4 != 0 || size < 4 || size%4 != 0 {
		return nil, fmt.Errorf("phys: invalid window %08x+%x", base, size)
	}

	fd, err := unix.Open(device, unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("phys: open %s: %w", device, err)
	}
	defer unix.Close(fd)

	pgsize := uint32(unix.Getpagesize())
	start := base &^ (pgsize - 1)
	length := (base - start + size + pgsize - 1) &^ (pgsize - 1)

	mem, err := unix.Mmap(fd, int64(start), int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("phys: mmap %s at %08x: %w", device, start, err)
	}

	log.ModHwIo.DebugZ("mapped physical window").
		String("device", device).
		Hex32("start", start).
		Hex32("len", length).
		End()

	return &Phys{
		Name:  device,
		start: start,
		base:  base,
		size:  size,
		mem:   mem,
	}, nil
}

func (p *Phys) word(addr uint32) *uint32 {
	if addr < p.base || addr-p.base > p.size-4 || addr%4 != 0 {
		return nil
	}
	return (*uint32)(unsafe.Pointer(&p.mem[addr-p.start]))
}

func (p *Phys) Read32(addr uint32, peek bool) uint32 {
	w := p.word(addr)
	if w == nil {
		log.ModHwIo.ErrorZ("Read32 outside physical window").
			String("name", p.Name).
			Hex32("addr", addr).
			End()
		return 0
	}
	return atomic.LoadUint32(w)
}

func (p *Phys) Write32(addr uint32, val uint32) {
	w := p.word(addr)
	if w == nil {
		log.ModHwIo.ErrorZ("Write32 outside physical window").
			String("name", p.Name).
			Hex32("addr", addr).
			Hex32("val", val).
			End()
		return
	}
	atomic.StoreUint32(w, val)
}

// Close unmaps the window. The Phys must not be used afterwards.
func (p *Phys) Close() error {
	if p.mem == nil {
		return nil
	}
	err := unix.Munmap(p.mem)
	p.mem = nil
	return err
}

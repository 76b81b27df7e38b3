package emu

import (
	"errors"
	"io"
	"sync"

	"cm3mpu/emu/log"
	"cm3mpu/hw/hwdefs"
	"cm3mpu/hw/hwio"
	"cm3mpu/hw/mpu"
	"cm3mpu/hw/scs"
	"cm3mpu/hw/snapshot"
)

// Physical window holding the System Control Space registers we use.
const (
	PhysBase = 0xE000E000
	PhysSize = 0x1000
)

var ErrNotSimulated = errors.New("access checks require a simulated system")

// System ties an MPU manager and its fault handler to a register bus, which
// is either a simulated System Control Space or the physical one.
type System struct {
	Bus   hwio.BankIO32
	SCS   *scs.SCS // nil for physical systems
	MPU   *mpu.Manager
	Fault *mpu.FaultHandler

	// mu serializes MPU reconfiguration and simulated accesses. It's the
	// critical section of the MPU manager.
	mu     sync.Mutex
	closer io.Closer
}

// NewSimSystem returns a system backed by a simulated SCS. Access violations
// raised by Probe are routed to the fault handler.
func NewSimSystem(sink mpu.FaultSink, opts ...mpu.FaultOption) *System {
	s := scs.New()
	sys := &System{Bus: s.Bus, SCS: s}
	sys.MPU = mpu.New(s.Bus, mpu.WithCriticalSection(&sys.mu))
	sys.Fault = mpu.NewFaultHandler(s.Bus, sink, opts...)

	s.MemManage = sys.Fault.Handle
	s.HardFault = func() {
		log.ModEmu.ErrorZ("hard fault").
			Hex32("cfsr", s.CFSR.Value).
			End()
		sys.Fault.Handle()
	}
	return sys
}

// NewPhysSystem maps the System Control Space through device. It requires
// privileges to open the device.
func NewPhysSystem(device string, sink mpu.FaultSink, opts ...mpu.FaultOption) (*System, error) {
	phys, err := hwio.OpenPhys(device, PhysBase, PhysSize)
	if err != nil {
		return nil, err
	}

	sys := &System{Bus: phys, closer: phys}
	sys.MPU = mpu.New(phys, mpu.WithCriticalSection(&sys.mu))
	sys.Fault = mpu.NewFaultHandler(phys, sink, opts...)
	return sys, nil
}

// Apply configures the MPU according to l.
func (sys *System) Apply(l *Layout) error {
	return l.Apply(sys.MPU)
}

func (sys *System) Snapshot() snapshot.MPU {
	return sys.MPU.Snapshot()
}

// Probe simulates one memory access and reports whether it was permitted. A
// denied access runs the fault handler, which may not return.
func (sys *System) Probe(addr uint32, kind scs.AccessKind, privileged bool) (bool, error) {
	return sys.probe(func(s *scs.SCS) bool { return s.Check(addr, kind, privileged) })
}

// ProbeHandler is like Probe, for an access made from a HardFault or NMI
// handler.
func (sys *System) ProbeHandler(addr uint32, kind scs.AccessKind) (bool, error) {
	return sys.probe(func(s *scs.SCS) bool { return s.CheckHandler(addr, kind) })
}

func (sys *System) probe(check func(*scs.SCS) bool) (bool, error) {
	if sys.SCS == nil {
		return false, ErrNotSimulated
	}

	sys.mu.Lock()
	defer sys.mu.Unlock()

	// Clear sticky fault state from a previous probe.
	sys.SCS.Bus.Write32(hwdefs.CFSR, hwdefs.CFSRMMFSRMask)
	return check(sys.SCS), nil
}

// Reset puts a simulated System Control Space back in its reset state. It
// does nothing on physical systems.
func (sys *System) Reset() {
	if sys.SCS == nil {
		return
	}

	sys.mu.Lock()
	defer sys.mu.Unlock()
	sys.SCS.Reset()
}

func (sys *System) Close() error {
	if sys.closer == nil {
		return nil
	}
	return sys.closer.Close()
}

package mpu

import (
	"fmt"
	"io"

	"cm3mpu/emu/log"
	"cm3mpu/hw/hwdefs"
	"cm3mpu/hw/hwio"
)

// A FaultSink receives the faulting address of a MemManage fault.
type FaultSink interface {
	MemFault(addr uint32)
}

type FaultSinkFunc func(addr uint32)

func (f FaultSinkFunc) MemFault(addr uint32) { f(addr) }

// WriterSink prints the faulting address to W.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) MemFault(addr uint32) {
	fmt.Fprintf(s.W, "Memory fault at 0x%08x\n", addr)
}

// LogSink logs the faulting address on the fault module.
type LogSink struct{}

func (LogSink) MemFault(addr uint32) {
	log.ModFault.ErrorZ("memory fault").Hex32("addr", addr).End()
}

// HaltForever never returns.
func HaltForever() {
	select {}
}

// FaultHandler reports MemManage faults then stops execution. The default
// halt action never returns: once memory protection has been violated,
// execution can't safely continue.
type FaultHandler struct {
	bus  hwio.BankIO32
	sink FaultSink
	halt func()
}

type FaultOption func(*FaultHandler)

// WithHalt replaces the action run after the fault is reported, e.g. with a
// system reset or a panic.
func WithHalt(halt func()) FaultOption {
	return func(h *FaultHandler) { h.halt = halt }
}

func NewFaultHandler(bus hwio.BankIO32, sink FaultSink, opts ...FaultOption) *FaultHandler {
	if sink == nil {
		sink = LogSink{}
	}
	h := &FaultHandler{bus: bus, sink: sink, halt: HaltForever}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle is the MemManage exception entry point. It reads the fault address,
// hands it to the sink, and runs the halt action.
func (h *FaultHandler) Handle() {
	mmfsr := h.bus.Read32(hwdefs.CFSR, false) & hwdefs.CFSRMMFSRMask
	addr := h.bus.Read32(hwdefs.MMFAR, false)
	if mmfsr&hwdefs.CFSRMMARValid == 0 {
		log.ModFault.WarnZ("fault address not valid").
			Hex8("mmfsr", uint8(mmfsr)).
			Hex32("mmfar", addr).
			End()
	}

	h.sink.MemFault(addr)
	h.halt()
}

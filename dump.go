package main

import (
	"fmt"
	"io"

	"github.com/go-faster/jx"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"cm3mpu/hw/hwdefs"
	"cm3mpu/hw/hwio"
	"cm3mpu/hw/scs"
	"cm3mpu/hw/snapshot"
)

func onoff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// printState prints the MPU state as a table, one line per region. Sizes are
// printed with digit grouping.
func printState(w io.Writer, s *snapshot.MPU) {
	p := message.NewPrinter(language.English)

	fmt.Fprintf(w, "MPU %s, background %s, during faults %s\n",
		onoff(s.Unit.Enabled), onoff(s.Unit.Background), onoff(s.Unit.FaultHandlers))
	fmt.Fprintf(w, "%-3s %-4s %-10s %10s %-16s %-4s %-8s\n",
		"#", "en", "base", "size", "access", "exec", "srd")
	for _, r := range s.Regions {
		size := "-"
		if r.Size != 0 {
			size = p.Sprintf("%d", r.Size)
		}
		fmt.Fprintf(w, "%-3d %-4s 0x%08x %10s %-16s %-4s %08b\n",
			r.Index, onoff(r.Enabled), r.Base, size, r.Access, onoff(r.Exec), r.SRD)
	}
}

// printRegisters prints the raw region registers of a simulated MPU.
func printRegisters(w io.Writer, s *scs.SCS) {
	fmt.Fprintf(w, "CTRL=%08x SHCSR=%08x\n", s.Ctrl.Value, s.SHCSR.Value)

	// Selecting regions clobbers MPU_RNR, restore it.
	rnr := s.RNR.Value
	defer func() { s.RNR.Value = rnr }()

	for i := range uint32(hwdefs.NumRegions) {
		s.Bus.Write32(hwdefs.MPURNR, i)
		rbar := s.Bus.Peek32(hwdefs.MPURBAR)
		rasr := s.Bus.Peek32(hwdefs.MPURASR)
		fmt.Fprintf(w, "R%d RBAR=%08x RASR=%08x SIZE=%d AP=%03b\n",
			i, rbar, rasr,
			hwio.Field32(rasr, hwdefs.RASRSizeMask, hwdefs.RASRSizePos),
			hwio.Field32(rasr, hwdefs.RASRAPMask, hwdefs.RASRAPPos))
	}
}

func writeJSON(w io.Writer, s *snapshot.MPU) error {
	var e jx.Encoder
	e.SetIdent(2)
	s.Encode(&e)
	if _, err := e.WriteTo(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

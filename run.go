package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"

	"golang.org/x/sync/errgroup"

	"cm3mpu/emu"
	"cm3mpu/emu/log"
	"cm3mpu/hw/mpu"
	"cm3mpu/hw/scs"
)

// layoutPath returns path, or the default layout from configuration.
func layoutPath(path string, cfg emu.Config) string {
	if path != "" {
		return path
	}
	if cfg.General.DefaultLayout == "" {
		fatalf("no layout file given, and no default layout configured")
	}
	return cfg.General.DefaultLayout
}

func haltFunc(cfg emu.FaultConfig) func() {
	halt, err := cfg.HaltFunc()
	checkf(err, "invalid fault configuration")
	return halt
}

// checkMain validates the given layouts concurrently, reporting each of them.
// It returns the process exit code.
func checkMain(w io.Writer, paths []string) int {
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			_, errs[i] = emu.LoadLayout(path)
			return nil
		})
	}
	g.Wait()

	code := 0
	for i, err := range errs {
		if err != nil {
			fmt.Fprintf(w, "FAIL %v\n", err)
			code = 1
			continue
		}
		fmt.Fprintf(w, "ok   %s\n", paths[i])
	}
	return code
}

func applyMain(args Apply, cfg emu.Config) {
	l, err := emu.LoadLayout(layoutPath(args.Layout, cfg))
	checkf(err, "invalid layout")

	sink := mpu.WriterSink{W: os.Stderr}
	halt := mpu.WithHalt(haltFunc(cfg.Fault))

	var sys *emu.System
	if args.Phys {
		sys, err = emu.NewPhysSystem(cfg.Phys.Device, sink, halt)
		checkf(err, "failed to map MPU registers")
	} else {
		sys = emu.NewSimSystem(sink, halt)
	}
	defer sys.Close()

	checkf(sys.Apply(l), "failed to apply layout %s", l.Path)
	log.ModEmu.InfoZ("applied").
		String("layout", l.Path).
		Bool("phys", args.Phys).
		End()

	snap := sys.Snapshot()
	if args.JSON {
		checkf(writeJSON(os.Stdout, &snap), "failed to encode state")
		return
	}
	printState(os.Stdout, &snap)
}

func dumpMain(args Dump, cfg emu.Config) {
	l, err := emu.LoadLayout(layoutPath(args.Layout, cfg))
	checkf(err, "invalid layout")

	sys := emu.NewSimSystem(mpu.WriterSink{W: os.Stderr}, mpu.WithHalt(haltFunc(cfg.Fault)))
	checkf(sys.Apply(l), "failed to apply layout %s", l.Path)

	snap := sys.Snapshot()
	if args.JSON {
		checkf(writeJSON(os.Stdout, &snap), "failed to encode state")
		return
	}
	printState(os.Stdout, &snap)
	printRegisters(os.Stdout, sys.SCS)
}

func encodeSizeMain(w io.Writer, args EncodeSize) {
	size := uint32(args.Size)
	enc, err := mpu.EncodeSize(size)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Fprintf(w, "%d (0x%02x)\n", enc, enc)
}

var accessKinds = map[string]scs.AccessKind{
	"r": scs.Read,
	"w": scs.Write,
	"x": scs.Exec,
}

func probeMain(args Probe, cfg emu.Config) {
	l, err := emu.LoadLayout(args.Layout)
	checkf(err, "invalid layout")

	fc := cfg.Fault
	if args.Halt != "" {
		fc.Halt = args.Halt
	}
	_, err = runProbe(os.Stdout, l, args, haltFunc(fc))
	checkf(err, "probe failed")
}

// runProbe applies l on a simulated system and performs the access described
// by args, writing the fault report and the verdict to w.
func runProbe(w io.Writer, l *emu.Layout, args Probe, halt func()) (bool, error) {
	sys := emu.NewSimSystem(mpu.WriterSink{W: w}, mpu.WithHalt(halt))
	if err := sys.Apply(l); err != nil {
		return false, fmt.Errorf("failed to apply layout %s: %w", l.Path, err)
	}

	addr, kind := uint32(args.Addr), accessKinds[args.Kind]

	var (
		ok  bool
		err error
	)
	if args.Handler {
		ok, err = sys.ProbeHandler(addr, kind)
	} else {
		ok, err = sys.Probe(addr, kind, !args.User)
	}
	if err != nil {
		return false, err
	}

	verdict := "denied"
	if ok {
		verdict = "allowed"
	}
	fmt.Fprintf(w, "%s 0x%08x: %s\n", kind, addr, verdict)
	return ok, nil
}

// configMain prints cfg as TOML, and writes it to path when asked to.
func configMain(w io.Writer, args ShowConfig, cfg emu.Config, path string) error {
	if err := emu.WriteConfig(w, cfg); err != nil {
		return err
	}
	if !args.Save {
		return nil
	}
	if err := emu.SaveConfig(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(w, "# saved to %s\n", path)
	return nil
}

func watchMain(args Watch, cfg emu.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	path := layoutPath(args.Layout, cfg)
	sys := emu.NewSimSystem(mpu.WriterSink{W: os.Stderr}, mpu.WithHalt(haltFunc(cfg.Fault)))

	apply := func(l *emu.Layout) error {
		// Each reload starts from a core fresh out of reset.
		sys.Reset()
		if err := sys.Apply(l); err != nil {
			if errors.Is(err, mpu.ErrUnsupportedHardware) {
				return err
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return nil
		}
		snap := sys.Snapshot()
		fmt.Printf("--- %s\n", l.Path)
		printState(os.Stdout, &snap)
		return nil
	}
	onErr := func(err error) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}

	checkf(emu.WatchLayout(ctx, path, apply, onErr), "watch failed")
}

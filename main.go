package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"cm3mpu/emu"
)

func main() {
	args := parseArgs(os.Args[1:])

	cfg := emu.LoadConfigOrDefault()
	if args.Config != "" {
		var err error
		cfg, err = emu.LoadConfig(args.Config)
		checkf(err, "failed to load configuration")
	}

	switch args.mode {
	case checkMode:
		os.Exit(checkMain(os.Stdout, args.Check.Layouts))
	case applyMode:
		applyMain(args.Apply, cfg)
	case dumpMode:
		dumpMain(args.Dump, cfg)
	case encodeSizeMode:
		encodeSizeMain(os.Stdout, args.EncodeSize)
	case probeMode:
		probeMain(args.Probe, cfg)
	case watchMode:
		watchMain(args.Watch, cfg)
	case configMode:
		path := args.Config
		if path == "" {
			path = emu.ConfigPath()
		}
		checkf(configMain(os.Stdout, args.ShowConfig, cfg, path), "failed to save configuration")
	case versionMode:
		printVersion()
	}
}

func printVersion() {
	version := "(devel)"
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		version = bi.Main.Version
	}
	fmt.Println("cm3mpu", version)
}

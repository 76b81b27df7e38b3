package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"cm3mpu/emu/log"
)

type mode byte

const (
	checkMode      mode = iota // Validate layout files
	applyMode                  // Apply a layout
	dumpMode                   // Dump the simulated MPU state
	encodeSizeMode             // Show RASR.SIZE encoding
	probeMode                  // Simulate one memory access
	watchMode                  // Re-apply a layout on change
	configMode                 // Show or save configuration
	versionMode                // Show cm3mpu version
)

type (
	CLI struct {
		Check      Check      `cmd:"" help:"Validate layout files."`
		Apply      Apply      `cmd:"" help:"Apply a layout and print the resulting MPU state."`
		Dump       Dump       `cmd:"" help:"Apply a layout on the simulator and dump the MPU state."`
		EncodeSize EncodeSize `cmd:"" help:"Show the RASR.SIZE encoding of a region size." name:"encode-size"`
		Probe      Probe      `cmd:"" help:"Simulate a memory access through a layout."`
		Watch      Watch      `cmd:"" help:"Apply a layout on the simulator each time the file changes."`
		ShowConfig ShowConfig `cmd:"" help:"Print the effective configuration." name:"config"`
		Version    Version    `cmd:"" help:"Show cm3mpu version."`

		Log    logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`
		Config string     `help:"${config_help}" type:"existingfile" placeholder:"FILE"`

		mode mode
	}

	Check struct {
		Layouts []string `arg:"" name:"layout" help:"Layout files to check." type:"existingfile"`
	}

	Apply struct {
		Layout string `arg:"" optional:"" name:"layout" help:"${layout_help}" type:"existingfile"`
		Phys   bool   `name:"phys" help:"${phys_help}"`
		JSON   bool   `name:"json" help:"Print MPU state as JSON."`
	}

	Dump struct {
		Layout string `arg:"" optional:"" name:"layout" help:"${layout_help}" type:"existingfile"`
		JSON   bool   `name:"json" help:"Print MPU state as JSON."`
	}

	EncodeSize struct {
		Size u32 `arg:"" name:"size" help:"Region size in bytes."`
	}

	Probe struct {
		Layout  string `arg:"" name:"layout" help:"Layout file." type:"existingfile"`
		Addr    u32    `arg:"" name:"addr" help:"Accessed address."`
		Kind    string `arg:"" name:"kind" help:"Access kind: r, w or x." enum:"r,w,x"`
		User    bool   `name:"user" help:"Perform an unprivileged access." xor:"mode"`
		Handler bool   `name:"handler" help:"Perform the access from a HardFault or NMI handler." xor:"mode"`
		Halt    string `name:"halt" help:"${halt_help}" placeholder:"forever|exit|panic"`
	}

	Watch struct {
		Layout string `arg:"" optional:"" name:"layout" help:"${layout_help}" type:"existingfile"`
	}

	ShowConfig struct {
		Save bool `name:"save" help:"Write the effective configuration to the configuration file."`
	}

	Version struct{}
)

var vars = kong.Vars{
	"log_help":    "Enable logging for specified modules.",
	"config_help": "Configuration file. (default: config.toml in the user config directory)",
	"layout_help": "Layout file. (default: general.default_layout from configuration)",
	"phys_help":   "Program the real MPU through the physical memory device instead of the simulator.",
	"halt_help":   "What to do after a memory fault: forever, exit or panic. Overrides fault.halt from configuration. With forever, probe reports a denied access and then blocks.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("cm3mpu"),
		kong.Description("Cortex-M3 MPU region manager and simulator."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch strings.Fields(ctx.Command())[0] {
	case "check":
		cfg.mode = checkMode
	case "apply":
		cfg.mode = applyMode
	case "dump":
		cfg.mode = dumpMode
	case "encode-size":
		cfg.mode = encodeSizeMode
	case "probe":
		cfg.mode = probeMode
	case "watch":
		cfg.mode = watchMode
	case "config":
		cfg.mode = configMode
	case "version":
		cfg.mode = versionMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if ctx.Command() == "" {
		loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
		var strs []string
		for _, m := range log.ModuleNames() {
			strs = append(strs, "    - "+m)
		}

		fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	}

	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	s, ok := tok.Value.(string)
	if !ok {
		return fmt.Errorf("expected module list, got %v", tok.Value)
	}
	return lm.set(s)
}

func (lm logModMask) set(list string) error {
	nolog := false
	allLogs := false

	for _, v := range strings.Split(list, ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

// u32 is a 32-bit unsigned command line argument, in decimal or with a 0x,
// 0o or 0b prefix.
type u32 uint32

// Decode implements kong.MapperValue interface.
func (v *u32) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	s, ok := tok.Value.(string)
	if !ok {
		return fmt.Errorf("expected number, got %v", tok.Value)
	}
	n, err := strconv.ParseUint(strings.ReplaceAll(s, "_", ""), 0, 32)
	if err != nil {
		return fmt.Errorf("invalid 32-bit value %q", s)
	}
	*v = u32(n)
	return nil
}

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n\t"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}

package emu

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"cm3mpu/emu/log"
	"cm3mpu/hw/mpu"
)

type Config struct {
	General GeneralConfig `toml:"general"`
	Fault   FaultConfig   `toml:"fault"`
	Phys    PhysConfig    `toml:"phys"`
}

type GeneralConfig struct {
	DefaultLayout string `toml:"default_layout"`
}

type FaultConfig struct {
	// Halt selects what happens after a memory fault has been reported:
	// "forever" (default), "exit" or "panic".
	Halt string `toml:"halt"`
}

type PhysConfig struct {
	Device string `toml:"device"`
}

const (
	HaltForever = "forever"
	HaltExit    = "exit"
	HaltPanic   = "panic"
)

// ErrMemFault is the panic value used by the "panic" halt policy.
var ErrMemFault = errors.New("memory protection fault")

// HaltFunc returns the halt action selected by the configuration.
func (fc FaultConfig) HaltFunc() (func(), error) {
	switch fc.Halt {
	case "", HaltForever:
		return mpu.HaltForever, nil
	case HaltExit:
		return func() { os.Exit(2) }, nil
	case HaltPanic:
		return func() { panic(ErrMemFault) }, nil
	}
	return nil, fmt.Errorf("invalid fault halt policy %q", fc.Halt)
}

const DefaultFileMode = os.FileMode(0755)

var ConfigDir = sync.OnceValue(func() string {
	cfgdir, err := os.UserConfigDir()
	if err != nil {
		log.ModEmu.Fatalf("failed to get user config directory: %v", err)
	}

	dir := filepath.Join(cfgdir, "cm3mpu")
	if err := os.MkdirAll(dir, DefaultFileMode); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})

var defaultConfig = Config{
	Fault: FaultConfig{Halt: HaltForever},
	Phys:  PhysConfig{Device: "/dev/mem"},
}

func DefaultConfig() Config {
	return defaultConfig
}

const cfgFilename = "config.toml"

// LoadConfig loads the configuration file at path. Settings missing from the
// file keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return defaultConfig, err
	}
	if _, err := cfg.Fault.HaltFunc(); err != nil {
		return defaultConfig, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigOrDefault loads the configuration from the cm3mpu config
// directory, or provide a default one.
func LoadConfigOrDefault() Config {
	path := ConfigPath()
	cfg, err := LoadConfig(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.ModEmu.WarnZ("ignoring invalid config").
				String("path", path).
				Error("err", err).
				End()
		}
		return defaultConfig
	}
	return cfg
}

// ConfigPath is the configuration file in the cm3mpu config directory.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), cfgFilename)
}

// WriteConfig encodes cfg as TOML.
func WriteConfig(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// SaveConfig writes cfg to the file at path, replacing it.
func SaveConfig(path string, cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, buf, 0644)
}

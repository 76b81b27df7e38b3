package emu

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"

	"cm3mpu/emu/log"
	"cm3mpu/hw/hwdefs"
	"cm3mpu/hw/mpu"
)

// Layout format versions this build understands.
const LayoutFormat = "^1.0"

var layoutConstraint = func() *semver.Constraints {
	c, err := semver.NewConstraint(LayoutFormat)
	if err != nil {
		panic(err)
	}
	return c
}()

var (
	ErrFormat          = errors.New("missing or invalid format version")
	ErrFormatVersion   = errors.New("unsupported format version")
	ErrDuplicateRegion = errors.New("region configured twice")
	ErrAccess          = errors.New("invalid access, expected none, ro or rw")
	ErrUnknownKey      = errors.New("unknown key")
	ErrSymbol          = errors.New("invalid symbol name")
	ErrMissing         = errors.New("missing value")
)

// LayoutError reports an invalid layout. Region is -1 for errors not related
// to a specific region entry.
type LayoutError struct {
	Path   string
	Region int
	Err    error
}

func (err *LayoutError) Error() string {
	if err.Region < 0 {
		return fmt.Sprintf("%s: %v", err.Path, err.Err)
	}
	return fmt.Sprintf("%s: region %d: %v", err.Path, err.Region, err.Err)
}

func (err *LayoutError) Unwrap() error {
	return err.Err
}

// Layout is a declarative MPU configuration, loaded from a TOML file.
type Layout struct {
	Format  string           `toml:"format"`
	Symbols map[string]int64 `toml:"symbols"`
	Unit    UnitPolicy       `toml:"unit"`
	Entries []RegionEntry    `toml:"region"`

	Path string `toml:"-"`

	resolved []ResolvedRegion
}

type UnitPolicy struct {
	Enable        *bool `toml:"enable"`     // default true
	Background    *bool `toml:"background"` // default true
	FaultHandlers bool  `toml:"fault_handlers"`
}

func (u UnitPolicy) enable() bool     { return u.Enable == nil || *u.Enable }
func (u UnitPolicy) background() bool { return u.Background == nil || *u.Background }

type RegionEntry struct {
	Index              uint8   `toml:"index"`
	Start              Expr    `toml:"start"`
	Size               Expr    `toml:"size"`
	Access             string  `toml:"access"`
	Exec               bool    `toml:"exec"`
	Enabled            *bool   `toml:"enabled"` // default true
	DisabledSubregions []uint8 `toml:"disabled_subregions"`
}

// ResolvedRegion is a region entry with all expressions evaluated.
type ResolvedRegion struct {
	Index  uint8
	Config mpu.RegionConfig
}

// LoadLayout reads and validates the layout file at path.
func LoadLayout(path string) (*Layout, error) {
	var l Layout
	md, err := toml.DecodeFile(path, &l)
	if err != nil {
		return nil, &LayoutError{Path: path, Region: -1, Err: err}
	}
	return l.init(path, md)
}

// ParseLayout parses and validates a layout. name is only used in errors.
func ParseLayout(name, data string) (*Layout, error) {
	var l Layout
	md, err := toml.Decode(data, &l)
	if err != nil {
		return nil, &LayoutError{Path: name, Region: -1, Err: err}
	}
	return l.init(name, md)
}

func (l *Layout) init(path string, md toml.MetaData) (*Layout, error) {
	l.Path = path
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, l.errorf(-1, "%w: %s", ErrUnknownKey, strings.Join(keys, ", "))
	}
	if err := l.resolve(); err != nil {
		return nil, err
	}

	log.ModLayout.DebugZ("layout loaded").
		String("path", path).
		String("format", l.Format).
		Int("regions", len(l.resolved)).
		End()
	return l, nil
}

func (l *Layout) errorf(region int, format string, args ...any) error {
	return &LayoutError{Path: l.Path, Region: region, Err: fmt.Errorf(format, args...)}
}

func (l *Layout) checkFormat() error {
	v, err := semver.NewVersion(l.Format)
	if err != nil {
		return l.errorf(-1, "%w: %q", ErrFormat, l.Format)
	}
	if !layoutConstraint.Check(v) {
		return l.errorf(-1, "%w: %s does not satisfy %s", ErrFormatVersion, v, LayoutFormat)
	}
	return nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func parseAccess(s string) (readable, writable bool, err error) {
	switch strings.ToLower(s) {
	case "", "none":
		return false, false, nil
	case "ro":
		return true, false, nil
	case "rw":
		return true, true, nil
	}
	return false, false, fmt.Errorf("%w: %q", ErrAccess, s)
}

func (l *Layout) resolve() error {
	if err := l.checkFormat(); err != nil {
		return err
	}
	for name := range l.Symbols {
		if !isIdent(name) {
			return l.errorf(-1, "%w: %q", ErrSymbol, name)
		}
	}

	var seen [hwdefs.NumRegions]bool
	l.resolved = l.resolved[:0]
	for _, e := range l.Entries {
		r, err := l.resolveEntry(e)
		if err != nil {
			return &LayoutError{Path: l.Path, Region: int(e.Index), Err: err}
		}
		if seen[r.Index] {
			return &LayoutError{Path: l.Path, Region: int(e.Index), Err: ErrDuplicateRegion}
		}
		seen[r.Index] = true
		l.resolved = append(l.resolved, r)
	}
	slices.SortFunc(l.resolved, func(a, b ResolvedRegion) int {
		return int(a.Index) - int(b.Index)
	})
	return nil
}

func (l *Layout) resolveEntry(e RegionEntry) (ResolvedRegion, error) {
	r := ResolvedRegion{Index: e.Index}

	if e.Start.IsZero() {
		return r, fmt.Errorf("start: %w", ErrMissing)
	}
	var err error
	if r.Config.Start, err = e.Start.Eval(l.Symbols); err != nil {
		return r, fmt.Errorf("start: %w", err)
	}
	if e.Size.IsZero() {
		return r, fmt.Errorf("size: %w", mpu.ErrInvalidSize)
	}
	if r.Config.Size, err = e.Size.Eval(l.Symbols); err != nil {
		return r, fmt.Errorf("size: %w", err)
	}
	if r.Config.Readable, r.Config.Writable, err = parseAccess(e.Access); err != nil {
		return r, err
	}
	r.Config.Executable = e.Exec
	r.Config.Enabled = e.Enabled == nil || *e.Enabled
	for _, sub := range e.DisabledSubregions {
		if sub >= hwdefs.NumSubregions {
			return r, fmt.Errorf("%w: %d", mpu.ErrInvalidSubregion, sub)
		}
		r.Config.DisabledSubregions |= 1 << sub
	}

	if err := mpu.ValidateConfig(e.Index, r.Config); err != nil {
		return r, err
	}
	return r, nil
}

// Resolved returns the region configurations, sorted by region index.
func (l *Layout) Resolved() []ResolvedRegion {
	return l.resolved
}

// Apply initializes the MPU and configures it according to the layout. The
// unit is disabled while regions are configured and enabled again last, if
// the layout asks for it.
func (l *Layout) Apply(m *mpu.Manager) error {
	if err := m.Init(); err != nil {
		return err
	}
	m.DisableUnit()

	for _, r := range l.resolved {
		if err := m.Configure(r.Index, r.Config); err != nil {
			return &LayoutError{Path: l.Path, Region: int(r.Index), Err: err}
		}
	}

	if !l.Unit.background() {
		m.DisableBackgroundRegion()
	}
	if l.Unit.FaultHandlers {
		m.EnableDuringFaultHandlers()
	}
	if l.Unit.enable() {
		m.EnableUnit()
	}

	log.ModLayout.InfoZ("layout applied").
		String("path", l.Path).
		Int("regions", len(l.resolved)).
		End()
	return nil
}

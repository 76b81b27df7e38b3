package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		DisableDebugModules(ModuleMaskAll)
	})
	return &buf
}

func TestModuleByName(t *testing.T) {
	for _, name := range ModuleNames() {
		mod, ok := ModuleByName(name)
		if !ok {
			t.Fatalf("ModuleByName(%q) not found", name)
		}
		if mod.String() != name {
			t.Errorf("ModuleByName(%q).String() = %q", name, mod.String())
		}
	}
	if _, ok := ModuleByName("<error>"); ok {
		t.Errorf("ModuleByName(<error>) should not be found")
	}
	if _, ok := ModuleByName("ppu"); ok {
		t.Errorf("ModuleByName(ppu) should not be found")
	}
}

func TestDebugMask(t *testing.T) {
	buf := captureLogs(t)

	ModMPU.DebugZ("hidden").Hex32("rasr", 0x1234).End()
	if buf.Len() != 0 {
		t.Fatalf("debug log written while module disabled: %q", buf.String())
	}

	EnableDebugModules(ModMPU.Mask())
	ModMPU.DebugZ("select region").Uint8("region", 3).Hex32("rasr", 0x1000002b).End()
	out := buf.String()
	for _, want := range []string{"select region", "region=3", "rasr=1000002b", "_mod=mpu"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q does not contain %q", out, want)
		}
	}
}

func TestErrorsAlwaysLogged(t *testing.T) {
	buf := captureLogs(t)

	ModHwIo.ErrorZ("invalid write").Error("err", errors.New("boom")).End()
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("error log missing: %q", buf.String())
	}
}

func TestNilEntryZ(t *testing.T) {
	var z *EntryZ
	z.String("k", "v").Hex8("b", 1).Bool("ok", true).End()
}

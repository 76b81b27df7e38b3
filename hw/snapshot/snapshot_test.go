package snapshot

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAccessFromAP(t *testing.T) {
	want := []Access{
		AccessNone,
		AccessPrivRW,
		AccessPrivRWUserRO,
		AccessReadWrite,
		AccessReserved,
		AccessPrivRO,
		AccessReadOnly,
		AccessReadOnly,
	}
	for ap, w := range want {
		if got := AccessFromAP(uint8(ap)); got != w {
			t.Errorf("AccessFromAP(%03b) = %v, want %v", ap, got, w)
		}
	}
	if s := AccessPrivRWUserRO.String(); s != "PrivRWUserRO" {
		t.Errorf("String() = %q", s)
	}
	if s := Access(42).String(); s != "Access(42)" {
		t.Errorf("String() = %q", s)
	}
}

func TestRegionContains(t *testing.T) {
	r := Region{Base: 0x20000000, Size: 0x1000}

	tests := []struct {
		addr uint32
		in   bool
		sub  uint8
	}{
		{0x20000000, true, 0},
		{0x200001FF, true, 0},
		{0x20000200, true, 1},
		{0x20000FFF, true, 7},
		{0x20001000, false, 0},
		{0x1FFFFFFF, false, 0},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.addr); got != tt.in {
			t.Errorf("Contains(%08x) = %t, want %t", tt.addr, got, tt.in)
			continue
		}
		if tt.in {
			if got := r.Subregion(tt.addr); got != tt.sub {
				t.Errorf("Subregion(%08x) = %d, want %d", tt.addr, got, tt.sub)
			}
		}
	}

	// region ending at the top of the address space
	top := Region{Base: 0xFFFF8000, Size: 0x8000}
	if !top.Contains(0xFFFFFFFF) {
		t.Errorf("top region should contain 0xFFFFFFFF")
	}
}

func TestMPUJSON(t *testing.T) {
	var m MPU
	m.Unit = Unit{Enabled: true, Background: true}
	for i := range m.Regions {
		m.Regions[i] = Region{
			Index:   uint8(i),
			Size:    1 << 15,
			SizeEnc: 14,
			AP:      0b011,
			Access:  AccessReadWrite,
			S:       true,
			C:       true,
		}
	}
	m.Regions[2] = Region{
		Index:   2,
		Base:    0x20004000,
		Size:    0x1000,
		SizeEnc: 11,
		AP:      0b110,
		Access:  AccessReadOnly,
		Exec:    true,
		SRD:     0x81,
		Enabled: true,
	}

	buf, err := json.Marshal(&m)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(buf), `"access":"ReadOnly"`) {
		t.Errorf("encoded JSON misses access name: %s", buf)
	}

	var got MPU
	if err := json.Unmarshal(buf, &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("JSON round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMPUJSONInvalid(t *testing.T) {
	var m MPU
	if err := m.UnmarshalJSON([]byte(`{"regions":[{"index":9}]}`)); err == nil {
		t.Errorf("out of range region index should fail")
	}
	if err := m.UnmarshalJSON([]byte(`{"unit":{"enabled":"yes"}}`)); err == nil {
		t.Errorf("invalid bool should fail")
	}
}

package snapshot

import (
	"fmt"

	"github.com/go-faster/jx"

	"cm3mpu/hw/hwdefs"
)

func (u Unit) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("enabled", func(e *jx.Encoder) { e.Bool(u.Enabled) })
		e.Field("background", func(e *jx.Encoder) { e.Bool(u.Background) })
		e.Field("fault_handlers", func(e *jx.Encoder) { e.Bool(u.FaultHandlers) })
	})
}

func (u *Unit) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "enabled":
			u.Enabled, err = d.Bool()
		case "background":
			u.Background, err = d.Bool()
		case "fault_handlers":
			u.FaultHandlers, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
}

func (r Region) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("index", func(e *jx.Encoder) { e.UInt8(r.Index) })
		e.Field("base", func(e *jx.Encoder) { e.UInt32(r.Base) })
		e.Field("size", func(e *jx.Encoder) { e.UInt32(r.Size) })
		e.Field("size_enc", func(e *jx.Encoder) { e.UInt8(r.SizeEnc) })
		e.Field("ap", func(e *jx.Encoder) { e.UInt8(r.AP) })
		e.Field("access", func(e *jx.Encoder) { e.Str(r.Access.String()) })
		e.Field("exec", func(e *jx.Encoder) { e.Bool(r.Exec) })
		e.Field("srd", func(e *jx.Encoder) { e.UInt8(r.SRD) })
		e.Field("tex", func(e *jx.Encoder) { e.UInt8(r.TEX) })
		e.Field("s", func(e *jx.Encoder) { e.Bool(r.S) })
		e.Field("c", func(e *jx.Encoder) { e.Bool(r.C) })
		e.Field("b", func(e *jx.Encoder) { e.Bool(r.B) })
		e.Field("enabled", func(e *jx.Encoder) { e.Bool(r.Enabled) })
	})
}

// Decode decodes a region. The access field is informational only: Access
// is always derived from AP.
func (r *Region) Decode(d *jx.Decoder) error {
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "index":
			r.Index, err = d.UInt8()
		case "base":
			r.Base, err = d.UInt32()
		case "size":
			r.Size, err = d.UInt32()
		case "size_enc":
			r.SizeEnc, err = d.UInt8()
		case "ap":
			r.AP, err = d.UInt8()
		case "exec":
			r.Exec, err = d.Bool()
		case "srd":
			r.SRD, err = d.UInt8()
		case "tex":
			r.TEX, err = d.UInt8()
		case "s":
			r.S, err = d.Bool()
		case "c":
			r.C, err = d.Bool()
		case "b":
			r.B, err = d.Bool()
		case "enabled":
			r.Enabled, err = d.Bool()
		default:
			err = d.Skip()
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if r.Index >= hwdefs.NumRegions {
		return fmt.Errorf("invalid region index %d", r.Index)
	}
	r.Access = AccessFromAP(r.AP)
	return nil
}

func (m *MPU) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("unit", m.Unit.Encode)
		e.Field("regions", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, r := range m.Regions {
					r.Encode(e)
				}
			})
		})
	})
}

func (m *MPU) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "unit":
			return m.Unit.Decode(d)
		case "regions":
			return d.Arr(func(d *jx.Decoder) error {
				var r Region
				if err := r.Decode(d); err != nil {
					return fmt.Errorf("regions: %w", err)
				}
				m.Regions[r.Index] = r
				return nil
			})
		}
		return d.Skip()
	})
}

func (m *MPU) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	m.Encode(&e)
	return e.Bytes(), nil
}

func (m *MPU) UnmarshalJSON(data []byte) error {
	return m.Decode(jx.DecodeBytes(data))
}

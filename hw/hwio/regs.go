package hwio

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type bankReg struct {
	offset uint32
	regPtr any
}

type regTag struct {
	bank      int
	offset    uint32
	hasOffset bool
	reset     uint32
	rwmask    uint32
	hasRWMask bool
	size      uint32
	flags     RWFlags
	rcb       string
	wcb       string
	pcb       string
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	return uint32(v), err
}

func parseRegTag(field, tag string) (regTag, error) {
	var rt regTag
	for _, opt := range strings.Split(tag, ",") {
		key, val, hasVal := strings.Cut(strings.TrimSpace(opt), "=")
		var err error
		switch key {
		case "bank":
			rt.bank, err = strconv.Atoi(val)
		case "offset":
			rt.offset, err = parseUint32(val)
			rt.hasOffset = true
		case "reset":
			rt.reset, err = parseUint32(val)
		case "rwmask":
			rt.rwmask, err = parseUint32(val)
			rt.hasRWMask = true
		case "size":
			rt.size, err = parseUint32(val)
		case "readonly":
			rt.flags |= ReadOnlyFlag
		case "writeonly":
			rt.flags |= WriteOnlyFlag
		case "rcb":
			rt.rcb = "Read" + strings.ToUpper(field)
			if hasVal {
				rt.rcb = val
			}
		case "wcb":
			rt.wcb = "Write" + strings.ToUpper(field)
			if hasVal {
				rt.wcb = val
			}
		case "pcb":
			rt.pcb = "Peek" + strings.ToUpper(field)
			if hasVal {
				rt.pcb = val
			}
		case "":
		default:
			return rt, fmt.Errorf("field %s: unknown hwio option %q", field, key)
		}
		if err != nil {
			return rt, fmt.Errorf("field %s: invalid hwio option %q: %v", field, opt, err)
		}
	}
	return rt, nil
}

// bankStruct returns the addressable struct value behind bank, which must be
// a pointer to struct.
func bankStruct(bank any) (reflect.Value, error) {
	v := reflect.ValueOf(bank)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("hwio: bank must be a pointer to struct, got %T", bank)
	}
	return v.Elem(), nil
}

func bankGetRegs(bank any, bankNum int) ([]bankReg, error) {
	sv, err := bankStruct(bank)
	if err != nil {
		return nil, err
	}

	var regs []bankReg
	st := sv.Type()
	for i := range st.NumField() {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		rt, err := parseRegTag(f.Name, tag)
		if err != nil {
			return nil, err
		}
		if !rt.hasOffset || rt.bank != bankNum {
			continue
		}
		regs = append(regs, bankReg{
			offset: rt.offset,
			regPtr: sv.Field(i).Addr().Interface(),
		})
	}
	return regs, nil
}

// InitRegs initializes all registers and devices of a bank from their "hwio"
// struct tag. Supported options:
//
//	bank=N          Ordinal bank number (default 0), see Table.MapBank.
//	offset=0x12     Byte offset of the register within the bank. Registers
//	                without offset are initialized but never mapped.
//	reset=0x800     Initial value (Reg32).
//	rwmask=0x7      Writable bits (Reg32), all others are read-only.
//	size=0x100      Size in bytes of the area (Device).
//	readonly        Writes are ignored and logged.
//	writeonly       Reads return 0 and are logged.
//	rcb[=Method]    Read callback, default method is Read<FIELDNAME>.
//	wcb[=Method]    Write callback, default method is Write<FIELDNAME>.
//	pcb[=Method]    Peek callback, default method is Peek<FIELDNAME>.
//
// Callback methods are looked up on bank itself.
func InitRegs(bank any) error {
	sv, err := bankStruct(bank)
	if err != nil {
		return err
	}
	bv := reflect.ValueOf(bank)

	method := func(name string, field string, out any) error {
		m := bv.MethodByName(name)
		if !m.IsValid() {
			return fmt.Errorf("field %s: callback method %s not found on %T", field, name, bank)
		}
		rv := reflect.ValueOf(out).Elem()
		if !m.Type().AssignableTo(rv.Type()) {
			return fmt.Errorf("field %s: callback %s has type %v, want %v", field, name, m.Type(), rv.Type())
		}
		rv.Set(m)
		return nil
	}

	st := sv.Type()
	for i := range st.NumField() {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		rt, err := parseRegTag(f.Name, tag)
		if err != nil {
			return err
		}

		switch r := sv.Field(i).Addr().Interface().(type) {
		case *Reg32:
			r.Name = f.Name
			r.Value = rt.reset
			r.Flags = rt.flags
			if rt.hasRWMask {
				r.RoMask = ^rt.rwmask
			}
			if rt.rcb != "" {
				if err := method(rt.rcb, f.Name, &r.ReadCb); err != nil {
					return err
				}
			}
			if rt.wcb != "" {
				if err := method(rt.wcb, f.Name, &r.WriteCb); err != nil {
					return err
				}
			}
			if rt.pcb != "" {
				if err := method(rt.pcb, f.Name, &r.PeekCb); err != nil {
					return err
				}
			}
		case *Device:
			if rt.size == 0 {
				return fmt.Errorf("field %s: device requires a size", f.Name)
			}
			r.Name = f.Name
			r.Size = int(rt.size)
			r.Flags = rt.flags
			if rt.rcb != "" {
				if err := method(rt.rcb, f.Name, &r.ReadCb); err != nil {
					return err
				}
			}
			if rt.wcb != "" {
				if err := method(rt.wcb, f.Name, &r.WriteCb); err != nil {
					return err
				}
			}
			if rt.pcb != "" {
				if err := method(rt.pcb, f.Name, &r.PeekCb); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("field %s: invalid reg type %s", f.Name, f.Type)
		}
	}
	return nil
}

// MustInitRegs is like InitRegs but panics on error.
func MustInitRegs(bank any) {
	if err := InitRegs(bank); err != nil {
		panic(err)
	}
}

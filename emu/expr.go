package emu

import (
	"fmt"
	"strconv"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Expr is an integer layout value, written either as a TOML integer or as a
// string holding an expression over the layout symbols, e.g.
// "SRAM + 16 * KiB".
type Expr struct {
	Src string
	lit *int64
}

func Lit(v int64) Expr {
	return Expr{Src: strconv.FormatInt(v, 10), lit: &v}
}

// UnmarshalTOML implements toml.Unmarshaler.
func (e *Expr) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case int64:
		*e = Lit(x)
	case string:
		e.Src = x
		e.lit = nil
	default:
		return fmt.Errorf("expected integer or expression, got %T", v)
	}
	return nil
}

func (e Expr) IsZero() bool {
	return e.Src == "" && e.lit == nil
}

// ExprError reports an expression that doesn't evaluate to a 32-bit unsigned
// integer.
type ExprError struct {
	Src string
	Err error
}

func (err *ExprError) Error() string {
	return fmt.Sprintf("expression %q: %v", err.Src, err.Err)
}

func (err *ExprError) Unwrap() error {
	return err.Err
}

var predeclared = map[string]int64{
	"KiB": 1 << 10,
	"MiB": 1 << 20,
}

// Eval evaluates the expression with the given symbols.
func (e Expr) Eval(symbols map[string]int64) (uint32, error) {
	var v int64
	if e.lit != nil {
		v = *e.lit
	} else {
		var err error
		if v, err = evalExpr(e.Src, symbols); err != nil {
			return 0, &ExprError{Src: e.Src, Err: err}
		}
	}
	if v < 0 || v > 0xFFFFFFFF {
		return 0, &ExprError{Src: e.Src, Err: fmt.Errorf("value %d out of 32-bit range", v)}
	}
	return uint32(v), nil
}

func evalExpr(expr string, symbols map[string]int64) (int64, error) {
	pred := starlark.StringDict{}
	for key, v := range predeclared {
		pred[key] = starlark.MakeInt64(v)
	}
	for key, v := range symbols {
		pred[key] = starlark.MakeInt64(v)
	}

	thread := &starlark.Thread{Name: "layout"}
	opts := &syntax.FileOptions{}
	prog := "rc = " + expr + "\n"
	dict, err := starlark.ExecFileOptions(opts, thread, "expr", prog, pred)
	if err != nil {
		return 0, err
	}
	rc, ok := dict["rc"].(starlark.Int)
	if !ok {
		return 0, fmt.Errorf("not an integer: %v", dict["rc"])
	}
	v, ok := rc.Int64()
	if !ok {
		return 0, fmt.Errorf("integer overflow: %v", rc)
	}
	return v, nil
}

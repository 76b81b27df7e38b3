package emu

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"
)

func TestExprEval(t *testing.T) {
	symbols := map[string]int64{
		"SRAM":  0x20000000,
		"FLASH": 0x08000000,
	}

	tests := []struct {
		src  string
		want uint32
	}{
		{"0", 0},
		{"SRAM", 0x20000000},
		{"SRAM + 16 * KiB", 0x20004000},
		{"FLASH | 0x100", 0x08000100},
		{"1 << 15", 32768},
		{"MiB // 32", 32768},
		{"0xFFFFFFFF", 0xFFFFFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Expr{Src: tt.src}.Eval(symbols)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExprEvalErrors(t *testing.T) {
	tests := []string{
		"-1",
		"1 << 32",
		"1 << 80",
		"UNDEFINED",
		"'str'",
		"1 +",
		"True",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := Expr{Src: src}.Eval(nil)
			var exprErr *ExprError
			require.ErrorAs(t, err, &exprErr)
			require.Equal(t, src, exprErr.Src)
		})
	}
}

func TestExprLiteral(t *testing.T) {
	got, err := Lit(0x1000).Eval(nil)
	require.NoError(t, err)
	require.EqualValues(t, 0x1000, got)

	_, err = Lit(-32).Eval(nil)
	require.Error(t, err)

	require.True(t, Expr{}.IsZero())
	require.False(t, Lit(0).IsZero())
}

func TestExprUnmarshalTOML(t *testing.T) {
	var v struct {
		A Expr `toml:"a"`
		B Expr `toml:"b"`
	}
	_, err := toml.Decode("a = 0x400\nb = \"a + 1\"\n", &v)
	require.NoError(t, err)

	a, err := v.A.Eval(nil)
	require.NoError(t, err)
	require.EqualValues(t, 0x400, a)
	require.Equal(t, "a + 1", v.B.Src)

	_, err = toml.Decode("a = 1.5\n", &v)
	require.Error(t, err)
}

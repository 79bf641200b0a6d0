package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		in   Literal
		typ  ElementType
		want Literal
	}{
		{"int to float16", IntLiteral(2), TensorFloat16, FloatLiteral(2)},
		{"float16 rounds", FloatLiteral(0.1), Float16, FloatLiteral(0.0999755859375)},
		{"float32 rounds", FloatLiteral(0.1), TensorFloat32, FloatLiteral(float32(0.1))},
		{"int32 passes", IntLiteral(-7), TensorInt32, IntLiteral(-7)},
		{"quant8 upper bound", IntLiteral(255), TensorQuant8Asymm, IntLiteral(255)},
		{"quant16 lower bound", IntLiteral(-32768), TensorQuant16Symm, IntLiteral(-32768)},
		{"uint32 max", IntLiteral(math.MaxUint32), Uint32, IntLiteral(math.MaxUint32)},
		{"bool passes", BoolLiteral(true), TensorBool8, BoolLiteral(true)},
		{"int one to bool", IntLiteral(1), Bool, BoolLiteral(true)},
		{"int zero to bool", IntLiteral(0), TensorBool8, BoolLiteral(false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.in, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceRejects(t *testing.T) {
	tests := []struct {
		name   string
		in     Literal
		typ    ElementType
		reason string
	}{
		{"float to int", FloatLiteral(1.5), TensorInt32, "integer literal"},
		{"bool to float", BoolLiteral(true), TensorFloat32, "not a number"},
		{"quant8 overflow", IntLiteral(256), TensorQuant8Asymm, "out of range"},
		{"quant8 negative", IntLiteral(-1), TensorQuant8Asymm, "out of range"},
		{"quant16 overflow", IntLiteral(40000), TensorQuant16Symm, "out of range"},
		{"uint32 negative", IntLiteral(-1), Uint32, "out of range"},
		{"int32 overflow", IntLiteral(math.MaxInt32 + 1), Int32, "out of range"},
		{"half overflow", IntLiteral(70000), TensorFloat16, "half precision"},
		{"single overflow", FloatLiteral(1e39), Float32, "single precision"},
		{"bool from two", IntLiteral(2), Bool, "bool type"},
		{"unknown type", IntLiteral(1), ElementType(99), "unknown element type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Coerce(tt.in, tt.typ)
			var ce *CoercionError
			require.ErrorAs(t, err, &ce)
			assert.Contains(t, ce.Reason, tt.reason)
		})
	}
}

func TestCoerceHalfRoundsOnce(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		// Just above the midpoint of 1 and 1+2^-10; float32 alone would drop the tail.
		{"above midpoint", 1 + math.Ldexp(1, -11) + math.Ldexp(1, -30), 1 + math.Ldexp(1, -10)},
		{"below midpoint", 1 + math.Ldexp(1, -11) - math.Ldexp(1, -30), 1},
		{"tie to even low", 1 + math.Ldexp(1, -11), 1},
		{"tie to even high", 1 + 3*math.Ldexp(1, -11), 1 + math.Ldexp(1, -9)},
		{"negative above midpoint", -(1 + math.Ldexp(1, -11) + math.Ldexp(1, -30)), -(1 + math.Ldexp(1, -10))},
		{"largest finite", 65519.99, 65504},
		{"subnormal", math.Ldexp(1, -24) * 1.5000001, math.Ldexp(1, -23)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(FloatLiteral(tt.in), TensorFloat16)
			require.NoError(t, err)
			assert.Equal(t, FloatLiteral(tt.want), got)
		})
	}

	_, err := Coerce(FloatLiteral(65520), Float16)
	var ce *CoercionError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Reason, "half precision")
}

func TestCoerceKeepsNonFinite(t *testing.T) {
	got, err := Coerce(FloatLiteral(math.Inf(-1)), TensorFloat16)
	require.NoError(t, err)
	assert.True(t, math.IsInf(Float64(got), -1))
}

func TestLiteralFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Literal
	}{
		{"yaml int", 3, IntLiteral(3)},
		{"int64", int64(-4), IntLiteral(-4)},
		{"yaml float", 2.5, FloatLiteral(2.5)},
		{"bool", true, BoolLiteral(true)},
		{"json integer", json.Number("12"), IntLiteral(12)},
		{"json decimal", json.Number("1.0"), FloatLiteral(1)},
		{"json exponent", json.Number("1e3"), FloatLiteral(1000)},
		{"literal", FloatLiteral(7), FloatLiteral(7)},
		{"inf", "Inf", FloatLiteral(math.Inf(1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LiteralFromAny(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLiteralFromAnyRejects(t *testing.T) {
	for _, in := range []any{nil, "one", []int{1}, uint64(math.MaxUint64), json.Number("99999999999999999999")} {
		_, err := LiteralFromAny(in)
		assert.Error(t, err, "%v", in)
	}
}

func TestLiteralsFromAnyReportsIndex(t *testing.T) {
	_, err := LiteralsFromAny([]any{1, 2, "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[2]")
}

func TestFormatLiteral(t *testing.T) {
	assert.Equal(t, "3", FormatLiteral(IntLiteral(3)))
	assert.Equal(t, "0.5", FormatLiteral(FloatLiteral(0.5)))
	assert.Equal(t, "NaN", FormatLiteral(FloatLiteral(math.NaN())))
	assert.Equal(t, "false", FormatLiteral(BoolLiteral(false)))
}

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseElementType(t *testing.T) {
	for i := range elementTypes {
		want := ElementType(i)
		got, err := ParseElementType(want.String())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseElementType("TENSOR_FLOAT64")
	assert.Error(t, err)
}

func TestElementTypeCodes(t *testing.T) {
	// Operand codes are part of the wire contract with executors.
	assert.Equal(t, 0, int(Float32))
	assert.Equal(t, 5, int(TensorQuant8Asymm))
	assert.Equal(t, 8, int(TensorFloat16))
	assert.Equal(t, 10, int(Float16))
}

func TestElementTypeProperties(t *testing.T) {
	assert.True(t, Int32.IsScalar())
	assert.False(t, TensorInt32.IsScalar())
	assert.Equal(t, 2, TensorFloat16.Size())
	assert.Equal(t, 1, TensorQuant8Asymm.Size())
	assert.Equal(t, KindFloat, TensorFloat16.Kind())
	assert.Equal(t, KindBool, TensorBool8.Kind())
	assert.True(t, TensorQuant16Symm.IsQuantized())
	assert.True(t, Float16.IsHalf())
	assert.False(t, TensorFloat32.IsHalf())
	assert.Equal(t, "ElementType(42)", ElementType(42).String())
	assert.Zero(t, ElementType(-1).Size())
}

func TestScalarOf(t *testing.T) {
	assert.Equal(t, Int32, ScalarOf(IntLiteral(0).Kind()))
	assert.Equal(t, Float32, ScalarOf(FloatLiteral(0).Kind()))
	assert.Equal(t, Bool, ScalarOf(BoolLiteral(false).Kind()))
}

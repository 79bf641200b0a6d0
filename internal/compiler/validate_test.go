package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/opfixture/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateCleanFixture(t *testing.T) {
	m := loadMulBroadcast(t)
	assert.Empty(t, Validate(m))
	assert.Empty(t, Validate(*m))
}

func TestValidateFindings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *ir.Model)
		want   []string
	}{
		{"bad version", func(m *ir.Model) { m.Version = "1.2" }, []string{ErrInvalidVersion}},
		{"lower-case op", func(m *ir.Model) { m.Operation.Type = "mul" }, []string{ErrInvalidOpType}},
		{"unused input", func(m *ir.Model) {
			m.Operation.Inputs = []string{"op1", "op1", "act"}
		}, []string{ErrUnusedDeclaration}},
		{"unproduced output", func(m *ir.Model) {
			m.Outputs = append(m.Outputs, ir.TensorSpec{Name: "op4", Type: ir.TensorFloat16, Shape: ir.Shape{1}})
		}, []string{ErrUnproducedOutput}},
		{"operand type mismatch", func(m *ir.Model) { m.Inputs[1].Type = ir.TensorFloat32 }, []string{ErrOperandTypeMismatch}},
		{"fuse code out of range", func(m *ir.Model) { m.Scalars[0].Value = ir.IntLiteral(7) }, []string{ErrInvalidFusedActivate}},
		{"activation not a scalar", func(m *ir.Model) {
			m.Operation.Inputs = []string{"op1", "op2", "op2"}
		}, []string{ErrUnusedDeclaration, ErrInvalidFusedActivate}},
		{"missing activation", func(m *ir.Model) {
			m.Operation.Inputs = []string{"op1", "op2"}
			m.Scalars = nil
		}, []string{ErrInvalidFusedActivate}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := loadMulBroadcast(t)
			tt.mutate(m)
			assert.Equal(t, tt.want, codes(Validate(m)))
		})
	}
}

func TestValidateCollectsAll(t *testing.T) {
	m := loadMulBroadcast(t)
	m.Version = ""
	m.Operation.Type = "mul"
	errs := Validate(m)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "[E306] version")
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate("not a model")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedIRType, errs[0].Code)
}

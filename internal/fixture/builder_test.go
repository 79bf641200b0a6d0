package fixture

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/opfixture/internal/ir"
)

func ints(vs ...int64) []ir.Literal {
	out := make([]ir.Literal, len(vs))
	for i, v := range vs {
		out[i] = ir.IntLiteral(v)
	}
	return out
}

// mulBroadcastBuilder declares the float16 broadcast multiply model
// without examples.
func mulBroadcastBuilder(t *testing.T) *Builder {
	t.Helper()
	b := NewBuilder("mul_broadcast_float16", WithVersion("V1_2"))
	_, err := b.DeclareInput("op1", ir.TensorFloat16, ir.Shape{1, 2})
	require.NoError(t, err)
	_, err = b.DeclareInput("op2", ir.TensorFloat16, ir.Shape{2, 2})
	require.NoError(t, err)
	_, err = b.DeclareScalar("act", ir.IntLiteral(0))
	require.NoError(t, err)
	_, err = b.DeclareOutput("op3", ir.TensorFloat16, ir.Shape{2, 2})
	require.NoError(t, err)
	_, err = b.BuildOperation("MUL", []string{"op1", "op2", "act"}, []string{"op3"})
	require.NoError(t, err)
	return b
}

func TestBuildMulBroadcastFixture(t *testing.T) {
	b := mulBroadcastBuilder(t)
	_, err := b.AddExample(
		ir.Binding{"op1": ints(1, 2), "op2": ints(1, 2, 3, 4)},
		ir.Binding{"op3": ints(1, 4, 3, 8)},
	)
	require.NoError(t, err)

	m, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "mul_broadcast_float16", m.Name)
	assert.Equal(t, "V1_2", m.Version)
	require.Len(t, m.Inputs, 2)
	assert.Equal(t, ir.Shape{1, 2}, m.Inputs[0].Shape)
	assert.Equal(t, ir.Shape{2, 2}, m.Inputs[1].Shape)
	assert.Equal(t, []ir.ScalarAttribute{{Name: "act", Type: ir.Int32, Value: ir.IntLiteral(0)}}, m.Scalars)
	assert.Equal(t, []string{"op1", "op2", "act"}, m.Operation.Inputs)

	// Integer literals in a FLOAT16 fixture are stored as floats.
	ex := m.Examples[0]
	assert.Equal(t, []ir.Literal{ir.FloatLiteral(1), ir.FloatLiteral(2)}, ex.Inputs["op1"])
	assert.Equal(t, []ir.Literal{
		ir.FloatLiteral(1), ir.FloatLiteral(4), ir.FloatLiteral(3), ir.FloatLiteral(8),
	}, ex.Outputs["op3"])

	// Every bound tensor has product(shape) values.
	for _, spec := range append(m.Inputs, m.Outputs...) {
		values := ex.Inputs[spec.Name]
		if spec.Role == ir.RoleOutput {
			values = ex.Outputs[spec.Name]
		}
		assert.Len(t, values, spec.Shape.NumElements(), spec.Name)
	}
}

func TestDeclareDuplicateName(t *testing.T) {
	tests := []struct {
		name    string
		declare func(b *Builder) error
	}{
		{"input then input", func(b *Builder) error {
			_, err := b.DeclareInput("op1", ir.TensorFloat32, ir.Shape{1})
			return err
		}},
		{"input then output", func(b *Builder) error {
			_, err := b.DeclareOutput("op1", ir.TensorFloat32, ir.Shape{1})
			return err
		}},
		{"input then scalar", func(b *Builder) error {
			_, err := b.DeclareScalar("op1", ir.IntLiteral(0))
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder("dup")
			_, err := b.DeclareInput("op1", ir.TensorFloat32, ir.Shape{1})
			require.NoError(t, err)

			err = tt.declare(b)
			var dup *DuplicateNameError
			require.ErrorAs(t, err, &dup)
			assert.Equal(t, "op1", dup.Name)
			assert.Equal(t, ErrCodeDuplicateName, ErrorCode(err))
		})
	}
}

func TestBuildOperationUnresolved(t *testing.T) {
	tests := []struct {
		name    string
		inputs  []string
		outputs []string
		missing string
	}{
		{"undeclared input", []string{"op1", "nope"}, []string{"op3"}, "nope"},
		{"output used as input", []string{"op3"}, []string{"op3"}, "op3"},
		{"undeclared output", []string{"op1"}, []string{"op9"}, "op9"},
		{"input used as output", []string{"op1"}, []string{"op1"}, "op1"},
		{"scalar used as output", []string{"op1"}, []string{"act"}, "act"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder("unresolved")
			_, err := b.DeclareInput("op1", ir.TensorInt32, ir.Shape{2})
			require.NoError(t, err)
			_, err = b.DeclareScalar("act", ir.IntLiteral(0))
			require.NoError(t, err)
			_, err = b.DeclareOutput("op3", ir.TensorInt32, ir.Shape{2})
			require.NoError(t, err)

			_, err = b.BuildOperation("ADD", tt.inputs, tt.outputs)
			var ure *UnresolvedReferenceError
			require.ErrorAs(t, err, &ure)
			assert.Equal(t, tt.missing, ure.Name)

			// Nothing is registered on failure.
			_, err = b.Build()
			assert.Equal(t, ErrCodeIncompleteFixture, ErrorCode(err))
		})
	}
}

func TestBuildOperationTwice(t *testing.T) {
	b := mulBroadcastBuilder(t)
	_, err := b.BuildOperation("ADD", []string{"op1", "op2", "act"}, []string{"op3"})
	assert.Equal(t, ErrCodeInvalidDeclaration, ErrorCode(err))
}

func TestBuildOperationRequiresOutputs(t *testing.T) {
	b := NewBuilder("no_outputs")
	_, err := b.BuildOperation("MUL", nil, nil)
	assert.Equal(t, ErrCodeInvalidDeclaration, ErrorCode(err))

	_, err = b.BuildOperation("", nil, []string{"x"})
	assert.Equal(t, ErrCodeInvalidDeclaration, ErrorCode(err))
}

func TestAddExampleShapeMismatch(t *testing.T) {
	b := mulBroadcastBuilder(t)
	_, err := b.AddExample(
		ir.Binding{"op1": ints(1, 2, 3), "op2": ints(1, 2, 3, 4)},
		ir.Binding{"op3": ints(1, 4, 3, 8)},
	)

	var sme *ShapeMismatchError
	require.ErrorAs(t, err, &sme)
	assert.Equal(t, "op1", sme.Name)
	assert.Equal(t, 2, sme.Want)
	assert.Equal(t, 3, sme.Got)
	assert.Contains(t, err.Error(), "{1, 2}")
}

func TestAddExampleUnresolvedBinding(t *testing.T) {
	b := mulBroadcastBuilder(t)

	_, err := b.AddExample(
		ir.Binding{"op1": ints(1, 2), "op2": ints(1, 2, 3, 4), "op7": ints(1)},
		ir.Binding{"op3": ints(1, 4, 3, 8)},
	)
	var ure *UnresolvedReferenceError
	require.ErrorAs(t, err, &ure)
	assert.Equal(t, "op7", ure.Name)

	// Outputs cannot be bound as inputs.
	_, err = b.AddExample(
		ir.Binding{"op1": ints(1, 2), "op2": ints(1, 2, 3, 4), "op3": ints(1, 4, 3, 8)},
		ir.Binding{"op3": ints(1, 4, 3, 8)},
	)
	require.ErrorAs(t, err, &ure)
	assert.Equal(t, "op3", ure.Name)
}

func TestAddExampleMissingBinding(t *testing.T) {
	b := mulBroadcastBuilder(t)
	_, err := b.AddExample(
		ir.Binding{"op1": ints(1, 2)},
		ir.Binding{"op3": ints(1, 4, 3, 8)},
	)
	var inc *IncompleteFixtureError
	require.ErrorAs(t, err, &inc)
	assert.Contains(t, inc.Reason, `"op2"`)
}

func TestAddExampleTypeMismatch(t *testing.T) {
	b := NewBuilder("quant")
	_, err := b.DeclareInput("in", ir.TensorQuant8Asymm, ir.Shape{2}, WithQuantization(0.5, 128))
	require.NoError(t, err)
	_, err = b.DeclareOutput("out", ir.TensorInt32, ir.Shape{1})
	require.NoError(t, err)

	_, err = b.AddExample(ir.Binding{"in": ints(0, 300)}, ir.Binding{"out": ints(1)})
	var tme *TypeMismatchError
	require.ErrorAs(t, err, &tme)
	assert.Equal(t, "in", tme.Name)
	assert.Equal(t, 1, tme.Index)

	var ce *ir.CoercionError
	assert.True(t, errors.As(err, &ce), "coercion cause is wrapped")

	_, err = b.AddExample(
		ir.Binding{"in": ints(0, 1)},
		ir.Binding{"out": {ir.FloatLiteral(1.5)}},
	)
	assert.Equal(t, ErrCodeTypeMismatch, ErrorCode(err))
}

func TestDeclareTensorValidation(t *testing.T) {
	tests := []struct {
		name  string
		typ   ir.ElementType
		shape ir.Shape
		opts  []TensorOption
	}{
		{"zero dimension", ir.TensorFloat32, ir.Shape{2, 0}, nil},
		{"tensor without dimensions", ir.TensorInt32, ir.Shape{}, nil},
		{"scalar with dimensions", ir.Int32, ir.Shape{1}, nil},
		{"unknown type", ir.ElementType(42), ir.Shape{1}, nil},
		{"quant8 zero point", ir.TensorQuant8Asymm, ir.Shape{1}, []TensorOption{WithQuantization(1, 256)}},
		{"quant8 scale", ir.TensorQuant8Asymm, ir.Shape{1}, []TensorOption{WithQuantization(0, 0)}},
		{"quant16 zero point", ir.TensorQuant16Symm, ir.Shape{1}, []TensorOption{WithQuantization(1, 3)}},
		{"float with scale", ir.TensorFloat32, ir.Shape{1}, []TensorOption{WithQuantization(0.5, 0)}},
		{"quant8 NaN scale", ir.TensorQuant8Asymm, ir.Shape{1}, []TensorOption{WithQuantization(math.NaN(), 0)}},
		{"quant8 infinite scale", ir.TensorQuant8Asymm, ir.Shape{1}, []TensorOption{WithQuantization(math.Inf(1), 0)}},
		{"quant16 NaN scale", ir.TensorQuant16Symm, ir.Shape{1}, []TensorOption{WithQuantization(math.NaN(), 0)}},
		{"quant16 infinite scale", ir.TensorQuant16Symm, ir.Shape{1}, []TensorOption{WithQuantization(math.Inf(1), 0)}},
		{"element count overflow", ir.TensorFloat32, ir.Shape{1 << 32, 1 << 32}, nil},
		{"byte size overflow", ir.TensorFloat32, ir.Shape{math.MaxInt / 2}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder("decl")
			_, err := b.DeclareInput("x", tt.typ, tt.shape, tt.opts...)
			var ide *InvalidDeclarationError
			require.ErrorAs(t, err, &ide)
			assert.Equal(t, "x", ide.Name)

			// The name stays free after a failed declaration.
			_, err = b.DeclareInput("x", ir.TensorFloat32, ir.Shape{1})
			assert.NoError(t, err)
		})
	}
}

func TestDeclareRejectsNonNFCNames(t *testing.T) {
	decomposed := "caf" + "e\u0301"
	composed := "caf\u00e9"

	b := NewBuilder("nfc")
	_, err := b.DeclareInput(decomposed, ir.TensorFloat32, ir.Shape{1})
	var ide *InvalidDeclarationError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, decomposed, ide.Name)
	assert.Equal(t, ErrCodeInvalidDeclaration, ErrorCode(err))

	_, err = b.DeclareScalar(decomposed, ir.IntLiteral(0))
	assert.Equal(t, ErrCodeInvalidDeclaration, ErrorCode(err))

	_, err = b.DeclareInput(composed, ir.TensorFloat32, ir.Shape{1})
	require.NoError(t, err)
	_, err = b.DeclareOutput("out", ir.TensorFloat32, ir.Shape{1})
	require.NoError(t, err)

	_, err = b.BuildOperation("RELU"+"\u0301", []string{composed}, []string{"out"})
	assert.Equal(t, ErrCodeInvalidDeclaration, ErrorCode(err))
	_, err = b.BuildOperation("RELU", []string{composed}, []string{"out"})
	require.NoError(t, err)
}

func TestNewBuilderNormalizesFixtureName(t *testing.T) {
	b := NewBuilder("caf" + "e\u0301")
	_, err := b.DeclareInput("in", ir.TensorFloat32, ir.Shape{1})
	require.NoError(t, err)
	_, err = b.DeclareOutput("out", ir.TensorFloat32, ir.Shape{1})
	require.NoError(t, err)
	_, err = b.BuildOperation("RELU", []string{"in"}, []string{"out"})
	require.NoError(t, err)
	_, err = b.AddExample(ir.Binding{"in": ints(1)}, ir.Binding{"out": ints(1)})
	require.NoError(t, err)

	m, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", m.Name)
}

func TestDeclareQuantizedTensors(t *testing.T) {
	b := NewBuilder("quant")
	spec, err := b.DeclareInput("q8", ir.TensorQuant8Asymm, ir.Shape{4}, WithQuantization(0.25, 100))
	require.NoError(t, err)
	assert.Equal(t, 0.25, spec.Scale)
	assert.Equal(t, int64(100), spec.ZeroPoint)
	assert.Equal(t, 4, spec.ByteSize())

	_, err = b.DeclareOutput("q16", ir.TensorQuant16Symm, ir.Shape{2}, WithQuantization(0.125, 0))
	require.NoError(t, err)
}

func TestDeclareScalarTypes(t *testing.T) {
	b := NewBuilder("scalars")

	s, err := b.DeclareScalar("f", ir.FloatLiteral(0.5))
	require.NoError(t, err)
	assert.Equal(t, ir.Float32, s.Type)

	s, err = b.DeclareScalar("flag", ir.BoolLiteral(true))
	require.NoError(t, err)
	assert.Equal(t, ir.Bool, s.Type)

	s, err = b.DeclareTypedScalar("h", ir.Float16, ir.IntLiteral(3))
	require.NoError(t, err)
	assert.Equal(t, ir.FloatLiteral(3), s.Value)

	_, err = b.DeclareTypedScalar("t", ir.TensorInt32, ir.IntLiteral(3))
	assert.Equal(t, ErrCodeInvalidDeclaration, ErrorCode(err))

	_, err = b.DeclareTypedScalar("u", ir.Uint32, ir.IntLiteral(-1))
	assert.Equal(t, ErrCodeTypeMismatch, ErrorCode(err))

	_, err = b.DeclareScalar("nil", nil)
	assert.Equal(t, ErrCodeInvalidDeclaration, ErrorCode(err))

	_, err = b.DeclareScalar("", ir.IntLiteral(0))
	assert.Equal(t, ErrCodeInvalidDeclaration, ErrorCode(err))
}

func TestBuildIncomplete(t *testing.T) {
	_, err := NewBuilder("empty").Build()
	var inc *IncompleteFixtureError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, "no operation declared", inc.Reason)

	_, err = mulBroadcastBuilder(t).Build()
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, "no examples", inc.Reason)
}

func TestBuiltModelIsIsolated(t *testing.T) {
	b := mulBroadcastBuilder(t)
	in := ir.Binding{"op1": ints(1, 2), "op2": ints(1, 2, 3, 4)}
	_, err := b.AddExample(in, ir.Binding{"op3": ints(1, 4, 3, 8)})
	require.NoError(t, err)

	m, err := b.Build()
	require.NoError(t, err)

	// Mutating caller data or continuing to build does not leak into the model.
	in["op1"][0] = ir.IntLiteral(99)
	_, err = b.AddExample(
		ir.Binding{"op1": ints(2, 2), "op2": ints(1, 1, 1, 1)},
		ir.Binding{"op3": ints(2, 2, 2, 2)},
	)
	require.NoError(t, err)

	assert.Len(t, m.Examples, 1)
	assert.Equal(t, ir.FloatLiteral(1), m.Examples[0].Inputs["op1"][0])
}

func TestBuildersAreIndependent(t *testing.T) {
	var wg sync.WaitGroup
	models := make([]*ir.Model, 8)
	errs := make([]error, 8)

	for i := range models {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := NewBuilder(fmt.Sprintf("fixture_%d", i))
			if _, err := b.DeclareInput("x", ir.TensorInt32, ir.Shape{1}); err != nil {
				errs[i] = err
				return
			}
			if _, err := b.DeclareOutput("y", ir.TensorInt32, ir.Shape{1}); err != nil {
				errs[i] = err
				return
			}
			if _, err := b.BuildOperation("RELU", []string{"x"}, []string{"y"}); err != nil {
				errs[i] = err
				return
			}
			if _, err := b.AddExample(ir.Binding{"x": ints(int64(i))}, ir.Binding{"y": ints(int64(i))}); err != nil {
				errs[i] = err
				return
			}
			models[i], errs[i] = b.Build()
		}(i)
	}
	wg.Wait()

	for i, m := range models {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("fixture_%d", i), m.Name)
		assert.Equal(t, ir.IntLiteral(i), m.Examples[0].Inputs["x"][0])
	}
}

func TestWithRelaxedAndDefaultVersion(t *testing.T) {
	b := NewBuilder("r", WithRelaxed(true))
	assert.True(t, b.model.Relaxed)
	assert.Equal(t, ir.DefaultHALVersion, b.model.Version)
	assert.Equal(t, "r", b.Name())
}

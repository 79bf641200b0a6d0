package testutil

import (
	"github.com/roach88/opfixture/internal/fixture"
	"github.com/roach88/opfixture/internal/ir"
)

// Literals converts float values to literals.
func Literals(values ...float64) []ir.Literal {
	out := make([]ir.Literal, len(values))
	for i, v := range values {
		out[i] = ir.FloatLiteral(v)
	}
	return out
}

// MulBroadcastFloat16 builds the float16 broadcast multiply fixture:
// op1 {1, 2} = [1, 2] times op2 {2, 2} = [1, 2, 3, 4] with no fused
// activation gives op3 {2, 2} = [1, 4, 3, 8].
// Panics if the builder rejects it.
func MulBroadcastFloat16() *ir.Model {
	b := fixture.NewBuilder("mul_broadcast_float16", fixture.WithVersion("V1_2"))
	must(b.DeclareInput("op1", ir.TensorFloat16, ir.Shape{1, 2}))
	must(b.DeclareInput("op2", ir.TensorFloat16, ir.Shape{2, 2}))
	must(b.DeclareScalar("act", ir.IntLiteral(0)))
	must(b.DeclareOutput("op3", ir.TensorFloat16, ir.Shape{2, 2}))
	must(b.BuildOperation("MUL", []string{"op1", "op2", "act"}, []string{"op3"}))
	must(b.AddExample(
		ir.Binding{"op1": Literals(1, 2), "op2": Literals(1, 2, 3, 4)},
		ir.Binding{"op3": Literals(1, 4, 3, 8)},
	))
	return must(b.Build())
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

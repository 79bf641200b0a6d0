package harness

import (
	"context"
	"fmt"

	"github.com/roach88/opfixture/internal/ir"
)

// broadcastMul is a reference MUL for tests: NumPy-style broadcasting of
// the first two operation inputs into the first output's shape.
func broadcastMul(_ context.Context, m *ir.Model, inputs ir.Binding) (ir.Binding, error) {
	if len(m.Operation.Inputs) < 2 || len(m.Outputs) == 0 {
		return nil, fmt.Errorf("MUL needs two inputs and an output")
	}
	a, ok := m.Input(m.Operation.Inputs[0])
	if !ok {
		return nil, fmt.Errorf("unknown input %q", m.Operation.Inputs[0])
	}
	b, ok := m.Input(m.Operation.Inputs[1])
	if !ok {
		return nil, fmt.Errorf("unknown input %q", m.Operation.Inputs[1])
	}
	out := m.Outputs[0]
	av, bv := inputs[a.Name], inputs[b.Name]

	coords := make([]int, out.Shape.Rank())
	result := make([]ir.Literal, out.NumElements())
	for i := range result {
		rem := i
		for d := len(coords) - 1; d >= 0; d-- {
			coords[d] = rem % out.Shape[d]
			rem /= out.Shape[d]
		}
		x := ir.Float64(av[broadcastIndex(coords, a.Shape)])
		y := ir.Float64(bv[broadcastIndex(coords, b.Shape)])
		result[i] = ir.FloatLiteral(x * y)
	}
	return ir.Binding{out.Name: result}, nil
}

// broadcastIndex maps output coordinates to a flat index into a tensor of
// the given (right-aligned, size-1-stretched) shape.
func broadcastIndex(coords []int, shape ir.Shape) int {
	offset := len(coords) - len(shape)
	idx := 0
	for d, dim := range shape {
		c := coords[offset+d]
		if dim == 1 {
			c = 0
		}
		idx = idx*dim + c
	}
	return idx
}

// offByOne wraps an executor and adds 1 to the last value of every output.
func offByOne(inner ExecutorFunc) ExecutorFunc {
	return func(ctx context.Context, m *ir.Model, inputs ir.Binding) (ir.Binding, error) {
		out, err := inner(ctx, m, inputs)
		if err != nil {
			return nil, err
		}
		for name, values := range out {
			last := len(values) - 1
			values[last] = ir.FloatLiteral(ir.Float64(values[last]) + 1)
			out[name] = values
		}
		return out, nil
	}
}

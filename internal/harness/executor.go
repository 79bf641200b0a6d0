package harness

import (
	"context"

	"github.com/roach88/opfixture/internal/ir"
)

// Executor is the operator implementation under test. Given a fixture and
// one example's inputs, it returns the outputs it computed, keyed by output
// tensor name.
type Executor interface {
	Execute(ctx context.Context, m *ir.Model, inputs ir.Binding) (ir.Binding, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, m *ir.Model, inputs ir.Binding) (ir.Binding, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, m *ir.Model, inputs ir.Binding) (ir.Binding, error) {
	return f(ctx, m, inputs)
}

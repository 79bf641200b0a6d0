// Package fixture interprets operator test-fixture declarations.
//
// A fixture is built through an explicit Builder: tensors and scalar
// attributes are declared first, then the single operation that consumes
// them, then one or more worked examples binding literal data to every
// declared tensor. Every step validates eagerly and fails with a typed
// error; nothing is registered on failure.
//
//	b := fixture.NewBuilder("mul_broadcast_float16", fixture.WithVersion("V1_2"))
//	b.DeclareInput("op1", ir.TensorFloat16, ir.Shape{1, 2})
//	...
//	model, err := b.Build()
//
// Build returns an immutable *ir.Model; the builder keeps no global state,
// so independent fixtures can be interpreted concurrently.
package fixture

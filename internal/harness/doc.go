// Package harness runs fixture examples against an external operator
// implementation and judges its outputs.
//
// The harness never computes operator results itself. An Executor receives
// a fixture's topology and one example's inputs and returns the outputs it
// computed; the harness compares them with the example's expected outputs
// using the comparison policy below and records a deterministic trace.
//
// # Comparison Policy
//
//   - INT32, UINT32, BOOL, TENSOR_INT32, TENSOR_BOOL8: exact
//   - TENSOR_QUANT8_ASYMM, TENSOR_QUANT16_SYMM: integer distance of at most 1
//   - float types: |actual - expected| <= atol + rtol*|expected|, with
//     atol = rtol = 1e-5 for FLOAT32 and 5*2^-10 for FLOAT16 and relaxed
//     FLOAT32. NaN matches only NaN; infinities match exactly.
//
// # Executor Protocol
//
// ExecExecutor runs a command once per example. It writes a canonical JSON
// request to the command's stdin:
//
//	{"fixture": {...topology...}, "inputs": {"op1": [1,2], ...}, "operation": "MUL"}
//
// and reads the computed outputs from stdout:
//
//	{"outputs": {"op3": [1,4,3,8]}}
//
// A response may carry {"error": "..."} instead, which fails the example.
//
// # Suites
//
// A suite file groups a fixtures directory with the executor command and
// tolerance overrides:
//
//	name: nnapi-cpu
//	fixtures: ./fixtures
//	executor: [./bin/run-op, --device, cpu]
//	tolerance: {atol: 1e-3, rtol: 1e-3}
//	skip: [mul_broadcast_*]
//
// # Deterministic Testing
//
// Every example result is stamped with a seq from the run's Clock.
// RunWithGolden uses testutil.DeterministicClock so traces are identical
// across runs and can be compared with goldie snapshots.
package harness

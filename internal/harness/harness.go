package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/opfixture/internal/ir"
)

// Options configures a run. A nil *Options uses defaults.
type Options struct {
	// Tolerance overrides the per-type float tolerance.
	Tolerance *Tolerance

	// Logger receives per-example diagnostics. Defaults to discarding.
	Logger *slog.Logger

	// Clock stamps example results. Defaults to a fresh SeqClock.
	Clock Clock
}

// ExampleResult is the outcome of one worked example.
type ExampleResult struct {
	Index      int        `json:"index"`
	Pass       bool       `json:"pass"`
	Outputs    ir.Binding `json:"outputs,omitempty"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
	Error      string     `json:"error,omitempty"`
	Seq        int64      `json:"seq"`
}

// Result is the outcome of running every example of a fixture.
type Result struct {
	Fixture   string          `json:"fixture"`
	FixtureID string          `json:"fixture_id"`
	Pass      bool            `json:"pass"`
	Examples  []ExampleResult `json:"examples"`
	Errors    []string        `json:"errors,omitempty"`
}

// Failures counts the examples that did not pass.
func (r *Result) Failures() int {
	n := 0
	for _, ex := range r.Examples {
		if !ex.Pass {
			n++
		}
	}
	return n
}

// addError records a failure message and marks the result as failed.
func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Run executes every example of m through exec, in order, and compares
// the outputs. Executor failures fail the example, not the run; Run
// returns an error only when the run itself cannot proceed (context
// cancelled, fixture not serializable).
func Run(ctx context.Context, m *ir.Model, exec Executor, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := opts.Clock
	if clock == nil {
		clock = NewSeqClockAt(0)
	}

	id, err := ir.FixtureID(m)
	if err != nil {
		return nil, fmt.Errorf("fixture %q: %w", m.Name, err)
	}

	result := &Result{
		Fixture:   m.Name,
		FixtureID: id,
		Pass:      true,
		Examples:  []ExampleResult{},
	}
	logger = logger.With("fixture", m.Name, "fixture_id", id[:12])

	for i, ex := range m.Examples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		er := runExample(ctx, m, exec, opts.Tolerance, i, ex)
		er.Seq = clock.Next()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if er.Pass {
			logger.Debug("example passed", "index", i, "seq", er.Seq)
		} else {
			logger.Info("example failed",
				"index", i,
				"seq", er.Seq,
				"mismatches", len(er.Mismatches),
				"error", er.Error,
			)
			for _, mm := range er.Mismatches {
				result.addError(fmt.Sprintf("example %d: %s", i, mm))
			}
			if er.Error != "" {
				result.addError(fmt.Sprintf("example %d: %s", i, er.Error))
			}
		}
		result.Examples = append(result.Examples, er)
	}

	return result, nil
}

func runExample(ctx context.Context, m *ir.Model, exec Executor, tol *Tolerance, index int, ex ir.Example) ExampleResult {
	er := ExampleResult{Index: index}

	actual, err := exec.Execute(ctx, m, ex.Inputs.Clone())
	if err != nil {
		er.Error = err.Error()
		return er
	}
	er.Outputs = actual

	for _, spec := range m.Outputs {
		got, ok := actual[spec.Name]
		if !ok {
			er.Mismatches = append(er.Mismatches, Mismatch{Tensor: spec.Name, Index: -1, Reason: "output missing"})
			continue
		}
		er.Mismatches = append(er.Mismatches, Compare(spec, m.Relaxed, tol, ex.Outputs[spec.Name], got)...)
	}
	for _, name := range ir.SortedKeys(actual) {
		if !slices.ContainsFunc(m.Outputs, func(t ir.TensorSpec) bool { return t.Name == name }) {
			er.Mismatches = append(er.Mismatches, Mismatch{Tensor: name, Index: -1, Reason: "not a declared output"})
		}
	}

	er.Pass = len(er.Mismatches) == 0
	return er
}

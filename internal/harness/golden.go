package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/opfixture/internal/ir"
	"github.com/roach88/opfixture/internal/testutil"
)

// TraceSnapshot captures the observable outcome of a run.
// Seq values and the fixture ID are left out so that editing a fixture's
// metadata does not churn every golden file.
type TraceSnapshot struct {
	Fixture  string          `json:"fixture"`
	Pass     bool            `json:"pass"`
	Examples []ExampleResult `json:"examples"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	examples := make([]any, len(s.Examples))
	for i, ex := range s.Examples {
		m := map[string]any{
			"index": ex.Index,
			"pass":  ex.Pass,
		}
		if ex.Outputs != nil {
			m["outputs"] = ex.Outputs
		}
		if len(ex.Mismatches) > 0 {
			mismatches := make([]any, len(ex.Mismatches))
			for j, mm := range ex.Mismatches {
				mismatches[j] = mm.String()
			}
			m["mismatches"] = mismatches
		}
		if ex.Error != "" {
			m["error"] = ex.Error
		}
		examples[i] = m
	}

	return map[string]any{
		"fixture":  s.Fixture,
		"pass":     s.Pass,
		"examples": examples,
	}
}

// RunWithGolden runs a fixture with a deterministic clock and compares the
// trace against testdata/golden/{fixture name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the run fails to execute.
// Test failure (via goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, m *ir.Model, exec Executor) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), m, exec, &Options{Clock: testutil.NewDeterministicClock()})
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, m.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the fixture.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		Fixture:  result.Fixture,
		Pass:     result.Pass,
		Examples: result.Examples,
	}
	traceJSON, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)

	return nil
}

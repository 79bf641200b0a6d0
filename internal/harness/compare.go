package harness

import (
	"fmt"
	"math"

	"github.com/x448/float16"

	"github.com/roach88/opfixture/internal/ir"
)

// Tolerance bounds float comparison: |actual - expected| <= Atol + Rtol*|expected|.
type Tolerance struct {
	Atol float64 `yaml:"atol" json:"atol"`
	Rtol float64 `yaml:"rtol" json:"rtol"`
}

// halfEpsilon is 2^-10, the spacing of half-precision values in [1, 2).
var halfEpsilon = float64(float16.Frombits(0x1400).Float32())

// DefaultTolerance returns the float tolerance for element type t.
// Half precision types and relaxed fixtures get 5 half-precision ulps;
// everything else gets 1e-5.
func DefaultTolerance(t ir.ElementType, relaxed bool) Tolerance {
	if t.IsHalf() || relaxed {
		return Tolerance{Atol: 5 * halfEpsilon, Rtol: 5 * halfEpsilon}
	}
	return Tolerance{Atol: 1e-5, Rtol: 1e-5}
}

// Mismatch describes one output value that failed comparison.
// Index is -1 when the whole tensor is at fault (missing, wrong length).
type Mismatch struct {
	Tensor   string     `json:"tensor"`
	Index    int        `json:"index"`
	Expected ir.Literal `json:"expected,omitempty"`
	Actual   ir.Literal `json:"actual,omitempty"`
	Reason   string     `json:"reason"`
}

func (m Mismatch) String() string {
	if m.Index < 0 {
		return fmt.Sprintf("%s: %s", m.Tensor, m.Reason)
	}
	return fmt.Sprintf("%s[%d]: expected %s, got %s (%s)",
		m.Tensor, m.Index, ir.FormatLiteral(m.Expected), ir.FormatLiteral(m.Actual), m.Reason)
}

// Compare checks actual against expected for one output tensor.
// override, if non-nil, replaces the default float tolerance.
func Compare(spec ir.TensorSpec, relaxed bool, override *Tolerance, expected, actual []ir.Literal) []Mismatch {
	if len(actual) != len(expected) {
		return []Mismatch{{
			Tensor: spec.Name,
			Index:  -1,
			Reason: fmt.Sprintf("expected %d values, got %d", len(expected), len(actual)),
		}}
	}

	tol := DefaultTolerance(spec.Type, relaxed)
	if override != nil {
		tol = *override
	}

	var out []Mismatch
	for i := range expected {
		if reason, ok := compareValue(spec.Type, tol, expected[i], actual[i]); !ok {
			out = append(out, Mismatch{
				Tensor:   spec.Name,
				Index:    i,
				Expected: expected[i],
				Actual:   actual[i],
				Reason:   reason,
			})
		}
	}
	return out
}

func compareValue(t ir.ElementType, tol Tolerance, expected, actual ir.Literal) (string, bool) {
	if actual == nil {
		return "missing value", false
	}
	e, a := ir.Float64(expected), ir.Float64(actual)

	switch t.Kind() {
	case ir.KindFloat:
		switch {
		case math.IsNaN(e):
			return "expected NaN", math.IsNaN(a)
		case math.IsInf(e, 0) || math.IsInf(a, 0) || math.IsNaN(a):
			return "non-finite mismatch", e == a
		}
		limit := tol.Atol + tol.Rtol*math.Abs(e)
		diff := math.Abs(a - e)
		return fmt.Sprintf("|diff| %g > %g", diff, limit), diff <= limit

	case ir.KindInt:
		if t.IsQuantized() {
			return "off by more than 1", math.Abs(a-e) <= 1
		}
		return "not equal", a == e

	default:
		return "not equal", a == e
	}
}

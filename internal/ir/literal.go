package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/x448/float16"
)

// Literal is a sealed interface representing a fixture value.
// Only IntLiteral, FloatLiteral, and BoolLiteral implement this.
type Literal interface {
	literal() // Sealed - only these types implement it
	Kind() LiteralKind
}

// IntLiteral is an integer literal.
type IntLiteral int64

func (IntLiteral) literal() {}

// Kind implements Literal.
func (IntLiteral) Kind() LiteralKind { return KindInt }

// FloatLiteral is a floating-point literal.
// Values bound to half or single precision types are stored already rounded.
type FloatLiteral float64

func (FloatLiteral) literal() {}

// Kind implements Literal.
func (FloatLiteral) Kind() LiteralKind { return KindFloat }

// BoolLiteral is a boolean literal.
type BoolLiteral bool

func (BoolLiteral) literal() {}

// Kind implements Literal.
func (BoolLiteral) Kind() LiteralKind { return KindBool }

// Float64 returns the numeric value of a literal (bools map to 0 and 1).
func Float64(l Literal) float64 {
	switch v := l.(type) {
	case IntLiteral:
		return float64(v)
	case FloatLiteral:
		return float64(v)
	case BoolLiteral:
		if v {
			return 1
		}
		return 0
	default:
		return math.NaN()
	}
}

// FormatLiteral renders a literal the way it appears in canonical JSON.
func FormatLiteral(l Literal) string {
	switch v := l.(type) {
	case IntLiteral:
		return strconv.FormatInt(int64(v), 10)
	case FloatLiteral:
		s, err := formatCanonicalFloat(float64(v))
		if err != nil {
			return strconv.FormatFloat(float64(v), 'g', -1, 64)
		}
		return s
	case BoolLiteral:
		return strconv.FormatBool(bool(v))
	default:
		return fmt.Sprintf("%v", l)
	}
}

// CoercionError reports a literal that cannot be represented in an element type.
type CoercionError struct {
	Type   ElementType
	Value  Literal
	Reason string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot represent %s as %s: %s", FormatLiteral(e.Value), e.Type, e.Reason)
}

// integer bounds per element type
var intRanges = map[ElementType][2]int64{
	Int32:             {math.MinInt32, math.MaxInt32},
	TensorInt32:       {math.MinInt32, math.MaxInt32},
	Uint32:            {0, math.MaxUint32},
	TensorQuant8Asymm: {0, math.MaxUint8},
	TensorQuant16Symm: {math.MinInt16, math.MaxInt16},
}

// Coerce converts a literal to the representation of element type t.
//
// Rules:
//   - float types accept ints and floats; values are rounded to the storage
//     precision (half precision via IEEE 754 binary16, single via float32)
//   - integer types accept ints within the type's range; floats are rejected
//   - bool types accept bools and the ints 0 and 1
func Coerce(l Literal, t ElementType) (Literal, error) {
	if l == nil {
		return nil, &CoercionError{Type: t, Value: IntLiteral(0), Reason: "missing value"}
	}
	if !t.Valid() {
		return nil, &CoercionError{Type: t, Value: l, Reason: "unknown element type"}
	}

	switch t.Kind() {
	case KindFloat:
		var f float64
		switch v := l.(type) {
		case IntLiteral:
			f = float64(v)
		case FloatLiteral:
			f = float64(v)
		default:
			return nil, &CoercionError{Type: t, Value: l, Reason: "bool is not a number"}
		}
		return roundFloat(f, t, l)

	case KindInt:
		v, ok := l.(IntLiteral)
		if !ok {
			return nil, &CoercionError{Type: t, Value: l, Reason: "integer type requires an integer literal"}
		}
		if r, bounded := intRanges[t]; bounded && (int64(v) < r[0] || int64(v) > r[1]) {
			return nil, &CoercionError{Type: t, Value: l, Reason: fmt.Sprintf("out of range [%d, %d]", r[0], r[1])}
		}
		return v, nil

	default:
		switch v := l.(type) {
		case BoolLiteral:
			return v, nil
		case IntLiteral:
			if v == 0 || v == 1 {
				return BoolLiteral(v == 1), nil
			}
		}
		return nil, &CoercionError{Type: t, Value: l, Reason: "bool type requires true, false, 0 or 1"}
	}
}

// roundFloat rounds f to the storage precision of t, rejecting overflow.
func roundFloat(f float64, t ElementType, orig Literal) (Literal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return FloatLiteral(f), nil
	}
	if t.IsHalf() {
		h, ok := toHalf(f)
		if !ok {
			return nil, &CoercionError{Type: t, Value: orig, Reason: "overflows half precision"}
		}
		return FloatLiteral(h.Float32()), nil
	}
	s := float32(f)
	if math.IsInf(float64(s), 0) {
		return nil, &CoercionError{Type: t, Value: orig, Reason: "overflows single precision"}
	}
	return FloatLiteral(s), nil
}

// halfOverflow is the smallest magnitude that rounds to infinity in binary16:
// the midpoint between 65504 and 65536, which ties away from the odd 65504.
const halfOverflow = 65520

// toHalf rounds a finite f to the nearest binary16 value, ties to even. The
// float32 step can round a second time, so the result is checked against
// its neighbour. ok is false when f overflows.
func toHalf(f float64) (h float16.Float16, ok bool) {
	a := math.Abs(f)
	if a >= halfOverflow {
		return 0, false
	}
	h = float16.Fromfloat32(float32(a))
	if h.IsInf(0) {
		h = float16.Frombits(0x7BFF)
	}
	if hv := float64(h.Float32()); hv != a {
		bits := h.Bits()
		switch {
		case hv < a && bits < 0x7BFF:
			bits++
		case hv > a && bits > 0:
			bits--
		}
		n := float16.Frombits(bits)
		dh, dn := math.Abs(hv-a), math.Abs(float64(n.Float32())-a)
		if dn < dh || (dn == dh && bits&1 == 0) {
			h = n
		}
	}
	if math.Signbit(f) {
		h = float16.Frombits(h.Bits() | 0x8000)
	}
	return h, true
}

// LiteralFromAny converts a decoded document value (YAML, JSON with
// UseNumber, or Go numerics) into a Literal. The result is not yet coerced
// to any element type.
func LiteralFromAny(v any) (Literal, error) {
	switch val := v.(type) {
	case Literal:
		return val, nil
	case nil:
		return nil, fmt.Errorf("null values are not allowed in fixtures")
	case bool:
		return BoolLiteral(val), nil
	case int:
		return IntLiteral(val), nil
	case int32:
		return IntLiteral(val), nil
	case int64:
		return IntLiteral(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d out of int64 range", val)
		}
		return IntLiteral(val), nil
	case float32:
		return FloatLiteral(val), nil
	case float64:
		return FloatLiteral(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			f, err := val.Float64()
			if err != nil {
				return nil, fmt.Errorf("invalid number %s: %w", s, err)
			}
			return FloatLiteral(f), nil
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return IntLiteral(n), nil
	case string:
		// Spelled-out special values, which JSON and YAML numbers cannot carry.
		switch strings.ToLower(val) {
		case "nan":
			return FloatLiteral(math.NaN()), nil
		case "inf", "+inf", "infinity":
			return FloatLiteral(math.Inf(1)), nil
		case "-inf", "-infinity":
			return FloatLiteral(math.Inf(-1)), nil
		}
		return nil, fmt.Errorf("string %q is not a literal", val)
	default:
		return nil, fmt.Errorf("unsupported literal type %T", v)
	}
}

// LiteralsFromAny converts a decoded list into literals.
func LiteralsFromAny(values []any) ([]Literal, error) {
	out := make([]Literal, len(values))
	for i, v := range values {
		l, err := LiteralFromAny(v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = l
	}
	return out, nil
}

package compiler

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/roach88/opfixture/internal/ir"
)

// Validation error codes (E300-E399)
const (
	ErrUnsupportedIRType = "E300" // unsupported value passed to Validate

	ErrInvalidOpType        = "E301" // operation type is not an upper-case identifier
	ErrUnusedDeclaration    = "E302" // input tensor or scalar never consumed
	ErrUnproducedOutput     = "E303" // output tensor not produced by the operation
	ErrOperandTypeMismatch  = "E304" // elementwise operands disagree on element type
	ErrInvalidFusedActivate = "E305" // fused activation operand missing or out of range
	ErrInvalidVersion       = "E306" // version is not of the form V<major>_<minor>
)

// ValidationError represents a semantic lint finding.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var (
	opTypePattern  = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	versionPattern = regexp.MustCompile(`^V[0-9]+_[0-9]+$`)
)

// Elementwise arithmetic ops take (a, b, fused_activation) and produce one
// tensor of the same element type.
var fusedArithmeticOps = map[string]bool{
	"ADD": true,
	"SUB": true,
	"MUL": true,
	"DIV": true,
}

// Elementwise ops whose tensor operands share one element type.
var elementwiseOps = map[string]bool{
	"ADD":     true,
	"SUB":     true,
	"MUL":     true,
	"DIV":     true,
	"MAXIMUM": true,
	"MINIMUM": true,
}

// Fused activation codes: NONE, RELU, RELU1, RELU6.
const maxFuseCode = 3

// Validate lints a built fixture model.
// Returns all findings (does not fail-fast).
//
// Builder errors cover structural problems (unresolved names, bad shapes);
// Validate covers operator-level conventions a well-formed fixture can
// still violate.
func Validate(v any) []ValidationError {
	switch m := v.(type) {
	case *ir.Model:
		return validateModel(m)
	case ir.Model:
		return validateModel(&m)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateModel(m *ir.Model) []ValidationError {
	var errs []ValidationError
	op := m.Operation

	if !versionPattern.MatchString(m.Version) {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("invalid version %q (want e.g. V1_2)", m.Version),
			Code:    ErrInvalidVersion,
		})
	}

	if !opTypePattern.MatchString(op.Type) {
		errs = append(errs, ValidationError{
			Field:   "operation.type",
			Message: fmt.Sprintf("invalid operation type %q (want upper-case identifier like MUL)", op.Type),
			Code:    ErrInvalidOpType,
		})
	}

	for i, t := range m.Inputs {
		if !slices.Contains(op.Inputs, t.Name) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("inputs[%d]", i),
				Message: fmt.Sprintf("input %q is not consumed by %s", t.Name, op.Type),
				Code:    ErrUnusedDeclaration,
			})
		}
	}
	for i, s := range m.Scalars {
		if !slices.Contains(op.Inputs, s.Name) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("scalars[%d]", i),
				Message: fmt.Sprintf("scalar %q is not consumed by %s", s.Name, op.Type),
				Code:    ErrUnusedDeclaration,
			})
		}
	}
	for i, t := range m.Outputs {
		if !slices.Contains(op.Outputs, t.Name) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("outputs[%d]", i),
				Message: fmt.Sprintf("output %q is not produced by %s", t.Name, op.Type),
				Code:    ErrUnproducedOutput,
			})
		}
	}

	if elementwiseOps[op.Type] {
		errs = append(errs, validateOperandTypes(m)...)
	}
	if fusedArithmeticOps[op.Type] {
		errs = append(errs, validateFusedActivation(m)...)
	}

	return errs
}

// validateOperandTypes checks that every tensor operand of an elementwise
// op has the element type of the first one.
func validateOperandTypes(m *ir.Model) []ValidationError {
	var errs []ValidationError
	var first *ir.TensorSpec

	names := append(slices.Clone(m.Operation.Inputs), m.Operation.Outputs...)
	for _, name := range names {
		t, ok := m.Tensor(name)
		if !ok {
			continue
		}
		if first == nil {
			first = &t
			continue
		}
		if t.Type != first.Type {
			errs = append(errs, ValidationError{
				Field: "operation",
				Message: fmt.Sprintf("%s operand %q is %s but %q is %s",
					m.Operation.Type, t.Name, t.Type, first.Name, first.Type),
				Code: ErrOperandTypeMismatch,
			})
		}
	}
	return errs
}

// validateFusedActivation checks the trailing activation operand of
// ADD/SUB/MUL/DIV: an INT32 scalar holding a fuse code.
func validateFusedActivation(m *ir.Model) []ValidationError {
	op := m.Operation
	invalid := func(msg string) []ValidationError {
		return []ValidationError{{
			Field:   fmt.Sprintf("operation.inputs[%d]", max(len(op.Inputs)-1, 0)),
			Message: msg,
			Code:    ErrInvalidFusedActivate,
		}}
	}

	if len(op.Inputs) != 3 {
		return invalid(fmt.Sprintf("%s takes 3 inputs (a, b, activation), got %d", op.Type, len(op.Inputs)))
	}
	s, ok := m.Scalar(op.Inputs[2])
	if !ok || s.Type != ir.Int32 {
		return invalid(fmt.Sprintf("activation %q must be an INT32 scalar", op.Inputs[2]))
	}
	if code, _ := s.Value.(ir.IntLiteral); code < 0 || code > maxFuseCode {
		return invalid(fmt.Sprintf("activation %q has unknown fuse code %d", s.Name, code))
	}
	return nil
}

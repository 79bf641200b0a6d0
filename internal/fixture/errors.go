package fixture

import (
	"errors"
	"fmt"

	"github.com/roach88/opfixture/internal/ir"
)

// Interpreter error codes (E200-E299)
const (
	ErrCodeDuplicateName       = "E201" // name already declared
	ErrCodeUnresolvedReference = "E202" // reference to an undeclared or wrong-role name
	ErrCodeShapeMismatch       = "E203" // binding length differs from product(shape)
	ErrCodeTypeMismatch        = "E204" // literal not representable in the element type
	ErrCodeInvalidDeclaration  = "E205" // malformed tensor, scalar, or operation declaration
	ErrCodeIncompleteFixture   = "E206" // missing operation, example, or binding
)

// DuplicateNameError reports a second declaration of the same name.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("[%s] %q is already declared", e.Code(), e.Name)
}

// Code returns the stable error code.
func (e *DuplicateNameError) Code() string { return ErrCodeDuplicateName }

// UnresolvedReferenceError reports a name that does not resolve to a
// declaration of the expected kind.
type UnresolvedReferenceError struct {
	Name    string
	Context string // where the reference appeared, e.g. "operation inputs"
	Want    string // what the name must refer to
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("[%s] %s: %q is not a declared %s", e.Code(), e.Context, e.Name, e.Want)
}

// Code returns the stable error code.
func (e *UnresolvedReferenceError) Code() string { return ErrCodeUnresolvedReference }

// ShapeMismatchError reports a binding whose length differs from the
// element count of the tensor's declared shape.
type ShapeMismatchError struct {
	Name  string
	Shape ir.Shape
	Want  int
	Got   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("[%s] %q has shape %s and needs %d values, got %d",
		e.Code(), e.Name, e.Shape, e.Want, e.Got)
}

// Code returns the stable error code.
func (e *ShapeMismatchError) Code() string { return ErrCodeShapeMismatch }

// TypeMismatchError reports a literal that cannot be represented in the
// declared element type.
type TypeMismatchError struct {
	Name  string
	Index int // position in the flattened binding; -1 for scalars
	Err   error
}

func (e *TypeMismatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("[%s] %q: %v", e.Code(), e.Name, e.Err)
	}
	return fmt.Sprintf("[%s] %q[%d]: %v", e.Code(), e.Name, e.Index, e.Err)
}

func (e *TypeMismatchError) Unwrap() error { return e.Err }

// Code returns the stable error code.
func (e *TypeMismatchError) Code() string { return ErrCodeTypeMismatch }

// InvalidDeclarationError reports a malformed declaration.
type InvalidDeclarationError struct {
	Name   string
	Reason string
}

func (e *InvalidDeclarationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("[%s] %s", e.Code(), e.Reason)
	}
	return fmt.Sprintf("[%s] %q: %s", e.Code(), e.Name, e.Reason)
}

// Code returns the stable error code.
func (e *InvalidDeclarationError) Code() string { return ErrCodeInvalidDeclaration }

// IncompleteFixtureError reports a fixture that cannot be finalized or an
// example that does not bind every declared tensor.
type IncompleteFixtureError struct {
	Fixture string
	Reason  string
}

func (e *IncompleteFixtureError) Error() string {
	return fmt.Sprintf("[%s] fixture %q: %s", e.Code(), e.Fixture, e.Reason)
}

// Code returns the stable error code.
func (e *IncompleteFixtureError) Code() string { return ErrCodeIncompleteFixture }

type coder interface {
	Code() string
}

// ErrorCode extracts the interpreter error code from err, or "" if err is
// not an interpreter error. Uses errors.As to handle wrapped errors.
func ErrorCode(err error) string {
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

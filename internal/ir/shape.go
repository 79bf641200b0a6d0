package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Shape is the ordered dimension sizes of an operand. Scalars have rank 0.
type Shape []int

// NumElements returns the product of the dimensions (1 for a scalar).
func (s Shape) NumElements() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// Validate checks that every dimension is positive and that the element
// count fits in an int.
func (s Shape) Validate() error {
	n := 1
	for i, d := range s {
		if d <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, d)
		}
		if n > math.MaxInt/d {
			return fmt.Errorf("shape %s has too many elements", s)
		}
		n *= d
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	if s == nil {
		return Shape{}
	}
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// String renders the shape in fixture notation, e.g. "{1, 2}".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ParseShape parses fixture notation such as "{1, 2}" or "{}".
// Surrounding braces are optional; brackets are accepted as well.
func ParseShape(text string) (Shape, error) {
	t := strings.TrimSpace(text)
	if len(t) >= 2 && (t[0] == '{' && t[len(t)-1] == '}' || t[0] == '[' && t[len(t)-1] == ']') {
		t = t[1 : len(t)-1]
	}
	t = strings.TrimSpace(t)
	if t == "" {
		return Shape{}, nil
	}

	fields := strings.Split(t, ",")
	shape := make(Shape, 0, len(fields))
	for i, f := range fields {
		d, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("shape %q: dimension %d: %w", text, i, err)
		}
		shape = append(shape, d)
	}
	return shape, nil
}

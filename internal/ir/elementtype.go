package ir

import "fmt"

// ElementType is the operand type of a declared tensor or scalar.
// Numbering follows the fixture language's operand type codes.
type ElementType int

const (
	Float32 ElementType = iota
	Int32
	Uint32
	TensorFloat32
	TensorInt32
	TensorQuant8Asymm
	Bool
	TensorQuant16Symm
	TensorFloat16
	TensorBool8
	Float16
)

// LiteralKind is the family of literal values an ElementType accepts.
type LiteralKind int

const (
	KindInt LiteralKind = iota
	KindFloat
	KindBool
)

func (k LiteralKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("LiteralKind(%d)", int(k))
	}
}

type elementTypeInfo struct {
	name   string
	scalar bool
	size   int // bytes per element
	kind   LiteralKind
}

var elementTypes = [...]elementTypeInfo{
	Float32:           {"FLOAT32", true, 4, KindFloat},
	Int32:             {"INT32", true, 4, KindInt},
	Uint32:            {"UINT32", true, 4, KindInt},
	TensorFloat32:     {"TENSOR_FLOAT32", false, 4, KindFloat},
	TensorInt32:       {"TENSOR_INT32", false, 4, KindInt},
	TensorQuant8Asymm: {"TENSOR_QUANT8_ASYMM", false, 1, KindInt},
	Bool:              {"BOOL", true, 1, KindBool},
	TensorQuant16Symm: {"TENSOR_QUANT16_SYMM", false, 2, KindInt},
	TensorFloat16:     {"TENSOR_FLOAT16", false, 2, KindFloat},
	TensorBool8:       {"TENSOR_BOOL8", false, 1, KindBool},
	Float16:           {"FLOAT16", true, 2, KindFloat},
}

var elementTypesByName = func() map[string]ElementType {
	m := make(map[string]ElementType, len(elementTypes))
	for i, info := range elementTypes {
		m[info.name] = ElementType(i)
	}
	return m
}()

// ParseElementType resolves a type name such as "TENSOR_FLOAT16".
func ParseElementType(name string) (ElementType, error) {
	t, ok := elementTypesByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown element type %q", name)
	}
	return t, nil
}

// Valid reports whether t is a known element type.
func (t ElementType) Valid() bool {
	return t >= 0 && int(t) < len(elementTypes)
}

func (t ElementType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("ElementType(%d)", int(t))
	}
	return elementTypes[t].name
}

// IsScalar reports whether t is a scalar (rank 0) operand type.
func (t ElementType) IsScalar() bool {
	return t.Valid() && elementTypes[t].scalar
}

// Size returns the byte size of one element.
func (t ElementType) Size() int {
	if !t.Valid() {
		return 0
	}
	return elementTypes[t].size
}

// Kind returns the literal family accepted by t.
func (t ElementType) Kind() LiteralKind {
	if !t.Valid() {
		return KindInt
	}
	return elementTypes[t].kind
}

// IsQuantized reports whether t carries scale and zero point parameters.
func (t ElementType) IsQuantized() bool {
	return t == TensorQuant8Asymm || t == TensorQuant16Symm
}

// IsHalf reports whether t is stored in IEEE half precision.
func (t ElementType) IsHalf() bool {
	return t == TensorFloat16 || t == Float16
}

// ScalarOf returns the scalar type inferred for a literal family:
// INT32 for ints, FLOAT32 for floats, BOOL for bools.
func ScalarOf(k LiteralKind) ElementType {
	switch k {
	case KindFloat:
		return Float32
	case KindBool:
		return Bool
	default:
		return Int32
	}
}

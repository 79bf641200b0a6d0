package fixture

import (
	"fmt"
	"math"
	"slices"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/opfixture/internal/ir"
)

type declKind int

const (
	declInput declKind = iota
	declOutput
	declScalar
)

// Builder accumulates one fixture's declarations. It is not safe for
// concurrent use; build separate fixtures with separate builders.
type Builder struct {
	model        ir.Model
	names        map[string]declKind
	hasOperation bool
}

// Option configures fixture-level metadata.
type Option func(*Builder)

// WithVersion sets the minimum supported version, e.g. "V1_2".
func WithVersion(v string) Option {
	return func(b *Builder) {
		if v != "" {
			b.model.Version = v
		}
	}
}

// WithRelaxed marks FLOAT32 computation as allowed to run at reduced precision.
func WithRelaxed(relaxed bool) Option {
	return func(b *Builder) {
		b.model.Relaxed = relaxed
	}
}

// NewBuilder starts a fixture named name.
func NewBuilder(name string, opts ...Option) *Builder {
	b := &Builder{
		model: ir.Model{
			Name:     norm.NFC.String(name),
			Version:  ir.DefaultHALVersion,
			Inputs:   []ir.TensorSpec{},
			Outputs:  []ir.TensorSpec{},
			Scalars:  []ir.ScalarAttribute{},
			Examples: []ir.Example{},
		},
		names: make(map[string]declKind),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the fixture name.
func (b *Builder) Name() string {
	return b.model.Name
}

// TensorOption sets optional tensor parameters.
type TensorOption func(*ir.TensorSpec)

// WithQuantization sets the scale and zero point of a quantized tensor.
func WithQuantization(scale float64, zeroPoint int64) TensorOption {
	return func(t *ir.TensorSpec) {
		t.Scale = scale
		t.ZeroPoint = zeroPoint
	}
}

// DeclareInput registers a model input tensor.
func (b *Builder) DeclareInput(name string, t ir.ElementType, shape ir.Shape, opts ...TensorOption) (ir.TensorSpec, error) {
	spec, err := b.declareTensor(name, t, shape, ir.RoleInput, opts)
	if err != nil {
		return ir.TensorSpec{}, err
	}
	b.model.Inputs = append(b.model.Inputs, spec)
	b.names[name] = declInput
	return spec.Clone(), nil
}

// DeclareOutput registers a model output tensor.
func (b *Builder) DeclareOutput(name string, t ir.ElementType, shape ir.Shape, opts ...TensorOption) (ir.TensorSpec, error) {
	spec, err := b.declareTensor(name, t, shape, ir.RoleOutput, opts)
	if err != nil {
		return ir.TensorSpec{}, err
	}
	b.model.Outputs = append(b.model.Outputs, spec)
	b.names[name] = declOutput
	return spec.Clone(), nil
}

func (b *Builder) declareTensor(name string, t ir.ElementType, shape ir.Shape, role ir.Role, opts []TensorOption) (ir.TensorSpec, error) {
	if err := b.checkName(name); err != nil {
		return ir.TensorSpec{}, err
	}
	spec := ir.TensorSpec{Name: name, Type: t, Shape: shape.Clone(), Role: role}
	for _, opt := range opts {
		opt(&spec)
	}
	if err := validateTensor(spec); err != nil {
		return ir.TensorSpec{}, err
	}
	return spec, nil
}

// validateTensor applies the operand type rules: scalar types carry no
// dimensions, tensor dimensions are positive, and quantization parameters
// match the element type.
func validateTensor(spec ir.TensorSpec) error {
	invalid := func(format string, args ...any) error {
		return &InvalidDeclarationError{Name: spec.Name, Reason: fmt.Sprintf(format, args...)}
	}

	if !spec.Type.Valid() {
		return invalid("unknown element type %s", spec.Type)
	}
	if spec.Type.IsScalar() {
		if spec.Shape.Rank() != 0 {
			return invalid("scalar type %s cannot have dimensions %s", spec.Type, spec.Shape)
		}
	} else {
		if spec.Shape.Rank() == 0 {
			return invalid("tensor type %s needs at least one dimension", spec.Type)
		}
		if err := spec.Shape.Validate(); err != nil {
			return invalid("%v", err)
		}
		if spec.Shape.NumElements() > math.MaxInt/spec.Type.Size() {
			return invalid("shape %s of %s overflows the operand buffer size", spec.Shape, spec.Type)
		}
	}

	switch spec.Type {
	case ir.TensorQuant8Asymm:
		if spec.ZeroPoint < 0 || spec.ZeroPoint > 255 {
			return invalid("zero point %d outside [0, 255]", spec.ZeroPoint)
		}
		if !validScale(spec.Scale) {
			return invalid("scale must be positive and finite for %s", spec.Type)
		}
	case ir.TensorQuant16Symm:
		if spec.ZeroPoint != 0 {
			return invalid("zero point must be 0 for %s", spec.Type)
		}
		if !validScale(spec.Scale) {
			return invalid("scale must be positive and finite for %s", spec.Type)
		}
	default:
		if spec.ZeroPoint != 0 || spec.Scale != 0 {
			return invalid("%s takes no quantization parameters", spec.Type)
		}
	}
	return nil
}

// DeclareScalar registers a scalar attribute whose type is inferred from
// the literal: ints are INT32, floats FLOAT32, bools BOOL.
func (b *Builder) DeclareScalar(name string, value ir.Literal) (ir.ScalarAttribute, error) {
	if value == nil {
		return ir.ScalarAttribute{}, &InvalidDeclarationError{Name: name, Reason: "scalar has no value"}
	}
	return b.DeclareTypedScalar(name, ir.ScalarOf(value.Kind()), value)
}

// DeclareTypedScalar registers a scalar attribute of an explicit scalar type.
func (b *Builder) DeclareTypedScalar(name string, t ir.ElementType, value ir.Literal) (ir.ScalarAttribute, error) {
	if err := b.checkName(name); err != nil {
		return ir.ScalarAttribute{}, err
	}
	if !t.IsScalar() {
		return ir.ScalarAttribute{}, &InvalidDeclarationError{
			Name:   name,
			Reason: fmt.Sprintf("%s is not a scalar type", t),
		}
	}
	v, err := ir.Coerce(value, t)
	if err != nil {
		return ir.ScalarAttribute{}, &TypeMismatchError{Name: name, Index: -1, Err: err}
	}

	attr := ir.ScalarAttribute{Name: name, Type: t, Value: v}
	b.model.Scalars = append(b.model.Scalars, attr)
	b.names[name] = declScalar
	return attr, nil
}

// validScale rejects NaN along with non-positive and infinite scales.
func validScale(scale float64) bool {
	return scale > 0 && !math.IsInf(scale, 1)
}

// checkName requires names in NFC so that the canonical encoding, which
// normalizes strings, cannot merge two distinct declarations.
func (b *Builder) checkName(name string) error {
	if name == "" {
		return &InvalidDeclarationError{Reason: "name is empty"}
	}
	if !norm.NFC.IsNormalString(name) {
		return &InvalidDeclarationError{Name: name, Reason: "name is not in Unicode NFC form"}
	}
	if _, exists := b.names[name]; exists {
		return &DuplicateNameError{Name: name}
	}
	return nil
}

// BuildOperation registers the fixture's operation node. Inputs may name
// input tensors or scalars; outputs must name output tensors. A fixture
// has exactly one operation.
func (b *Builder) BuildOperation(opType string, inputs, outputs []string) (ir.OperationNode, error) {
	if b.hasOperation {
		return ir.OperationNode{}, &InvalidDeclarationError{
			Name:   opType,
			Reason: fmt.Sprintf("fixture already has a %s operation", b.model.Operation.Type),
		}
	}
	if opType == "" {
		return ir.OperationNode{}, &InvalidDeclarationError{Reason: "operation type is empty"}
	}
	if !norm.NFC.IsNormalString(opType) {
		return ir.OperationNode{}, &InvalidDeclarationError{Name: opType, Reason: "operation type is not in Unicode NFC form"}
	}
	if len(outputs) == 0 {
		return ir.OperationNode{}, &InvalidDeclarationError{Name: opType, Reason: "operation has no outputs"}
	}

	for _, name := range inputs {
		kind, ok := b.names[name]
		if !ok || kind == declOutput {
			return ir.OperationNode{}, &UnresolvedReferenceError{
				Name:    name,
				Context: "operation inputs",
				Want:    "input tensor or scalar",
			}
		}
	}
	for _, name := range outputs {
		if kind, ok := b.names[name]; !ok || kind != declOutput {
			return ir.OperationNode{}, &UnresolvedReferenceError{
				Name:    name,
				Context: "operation outputs",
				Want:    "output tensor",
			}
		}
	}

	b.model.Operation = ir.OperationNode{
		Type:    opType,
		Inputs:  slices.Clone(inputs),
		Outputs: slices.Clone(outputs),
	}
	if b.model.Operation.Inputs == nil {
		b.model.Operation.Inputs = []string{}
	}
	b.hasOperation = true
	return b.model.Operation.Clone(), nil
}

// AddExample binds literal data to every declared input and output.
// Each binding's length must equal the element count of the tensor's
// shape, and each literal is coerced to the tensor's element type.
func (b *Builder) AddExample(inputs, outputs ir.Binding) (ir.Example, error) {
	in, err := b.bind("example inputs", inputs, b.model.Inputs, "input tensor")
	if err != nil {
		return ir.Example{}, err
	}
	out, err := b.bind("example outputs", outputs, b.model.Outputs, "output tensor")
	if err != nil {
		return ir.Example{}, err
	}

	ex := ir.Example{Inputs: in, Outputs: out}
	b.model.Examples = append(b.model.Examples, ex)
	return ir.Example{Inputs: in.Clone(), Outputs: out.Clone()}, nil
}

func (b *Builder) bind(context string, given ir.Binding, specs []ir.TensorSpec, want string) (ir.Binding, error) {
	for _, name := range ir.SortedKeys(given) {
		if !slices.ContainsFunc(specs, func(t ir.TensorSpec) bool { return t.Name == name }) {
			return nil, &UnresolvedReferenceError{Name: name, Context: context, Want: want}
		}
	}

	out := make(ir.Binding, len(specs))
	for _, spec := range specs {
		values, ok := given[spec.Name]
		if !ok {
			return nil, &IncompleteFixtureError{
				Fixture: b.model.Name,
				Reason:  fmt.Sprintf("%s do not bind %q", context, spec.Name),
			}
		}
		if len(values) != spec.NumElements() {
			return nil, &ShapeMismatchError{
				Name:  spec.Name,
				Shape: spec.Shape.Clone(),
				Want:  spec.NumElements(),
				Got:   len(values),
			}
		}

		coerced := make([]ir.Literal, len(values))
		for i, v := range values {
			c, err := ir.Coerce(v, spec.Type)
			if err != nil {
				return nil, &TypeMismatchError{Name: spec.Name, Index: i, Err: err}
			}
			coerced[i] = c
		}
		out[spec.Name] = coerced
	}
	return out, nil
}

// Build finalizes the fixture. It fails if no operation was built or no
// example was added. The returned model shares no memory with the builder.
func (b *Builder) Build() (*ir.Model, error) {
	if !b.hasOperation {
		return nil, &IncompleteFixtureError{Fixture: b.model.Name, Reason: "no operation declared"}
	}
	if len(b.model.Examples) == 0 {
		return nil, &IncompleteFixtureError{Fixture: b.model.Name, Reason: "no examples"}
	}
	return b.model.Clone(), nil
}

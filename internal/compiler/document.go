package compiler

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/opfixture/internal/fixture"
	"github.com/roach88/opfixture/internal/ir"
)

// Document is the list-ordered fixture layout shared by the YAML and
// canonical JSON encodings. Field names match the canonical JSON keys.
type Document struct {
	Name      string        `yaml:"name" json:"name"`
	Version   string        `yaml:"version,omitempty" json:"version"`
	Relaxed   bool          `yaml:"relaxed,omitempty" json:"relaxed"`
	Inputs    []TensorDecl  `yaml:"inputs" json:"inputs"`
	Outputs   []TensorDecl  `yaml:"outputs" json:"outputs"`
	Scalars   []ScalarDecl  `yaml:"scalars,omitempty" json:"scalars"`
	Operation OperationDecl `yaml:"operation" json:"operation"`
	Examples  []ExampleDecl `yaml:"examples" json:"examples"`
}

// TensorDecl declares one input or output tensor.
type TensorDecl struct {
	Name      string     `yaml:"name" json:"name"`
	Type      string     `yaml:"type" json:"type"`
	Shape     ShapeField `yaml:"shape" json:"shape"`
	Scale     float64    `yaml:"scale,omitempty" json:"scale"`
	ZeroPoint int64      `yaml:"zero_point,omitempty" json:"zero_point"`
}

// ScalarDecl declares a scalar attribute. Type is optional; when empty it
// is inferred from the value.
type ScalarDecl struct {
	Name  string `yaml:"name" json:"name"`
	Type  string `yaml:"type,omitempty" json:"type"`
	Value any    `yaml:"value" json:"value"`
}

// OperationDecl declares the fixture's single operation.
type OperationDecl struct {
	Type    string   `yaml:"type" json:"type"`
	Inputs  []string `yaml:"inputs" json:"inputs"`
	Outputs []string `yaml:"outputs" json:"outputs"`
}

// ExampleDecl binds flat literal data to tensor names.
type ExampleDecl struct {
	Inputs  map[string][]any `yaml:"inputs" json:"inputs"`
	Outputs map[string][]any `yaml:"outputs" json:"outputs"`
}

// ShapeField accepts either a list of dimensions or the "{1, 2}" string form.
type ShapeField ir.Shape

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *ShapeField) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		shape, err := ir.ParseShape(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		*s = ShapeField(shape)
		return nil
	case yaml.SequenceNode:
		var dims []int
		if err := value.Decode(&dims); err != nil {
			return err
		}
		*s = ShapeField(ir.Shape(dims).Clone())
		return nil
	default:
		return fmt.Errorf("line %d: shape must be a list or a string like \"{1, 2}\"", value.Line)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *ShapeField) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		shape, err := ir.ParseShape(text)
		if err != nil {
			return err
		}
		*s = ShapeField(shape)
		return nil
	}
	var dims []int
	if err := json.Unmarshal(data, &dims); err != nil {
		return fmt.Errorf("shape must be a list or a string like \"{1, 2}\": %w", err)
	}
	*s = ShapeField(ir.Shape(dims).Clone())
	return nil
}

// Build drives a fixture builder with the document's declarations in
// order: inputs, outputs, scalars, operation, examples.
func (d *Document) Build() (*ir.Model, error) {
	b := fixture.NewBuilder(d.Name, fixture.WithVersion(d.Version), fixture.WithRelaxed(d.Relaxed))

	for i, t := range d.Inputs {
		if err := declareTensor(b.DeclareInput, t); err != nil {
			return nil, fmt.Errorf("inputs[%d]: %w", i, err)
		}
	}
	for i, t := range d.Outputs {
		if err := declareTensor(b.DeclareOutput, t); err != nil {
			return nil, fmt.Errorf("outputs[%d]: %w", i, err)
		}
	}
	for i, s := range d.Scalars {
		if err := declareScalar(b, s.Name, s.Type, s.Value); err != nil {
			return nil, fmt.Errorf("scalars[%d]: %w", i, err)
		}
	}

	if _, err := b.BuildOperation(d.Operation.Type, d.Operation.Inputs, d.Operation.Outputs); err != nil {
		return nil, fmt.Errorf("operation: %w", err)
	}

	for i, ex := range d.Examples {
		in, err := bindingFromAny(ex.Inputs)
		if err != nil {
			return nil, fmt.Errorf("examples[%d].inputs: %w", i, err)
		}
		out, err := bindingFromAny(ex.Outputs)
		if err != nil {
			return nil, fmt.Errorf("examples[%d].outputs: %w", i, err)
		}
		if _, err := b.AddExample(in, out); err != nil {
			return nil, fmt.Errorf("examples[%d]: %w", i, err)
		}
	}

	return b.Build()
}

type declareFunc func(string, ir.ElementType, ir.Shape, ...fixture.TensorOption) (ir.TensorSpec, error)

func declareTensor(declare declareFunc, t TensorDecl) error {
	typ, err := ir.ParseElementType(t.Type)
	if err != nil {
		return &fixture.InvalidDeclarationError{Name: t.Name, Reason: err.Error()}
	}
	var opts []fixture.TensorOption
	if t.Scale != 0 || t.ZeroPoint != 0 {
		opts = append(opts, fixture.WithQuantization(t.Scale, t.ZeroPoint))
	}
	_, err = declare(t.Name, typ, ir.Shape(t.Shape), opts...)
	return err
}

func declareScalar(b *fixture.Builder, name, typeName string, value any) error {
	lit, err := ir.LiteralFromAny(value)
	if err != nil {
		return &fixture.TypeMismatchError{Name: name, Index: -1, Err: err}
	}
	if typeName == "" {
		_, err = b.DeclareScalar(name, lit)
		return err
	}
	typ, err := ir.ParseElementType(typeName)
	if err != nil {
		return &fixture.InvalidDeclarationError{Name: name, Reason: err.Error()}
	}
	_, err = b.DeclareTypedScalar(name, typ, lit)
	return err
}

// bindingFromAny converts decoded example data into literals. Element type
// coercion is left to the builder.
func bindingFromAny(data map[string][]any) (ir.Binding, error) {
	out := make(ir.Binding, len(data))
	for name, values := range data {
		lits := make([]ir.Literal, len(values))
		for i, v := range values {
			l, err := ir.LiteralFromAny(v)
			if err != nil {
				return nil, &fixture.TypeMismatchError{Name: name, Index: i, Err: err}
			}
			lits[i] = l
		}
		out[name] = lits
	}
	return out, nil
}

// DocumentFromModel converts a model back to the list-ordered layout, e.g.
// to emit YAML for a fixture authored in another format.
func DocumentFromModel(m *ir.Model) *Document {
	d := &Document{
		Name:    m.Name,
		Version: m.Version,
		Relaxed: m.Relaxed,
		Operation: OperationDecl{
			Type:    m.Operation.Type,
			Inputs:  m.Operation.Inputs,
			Outputs: m.Operation.Outputs,
		},
	}
	for _, t := range m.Inputs {
		d.Inputs = append(d.Inputs, tensorDecl(t))
	}
	for _, t := range m.Outputs {
		d.Outputs = append(d.Outputs, tensorDecl(t))
	}
	for _, s := range m.Scalars {
		d.Scalars = append(d.Scalars, ScalarDecl{Name: s.Name, Type: s.Type.String(), Value: literalValue(s.Value)})
	}
	for _, ex := range m.Examples {
		d.Examples = append(d.Examples, ExampleDecl{
			Inputs:  bindingValues(ex.Inputs),
			Outputs: bindingValues(ex.Outputs),
		})
	}
	return d
}

func tensorDecl(t ir.TensorSpec) TensorDecl {
	return TensorDecl{
		Name:      t.Name,
		Type:      t.Type.String(),
		Shape:     ShapeField(t.Shape.Clone()),
		Scale:     t.Scale,
		ZeroPoint: t.ZeroPoint,
	}
}

func bindingValues(b ir.Binding) map[string][]any {
	out := make(map[string][]any, len(b))
	for name, lits := range b {
		values := make([]any, len(lits))
		for i, l := range lits {
			values[i] = literalValue(l)
		}
		out[name] = values
	}
	return out
}

func literalValue(l ir.Literal) any {
	switch v := l.(type) {
	case ir.IntLiteral:
		return int64(v)
	case ir.FloatLiteral:
		return float64(v)
	case ir.BoolLiteral:
		return bool(v)
	default:
		return nil
	}
}

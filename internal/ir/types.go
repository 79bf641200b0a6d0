package ir

import "slices"

// Role distinguishes model inputs from model outputs.
type Role string

const (
	RoleInput  Role = "input"
	RoleOutput Role = "output"
)

// TensorSpec is a named operand declaration. Immutable once declared.
type TensorSpec struct {
	Name      string      `json:"name"`
	Type      ElementType `json:"type"`
	Shape     Shape       `json:"shape"`
	Role      Role        `json:"role"`
	Scale     float64     `json:"scale"`      // quantized types only
	ZeroPoint int64       `json:"zero_point"` // quantized types only
}

// NumElements is the number of literals an example must bind for this tensor.
func (t TensorSpec) NumElements() int {
	return t.Shape.NumElements()
}

// ByteSize is the buffer size of the operand.
func (t TensorSpec) ByteSize() int {
	return t.NumElements() * t.Type.Size()
}

// Clone returns a copy that shares no memory with t.
func (t TensorSpec) Clone() TensorSpec {
	t.Shape = t.Shape.Clone()
	return t
}

// ScalarAttribute is a non-tensor operator parameter, e.g. a fused
// activation selector. Immutable.
type ScalarAttribute struct {
	Name  string      `json:"name"`
	Type  ElementType `json:"type"`
	Value Literal     `json:"value"`
}

// OperationNode is the single operator a fixture exercises.
type OperationNode struct {
	Type    string   `json:"type"`    // "MUL", "ADD", ...
	Inputs  []string `json:"inputs"`  // tensor or scalar names, in operand order
	Outputs []string `json:"outputs"` // output tensor names
}

// Clone returns a copy that shares no memory with o.
func (o OperationNode) Clone() OperationNode {
	o.Inputs = slices.Clone(o.Inputs)
	o.Outputs = slices.Clone(o.Outputs)
	return o
}

// Binding maps tensor names to flat, row-major literal data.
type Binding map[string][]Literal

// Clone returns a deep copy of the binding.
func (b Binding) Clone() Binding {
	if b == nil {
		return nil
	}
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = slices.Clone(v)
	}
	return out
}

// Example pairs concrete inputs with the outputs the operator must produce.
type Example struct {
	Inputs  Binding `json:"inputs"`
	Outputs Binding `json:"outputs"`
}

func (e Example) clone() Example {
	return Example{Inputs: e.Inputs.Clone(), Outputs: e.Outputs.Clone()}
}

// Model is a fully loaded fixture: topology plus worked examples.
// A Model is read-only after construction.
type Model struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"` // minimum supported version, e.g. "V1_2"
	Relaxed   bool              `json:"relaxed"` // FLOAT32 computed with relaxed precision
	Inputs    []TensorSpec      `json:"inputs"`
	Outputs   []TensorSpec      `json:"outputs"`
	Scalars   []ScalarAttribute `json:"scalars"`
	Operation OperationNode     `json:"operation"`
	Examples  []Example         `json:"examples"`
}

// Input looks up a declared input tensor.
func (m *Model) Input(name string) (TensorSpec, bool) {
	for _, t := range m.Inputs {
		if t.Name == name {
			return t.Clone(), true
		}
	}
	return TensorSpec{}, false
}

// Output looks up a declared output tensor.
func (m *Model) Output(name string) (TensorSpec, bool) {
	for _, t := range m.Outputs {
		if t.Name == name {
			return t.Clone(), true
		}
	}
	return TensorSpec{}, false
}

// Tensor looks up a tensor of either role.
func (m *Model) Tensor(name string) (TensorSpec, bool) {
	if t, ok := m.Input(name); ok {
		return t, true
	}
	return m.Output(name)
}

// Scalar looks up a declared scalar attribute.
func (m *Model) Scalar(name string) (ScalarAttribute, bool) {
	for _, s := range m.Scalars {
		if s.Name == name {
			return s, true
		}
	}
	return ScalarAttribute{}, false
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	out := &Model{
		Name:      m.Name,
		Version:   m.Version,
		Relaxed:   m.Relaxed,
		Inputs:    make([]TensorSpec, len(m.Inputs)),
		Outputs:   make([]TensorSpec, len(m.Outputs)),
		Scalars:   slices.Clone(m.Scalars),
		Operation: m.Operation.Clone(),
		Examples:  make([]Example, len(m.Examples)),
	}
	for i, t := range m.Inputs {
		out.Inputs[i] = t.Clone()
	}
	for i, t := range m.Outputs {
		out.Outputs[i] = t.Clone()
	}
	for i, e := range m.Examples {
		out.Examples[i] = e.clone()
	}
	if out.Scalars == nil {
		out.Scalars = []ScalarAttribute{}
	}
	return out
}

// OperandBytes is the total buffer size of all declared tensors.
func (m *Model) OperandBytes() int {
	total := 0
	for _, t := range m.Inputs {
		total += t.ByteSize()
	}
	for _, t := range m.Outputs {
		total += t.ByteSize()
	}
	return total
}

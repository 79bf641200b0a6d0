package ir

// CanonicalMap returns the model as plain values accepted by MarshalCanonical.
// Declaration order of tensors and scalars is preserved as array order.
// Tensor roles are implied by the array a tensor appears in.
func (m *Model) CanonicalMap() map[string]any {
	examples := make([]any, len(m.Examples))
	for i, ex := range m.Examples {
		examples[i] = map[string]any{
			"inputs":  ex.Inputs,
			"outputs": ex.Outputs,
		}
	}

	scalars := make([]any, len(m.Scalars))
	for i, s := range m.Scalars {
		scalars[i] = map[string]any{
			"name":  s.Name,
			"type":  s.Type.String(),
			"value": s.Value,
		}
	}

	return map[string]any{
		"name":     m.Name,
		"version":  m.Version,
		"relaxed":  m.Relaxed,
		"inputs":   tensorList(m.Inputs),
		"outputs":  tensorList(m.Outputs),
		"scalars":  scalars,
		"examples": examples,
		"operation": map[string]any{
			"type":    m.Operation.Type,
			"inputs":  nonNil(m.Operation.Inputs),
			"outputs": nonNil(m.Operation.Outputs),
		},
	}
}

func tensorList(ts []TensorSpec) []any {
	out := make([]any, len(ts))
	for i, t := range ts {
		out[i] = map[string]any{
			"name":       t.Name,
			"type":       t.Type.String(),
			"shape":      t.Shape.Clone(),
			"scale":      FloatLiteral(t.Scale),
			"zero_point": t.ZeroPoint,
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// MarshalModel returns the canonical JSON form of a model.
func MarshalModel(m *Model) ([]byte, error) {
	return MarshalCanonical(m.CanonicalMap())
}

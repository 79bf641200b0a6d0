package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/opfixture/internal/ir"
)

// ParseCanonical rebuilds a model from its canonical JSON form.
// The result is identical to the model that produced the JSON.
func ParseCanonical(data []byte) (*ir.Model, error) {
	var doc Document
	if err := decodeStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid fixture JSON: %w", err)
	}
	m, err := doc.Build()
	if err != nil {
		return nil, fmt.Errorf("fixture %q: %w", doc.Name, err)
	}
	return m, nil
}

// ParseCanonicalList parses either a single canonical fixture object or a
// JSON array of them.
func ParseCanonicalList(data []byte) ([]*ir.Model, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		m, err := ParseCanonical(trimmed)
		if err != nil {
			return nil, err
		}
		return []*ir.Model{m}, nil
	}

	var docs []Document
	if err := decodeStrict(trimmed, &docs); err != nil {
		return nil, fmt.Errorf("invalid fixture JSON: %w", err)
	}
	models := make([]*ir.Model, 0, len(docs))
	for i := range docs {
		m, err := docs[i].Build()
		if err != nil {
			return nil, fmt.Errorf("[%d] fixture %q: %w", i, docs[i].Name, err)
		}
		models = append(models, m)
	}
	return models, nil
}

// MarshalCanonicalList renders models as a canonical JSON array.
func MarshalCanonicalList(models []*ir.Model) ([]byte, error) {
	list := make([]any, len(models))
	for i, m := range models {
		list[i] = m.CanonicalMap()
	}
	return ir.MarshalCanonical(list)
}

// decodeStrict decodes JSON keeping numbers exact and rejecting unknown
// fields and trailing data.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after fixture")
	}
	return nil
}

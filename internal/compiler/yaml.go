package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/opfixture/internal/ir"
)

// ParseYAML decodes one or more YAML fixture documents ("---" separated)
// and builds each. Unknown fields are rejected.
func ParseYAML(r io.Reader) ([]*ir.Model, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var models []*ir.Model
	for i := 0; ; i++ {
		var doc Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}

		m, err := doc.Build()
		if err != nil {
			return nil, fmt.Errorf("fixture %q: %w", doc.Name, err)
		}
		models = append(models, m)
	}

	if len(models) == 0 {
		return nil, fmt.Errorf("no fixture documents found")
	}
	return models, nil
}

// LoadYAMLFile reads and builds the fixtures in a YAML file.
func LoadYAMLFile(path string) ([]*ir.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	models, err := ParseYAML(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return models, nil
}

// MarshalYAML renders models as a multi-document YAML stream.
func MarshalYAML(models []*ir.Model) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, m := range models {
		if err := enc.Encode(DocumentFromModel(m)); err != nil {
			return nil, fmt.Errorf("fixture %q: %w", m.Name, err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

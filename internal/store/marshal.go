package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/opfixture/internal/ir"
)

// ExampleDetail is the stored explanation for one example's outcome.
type ExampleDetail struct {
	Error      string   `json:"error,omitempty"`
	Mismatches []string `json:"mismatches,omitempty"`
}

// marshalDetail converts an example detail into canonical JSON TEXT.
// A passing example stores "{}".
func marshalDetail(d ExampleDetail) (string, error) {
	m := map[string]any{}
	if d.Error != "" {
		m["error"] = d.Error
	}
	if len(d.Mismatches) > 0 {
		m["mismatches"] = d.Mismatches
	}

	data, err := ir.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("marshal detail: %w", err)
	}
	return string(data), nil
}

func unmarshalDetail(data string) (ExampleDetail, error) {
	var d ExampleDetail
	if data == "" || data == "{}" {
		return d, nil
	}
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return ExampleDetail{}, fmt.Errorf("unmarshal detail: %w", err)
	}
	return d, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

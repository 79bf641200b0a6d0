package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/roach88/opfixture/internal/ir"
)

// ExecExecutor runs an external command per example, speaking the JSON
// protocol described in the package documentation.
type ExecExecutor struct {
	// Command is the program and its arguments.
	Command []string

	// Env is appended to the current environment.
	Env []string

	// Dir is the working directory; empty means the current one.
	Dir string
}

// NewExecExecutor splits a command line on whitespace.
func NewExecExecutor(commandLine string) (*ExecExecutor, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("executor command is empty")
	}
	return &ExecExecutor{Command: fields}, nil
}

type execResponse struct {
	Outputs map[string][]any `json:"outputs"`
	Error   string           `json:"error"`
}

// Execute implements Executor.
func (e *ExecExecutor) Execute(ctx context.Context, m *ir.Model, inputs ir.Binding) (ir.Binding, error) {
	if len(e.Command) == 0 {
		return nil, fmt.Errorf("executor command is empty")
	}

	req, err := encodeRequest(m, inputs)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, e.Command[0], e.Command[1:]...)
	cmd.Dir = e.Dir
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(req)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("executor %s: %w", e.Command[0], err)
		}
		return nil, fmt.Errorf("executor %s: %w: %s", e.Command[0], err, msg)
	}

	return decodeResponse(m, stdout.Bytes())
}

// encodeRequest builds the canonical JSON request for one example.
func encodeRequest(m *ir.Model, inputs ir.Binding) ([]byte, error) {
	topology := m.CanonicalMap()
	delete(topology, "examples")

	req, err := ir.MarshalCanonical(map[string]any{
		"fixture":   topology,
		"operation": m.Operation.Type,
		"inputs":    inputs,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding executor request: %w", err)
	}
	return req, nil
}

// decodeResponse parses the executor's reply and coerces every output to
// its declared element type.
func decodeResponse(m *ir.Model, data []byte) (ir.Binding, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var resp execResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("invalid executor response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("executor reported: %s", resp.Error)
	}

	out := make(ir.Binding, len(resp.Outputs))
	for name, values := range resp.Outputs {
		lits, err := ir.LiteralsFromAny(values)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", name, err)
		}
		if spec, ok := m.Output(name); ok {
			for i, l := range lits {
				c, err := ir.Coerce(l, spec.Type)
				if err != nil {
					return nil, fmt.Errorf("output %q[%d]: %w", name, i, err)
				}
				lits[i] = c
			}
		}
		out[name] = lits
	}
	return out, nil
}

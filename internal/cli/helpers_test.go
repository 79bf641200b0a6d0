package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const mulFixtureCUE = `package fixtures

fixture: mul_broadcast_float16: {
	version: "V1_2"
	model: {
		inputs: {
			op1: {type: "TENSOR_FLOAT16", shape: [1, 2]}
			op2: {type: "TENSOR_FLOAT16", shape: [2, 2]}
		}
		scalars: act: {type: "INT32", value: 0}
		outputs: op3: {type: "TENSOR_FLOAT16", shape: [2, 2]}
		operation: {
			type:    "MUL"
			inputs:  ["op1", "op2", "act"]
			outputs: ["op3"]
		}
	}
	examples: [{
		inputs: {op1: [1, 2], op2: [1, 2, 3, 4]}
		outputs: op3: [1, 4, 3, 8]
	}]
}
`

const addFixtureYAML = `name: add_int32
version: V1_0
inputs:
  - {name: a, type: TENSOR_INT32, shape: "{2}"}
  - {name: b, type: TENSOR_INT32, shape: "{2}"}
outputs:
  - {name: op3, type: TENSOR_INT32, shape: [2]}
scalars:
  - {name: act, value: 0}
operation:
  type: ADD
  inputs: [a, b, act]
  outputs: [op3]
examples:
  - inputs: {a: [1, 2], b: [3, 4]}
    outputs: {op3: [4, 6]}
`

// unusedInputYAML builds but trips the E302 lint: c is never consumed.
const unusedInputYAML = `name: unused_input
version: V1_0
inputs:
  - {name: a, type: TENSOR_FLOAT32, shape: "{1}"}
  - {name: b, type: TENSOR_FLOAT32, shape: "{1}"}
  - {name: c, type: TENSOR_FLOAT32, shape: "{1}"}
outputs:
  - {name: op3, type: TENSOR_FLOAT32, shape: "{1}"}
scalars:
  - {name: act, value: 0}
operation:
  type: ADD
  inputs: [a, b, act]
  outputs: [op3]
examples:
  - inputs: {a: [1], b: [2], c: [3]}
    outputs: {op3: [3]}
`

// writeFile writes content under dir and returns the full path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// fixtureDir creates a temp directory holding the given files.
func fixtureDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeFile(t, dir, name, content)
	}
	return dir
}

// stubExecutor writes a shell executor that ignores its request and
// prints response, returning a command line that runs it.
func stubExecutor(t *testing.T, response string) string {
	t.Helper()
	script := writeFile(t, t.TempDir(), "executor.sh", "cat >/dev/null\necho '"+response+"'\n")
	return "sh " + script
}

// execute runs cmd with args, returning stdout and the command error.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

package harness

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Suite binds a fixtures directory to the executor that should pass it.
type Suite struct {
	// Name identifies the suite in logs and history.
	Name string `yaml:"name"`

	// Description explains what implementation the suite targets.
	Description string `yaml:"description,omitempty"`

	// Fixtures is the fixtures directory, relative to the suite file.
	Fixtures string `yaml:"fixtures"`

	// Executor is the command (argv) run once per example.
	Executor []string `yaml:"executor"`

	// Env is appended to the executor's environment.
	Env []string `yaml:"env,omitempty"`

	// Tolerance overrides the per-type float tolerance.
	Tolerance *Tolerance `yaml:"tolerance,omitempty"`

	// Skip lists fixture names or glob patterns to leave out.
	Skip []string `yaml:"skip,omitempty"`

	dir string
}

// LoadSuite reads and parses a suite YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The fixtures path is resolved relative to the suite file.
func LoadSuite(file string) (*Suite, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	var suite Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSuite(&suite); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}

	suite.dir = filepath.Dir(file)
	if suite.Fixtures == "" {
		suite.Fixtures = "."
	}
	if !filepath.IsAbs(suite.Fixtures) {
		suite.Fixtures = filepath.Join(suite.dir, suite.Fixtures)
	}
	return &suite, nil
}

func validateSuite(s *Suite) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Executor) == 0 {
		return fmt.Errorf("executor is required")
	}
	if s.Tolerance != nil && (s.Tolerance.Atol < 0 || s.Tolerance.Rtol < 0) {
		return fmt.Errorf("tolerance must be non-negative")
	}
	for _, pattern := range s.Skip {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("skip pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// Skips reports whether the named fixture is excluded by the suite.
func (s *Suite) Skips(name string) bool {
	for _, pattern := range s.Skip {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// NewExecutor builds the suite's executor, run from the suite directory.
func (s *Suite) NewExecutor() *ExecExecutor {
	return &ExecExecutor{
		Command: append([]string(nil), s.Executor...),
		Env:     append([]string(nil), s.Env...),
		Dir:     s.dir,
	}
}

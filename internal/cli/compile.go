package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/opfixture/internal/compiler"
	"github.com/roach88/opfixture/internal/ir"
	"github.com/roach88/opfixture/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output   string // output file path
	Database string // optional history database
}

// FixtureSummary describes one compiled fixture.
type FixtureSummary struct {
	Name         string `json:"name"`
	ID           string `json:"id"`
	Operation    string `json:"operation"`
	Inputs       int    `json:"inputs"`
	Outputs      int    `json:"outputs"`
	Scalars      int    `json:"scalars"`
	Examples     int    `json:"examples"`
	OperandBytes int    `json:"operand_bytes"`
	Stored       bool   `json:"stored,omitempty"`
}

// CompilationResult holds the compiled fixture summaries.
type CompilationResult struct {
	Fixtures []FixtureSummary `json:"fixtures"`
	Output   string           `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <fixtures-dir>",
		Short: "Compile fixtures to canonical JSON",
		Long: `Compile CUE, YAML, and JSON fixtures to canonical JSON.

Every fixture is rebuilt through the fixture builder, so declaration,
shape, and literal errors are reported with their E2xx codes. With
--output the fixtures are written as a canonical JSON array (or YAML
when the file ends in .yaml/.yml). With --db they are recorded in the
history database under their content hash.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (.json, .yaml)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record fixtures in this SQLite database")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, dir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	loadResult, loadErrors := LoadFixtures(dir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := loadErrorParts(loadErrors[0])
		return outputCompileError(formatter, code, message)
	}

	formatter.VerboseLog("Found %d fixture file(s) in %s", len(loadResult.Files), dir)
	for _, m := range loadResult.Fixtures {
		formatter.VerboseLog("Compiled fixture: %s", m.Name)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := &CompilationResult{Fixtures: make([]FixtureSummary, 0, len(loadResult.Fixtures))}
	for _, m := range loadResult.Fixtures {
		result.Fixtures = append(result.Fixtures, summarize(m))
	}

	if opts.Database != "" {
		if err := storeFixtures(ctx, opts.Database, loadResult.Fixtures, result); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, err.Error())
		}
		logger.Info("fixtures recorded", "db", opts.Database, "count", len(loadResult.Fixtures))
	}

	if opts.Output != "" {
		if err := writeFixturesToFile(loadResult.Fixtures, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
		result.Output = opts.Output
	}

	return outputCompileSuccess(formatter, result)
}

func summarize(m *ir.Model) FixtureSummary {
	return FixtureSummary{
		Name:         m.Name,
		ID:           ir.MustFixtureID(m),
		Operation:    m.Operation.Type,
		Inputs:       len(m.Inputs),
		Outputs:      len(m.Outputs),
		Scalars:      len(m.Scalars),
		Examples:     len(m.Examples),
		OperandBytes: m.OperandBytes(),
	}
}

func storeFixtures(ctx context.Context, path string, models []*ir.Model, result *CompilationResult) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	for i, m := range models {
		_, inserted, err := st.WriteFixture(ctx, m)
		if err != nil {
			return err
		}
		result.Fixtures[i].Stored = inserted
	}
	return nil
}

// writeFixturesToFile writes fixtures as a canonical JSON array, or as a
// YAML stream when the extension asks for it.
func writeFixturesToFile(models []*ir.Model, filename string) error {
	var (
		data []byte
		err  error
	)
	switch filepath.Ext(filename) {
	case ".yaml", ".yml":
		data, err = compiler.MarshalYAML(models)
	default:
		data, err = compiler.MarshalCanonicalList(models)
	}
	if err != nil {
		return fmt.Errorf("marshaling fixtures: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	formatter.Statusf(true, "Compiled %d fixture(s)\n", len(result.Fixtures))
	for _, f := range result.Fixtures {
		stored := ""
		if f.Stored {
			stored = " [stored]"
		}
		fmt.Fprintf(w, "  %s: %s, %d input(s), %d output(s), %d example(s), %s operands%s\n",
			f.Name, f.Operation, f.Inputs, f.Outputs, f.Examples,
			humanize.Bytes(uint64(f.OperandBytes)), stored)
	}

	if result.Output != "" {
		fmt.Fprintf(w, "\nWrote fixtures to %s\n", result.Output)
	}
	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := loadErrorParts(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	formatter.Statusf(false, "Compilation failed\n")
	for _, err := range errs {
		code, message := loadErrorParts(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			switch {
			case loadErr.Pos.IsValid():
				fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
			case loadErr.File != "":
				fmt.Fprintln(formatter.Writer, loadErr.File)
			}
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

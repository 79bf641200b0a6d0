package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/opfixture/internal/compiler"
	"github.com/roach88/opfixture/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Fixtures int                        `json:"fixtures"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <fixtures-dir>",
		Short: "Validate fixtures without writing output",
		Long: `Validate fixtures without writing output.

Reports every builder error (E2xx) and every operator lint finding
(E3xx) in the directory instead of stopping at the first one.

Exit codes:
  0 - All fixtures valid
  1 - One or more findings
  2 - Command error (invalid path, no fixture files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := LoadFixtures(dir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := loadErrorParts(loadErrors[0])
		return outputValidateError(formatter, code, message)
	}

	formatter.VerboseLog("Found %d fixture file(s) in %s", len(loadResult.Files), dir)

	var findings []compiler.ValidationError
	for _, err := range loadErrors {
		findings = append(findings, loadFinding(err))
	}
	findings = append(findings, validateAll(loadResult.Fixtures, formatter)...)

	if len(loadResult.Fixtures) == 0 && len(findings) == 0 {
		findings = append(findings, compiler.ValidationError{
			Field:   "fixtures",
			Message: "no fixtures found",
			Code:    ErrCodeGeneric,
		})
	}

	if len(findings) > 0 {
		return outputValidationErrors(formatter, findings)
	}
	return outputValidateSuccess(formatter, len(loadResult.Fixtures))
}

// validateAll lints every loaded fixture, prefixing fields with the fixture name.
func validateAll(models []*ir.Model, formatter *OutputFormatter) []compiler.ValidationError {
	var all []compiler.ValidationError
	for _, m := range models {
		formatter.VerboseLog("Validating fixture: %s", m.Name)
		for _, finding := range compiler.Validate(m) {
			finding.Field = m.Name + "." + finding.Field
			all = append(all, finding)
		}
	}
	return all
}

func loadFinding(err error) compiler.ValidationError {
	code, message := loadErrorParts(err)
	field := "load"
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		switch {
		case loadErr.Pos.IsValid():
			field = fmt.Sprintf("%s:%d", filepath.Base(loadErr.Pos.Filename()), loadErr.Pos.Line())
		case loadErr.File != "":
			field = filepath.Base(loadErr.File)
		}
	}
	return compiler.ValidationError{Field: field, Message: message, Code: code}
}

func outputValidateSuccess(formatter *OutputFormatter, count int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Fixtures: count})
	}

	formatter.Statusf(true, "All %d fixture(s) valid", count)
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs all findings. Findings are exit code 1.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	formatter.Statusf(false, "Validation failed\n")
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

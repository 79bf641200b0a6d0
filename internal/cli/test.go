package cli

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/opfixture/internal/harness"
	"github.com/roach88/opfixture/internal/ir"
	"github.com/roach88/opfixture/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Executor string  // executor command line
	Suite    string  // suite file (alternative to --executor)
	Filter   string  // fixture name glob
	Atol     float64 // absolute tolerance override
	Rtol     float64 // relative tolerance override
	Database string  // optional history database

	runIDs harness.RunIDGenerator
}

// FixtureResult holds the outcome of one fixture.
type FixtureResult struct {
	Name      string   `json:"name"`
	FixtureID string   `json:"fixture_id,omitempty"`
	RunID     string   `json:"run_id,omitempty"`
	Pass      bool     `json:"pass"`
	Skipped   bool     `json:"skipped,omitempty"`
	Examples  int      `json:"examples"`
	Failures  int      `json:"failures"`
	Errors    []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Suite    string          `json:"suite,omitempty"`
	Fixtures []FixtureResult `json:"fixtures"`
	Passed   int             `json:"passed"`
	Failed   int             `json:"failed"`
	Skipped  int             `json:"skipped"`
	Total    int             `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test [fixtures-dir]",
		Short: "Run fixtures against an operator implementation",
		Long: `Run every example of every fixture through an executor and compare
its outputs with the expected values.

The executor is a command run once per example. It reads a JSON request
({"fixture", "inputs", "operation"}) on stdin and writes
{"outputs": {...}} or {"error": "..."} on stdout. A suite file bundles
the fixtures directory, executor, tolerance, and skip list.

Exit codes:
  0 - All fixtures passed
  1 - One or more fixtures failed
  2 - Command error (invalid paths, unloadable fixtures, etc.)

Examples:
  opfix test ./fixtures --executor "python3 run_op.py"
  opfix test ./fixtures --executor ./bin/run-op --filter "mul_*"
  opfix test --suite ./nnapi-cpu.yaml --db history.db
  opfix test ./fixtures --executor ./bin/run-op --atol 1e-3 --rtol 1e-3`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) > 0 {
				dir = args[0]
			}
			tolSet := cmd.Flags().Changed("atol") || cmd.Flags().Changed("rtol")
			return runTests(cmd.Context(), opts, dir, tolSet, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Executor, "executor", "", "executor command line")
	cmd.Flags().StringVar(&opts.Suite, "suite", "", "suite file (fixtures, executor, tolerance, skip)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter fixtures by glob pattern")
	cmd.Flags().Float64Var(&opts.Atol, "atol", 0, "absolute float tolerance (overrides per-type default)")
	cmd.Flags().Float64Var(&opts.Rtol, "rtol", 0, "relative float tolerance (overrides per-type default)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record runs in this SQLite database")

	return cmd
}

func runTests(ctx context.Context, opts *TestOptions, dir string, tolSet bool, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	exec, suite, err := resolveExecutor(opts)
	if err != nil {
		return err
	}
	if dir == "" {
		if suite == nil {
			return NewExitError(ExitCommandError, "fixtures directory is required without --suite")
		}
		dir = suite.Fixtures
	}
	if opts.Filter != "" {
		if _, err := path.Match(opts.Filter, ""); err != nil {
			return WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
	}

	var tol *harness.Tolerance
	switch {
	case tolSet:
		if opts.Atol < 0 || opts.Rtol < 0 {
			return NewExitError(ExitCommandError, "tolerance must be non-negative")
		}
		tol = &harness.Tolerance{Atol: opts.Atol, Rtol: opts.Rtol}
	case suite != nil:
		tol = suite.Tolerance
	}

	loadResult, loadErrors := LoadFixtures(dir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := loadErrorParts(loadErrors[0])
		return outputCompileError(formatter, code, message)
	}
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	var st *store.Store
	if opts.Database != "" {
		if st, err = store.Open(opts.Database); err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
	}

	runIDs := opts.runIDs
	if runIDs == nil {
		runIDs = harness.UUIDv7Generator{}
	}
	runOpts := &harness.Options{
		Tolerance: tol,
		Logger:    logger,
		Clock:     harness.NewSeqClockAt(0),
	}
	executorName := strings.Join(exec.Command, " ")

	result := TestResult{Fixtures: []FixtureResult{}}
	if suite != nil {
		result.Suite = suite.Name
	}

	for _, m := range loadResult.Fixtures {
		if opts.Filter != "" {
			if ok, _ := path.Match(opts.Filter, m.Name); !ok {
				continue
			}
		}
		result.Total++

		if suite != nil && suite.Skips(m.Name) {
			result.Skipped++
			result.Fixtures = append(result.Fixtures, FixtureResult{Name: m.Name, Skipped: true, Examples: len(m.Examples)})
			continue
		}

		runResult, err := harness.Run(ctx, m, exec, runOpts)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("running %s", m.Name), err)
		}

		fr := FixtureResult{
			Name:      m.Name,
			FixtureID: runResult.FixtureID,
			RunID:     runIDs.Generate(),
			Pass:      runResult.Pass,
			Examples:  len(runResult.Examples),
			Failures:  runResult.Failures(),
			Errors:    runResult.Errors,
		}
		if st != nil {
			if err := recordRun(ctx, st, fr.RunID, executorName, m, runResult); err != nil {
				return WrapExitError(ExitCommandError, "failed to record run", err)
			}
		}
		logger.Debug("fixture finished", "fixture", m.Name, "run_id", fr.RunID, "pass", fr.Pass)

		if fr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Fixtures = append(result.Fixtures, fr)
	}

	if formatter.Format == "json" {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

// resolveExecutor picks the executor from --executor or --suite.
func resolveExecutor(opts *TestOptions) (*harness.ExecExecutor, *harness.Suite, error) {
	switch {
	case opts.Executor != "" && opts.Suite != "":
		return nil, nil, NewExitError(ExitCommandError, "use either --executor or --suite, not both")
	case opts.Suite != "":
		suite, err := harness.LoadSuite(opts.Suite)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to load suite", err)
		}
		return suite.NewExecutor(), suite, nil
	case opts.Executor != "":
		exec, err := harness.NewExecExecutor(opts.Executor)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "invalid executor", err)
		}
		return exec, nil, nil
	default:
		return nil, nil, NewExitError(ExitCommandError, "an executor is required (--executor or --suite)")
	}
}

func recordRun(ctx context.Context, st *store.Store, runID, executor string, m *ir.Model, result *harness.Result) error {
	if _, _, err := st.WriteFixture(ctx, m); err != nil {
		return err
	}
	rec, err := store.NewRunRecord(runID, executor, m, result)
	if err != nil {
		return err
	}
	_, err = st.WriteRun(ctx, rec)
	return err
}

func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}
	if err := formatter.JSON(CLIResponse{Status: status, Data: result}); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d fixture(s) failed", result.Failed))
	}
	return nil
}

func outputTestText(formatter *OutputFormatter, result TestResult) error {
	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No fixtures matched.")
		return nil
	}

	for _, fr := range result.Fixtures {
		switch {
		case fr.Skipped:
			fmt.Fprintf(w, "- %s (skipped)\n", fr.Name)
		case fr.Pass:
			formatter.Statusf(true, "%s (%d example(s))", fr.Name, fr.Examples)
		default:
			formatter.Statusf(false, "%s (%d of %d example(s) failed)", fr.Name, fr.Failures, fr.Examples)
			for _, e := range fr.Errors {
				fmt.Fprintf(w, "    %s\n", e)
			}
		}
	}

	fmt.Fprintf(w, "\n%d passed, %d failed, %d skipped (%d total)\n",
		result.Passed, result.Failed, result.Skipped, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d fixture(s) failed", result.Failed))
	}
	return nil
}

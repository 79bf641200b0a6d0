package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/opfixture/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
}

// FixtureHistory summarizes the runs recorded for one stored fixture.
type FixtureHistory struct {
	Name     string `json:"name"`
	ID       string `json:"id"`
	Seq      int64  `json:"seq"`
	Runs     int    `json:"runs"`
	LastPass *bool  `json:"last_pass,omitempty"`
}

// RunHistory is one recorded run of a fixture.
type RunHistory struct {
	ID        string `json:"id"`
	FixtureID string `json:"fixture_id"`
	Seq       int64  `json:"seq"`
	Pass      bool   `json:"pass"`
	Failures  int    `json:"failures"`
	Executor  string `json:"executor"`
	Version   string `json:"tool_version"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [fixture-name]",
		Short: "Show recorded fixtures and runs",
		Long: `Show what a history database holds.

Without a fixture name, lists every stored fixture with its run count and
the outcome of its latest run. With a name, lists that fixture's runs in
the order they were recorded.

Examples:
  opfix history --db history.db
  opfix history --db history.db mul_broadcast_float16
  opfix history --db history.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if len(args) == 0 {
				return runHistoryList(ctx, opts, cmd)
			}
			return runHistoryFixture(ctx, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "history database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// openHistory opens an existing database. Open would create a missing one,
// which is never what a read-only command wants.
func openHistory(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: database not found: %s", ErrCodeNotFound, path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runHistoryList(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	st, err := openHistory(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListFixtures(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list fixtures", err)
	}

	runsByName := map[string][]store.RunRecord{}
	out := make([]FixtureHistory, 0, len(records))
	for _, rec := range records {
		runs, ok := runsByName[rec.Name]
		if !ok {
			if runs, err = st.ReadRuns(ctx, rec.Name); err != nil {
				return WrapExitError(ExitCommandError, "failed to read runs", err)
			}
			runsByName[rec.Name] = runs
		}

		h := FixtureHistory{Name: rec.Name, ID: rec.ID, Seq: rec.Seq}
		for _, r := range runs {
			if r.FixtureID != rec.ID {
				continue
			}
			h.Runs++
			pass := r.Pass
			h.LastPass = &pass
		}
		out = append(out, h)
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	w := formatter.Writer
	if len(out) == 0 {
		fmt.Fprintln(w, "No fixtures recorded.")
		return nil
	}
	for _, h := range out {
		status := "never run"
		if h.LastPass != nil {
			status = "last " + passLabel(*h.LastPass)
		}
		fmt.Fprintf(w, "%-6d %s  %s  %d run(s), %s\n", h.Seq, h.ID[:12], h.Name, h.Runs, status)
	}
	return nil
}

func runHistoryFixture(ctx context.Context, opts *HistoryOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	st, err := openHistory(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.ReadFixtureByName(ctx, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no fixture named %q", name), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("no fixture named %q", name))
		}
		return WrapExitError(ExitCommandError, "failed to read fixture", err)
	}

	runs, err := st.ReadRuns(ctx, name)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read runs", err)
	}

	out := make([]RunHistory, len(runs))
	for i, r := range runs {
		out[i] = RunHistory{
			ID:        r.ID,
			FixtureID: r.FixtureID,
			Seq:       r.Seq,
			Pass:      r.Pass,
			Failures:  r.Failures,
			Executor:  r.Executor,
			Version:   r.ToolVersion,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	w := formatter.Writer
	if len(out) == 0 {
		fmt.Fprintf(w, "No runs recorded for %s.\n", name)
		return nil
	}
	fmt.Fprintf(w, "%s: %d run(s)\n\n", name, len(out))
	for _, r := range out {
		fmt.Fprintf(w, "%-6d %s  %s  %d failure(s)  %s\n", r.Seq, r.ID, passLabel(r.Pass), r.Failures, r.Executor)
	}
	return nil
}

func passLabel(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}

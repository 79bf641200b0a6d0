package store

import (
	"context"
	"fmt"

	"github.com/roach88/opfixture/internal/harness"
	"github.com/roach88/opfixture/internal/ir"
)

// RunRecord is one fixture's outcome in one test invocation.
type RunRecord struct {
	ID          string
	FixtureID   string
	Fixture     string // fixture name, filled on read
	Executor    string
	Pass        bool
	Failures    int
	Seq         int64 // assigned by WriteRun
	ToolVersion string
	Examples    []ExampleRecord
}

// ExampleRecord is the stored outcome of one worked example.
type ExampleRecord struct {
	Index  int
	Hash   string
	Pass   bool
	Detail ExampleDetail
}

// NewRunRecord converts a harness result into a record ready for WriteRun.
// m must be the fixture the result was produced from.
func NewRunRecord(id, executor string, m *ir.Model, result *harness.Result) (RunRecord, error) {
	rec := RunRecord{
		ID:          id,
		FixtureID:   result.FixtureID,
		Fixture:     result.Fixture,
		Executor:    executor,
		Pass:        result.Pass,
		Failures:    result.Failures(),
		ToolVersion: ir.ToolVersion,
	}
	for _, er := range result.Examples {
		hash, err := ir.ExampleHash(result.FixtureID, er.Index, m.Examples[er.Index])
		if err != nil {
			return RunRecord{}, fmt.Errorf("run %s: %w", id, err)
		}
		rec.Examples = append(rec.Examples, ExampleRecord{
			Index:  er.Index,
			Hash:   hash,
			Pass:   er.Pass,
			Detail: ExampleDetail{Error: er.Error, Mismatches: mismatchStrings(er.Mismatches)},
		})
	}
	return rec, nil
}

func mismatchStrings(mms []harness.Mismatch) []string {
	if len(mms) == 0 {
		return nil
	}
	out := make([]string, len(mms))
	for i, mm := range mms {
		out[i] = mm.String()
	}
	return out
}

// WriteRun inserts a run and its example results in one transaction and
// returns the seq it was assigned. The fixture must already be stored
// (foreign key constraint).
func (s *Store) WriteRun(ctx context.Context, rec RunRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	seq, err := maxSeq(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}
	seq++

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, fixture_id, executor, pass, failures, seq, tool_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.FixtureID, rec.Executor, boolInt(rec.Pass), rec.Failures, seq, rec.ToolVersion)
	if err != nil {
		return 0, fmt.Errorf("write run: insert: %w", err)
	}

	for _, ex := range rec.Examples {
		detail, err := marshalDetail(ex.Detail)
		if err != nil {
			return 0, fmt.Errorf("write run: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO example_results (run_id, example_index, example_hash, pass, detail)
			VALUES (?, ?, ?, ?, ?)
		`, rec.ID, ex.Index, ex.Hash, boolInt(ex.Pass), detail)
		if err != nil {
			return 0, fmt.Errorf("write run: example %d: %w", ex.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}

// ReadRuns returns the runs of every stored version of the named fixture,
// ordered by seq ASC, id ASC COLLATE BINARY. Example results are not
// loaded; use ReadRun for those.
//
// Returns an empty slice (not nil) if the fixture has no runs.
func (s *Store) ReadRuns(ctx context.Context, fixtureName string) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.fixture_id, f.name, r.executor, r.pass, r.failures, r.seq, r.tool_version
		FROM runs r
		JOIN fixtures f ON r.fixture_id = f.id
		WHERE f.name = ?
		ORDER BY r.seq ASC, r.id COLLATE BINARY ASC
	`, fixtureName)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var r RunRecord
		var pass int
		if err := rows.Scan(&r.ID, &r.FixtureID, &r.Fixture, &r.Executor, &pass, &r.Failures, &r.Seq, &r.ToolVersion); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Pass = pass == 1
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves one run with its example results.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	var r RunRecord
	var pass int
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.fixture_id, f.name, r.executor, r.pass, r.failures, r.seq, r.tool_version
		FROM runs r
		JOIN fixtures f ON r.fixture_id = f.id
		WHERE r.id = ?
	`, id).Scan(&r.ID, &r.FixtureID, &r.Fixture, &r.Executor, &pass, &r.Failures, &r.Seq, &r.ToolVersion)
	if err != nil {
		return RunRecord{}, err
	}
	r.Pass = pass == 1

	rows, err := s.db.QueryContext(ctx, `
		SELECT example_index, example_hash, pass, detail
		FROM example_results
		WHERE run_id = ?
		ORDER BY example_index ASC
	`, id)
	if err != nil {
		return RunRecord{}, fmt.Errorf("query example results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ex ExampleRecord
		var exPass int
		var detail string
		if err := rows.Scan(&ex.Index, &ex.Hash, &exPass, &detail); err != nil {
			return RunRecord{}, fmt.Errorf("scan example result: %w", err)
		}
		ex.Pass = exPass == 1
		if ex.Detail, err = unmarshalDetail(detail); err != nil {
			return RunRecord{}, err
		}
		r.Examples = append(r.Examples, ex)
	}
	if err := rows.Err(); err != nil {
		return RunRecord{}, fmt.Errorf("iterate example results: %w", err)
	}
	return r, nil
}

package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/roach88/opfixture/internal/harness"
	"github.com/roach88/opfixture/internal/ir"
	"github.com/roach88/opfixture/internal/testutil"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fixedOutputs is an executor that always returns the given binding.
func fixedOutputs(out ir.Binding) harness.ExecutorFunc {
	return func(context.Context, *ir.Model, ir.Binding) (ir.Binding, error) {
		return out.Clone(), nil
	}
}

// createTestRun stores m and runs it against exec, returning the record
// that was written.
func createTestRun(t *testing.T, s *Store, id string, m *ir.Model, exec harness.Executor) RunRecord {
	t.Helper()
	ctx := context.Background()

	if _, _, err := s.WriteFixture(ctx, m); err != nil {
		t.Fatalf("WriteFixture() failed: %v", err)
	}
	result, err := harness.Run(ctx, m, exec, nil)
	if err != nil {
		t.Fatalf("harness.Run() failed: %v", err)
	}
	rec, err := NewRunRecord(id, "test-executor", m, result)
	if err != nil {
		t.Fatalf("NewRunRecord() failed: %v", err)
	}
	if rec.Seq, err = s.WriteRun(ctx, rec); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return rec
}

var passingMul = fixedOutputs(ir.Binding{"op3": testutil.Literals(1, 4, 3, 8)})

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

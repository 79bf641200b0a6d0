package store

import (
	"context"
	"fmt"

	"github.com/roach88/opfixture/internal/compiler"
	"github.com/roach88/opfixture/internal/ir"
)

// FixtureRecord is a stored fixture without its decoded model.
type FixtureRecord struct {
	ID   string
	Name string
	Seq  int64
}

// WriteFixture stores a fixture under its content hash.
// Returns the fixture ID and whether a new row was written; writing an
// identical fixture again returns the existing ID with inserted=false.
func (s *Store) WriteFixture(ctx context.Context, m *ir.Model) (id string, inserted bool, err error) {
	data, err := ir.MarshalModel(m)
	if err != nil {
		return "", false, fmt.Errorf("write fixture: %w", err)
	}
	id, err = ir.FixtureID(m)
	if err != nil {
		return "", false, fmt.Errorf("write fixture: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("write fixture: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	seq, err := maxSeq(ctx, tx)
	if err != nil {
		return "", false, fmt.Errorf("write fixture: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO fixtures (id, name, canonical_json, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, m.Name, string(data), seq+1)
	if err != nil {
		return "", false, fmt.Errorf("write fixture: insert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("write fixture: rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("write fixture: commit: %w", err)
	}
	return id, rows > 0, nil
}

// ReadFixture loads and re-parses a fixture by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadFixture(ctx context.Context, id string) (*ir.Model, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT canonical_json FROM fixtures WHERE id = ?
	`, id).Scan(&data)
	if err != nil {
		return nil, err
	}
	return decodeFixture(id, data)
}

// ReadFixtureByName loads the most recently written fixture with the given
// name. Returns sql.ErrNoRows if none exists.
func (s *Store) ReadFixtureByName(ctx context.Context, name string) (*ir.Model, error) {
	var id, data string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, canonical_json FROM fixtures
		WHERE name = ?
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, name).Scan(&id, &data)
	if err != nil {
		return nil, err
	}
	return decodeFixture(id, data)
}

// ListFixtures returns every stored fixture, ordered by seq.
func (s *Store) ListFixtures(ctx context.Context) ([]FixtureRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, seq FROM fixtures
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query fixtures: %w", err)
	}
	defer rows.Close()

	records := []FixtureRecord{}
	for rows.Next() {
		var r FixtureRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Seq); err != nil {
			return nil, fmt.Errorf("scan fixture: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fixtures: %w", err)
	}
	return records, nil
}

func decodeFixture(id, data string) (*ir.Model, error) {
	m, err := compiler.ParseCanonical([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", id, err)
	}
	return m, nil
}


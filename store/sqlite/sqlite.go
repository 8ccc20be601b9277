// Package sqlite provides a RunStore backed by an embedded SQLite
// database, suitable for single-machine batch runs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smallnest/dispatchgo/store"
)

// SqliteRunStore implements store.RunStore using SQLite.
type SqliteRunStore struct {
	db        *sql.DB
	tableName string
}

// SqliteOptions configuration for the SQLite connection
type SqliteOptions struct {
	Path      string
	TableName string // Default "runs"
}

// NewSqliteRunStore opens the database and creates the schema if it
// does not exist.
func NewSqliteRunStore(opts SqliteOptions) (*SqliteRunStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "runs"
	}

	s := &SqliteRunStore{db: db, tableName: tableName}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the necessary table if it doesn't exist
func (s *SqliteRunStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			inputs TEXT NOT NULL,
			outputs TEXT NOT NULL,
			failed TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_model ON %s (model);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SqliteRunStore) Close() error {
	return s.db.Close()
}

// Save stores a run record
func (s *SqliteRunStore) Save(ctx context.Context, run *store.RunRecord) error {
	inputsJSON, err := json.Marshal(run.Inputs)
	if err != nil {
		return fmt.Errorf("failed to marshal inputs: %w", err)
	}
	outputsJSON, err := json.Marshal(run.Outputs)
	if err != nil {
		return fmt.Errorf("failed to marshal outputs: %w", err)
	}
	failedJSON, err := json.Marshal(run.Failed)
	if err != nil {
		return fmt.Errorf("failed to marshal failed ids: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, model, inputs, outputs, failed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			model = excluded.model,
			inputs = excluded.inputs,
			outputs = excluded.outputs,
			failed = excluded.failed,
			created_at = excluded.created_at
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		run.ID, run.Model, string(inputsJSON), string(outputsJSON), string(failedJSON), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func scanRun(scan func(...any) error) (*store.RunRecord, error) {
	var run store.RunRecord
	var inputsJSON, outputsJSON, failedJSON string
	if err := scan(&run.ID, &run.Model, &inputsJSON, &outputsJSON, &failedJSON, &run.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(inputsJSON), &run.Inputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inputs: %w", err)
	}
	if err := json.Unmarshal([]byte(outputsJSON), &run.Outputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outputs: %w", err)
	}
	if failedJSON != "" {
		if err := json.Unmarshal([]byte(failedJSON), &run.Failed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal failed ids: %w", err)
		}
	}
	return &run, nil
}

// Load retrieves a run by ID
func (s *SqliteRunStore) Load(ctx context.Context, runID string) (*store.RunRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, model, inputs, outputs, failed, created_at
		FROM %s
		WHERE id = ?
	`, s.tableName)

	run, err := scanRun(s.db.QueryRowContext(ctx, query, runID).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return run, nil
}

// List returns all runs of a given model, oldest first.
func (s *SqliteRunStore) List(ctx context.Context, model string) ([]*store.RunRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, model, inputs, outputs, failed, created_at
		FROM %s
		WHERE model = ?
		ORDER BY created_at ASC, id ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, model)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*store.RunRecord
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return runs, nil
}

// Delete removes a run
func (s *SqliteRunStore) Delete(ctx context.Context, runID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// Clear removes all runs of a model
func (s *SqliteRunStore) Clear(ctx context.Context, model string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE model = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, model); err != nil {
		return fmt.Errorf("failed to clear runs: %w", err)
	}
	return nil
}

// Package postgres provides a RunStore backed by PostgreSQL, for
// durable run history shared between machines.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallnest/dispatchgo/store"
)

// DBPool defines the interface for the database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresRunStore implements store.RunStore using PostgreSQL.
type PostgresRunStore struct {
	pool      DBPool
	tableName string
}

// PostgresOptions configuration for the Postgres connection
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "runs"
}

// NewPostgresRunStore creates a new Postgres run store.
func NewPostgresRunStore(ctx context.Context, opts PostgresOptions) (*PostgresRunStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "runs"
	}
	return &PostgresRunStore{pool: pool, tableName: tableName}, nil
}

// NewPostgresRunStoreWithPool creates a store over an existing pool.
// Useful for testing with mocks.
func NewPostgresRunStoreWithPool(pool DBPool, tableName string) *PostgresRunStore {
	if tableName == "" {
		tableName = "runs"
	}
	return &PostgresRunStore{pool: pool, tableName: tableName}
}

// InitSchema creates the necessary table if it doesn't exist
func (s *PostgresRunStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			inputs JSONB NOT NULL,
			outputs JSONB NOT NULL,
			failed JSONB,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_model ON %s (model);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresRunStore) Close() {
	s.pool.Close()
}

// Save stores a run record
func (s *PostgresRunStore) Save(ctx context.Context, run *store.RunRecord) error {
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
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			model = EXCLUDED.model,
			inputs = EXCLUDED.inputs,
			outputs = EXCLUDED.outputs,
			failed = EXCLUDED.failed,
			created_at = EXCLUDED.created_at
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		run.ID, run.Model, inputsJSON, outputsJSON, failedJSON, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func scanRun(row pgx.Row) (*store.RunRecord, error) {
	var run store.RunRecord
	var inputsJSON, outputsJSON, failedJSON []byte
	if err := row.Scan(&run.ID, &run.Model, &inputsJSON, &outputsJSON, &failedJSON, &run.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(inputsJSON, &run.Inputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inputs: %w", err)
	}
	if err := json.Unmarshal(outputsJSON, &run.Outputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outputs: %w", err)
	}
	if len(failedJSON) > 0 {
		if err := json.Unmarshal(failedJSON, &run.Failed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal failed ids: %w", err)
		}
	}
	return &run, nil
}

// Load retrieves a run by ID
func (s *PostgresRunStore) Load(ctx context.Context, runID string) (*store.RunRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, model, inputs, outputs, failed, created_at
		FROM %s
		WHERE id = $1
	`, s.tableName)

	run, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("run not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return run, nil
}

// List returns all runs of a given model, oldest first.
func (s *PostgresRunStore) List(ctx context.Context, model string) ([]*store.RunRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, model, inputs, outputs, failed, created_at
		FROM %s
		WHERE model = $1
		ORDER BY created_at ASC, id ASC
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query, model)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*store.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
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
func (s *PostgresRunStore) Delete(ctx context.Context, runID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// Clear removes all runs of a model
func (s *PostgresRunStore) Clear(ctx context.Context, model string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE model = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, model); err != nil {
		return fmt.Errorf("failed to clear runs: %w", err)
	}
	return nil
}

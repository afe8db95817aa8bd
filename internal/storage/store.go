// Package storage records analysis runs in a SQLite database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned by GetRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

// Fixed width so started_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var runColumns = []string{
	"id", "folder", "top_module", "started_at", "finished_at", "success", "error",
	"predicted", "actual", "correct", "leakage_type", "flat", "cyclic",
}

// Store reads and writes runs.
type Store struct {
	db     *sql.DB
	ownsDB bool // true if we opened the connection, false if shared
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; batch workers share this connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, ownsDB: true}, nil
}

// NewStoreWithDB uses an existing connection whose schema was already created.
// The caller keeps ownership of db.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database if this Store opened it.
func (s *Store) Close() error {
	if !s.ownsDB || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun inserts run and its modules in one transaction. An empty ID is replaced by
// a new UUID, which is returned.
func (s *Store) RecordRun(ctx context.Context, run *Run) (string, error) {
	if run == nil {
		return "", errors.New("run cannot be nil")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	_, err = sq.Insert("runs").
		Columns(runColumns...).
		Values(
			run.ID, run.Folder, run.TopModule,
			run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
			boolToInt(run.Success), run.Error,
			nullBool(run.Predicted), nullBool(run.Actual), nullBool(run.Correct),
			run.LeakageType, boolToInt(run.Flat), boolToInt(run.Cyclic),
		).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for i, m := range run.Modules {
		deps := m.Dependencies
		if deps == nil {
			deps = []string{}
		}
		depsJSON, err := json.Marshal(deps)
		if err != nil {
			return "", fmt.Errorf("failed to encode dependencies of %s: %w", m.Name, err)
		}
		_, err = sq.Insert("run_modules").
			Columns("run_id", "position", "name", "dependencies").
			Values(run.ID, i, m.Name, string(depsJSON)).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to insert module %s: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return run.ID, nil
}

// GetRun loads one run with its modules.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := sq.Select(runColumns...).
		From("runs").
		Where(sq.Eq{"id": id}).
		RunWith(s.db).
		QueryRowContext(ctx)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if run.Modules, err = s.modules(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first, without their modules.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]*Run, error) {
	query := sq.Select(runColumns...).
		From("runs").
		OrderBy("started_at DESC", "id")
	if opts.Folder != "" {
		query = query.Where(sq.Eq{"folder": opts.Folder})
	}
	if opts.Limit > 0 {
		query = query.Limit(uint64(opts.Limit))
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Accuracy counts labeled runs that produced a verdict and how many were correct.
func (s *Store) Accuracy(ctx context.Context) (Accuracy, error) {
	var acc Accuracy
	var correct sql.NullInt64
	err := sq.Select("COUNT(*)", "SUM(correct)").
		From("runs").
		Where(sq.NotEq{"correct": nil}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&acc.Labeled, &correct)
	if err != nil {
		return Accuracy{}, fmt.Errorf("failed to compute accuracy: %w", err)
	}
	acc.Correct = int(correct.Int64)
	return acc, nil
}

func (s *Store) modules(ctx context.Context, runID string) ([]RunModule, error) {
	rows, err := sq.Select("position", "name", "dependencies").
		From("run_modules").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("position").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query modules: %w", err)
	}
	defer rows.Close()

	modules := []RunModule{}
	for rows.Next() {
		var m RunModule
		var deps string
		if err := rows.Scan(&m.Position, &m.Name, &deps); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		if err := json.Unmarshal([]byte(deps), &m.Dependencies); err != nil {
			return nil, fmt.Errorf("failed to decode dependencies of %s: %w", m.Name, err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                        Run
		started, finished          string
		success, flat, cyclic      int
		predicted, actual, correct sql.NullBool
	)
	err := row.Scan(
		&run.ID, &run.Folder, &run.TopModule, &started, &finished, &success, &run.Error,
		&predicted, &actual, &correct, &run.LeakageType, &flat, &cyclic,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", started, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return nil, fmt.Errorf("invalid finished_at %q: %w", finished, err)
	}
	run.Success = success != 0
	run.Flat = flat != 0
	run.Cyclic = cyclic != 0
	run.Predicted = boolPtr(predicted)
	run.Actual = boolPtr(actual)
	run.Correct = boolPtr(correct)
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func boolPtr(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	v := b.Bool
	return &v
}

// Package migrate applies SQL migration scripts from a file system to a
// database and records which scripts ran in a migrations table.
package migrate

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"
)

var (
	// ErrNoTable indicates the migrations table does not exist.
	ErrNoTable = errors.New("migrations table does not exist")
	// ErrMigrationsMismatch indicates the recorded history no longer lines
	// up with the scripts on disk.
	ErrMigrationsMismatch = errors.New("migrations mismatch")
)

// Migration records a single applied migration script.
type Migration struct {
	// Sequence numbers migrations from 0 in the order they ran.
	Sequence int
	Filename string
	Metadata Metadata
}

// Equal reports whether two migrations describe the same applied script.
func (m Migration) Equal(other Migration) bool {
	return m.Sequence == other.Sequence &&
		m.Filename == other.Filename &&
		m.Metadata.AppVersion == other.Metadata.AppVersion &&
		m.Metadata.Timestamp.Equal(other.Metadata.Timestamp)
}

// Metadata describes the run that applied a migration, to help debugging
// when a database turns out to be in an unexpected state.
type Metadata struct {
	AppVersion string
	Timestamp  time.Time
}

// MigrationError wraps the error a migration script failed with.
type MigrationError struct {
	Sequence int
	Filename string
	Err      error
}

func (m MigrationError) Error() string {
	return fmt.Sprintf("migration [%d] %q failed: %v", m.Sequence, m.Filename, m.Err)
}

// RunFS applies the migration scripts in fileSys that have not run before
// and returns them, or an empty slice if the database was already up to
// date. Only .sql files in the root of fileSys are considered, applied in
// lexical order, so prefix them with a sequence number. Scripts are read
// fully into memory.
func RunFS(ctx context.Context, db *sql.DB, fileSys fs.FS, meta Metadata) ([]Migration, error) {
	scripts, err := readScripts(fileSys)
	if err != nil {
		return nil, err
	}

	// A single transaction covers the whole run. A partially applied set
	// of scripts would leave the database in a state no later run can
	// recognize.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	applied, err := runScripts(ctx, tx, scripts, meta)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return nil, errors.Join(err, fmt.Errorf("failed to rollback: %w", rbErr))
		}

		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return applied, nil
}

// QueryMigrations returns all migrations recorded in db, oldest first.
// If the migrations table does not exist yet it returns ErrNoTable.
func QueryMigrations(ctx context.Context, db *sql.DB) ([]Migration, error) {
	return selectHistory(ctx, db)
}

func runScripts(ctx context.Context, tx *sql.Tx, scripts []script, meta Metadata) ([]Migration, error) {
	const createTable = `CREATE TABLE IF NOT EXISTS migrations (
	sequence    INTEGER PRIMARY KEY,
	filename    TEXT NOT NULL,
	app_version TEXT NOT NULL,
	timestamp   TIMESTAMP NOT NULL
)
`

	if _, err := tx.ExecContext(ctx, createTable); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	history, err := selectHistory(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := checkHistory(history, scripts); err != nil {
		return nil, err
	}

	record, err := tx.PrepareContext(ctx, `INSERT INTO migrations (sequence, filename, app_version, timestamp) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	applied := make([]Migration, 0)
	for i, s := range scripts[len(history):] {
		m := Migration{
			Sequence: len(history) + i,
			Filename: s.filename,
			Metadata: meta,
		}

		if _, err := tx.ExecContext(ctx, s.sql); err != nil {
			return nil, MigrationError{
				Sequence: m.Sequence,
				Filename: m.Filename,
				Err:      err,
			}
		}

		if _, err := record.ExecContext(ctx, m.Sequence, m.Filename, m.Metadata.AppVersion, m.Metadata.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to insert migration: %w", err)
		}

		applied = append(applied, m)
	}

	return applied, nil
}

// checkHistory verifies that every recorded migration still corresponds to
// a script with the same name at the same position.
func checkHistory(history []Migration, scripts []script) error {
	if len(history) > len(scripts) {
		return fmt.Errorf(
			"found %d existing migrations but only have %d files: %w",
			len(history), len(scripts), ErrMigrationsMismatch,
		)
	}

	for i, h := range history {
		if h.Sequence != i {
			return fmt.Errorf("migration sequence mismatch, wanted %d got %d", i, h.Sequence)
		}

		if h.Filename != scripts[i].filename {
			return fmt.Errorf(
				"migration %d had filename %s, but now encountering %s: %w",
				i, h.Filename, scripts[i].filename, ErrMigrationsMismatch,
			)
		}
	}

	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func selectHistory(ctx context.Context, q querier) ([]Migration, error) {
	rows, err := q.QueryContext(ctx, `SELECT sequence, filename, app_version, timestamp FROM migrations ORDER BY sequence`)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, ErrNoTable
		}

		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	history := make([]Migration, 0)
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Sequence, &m.Filename, &m.Metadata.AppVersion, &m.Metadata.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}

		history = append(history, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}

	return history, nil
}

type script struct {
	filename string
	sql      string
}

func readScripts(fileSys fs.FS) ([]script, error) {
	entries, err := fs.ReadDir(fileSys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	scripts := make([]script, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		content, err := fs.ReadFile(fileSys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		scripts = append(scripts, script{
			filename: entry.Name(),
			sql:      string(content),
		})
	}

	slices.SortFunc(scripts, func(a, b script) int {
		return cmp.Compare(a.filename, b.filename)
	})

	return scripts, nil
}

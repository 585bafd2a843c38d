// Package schema applies versioned migrations to SQL databases. The applied
// version is tracked in SQLite's user_version pragma.
package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// MigrationFunc performs one migration inside a transaction.
type MigrationFunc func(ctx context.Context, tx *sql.Tx) error

// Migration moves the schema from Version-1 to Version.
type Migration struct {
	Version     int
	Description string
	Up          MigrationFunc
}

// Exec builds a MigrationFunc that runs fixed statements.
func Exec(statements ...string) MigrationFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

// SchemaEvolution manages database schema evolution
type SchemaEvolution struct {
	migrations []Migration
}

// NewSchemaEvolution validates that migrations are numbered 1..n in order.
func NewSchemaEvolution(migrations ...Migration) (*SchemaEvolution, error) {
	for i, m := range migrations {
		if m.Version != i+1 {
			return nil, fmt.Errorf("migration %d has version %d, want %d", i, m.Version, i+1)
		}
		if m.Up == nil {
			return nil, fmt.Errorf("migration %d has no up function", m.Version)
		}
	}
	return &SchemaEvolution{migrations: migrations}, nil
}

// Latest returns the version the database reaches after Migrate.
func (s *SchemaEvolution) Latest() int {
	return len(s.migrations)
}

// CurrentVersion reads the version recorded in the database.
func CurrentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// Migrate applies every pending migration, each in its own transaction, and
// returns how many ran. A database newer than the code is an error.
func (s *SchemaEvolution) Migrate(ctx context.Context, db *sql.DB) (int, error) {
	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return 0, err
	}
	if current > s.Latest() {
		return 0, fmt.Errorf("database schema version %d is newer than supported version %d", current, s.Latest())
	}

	applied := 0
	for _, m := range s.migrations[current:] {
		if err := s.apply(ctx, db, m); err != nil {
			return applied, fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		applied++
	}
	return applied, nil
}

func (s *SchemaEvolution) apply(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := m.Up(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

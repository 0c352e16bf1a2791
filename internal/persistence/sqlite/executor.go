package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/school-timetable/internal/persistence/migration"
)

// MigrationExecutor applies migrations to a SQLite database.
type MigrationExecutor struct {
	pool *ConnectionPool
}

// NewMigrationExecutor creates a migration executor bound to the pool.
func NewMigrationExecutor(pool *ConnectionPool) *MigrationExecutor {
	return &MigrationExecutor{pool: pool}
}

// ExecuteMigration runs every statement of the migration and records it in
// the same transaction.
func (e *MigrationExecutor) ExecuteMigration(ctx context.Context, m migration.Migration, appliedAt time.Time) error {
	started := time.Now()
	statements := migration.SplitStatements(m.SQL)
	if len(statements) == 0 {
		return migration.NewMigrationError(m.Version, m.FilePath, "parse SQL", fmt.Errorf("no SQL statements found in migration"))
	}

	return e.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for i, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return migration.NewDatabaseError(m.Version, fmt.Sprintf("execute statement %d", i+1), err)
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`,
			m.Version,
			appliedAt.UTC().Format(time.RFC3339),
			m.Checksum,
			time.Since(started).Milliseconds(),
		)
		if err != nil {
			return migration.NewDatabaseError(m.Version, "record migration", err)
		}
		return nil
	})
}

// InitializeVersionTable creates the schema_migrations table if it doesn't exist.
func (e *MigrationExecutor) InitializeVersionTable(ctx context.Context) error {
	const createTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT,
			execution_time_ms INTEGER
		)
	`
	if _, err := e.pool.DB().ExecContext(ctx, createTableSQL); err != nil {
		return migration.NewDatabaseError("", "create schema_migrations table", err)
	}
	return nil
}

// GetAppliedVersions returns all applied migration versions.
func (e *MigrationExecutor) GetAppliedVersions(ctx context.Context) ([]migration.AppliedMigration, error) {
	rows, err := e.pool.DB().QueryContext(ctx, `
		SELECT version, applied_at, COALESCE(execution_time_ms, 0), COALESCE(checksum, '')
		FROM schema_migrations
		ORDER BY version ASC
	`)
	if err != nil {
		return nil, migration.NewDatabaseError("", "get applied versions", err)
	}
	defer rows.Close()

	var applied []migration.AppliedMigration
	for rows.Next() {
		var (
			a          migration.AppliedMigration
			appliedAt  string
			durationMs int64
		)
		if err := rows.Scan(&a.Version, &appliedAt, &durationMs, &a.Checksum); err != nil {
			return nil, migration.NewDatabaseError("", "scan applied migration", err)
		}
		if a.AppliedAt, err = time.Parse(time.RFC3339, appliedAt); err != nil {
			return nil, migration.NewDatabaseError(a.Version, "parse applied_at", err)
		}
		a.ExecutionTime = time.Duration(durationMs) * time.Millisecond
		applied = append(applied, a)
	}
	if err := rows.Err(); err != nil {
		return nil, migration.NewDatabaseError("", "iterate applied migrations", err)
	}
	return applied, nil
}

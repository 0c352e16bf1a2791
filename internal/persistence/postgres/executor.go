package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/school-timetable/internal/persistence/migration"
)

// MigrationExecutor applies migrations to a PostgreSQL database.
type MigrationExecutor struct {
	pool *pgxpool.Pool
}

// NewMigrationExecutor creates a migration executor bound to the pool.
func NewMigrationExecutor(pool *pgxpool.Pool) *MigrationExecutor {
	return &MigrationExecutor{pool: pool}
}

// ExecuteMigration runs the migration and records it in one transaction.
func (e *MigrationExecutor) ExecuteMigration(ctx context.Context, m migration.Migration, appliedAt time.Time) error {
	started := time.Now()
	statements := migration.SplitStatements(m.SQL)
	if len(statements) == 0 {
		return migration.NewMigrationError(m.Version, m.FilePath, "parse SQL", fmt.Errorf("no SQL statements found in migration"))
	}

	return pgx.BeginFunc(ctx, e.pool, func(tx pgx.Tx) error {
		for i, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return migration.NewDatabaseError(m.Version, fmt.Sprintf("execute statement %d", i+1), err)
			}
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES ($1, $2, $3, $4)`,
			m.Version, appliedAt, m.Checksum, time.Since(started).Milliseconds(),
		)
		if err != nil {
			return migration.NewDatabaseError(m.Version, "record migration", err)
		}
		return nil
	})
}

// InitializeVersionTable creates the schema_migrations table if it doesn't exist.
func (e *MigrationExecutor) InitializeVersionTable(ctx context.Context) error {
	_, err := e.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			checksum TEXT,
			execution_time_ms BIGINT
		)
	`)
	if err != nil {
		return migration.NewDatabaseError("", "create schema_migrations table", err)
	}
	return nil
}

// GetAppliedVersions returns all applied migration versions.
func (e *MigrationExecutor) GetAppliedVersions(ctx context.Context) ([]migration.AppliedMigration, error) {
	rows, err := e.pool.Query(ctx, `
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
			durationMs int64
		)
		if err := rows.Scan(&a.Version, &a.AppliedAt, &durationMs, &a.Checksum); err != nil {
			return nil, migration.NewDatabaseError("", "scan applied migration", err)
		}
		a.ExecutionTime = time.Duration(durationMs) * time.Millisecond
		applied = append(applied, a)
	}
	if err := rows.Err(); err != nil {
		return nil, migration.NewDatabaseError("", "iterate applied migrations", err)
	}
	return applied, nil
}

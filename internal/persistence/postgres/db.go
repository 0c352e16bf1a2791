// Package postgres stores rooms, time slots and outbox events in PostgreSQL
// through a pgx connection pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/school-timetable/internal/persistence"
	"github.com/example/school-timetable/internal/persistence/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the PostgreSQL repositories behind one pool.
type Storage struct {
	*SlotRepository
	*RoomRepository
	*OutboxRepository

	pool *pgxpool.Pool
}

// Open connects to the database at databaseURL.
func Open(ctx context.Context, databaseURL string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	cfg.MaxConnLifetime = 5 * time.Minute
	cfg.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	return &Storage{
		SlotRepository:   NewSlotRepository(pool),
		RoomRepository:   NewRoomRepository(pool),
		OutboxRepository: NewOutboxRepository(pool),
		pool:             pool,
	}, nil
}

// Close releases the pool.
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Migrations returns a migration manager for the embedded schema.
func (s *Storage) Migrations(logger *slog.Logger) *migration.Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	scanner := migration.NewFileScanner(migrationFiles, "migrations")
	return migration.NewManager(scanner, NewMigrationExecutor(s.pool), logger.With(slog.String("driver", "postgres")))
}

// Migrate applies all pending migrations.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) error {
	return s.Migrations(logger).RunMigrations(ctx)
}

// mapError translates pgx errors into the persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return persistence.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %v", persistence.ErrForeignKeyViolation, err)
		case "23514", "23502": // check_violation, not_null_violation
			return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
		}
	}
	return err
}

// Reset drops every table owned by the schema. It exists for integration
// tests that need an empty database.
func (s *Storage) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DROP TABLE IF EXISTS outbox_events, time_slots, rooms, schema_migrations CASCADE`)
	return err
}

// Package sqlite stores rooms, time slots and outbox events in SQLite using
// the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"embed"
	"io"
	"log/slog"

	"github.com/example/school-timetable/internal/persistence/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the SQLite repositories behind one connection pool.
type Storage struct {
	*SlotRepository
	*RoomRepository
	*OutboxRepository

	pool *ConnectionPool
}

// Open connects to the database described by config.
func Open(ctx context.Context, config Config) (*Storage, error) {
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		SlotRepository:   NewSlotRepository(pool),
		RoomRepository:   NewRoomRepository(pool),
		OutboxRepository: NewOutboxRepository(pool),
		pool:             pool,
	}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrations returns a migration manager for the embedded schema.
func (s *Storage) Migrations(logger *slog.Logger) *migration.Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	scanner := migration.NewFileScanner(migrationFiles, "migrations")
	return migration.NewManager(scanner, NewMigrationExecutor(s.pool), logger.With(slog.String("driver", "sqlite")))
}

// Migrate applies all pending migrations.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) error {
	return s.Migrations(logger).RunMigrations(ctx)
}

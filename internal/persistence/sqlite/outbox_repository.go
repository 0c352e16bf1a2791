package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/school-timetable/internal/persistence"
)

// eventTimeLayout has a fixed width so that text ordering matches time ordering.
const eventTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// OutboxRepository implements persistence.OutboxRepository using SQLite.
type OutboxRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewOutboxRepository creates a new SQLite outbox repository.
func NewOutboxRepository(pool *ConnectionPool) *OutboxRepository {
	return &OutboxRepository{pool: pool, mapper: NewErrorMapper()}
}

// InsertEvent stores a pending event.
func (r *OutboxRepository) InsertEvent(ctx context.Context, event persistence.OutboxEvent) error {
	_, err := r.pool.DB().ExecContext(ctx,
		`INSERT INTO outbox_events (id, event_type, payload, created_at, published_at) VALUES (?, ?, ?, ?, ?)`,
		event.ID,
		event.EventType,
		event.Payload,
		event.CreatedAt.UTC().Format(eventTimeLayout),
		nullTimestamp(event.PublishedAt),
	)
	return r.mapper.MapError(err)
}

// ListPendingEvents returns unpublished events oldest first.
func (r *OutboxRepository) ListPendingEvents(ctx context.Context, limit int) ([]persistence.OutboxEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, event_type, payload, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	events := make([]persistence.OutboxEvent, 0)
	for rows.Next() {
		var (
			event     persistence.OutboxEvent
			createdAt string
		)
		if err := rows.Scan(&event.ID, &event.EventType, &event.Payload, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if event.CreatedAt, err = time.Parse(eventTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return events, nil
}

// MarkEventPublished records the delivery time of an event.
func (r *OutboxRepository) MarkEventPublished(ctx context.Context, id string, publishedAt time.Time) error {
	result, err := r.pool.DB().ExecContext(ctx,
		`UPDATE outbox_events SET published_at = ? WHERE id = ?`,
		sql.NullString{String: publishedAt.UTC().Format(time.RFC3339), Valid: true},
		id,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

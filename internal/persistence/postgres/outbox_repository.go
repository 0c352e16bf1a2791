package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/school-timetable/internal/persistence"
)

// OutboxRepository implements persistence.OutboxRepository using PostgreSQL.
type OutboxRepository struct{ pool *pgxpool.Pool }

// NewOutboxRepository creates a new PostgreSQL outbox repository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository { return &OutboxRepository{pool: pool} }

// InsertEvent stores a pending event.
func (r *OutboxRepository) InsertEvent(ctx context.Context, event persistence.OutboxEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO outbox_events (id, event_type, payload, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5)
	`, event.ID, event.EventType, event.Payload, event.CreatedAt, event.PublishedAt)
	return mapError(err)
}

// ListPendingEvents returns unpublished events oldest first.
func (r *OutboxRepository) ListPendingEvents(ctx context.Context, limit int) ([]persistence.OutboxEvent, error) {
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, payload, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`, limitArg)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	events := make([]persistence.OutboxEvent, 0)
	for rows.Next() {
		var event persistence.OutboxEvent
		if err := rows.Scan(&event.ID, &event.EventType, &event.Payload, &event.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return events, nil
}

// MarkEventPublished records the delivery time of an event.
func (r *OutboxRepository) MarkEventPublished(ctx context.Context, id string, publishedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE outbox_events SET published_at = $2 WHERE id = $1`, id, publishedAt)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/school-timetable/internal/persistence"
)

const slotColumns = `id, room_id, professor_id, course_id, class_id, slot_date, day, start_time, end_time,
	slot_type, status, recurrence_cadence, recurrence_until, parent_id, created_by,
	cancel_reason, cancelled_by, cancelled_at, created_at, updated_at`

// SlotRepository implements persistence.SlotRepository using PostgreSQL.
type SlotRepository struct{ pool *pgxpool.Pool }

// NewSlotRepository creates a new PostgreSQL slot repository.
func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository { return &SlotRepository{pool: pool} }

// CreateSlots inserts all slots in one transaction using a single batch.
func (r *SlotRepository) CreateSlots(ctx context.Context, slots []persistence.TimeSlot) error {
	if len(slots) == 0 {
		return nil
	}

	const query = `INSERT INTO time_slots (` + slotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, slot := range slots {
			batch.Queue(query,
				slot.ID, slot.RoomID, slot.ProfessorID, slot.CourseID, slot.ClassID,
				slot.Date, slot.Day, slot.StartTime, slot.EndTime,
				slot.Type, slot.Status, slot.RecurrenceCadence, slot.RecurrenceUntil, slot.ParentID, slot.CreatedBy,
				slot.CancelReason, slot.CancelledBy, slot.CancelledAt, slot.CreatedAt, slot.UpdatedAt,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for range slots {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return err
			}
		}
		return results.Close()
	})
	return mapError(err)
}

// UpdateSlot replaces the mutable columns of an existing slot.
func (r *SlotRepository) UpdateSlot(ctx context.Context, slot persistence.TimeSlot) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE time_slots
		SET room_id = $2, professor_id = $3, course_id = $4, class_id = $5, slot_date = $6, day = $7,
			start_time = $8, end_time = $9, slot_type = $10, status = $11, recurrence_cadence = $12,
			recurrence_until = $13, parent_id = $14, cancel_reason = $15, cancelled_by = $16,
			cancelled_at = $17, updated_at = $18
		WHERE id = $1
	`,
		slot.ID, slot.RoomID, slot.ProfessorID, slot.CourseID, slot.ClassID, slot.Date, slot.Day,
		slot.StartTime, slot.EndTime, slot.Type, slot.Status, slot.RecurrenceCadence,
		slot.RecurrenceUntil, slot.ParentID, slot.CancelReason, slot.CancelledBy,
		slot.CancelledAt, slot.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetSlot retrieves a slot by ID.
func (r *SlotRepository) GetSlot(ctx context.Context, id string) (persistence.TimeSlot, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+slotColumns+` FROM time_slots WHERE id = $1`, id)
	slot, err := scanSlot(row)
	if err != nil {
		return persistence.TimeSlot{}, mapError(err)
	}
	return slot, nil
}

// ListSlots returns slots matching the query ordered by date, start time and ID.
func (r *SlotRepository) ListSlots(ctx context.Context, q persistence.SlotQuery) ([]persistence.TimeSlot, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(column string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf("%s $%d", column, len(args)))
	}
	if q.Type != "" {
		add("slot_type =", q.Type)
	}
	if q.ClassID != "" {
		add("class_id =", q.ClassID)
	}
	if q.ProfessorID != "" {
		add("professor_id =", q.ProfessorID)
	}
	if q.RoomID != "" {
		add("room_id =", q.RoomID)
	}
	if q.CourseID != "" {
		add("course_id =", q.CourseID)
	}
	if q.Status != "" {
		add("status =", q.Status)
	}
	if q.From != nil {
		add("slot_date >=", *q.From)
	}
	if q.To != nil {
		add("slot_date <=", *q.To)
	}

	query := `SELECT ` + slotColumns + ` FROM time_slots`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY slot_date ASC, start_time ASC, id ASC"
	return r.query(ctx, query, args...)
}

// FindScheduledSlots returns SCHEDULED slots matching the filter.
func (r *SlotRepository) FindScheduledSlots(ctx context.Context, filter persistence.SlotFilter) ([]persistence.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots
		WHERE status = $1
			AND ($2 = '' OR room_id = $2)
			AND ($3 = '' OR professor_id = $3)
			AND ($4::smallint IS NULL OR day = $4)
		ORDER BY slot_date ASC, start_time ASC, id ASC`
	return r.query(ctx, query, persistence.SlotStatusScheduled, filter.RoomID, filter.ProfessorID, filter.Day)
}

func (r *SlotRepository) query(ctx context.Context, query string, args ...any) ([]persistence.TimeSlot, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	slots := make([]persistence.TimeSlot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, mapError(err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return slots, nil
}

func scanSlot(row pgx.Row) (persistence.TimeSlot, error) {
	var slot persistence.TimeSlot
	err := row.Scan(
		&slot.ID,
		&slot.RoomID,
		&slot.ProfessorID,
		&slot.CourseID,
		&slot.ClassID,
		&slot.Date,
		&slot.Day,
		&slot.StartTime,
		&slot.EndTime,
		&slot.Type,
		&slot.Status,
		&slot.RecurrenceCadence,
		&slot.RecurrenceUntil,
		&slot.ParentID,
		&slot.CreatedBy,
		&slot.CancelReason,
		&slot.CancelledBy,
		&slot.CancelledAt,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return persistence.TimeSlot{}, err
	}
	slot.Date = slot.Date.UTC()
	return slot, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/school-timetable/internal/persistence"
)

const dateLayout = "2006-01-02"

const slotColumns = `id, room_id, professor_id, course_id, class_id, slot_date, day, start_time, end_time,
	slot_type, status, recurrence_cadence, recurrence_until, parent_id, created_by,
	cancel_reason, cancelled_by, cancelled_at, created_at, updated_at`

// SlotRepository implements persistence.SlotRepository using SQLite.
type SlotRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewSlotRepository creates a new SQLite slot repository.
func NewSlotRepository(pool *ConnectionPool) *SlotRepository {
	return &SlotRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateSlots inserts all slots in one transaction.
func (r *SlotRepository) CreateSlots(ctx context.Context, slots []persistence.TimeSlot) error {
	if len(slots) == 0 {
		return nil
	}
	for _, slot := range slots {
		if slot.ID == "" {
			return persistence.ErrConstraintViolation
		}
	}

	query := `INSERT INTO time_slots (` + slotColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, query)
			if err != nil {
				return err
			}
			defer stmt.Close()

			for _, slot := range slots {
				if _, err := stmt.ExecContext(ctx, slotArgs(slot)...); err != nil {
					return err
				}
			}
			return nil
		})
	})
	return r.mapper.MapError(err)
}

// UpdateSlot replaces the mutable columns of an existing slot.
func (r *SlotRepository) UpdateSlot(ctx context.Context, slot persistence.TimeSlot) error {
	query := `
		UPDATE time_slots
		SET room_id = ?, professor_id = ?, course_id = ?, class_id = ?, slot_date = ?, day = ?,
			start_time = ?, end_time = ?, slot_type = ?, status = ?, recurrence_cadence = ?,
			recurrence_until = ?, parent_id = ?, cancel_reason = ?, cancelled_by = ?,
			cancelled_at = ?, updated_at = ?
		WHERE id = ?
	`

	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.pool.DB().ExecContext(ctx, query,
			slot.RoomID,
			slot.ProfessorID,
			slot.CourseID,
			slot.ClassID,
			slot.Date.Format(dateLayout),
			slot.Day,
			slot.StartTime,
			slot.EndTime,
			slot.Type,
			slot.Status,
			nullString(slot.RecurrenceCadence),
			nullDate(slot.RecurrenceUntil),
			nullString(slot.ParentID),
			nullString(slot.CancelReason),
			nullString(slot.CancelledBy),
			nullTimestamp(slot.CancelledAt),
			slot.UpdatedAt.UTC().Format(time.RFC3339),
			slot.ID,
		)
		return execErr
	})
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

// GetSlot retrieves a slot by ID.
func (r *SlotRepository) GetSlot(ctx context.Context, id string) (persistence.TimeSlot, error) {
	if id == "" {
		return persistence.TimeSlot{}, persistence.ErrNotFound
	}

	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+slotColumns+` FROM time_slots WHERE id = ?`, id)
	slot, err := scanSlot(row)
	if err != nil {
		return persistence.TimeSlot{}, r.mapper.MapError(err)
	}
	return slot, nil
}

// ListSlots returns slots matching the query ordered by date, start time and ID.
func (r *SlotRepository) ListSlots(ctx context.Context, q persistence.SlotQuery) ([]persistence.TimeSlot, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		clauses = append(clauses, clause)
		args = append(args, arg)
	}
	if q.Type != "" {
		add("slot_type = ?", q.Type)
	}
	if q.ClassID != "" {
		add("class_id = ?", q.ClassID)
	}
	if q.ProfessorID != "" {
		add("professor_id = ?", q.ProfessorID)
	}
	if q.RoomID != "" {
		add("room_id = ?", q.RoomID)
	}
	if q.CourseID != "" {
		add("course_id = ?", q.CourseID)
	}
	if q.Status != "" {
		add("status = ?", q.Status)
	}
	if q.From != nil {
		add("slot_date >= ?", q.From.Format(dateLayout))
	}
	if q.To != nil {
		add("slot_date <= ?", q.To.Format(dateLayout))
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
	clauses := []string{"status = ?"}
	args := []any{persistence.SlotStatusScheduled}
	if filter.RoomID != "" {
		clauses = append(clauses, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.ProfessorID != "" {
		clauses = append(clauses, "professor_id = ?")
		args = append(args, filter.ProfessorID)
	}
	if filter.Day != nil {
		clauses = append(clauses, "day = ?")
		args = append(args, *filter.Day)
	}

	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY slot_date ASC, start_time ASC, id ASC`
	return r.query(ctx, query, args...)
}

func (r *SlotRepository) query(ctx context.Context, query string, args ...any) ([]persistence.TimeSlot, error) {
	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	slots := make([]persistence.TimeSlot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return slots, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (persistence.TimeSlot, error) {
	var (
		slot                                   persistence.TimeSlot
		date, createdAt, updatedAt             string
		cadence, until, parentID               sql.NullString
		cancelReason, cancelledBy, cancelledAt sql.NullString
	)
	err := row.Scan(
		&slot.ID,
		&slot.RoomID,
		&slot.ProfessorID,
		&slot.CourseID,
		&slot.ClassID,
		&date,
		&slot.Day,
		&slot.StartTime,
		&slot.EndTime,
		&slot.Type,
		&slot.Status,
		&cadence,
		&until,
		&parentID,
		&slot.CreatedBy,
		&cancelReason,
		&cancelledBy,
		&cancelledAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.TimeSlot{}, err
	}

	if slot.Date, err = time.Parse(dateLayout, date); err != nil {
		return persistence.TimeSlot{}, fmt.Errorf("failed to parse slot_date: %w", err)
	}
	if slot.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.TimeSlot{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if slot.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.TimeSlot{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if slot.RecurrenceUntil, err = parseNullable(until, dateLayout); err != nil {
		return persistence.TimeSlot{}, fmt.Errorf("failed to parse recurrence_until: %w", err)
	}
	if slot.CancelledAt, err = parseNullable(cancelledAt, time.RFC3339); err != nil {
		return persistence.TimeSlot{}, fmt.Errorf("failed to parse cancelled_at: %w", err)
	}
	slot.RecurrenceCadence = stringPtr(cadence)
	slot.ParentID = stringPtr(parentID)
	slot.CancelReason = stringPtr(cancelReason)
	slot.CancelledBy = stringPtr(cancelledBy)

	return slot, nil
}

func slotArgs(slot persistence.TimeSlot) []any {
	return []any{
		slot.ID,
		slot.RoomID,
		slot.ProfessorID,
		slot.CourseID,
		slot.ClassID,
		slot.Date.Format(dateLayout),
		slot.Day,
		slot.StartTime,
		slot.EndTime,
		slot.Type,
		slot.Status,
		nullString(slot.RecurrenceCadence),
		nullDate(slot.RecurrenceUntil),
		nullString(slot.ParentID),
		slot.CreatedBy,
		nullString(slot.CancelReason),
		nullString(slot.CancelledBy),
		nullTimestamp(slot.CancelledAt),
		slot.CreatedAt.UTC().Format(time.RFC3339),
		slot.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullDate(v *time.Time) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.Format(dateLayout), Valid: true}
}

func nullTimestamp(v *time.Time) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.UTC().Format(time.RFC3339), Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func parseNullable(v sql.NullString, layout string) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(layout, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

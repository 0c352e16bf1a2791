package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/school-timetable/internal/persistence"
)

const roomColumns = `id, name, building, floor, capacity, facilities, status, created_at, updated_at`

// RoomRepository implements persistence.RoomRepository using PostgreSQL.
type RoomRepository struct{ pool *pgxpool.Pool }

// NewRoomRepository creates a new PostgreSQL room repository.
func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository { return &RoomRepository{pool: pool} }

// CreateRoom inserts a new room.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO rooms (`+roomColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		room.ID, room.Name, room.Building, room.Floor, room.Capacity, facilities(room.Facilities),
		room.Status, room.CreatedAt, room.UpdatedAt,
	)
	return mapError(err)
}

// UpdateRoom updates an existing room.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE rooms
		SET name = $2, building = $3, floor = $4, capacity = $5, facilities = $6, status = $7, updated_at = $8
		WHERE id = $1
	`, room.ID, room.Name, room.Building, room.Floor, room.Capacity, facilities(room.Facilities), room.Status, room.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetRoom retrieves a room by ID.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
	room, err := scanRoom(row)
	if err != nil {
		return persistence.Room{}, mapError(err)
	}
	return room, nil
}

// ListRooms returns all rooms ordered by name then ID.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	rooms := make([]persistence.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, mapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return rooms, nil
}

// DeleteRoom removes a room that no slot refers to.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) error {
	return mapError(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var inUse int
		if err := tx.QueryRow(ctx, `SELECT COUNT(1) FROM time_slots WHERE room_id = $1`, id).Scan(&inUse); err != nil {
			return err
		}
		if inUse > 0 {
			return fmt.Errorf("postgres: room %s is referenced by %d slots: %w", id, inUse, persistence.ErrForeignKeyViolation)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return persistence.ErrNotFound
		}
		return nil
	}))
}

func scanRoom(row pgx.Row) (persistence.Room, error) {
	var room persistence.Room
	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Building,
		&room.Floor,
		&room.Capacity,
		&room.Facilities,
		&room.Status,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return persistence.Room{}, err
	}
	if room.Facilities == nil {
		room.Facilities = []string{}
	}
	return room, nil
}

func facilities(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

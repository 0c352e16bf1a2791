package persistence

import (
	"context"
	"time"
)

// SlotStatusScheduled is the stored status of slots that take part in conflict checks.
const SlotStatusScheduled = "SCHEDULED"

// SlotFilter narrows FindScheduledSlots. Empty fields are not filtered on.
type SlotFilter struct {
	RoomID      string
	ProfessorID string
	Day         *int
}

// SlotQuery narrows slot listings. From and To are inclusive calendar dates.
type SlotQuery struct {
	Type        string
	ClassID     string
	ProfessorID string
	RoomID      string
	CourseID    string
	Status      string
	From        *time.Time
	To          *time.Time
}

// SlotRepository stores time slots.
type SlotRepository interface {
	// CreateSlots stores every slot or none of them.
	CreateSlots(ctx context.Context, slots []TimeSlot) error
	UpdateSlot(ctx context.Context, slot TimeSlot) error
	GetSlot(ctx context.Context, id string) (TimeSlot, error)
	// ListSlots returns matching slots ordered by date, start time and ID.
	ListSlots(ctx context.Context, query SlotQuery) ([]TimeSlot, error)
	// FindScheduledSlots returns only SCHEDULED slots.
	FindScheduledSlots(ctx context.Context, filter SlotFilter) ([]TimeSlot, error)
}

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	// DeleteRoom fails with ErrForeignKeyViolation while any slot refers to the room.
	DeleteRoom(ctx context.Context, id string) error
}

// OutboxRepository stores notification events for later delivery.
type OutboxRepository interface {
	InsertEvent(ctx context.Context, event OutboxEvent) error
	ListPendingEvents(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id string, publishedAt time.Time) error
}

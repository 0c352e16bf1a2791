// Package memory provides a map backed implementation of the persistence
// repositories. It is used by tests and by the "memory" database driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/school-timetable/internal/persistence"
)

// Storage keeps rooms, slots and outbox events in memory.
type Storage struct {
	mu     sync.RWMutex
	rooms  map[string]persistence.Room
	slots  map[string]persistence.TimeSlot
	events map[string]persistence.OutboxEvent
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		rooms:  make(map[string]persistence.Room),
		slots:  make(map[string]persistence.TimeSlot),
		events: make(map[string]persistence.OutboxEvent),
	}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// --- RoomRepository implementation ---

// CreateRoom stores a new room.
func (s *Storage) CreateRoom(ctx context.Context, room persistence.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; ok {
		return fmt.Errorf("memory: room %s: %w", room.ID, persistence.ErrDuplicate)
	}
	if err := s.ensureUniqueRoomNameLocked(room.ID, room.Name); err != nil {
		return err
	}

	s.rooms[room.ID] = cloneRoom(room)
	return nil
}

// UpdateRoom updates an existing room.
func (s *Storage) UpdateRoom(ctx context.Context, room persistence.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; !ok {
		return persistence.ErrNotFound
	}
	if err := s.ensureUniqueRoomNameLocked(room.ID, room.Name); err != nil {
		return err
	}

	s.rooms[room.ID] = cloneRoom(room)
	return nil
}

// GetRoom retrieves a room by ID.
func (s *Storage) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return cloneRoom(room), nil
}

// ListRooms returns all rooms ordered by name.
func (s *Storage) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]persistence.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, cloneRoom(room))
	}

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Name == rooms[j].Name {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].Name < rooms[j].Name
	})
	return rooms, nil
}

// DeleteRoom removes a room that no slot refers to.
func (s *Storage) DeleteRoom(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[id]; !ok {
		return persistence.ErrNotFound
	}
	for _, slot := range s.slots {
		if slot.RoomID == id {
			return fmt.Errorf("memory: room %s is referenced by slot %s: %w", id, slot.ID, persistence.ErrForeignKeyViolation)
		}
	}

	delete(s.rooms, id)
	return nil
}

func (s *Storage) ensureUniqueRoomNameLocked(id, name string) error {
	lower := strings.ToLower(name)
	for _, existing := range s.rooms {
		if existing.ID != id && strings.ToLower(existing.Name) == lower {
			return fmt.Errorf("memory: room name %q: %w", name, persistence.ErrDuplicate)
		}
	}
	return nil
}

// --- SlotRepository implementation ---

// CreateSlots stores all slots or, on the first failure, none of them.
func (s *Storage) CreateSlots(ctx context.Context, slots []persistence.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		if _, ok := s.slots[slot.ID]; ok {
			return fmt.Errorf("memory: slot %s: %w", slot.ID, persistence.ErrDuplicate)
		}
		if _, ok := seen[slot.ID]; ok {
			return fmt.Errorf("memory: slot %s: %w", slot.ID, persistence.ErrDuplicate)
		}
		seen[slot.ID] = struct{}{}
		if err := s.checkSlotReferencesLocked(slot); err != nil {
			return err
		}
	}

	for _, slot := range slots {
		s.slots[slot.ID] = cloneSlot(slot)
	}
	return nil
}

// UpdateSlot replaces an existing slot.
func (s *Storage) UpdateSlot(ctx context.Context, slot persistence.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slots[slot.ID]; !ok {
		return persistence.ErrNotFound
	}
	if err := s.checkSlotReferencesLocked(slot); err != nil {
		return err
	}

	s.slots[slot.ID] = cloneSlot(slot)
	return nil
}

// GetSlot retrieves a slot by ID.
func (s *Storage) GetSlot(ctx context.Context, id string) (persistence.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[id]
	if !ok {
		return persistence.TimeSlot{}, persistence.ErrNotFound
	}
	return cloneSlot(slot), nil
}

// ListSlots returns slots matching the query ordered by date, start time and ID.
func (s *Storage) ListSlots(ctx context.Context, query persistence.SlotQuery) ([]persistence.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.TimeSlot, 0)
	for _, slot := range s.slots {
		if matchesQuery(slot, query) {
			out = append(out, cloneSlot(slot))
		}
	}
	sortSlots(out)
	return out, nil
}

// FindScheduledSlots returns SCHEDULED slots matching the filter.
func (s *Storage) FindScheduledSlots(ctx context.Context, filter persistence.SlotFilter) ([]persistence.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.TimeSlot, 0)
	for _, slot := range s.slots {
		if slot.Status != persistence.SlotStatusScheduled {
			continue
		}
		if filter.RoomID != "" && slot.RoomID != filter.RoomID {
			continue
		}
		if filter.ProfessorID != "" && slot.ProfessorID != filter.ProfessorID {
			continue
		}
		if filter.Day != nil && slot.Day != *filter.Day {
			continue
		}
		out = append(out, cloneSlot(slot))
	}
	sortSlots(out)
	return out, nil
}

func (s *Storage) checkSlotReferencesLocked(slot persistence.TimeSlot) error {
	if _, ok := s.rooms[slot.RoomID]; !ok {
		return fmt.Errorf("memory: room %s does not exist: %w", slot.RoomID, persistence.ErrForeignKeyViolation)
	}
	return nil
}

func matchesQuery(slot persistence.TimeSlot, q persistence.SlotQuery) bool {
	switch {
	case q.Type != "" && slot.Type != q.Type:
		return false
	case q.ClassID != "" && slot.ClassID != q.ClassID:
		return false
	case q.ProfessorID != "" && slot.ProfessorID != q.ProfessorID:
		return false
	case q.RoomID != "" && slot.RoomID != q.RoomID:
		return false
	case q.CourseID != "" && slot.CourseID != q.CourseID:
		return false
	case q.Status != "" && slot.Status != q.Status:
		return false
	case q.From != nil && slot.Date.Before(*q.From):
		return false
	case q.To != nil && slot.Date.After(*q.To):
		return false
	}
	return true
}

func sortSlots(slots []persistence.TimeSlot) {
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}

// --- OutboxRepository implementation ---

// InsertEvent stores a new outbox event.
func (s *Storage) InsertEvent(ctx context.Context, event persistence.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; ok {
		return fmt.Errorf("memory: event %s: %w", event.ID, persistence.ErrDuplicate)
	}
	s.events[event.ID] = cloneEvent(event)
	return nil
}

// ListPendingEvents returns unpublished events oldest first.
func (s *Storage) ListPendingEvents(ctx context.Context, limit int) ([]persistence.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]persistence.OutboxEvent, 0)
	for _, event := range s.events {
		if event.PublishedAt == nil {
			events = append(events, cloneEvent(event))
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// MarkEventPublished records the delivery time of an event.
func (s *Storage) MarkEventPublished(ctx context.Context, id string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok {
		return persistence.ErrNotFound
	}
	at := publishedAt
	event.PublishedAt = &at
	s.events[id] = event
	return nil
}

// --- Helpers ---

func cloneRoom(room persistence.Room) persistence.Room {
	cp := room
	cp.Facilities = append([]string{}, room.Facilities...)
	return cp
}

func cloneSlot(slot persistence.TimeSlot) persistence.TimeSlot {
	cp := slot
	cp.RecurrenceCadence = cloneString(slot.RecurrenceCadence)
	cp.RecurrenceUntil = cloneTime(slot.RecurrenceUntil)
	cp.ParentID = cloneString(slot.ParentID)
	cp.CancelReason = cloneString(slot.CancelReason)
	cp.CancelledBy = cloneString(slot.CancelledBy)
	cp.CancelledAt = cloneTime(slot.CancelledAt)
	return cp
}

func cloneEvent(event persistence.OutboxEvent) persistence.OutboxEvent {
	cp := event
	cp.Payload = append([]byte(nil), event.Payload...)
	cp.PublishedAt = cloneTime(event.PublishedAt)
	return cp
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	copy := *v
	return &copy
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	copy := *v
	return &copy
}

package scheduler

import (
	"context"
	"fmt"
)

// ConflictType describes the type of conflict detected between slots.
type ConflictType string

const (
	// ConflictTypeRoom indicates the room is already booked.
	ConflictTypeRoom ConflictType = "ROOM"
	// ConflictTypeProfessor indicates the professor is already booked.
	ConflictTypeProfessor ConflictType = "PROFESSOR"
)

const (
	roomConflictMessage      = "room is already booked for this time slot"
	professorConflictMessage = "professor is already booked for this time slot"
)

// Conflict details the existing slots a candidate collides with.
type Conflict struct {
	Type    ConflictType
	Message string
	Slots   []TimeSlot
}

// NewConflict builds a conflict of the given type with its standard message.
func NewConflict(kind ConflictType, slots []TimeSlot) Conflict {
	msg := roomConflictMessage
	if kind == ConflictTypeProfessor {
		msg = professorConflictMessage
	}
	return Conflict{Type: kind, Message: msg, Slots: slots}
}

// SlotFilter narrows FindScheduledSlots. Empty fields are not filtered on.
type SlotFilter struct {
	RoomID      string
	ProfessorID string
	Day         *int
}

// SlotRepository is the read contract the detector needs from storage. It must
// reflect the latest committed state and return only scheduled slots.
type SlotRepository interface {
	FindScheduledSlots(ctx context.Context, filter SlotFilter) ([]TimeSlot, error)
}

// Detector finds room and professor double bookings. It holds no mutable state
// and is safe for concurrent use.
type Detector struct {
	slots SlotRepository
}

// NewDetector constructs a Detector reading from the provided repository.
func NewDetector(slots SlotRepository) *Detector {
	return &Detector{slots: slots}
}

// DetectConflicts identifies conflicts for the candidate slot against scheduled
// slots on the same weekday. excludeID, when set, is never reported, which lets
// an update compare a slot against all other slots.
//
// The room pass runs only when the candidate names a room, and the professor
// pass only when it names a professor. The result holds at most two entries:
// the room conflict first, then the professor conflict.
func (d *Detector) DetectConflicts(ctx context.Context, candidate TimeSlot, excludeID string) ([]Conflict, error) {
	if err := ValidateSlot(candidate); err != nil {
		return nil, err
	}
	if d == nil || d.slots == nil {
		return nil, fmt.Errorf("scheduler: detector has no slot repository")
	}

	day := candidate.Day
	var conflicts []Conflict

	if candidate.RoomID != "" {
		roomSlots, err := d.overlapping(ctx, SlotFilter{RoomID: candidate.RoomID, Day: &day}, candidate, excludeID)
		if err != nil {
			return nil, fmt.Errorf("scheduler: find room slots: %w", err)
		}
		if len(roomSlots) > 0 {
			conflicts = append(conflicts, NewConflict(ConflictTypeRoom, roomSlots))
		}
	}

	if candidate.ProfessorID != "" {
		professorSlots, err := d.overlapping(ctx, SlotFilter{ProfessorID: candidate.ProfessorID, Day: &day}, candidate, excludeID)
		if err != nil {
			return nil, fmt.Errorf("scheduler: find professor slots: %w", err)
		}
		if len(professorSlots) > 0 {
			conflicts = append(conflicts, NewConflict(ConflictTypeProfessor, professorSlots))
		}
	}

	return conflicts, nil
}

func (d *Detector) overlapping(ctx context.Context, filter SlotFilter, candidate TimeSlot, excludeID string) ([]TimeSlot, error) {
	existing, err := d.slots.FindScheduledSlots(ctx, filter)
	if err != nil {
		return nil, err
	}

	var hits []TimeSlot
	for _, slot := range existing {
		if excludeID != "" && slot.ID == excludeID {
			continue
		}
		if !slot.IsScheduled() {
			continue
		}
		if filter.Day != nil && slot.Day != *filter.Day {
			continue
		}
		if candidate.Overlaps(slot) {
			hits = append(hits, slot)
		}
	}
	return hits, nil
}

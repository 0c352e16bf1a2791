package application

import (
	"context"
	"slices"
	"time"

	"github.com/example/school-timetable/internal/persistence"
	"github.com/example/school-timetable/internal/scheduler"
)

// slotSource exposes a persistence slot repository to the conflict detector.
type slotSource struct {
	repo persistence.SlotRepository
}

func (s slotSource) FindScheduledSlots(ctx context.Context, filter scheduler.SlotFilter) ([]scheduler.TimeSlot, error) {
	rows, err := s.repo.FindScheduledSlots(ctx, persistence.SlotFilter{
		RoomID:      filter.RoomID,
		ProfessorID: filter.ProfessorID,
		Day:         filter.Day,
	})
	if err != nil {
		return nil, err
	}
	out := make([]scheduler.TimeSlot, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSchedulerSlot(slotFromRow(row)))
	}
	return out, nil
}

func slotFromRow(row persistence.TimeSlot) Slot {
	slot := Slot{
		ID:          row.ID,
		RoomID:      row.RoomID,
		ProfessorID: row.ProfessorID,
		CourseID:    row.CourseID,
		ClassID:     row.ClassID,
		Date:        row.Date,
		Day:         row.Day,
		StartTime:   row.StartTime,
		EndTime:     row.EndTime,
		Type:        row.Type,
		Status:      row.Status,
		CreatedBy:   row.CreatedBy,
		CancelledAt: cloneTime(row.CancelledAt),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.RecurrenceCadence != nil {
		slot.Recurrence = &SlotRecurrence{Cadence: *row.RecurrenceCadence, Until: cloneTime(row.RecurrenceUntil)}
	}
	if row.ParentID != nil {
		slot.ParentID = *row.ParentID
	}
	if row.CancelReason != nil {
		slot.CancelReason = *row.CancelReason
	}
	if row.CancelledBy != nil {
		slot.CancelledBy = *row.CancelledBy
	}
	return slot
}

func slotToRow(slot Slot) persistence.TimeSlot {
	row := persistence.TimeSlot{
		ID:           slot.ID,
		RoomID:       slot.RoomID,
		ProfessorID:  slot.ProfessorID,
		CourseID:     slot.CourseID,
		ClassID:      slot.ClassID,
		Date:         slot.Date,
		Day:          slot.Day,
		StartTime:    slot.StartTime,
		EndTime:      slot.EndTime,
		Type:         slot.Type,
		Status:       slot.Status,
		ParentID:     optionalString(slot.ParentID),
		CreatedBy:    slot.CreatedBy,
		CancelReason: optionalString(slot.CancelReason),
		CancelledBy:  optionalString(slot.CancelledBy),
		CancelledAt:  cloneTime(slot.CancelledAt),
		CreatedAt:    slot.CreatedAt,
		UpdatedAt:    slot.UpdatedAt,
	}
	if slot.Recurrence != nil {
		cadence := slot.Recurrence.Cadence
		row.RecurrenceCadence = &cadence
		row.RecurrenceUntil = cloneTime(slot.Recurrence.Until)
	}
	return row
}

func toSchedulerSlot(slot Slot) scheduler.TimeSlot {
	out := scheduler.TimeSlot{
		ID:          slot.ID,
		RoomID:      slot.RoomID,
		ProfessorID: slot.ProfessorID,
		CourseID:    slot.CourseID,
		ClassID:     slot.ClassID,
		Date:        slot.Date,
		Day:         slot.Day,
		StartTime:   scheduler.Clock(slot.StartTime),
		EndTime:     scheduler.Clock(slot.EndTime),
		Type:        scheduler.SlotType(slot.Type),
		Status:      scheduler.SlotStatus(slot.Status),
		ParentID:    slot.ParentID,
	}
	if slot.Recurrence != nil {
		cadence, err := scheduler.ParseCadence(slot.Recurrence.Cadence)
		if err == nil {
			out.Recurrence = &scheduler.Recurrence{Cadence: cadence, Until: cloneTime(slot.Recurrence.Until)}
		}
	}
	return out
}

// occurrenceSlot turns a generated occurrence into an unsaved Slot that carries
// the origin's bookkeeping fields.
func occurrenceSlot(occurrence scheduler.TimeSlot, origin Slot) Slot {
	return Slot{
		RoomID:      occurrence.RoomID,
		ProfessorID: occurrence.ProfessorID,
		CourseID:    occurrence.CourseID,
		ClassID:     occurrence.ClassID,
		Date:        occurrence.Date,
		Day:         occurrence.Day,
		StartTime:   string(occurrence.StartTime),
		EndTime:     string(occurrence.EndTime),
		Type:        string(occurrence.Type),
		Status:      string(occurrence.Status),
		ParentID:    origin.ID,
		CreatedBy:   origin.CreatedBy,
		CreatedAt:   origin.CreatedAt,
		UpdatedAt:   origin.UpdatedAt,
	}
}

func roomFromRow(row persistence.Room) Room {
	return Room{
		ID:         row.ID,
		Name:       row.Name,
		Building:   row.Building,
		Floor:      row.Floor,
		Capacity:   row.Capacity,
		Facilities: slices.Clone(row.Facilities),
		Status:     row.Status,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

func roomToRow(room Room) persistence.Room {
	return persistence.Room{
		ID:         room.ID,
		Name:       room.Name,
		Building:   room.Building,
		Floor:      room.Floor,
		Capacity:   room.Capacity,
		Facilities: slices.Clone(room.Facilities),
		Status:     room.Status,
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

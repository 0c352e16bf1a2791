package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/school-timetable/internal/persistence"
	"github.com/example/school-timetable/internal/scheduler"
)

var (
	roomCounter uint64
	slotCounter uint64
)

// referenceTime is a Tuesday morning in the first week of term.
var referenceTime = time.Date(2024, time.January, 2, 8, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Date returns UTC midnight of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic lecture room record.
type RoomFixture struct {
	ID         string
	Name       string
	Building   string
	Floor      int
	Capacity   int
	Facilities []string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := RoomFixture{
		ID:         fmt.Sprintf("room-%03d", idx),
		Name:       fmt.Sprintf("Room %03d", idx),
		Building:   "Main Building",
		Floor:      int(idx % 4),
		Capacity:   int(20 + idx%4*10),
		Facilities: []string{"PROJECTOR", "WHITEBOARD"},
		Status:     "AVAILABLE",
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// WithRoomFacilities replaces the facility list.
func WithRoomFacilities(facilities ...string) RoomOption {
	return func(f *RoomFixture) {
		f.Facilities = append([]string{}, facilities...)
	}
}

// WithRoomStatus overrides the room status.
func WithRoomStatus(status string) RoomOption {
	return func(f *RoomFixture) {
		f.Status = status
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:         f.ID,
		Name:       f.Name,
		Building:   f.Building,
		Floor:      f.Floor,
		Capacity:   f.Capacity,
		Facilities: append([]string{}, f.Facilities...),
		Status:     f.Status,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// ----------------------------- Slot fixtures -----------------------------

// SlotFixture represents a deterministic time slot. The default is a
// scheduled COURSE on Monday 2024-01-08 from 09:00 to 10:30.
type SlotFixture struct {
	ID          string
	RoomID      string
	ProfessorID string
	CourseID    string
	ClassID     string
	Date        time.Time
	StartTime   string
	EndTime     string
	Type        string
	Status      string
	Cadence     string
	Until       *time.Time
	ParentID    string
	CreatedBy   string
	CreatedAt   time.Time
}

// SlotOption configures the generated slot fixture.
type SlotOption func(*SlotFixture)

// NewSlotFixture returns a deterministic slot fixture with optional overrides.
func NewSlotFixture(opts ...SlotOption) SlotFixture {
	idx := atomic.AddUint64(&slotCounter, 1)
	fixture := SlotFixture{
		ID:          fmt.Sprintf("slot-%03d", idx),
		RoomID:      "room-a",
		ProfessorID: "prof-1",
		CourseID:    "course-1",
		ClassID:     "class-1",
		Date:        Date(2024, time.January, 8),
		StartTime:   "09:00",
		EndTime:     "10:30",
		Type:        "COURSE",
		Status:      persistence.SlotStatusScheduled,
		CreatedBy:   "admin-1",
		CreatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSlotID overrides the generated slot ID.
func WithSlotID(id string) SlotOption {
	return func(f *SlotFixture) {
		f.ID = id
	}
}

// WithSlotRoom overrides the room.
func WithSlotRoom(roomID string) SlotOption {
	return func(f *SlotFixture) {
		f.RoomID = roomID
	}
}

// WithSlotProfessor overrides the professor.
func WithSlotProfessor(professorID string) SlotOption {
	return func(f *SlotFixture) {
		f.ProfessorID = professorID
	}
}

// WithSlotClass overrides the class.
func WithSlotClass(classID string) SlotOption {
	return func(f *SlotFixture) {
		f.ClassID = classID
	}
}

// WithSlotDate overrides the calendar date; the weekday follows from it.
func WithSlotDate(date time.Time) SlotOption {
	return func(f *SlotFixture) {
		f.Date = date
	}
}

// WithSlotTimes overrides the start and end clock times.
func WithSlotTimes(start, end string) SlotOption {
	return func(f *SlotFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithSlotType overrides the slot type.
func WithSlotType(kind string) SlotOption {
	return func(f *SlotFixture) {
		f.Type = kind
	}
}

// WithSlotStatus overrides the slot status.
func WithSlotStatus(status string) SlotOption {
	return func(f *SlotFixture) {
		f.Status = status
	}
}

// WithSlotRecurrence attaches a recurrence descriptor.
func WithSlotRecurrence(cadence string, until *time.Time) SlotOption {
	return func(f *SlotFixture) {
		f.Cadence = cadence
		f.Until = until
	}
}

// WithSlotParent marks the slot as an occurrence of parentID.
func WithSlotParent(parentID string) SlotOption {
	return func(f *SlotFixture) {
		f.ParentID = parentID
	}
}

// Persistence returns the fixture as a persistence.TimeSlot value.
func (f SlotFixture) Persistence() persistence.TimeSlot {
	slot := persistence.TimeSlot{
		ID:          f.ID,
		RoomID:      f.RoomID,
		ProfessorID: f.ProfessorID,
		CourseID:    f.CourseID,
		ClassID:     f.ClassID,
		Date:        f.Date,
		Day:         int(f.Date.Weekday()),
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		Type:        f.Type,
		Status:      f.Status,
		CreatedBy:   f.CreatedBy,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
	if f.Cadence != "" {
		cadence := f.Cadence
		slot.RecurrenceCadence = &cadence
	}
	if f.Until != nil {
		until := *f.Until
		slot.RecurrenceUntil = &until
	}
	if f.ParentID != "" {
		parent := f.ParentID
		slot.ParentID = &parent
	}
	return slot
}

// Scheduler returns the fixture as a scheduler.TimeSlot value.
func (f SlotFixture) Scheduler() scheduler.TimeSlot {
	slot := scheduler.TimeSlot{
		ID:          f.ID,
		RoomID:      f.RoomID,
		ProfessorID: f.ProfessorID,
		CourseID:    f.CourseID,
		ClassID:     f.ClassID,
		Date:        f.Date,
		Day:         int(f.Date.Weekday()),
		StartTime:   scheduler.Clock(f.StartTime),
		EndTime:     scheduler.Clock(f.EndTime),
		Type:        scheduler.SlotType(f.Type),
		Status:      scheduler.SlotStatus(f.Status),
		ParentID:    f.ParentID,
	}
	if f.Cadence != "" {
		cadence, _ := scheduler.ParseCadence(f.Cadence)
		slot.Recurrence = &scheduler.Recurrence{Cadence: cadence, Until: f.Until}
	}
	return slot
}

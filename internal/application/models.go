package application

import (
	"strings"
	"time"

	"github.com/example/school-timetable/internal/scheduler"
)

// Role identifies what the acting user is allowed to do.
type Role string

const (
	// RoleAdmin manages rooms and every slot.
	RoleAdmin Role = "admin"
	// RoleProfessor schedules slots and manages the slots they teach.
	RoleProfessor Role = "professor"
	// RoleStudent only reads timetables.
	RoleStudent Role = "student"
)

// ParseRole normalises a role name. Unknown names map to RoleStudent.
func ParseRole(value string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleProfessor:
		return RoleProfessor
	default:
		return RoleStudent
	}
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanSchedule reports whether the principal may create slots.
func (p Principal) CanSchedule() bool {
	return p.Role == RoleAdmin || p.Role == RoleProfessor
}

// RecurrencePolicy decides what CreateSlot does with conflicting occurrences.
type RecurrencePolicy string

const (
	// RecurrencePolicyReject fails the whole request when any occurrence conflicts.
	RecurrencePolicyReject RecurrencePolicy = "reject"
	// RecurrencePolicySkip drops conflicting occurrences and reports them.
	RecurrencePolicySkip RecurrencePolicy = "skip"
)

// Valid reports whether the policy is known.
func (p RecurrencePolicy) Valid() bool {
	return p == RecurrencePolicyReject || p == RecurrencePolicySkip
}

// RecurrenceInput captures how a requested slot repeats.
type RecurrenceInput struct {
	Cadence string
	Until   *time.Time
}

// SlotInput captures caller provided slot fields.
type SlotInput struct {
	RoomID      string
	ProfessorID string
	CourseID    string
	ClassID     string
	Date        time.Time
	Day         *int
	StartTime   string
	EndTime     string
	Type        string
	Recurrence  *RecurrenceInput
}

// SlotRecurrence is the recurrence stored on the origin slot of a series.
type SlotRecurrence struct {
	Cadence string
	Until   *time.Time
}

// Slot represents a persisted time slot.
type Slot struct {
	ID           string
	RoomID       string
	ProfessorID  string
	CourseID     string
	ClassID      string
	Date         time.Time
	Day          int
	StartTime    string
	EndTime      string
	Type         string
	Status       string
	Recurrence   *SlotRecurrence
	ParentID     string
	CreatedBy    string
	CancelReason string
	CancelledBy  string
	CancelledAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Cancelled reports whether the slot was cancelled.
func (s Slot) Cancelled() bool {
	return s.Status == string(scheduler.SlotStatusCancelled)
}

// OccurrencePreview is a generated occurrence together with its conflicts.
type OccurrencePreview struct {
	Slot      Slot
	Conflicts []scheduler.Conflict
}

// ExpansionPreview reports what creating a recurring slot would produce.
type ExpansionPreview struct {
	Origin          Slot
	OriginConflicts []scheduler.Conflict
	Occurrences     []OccurrencePreview
}

// CreateSlotParams wraps the data required to create a slot.
type CreateSlotParams struct {
	Principal Principal
	Input     SlotInput
}

// CreateSlotResult reports the persisted origin, the persisted occurrences and the
// occurrences dropped under the skip policy.
type CreateSlotResult struct {
	Slot        Slot
	Occurrences []Slot
	Skipped     []OccurrencePreview
}

// SlotChanges lists the fields an update replaces. Nil fields are kept.
type SlotChanges struct {
	RoomID      *string
	ProfessorID *string
	CourseID    *string
	ClassID     *string
	Date        *time.Time
	StartTime   *string
	EndTime     *string
	Type        *string
	Status      *string
}

// UpdateSlotParams wraps the data required to update a slot.
type UpdateSlotParams struct {
	Principal Principal
	SlotID    string
	Changes   SlotChanges
}

// ConflictCheck describes a prospective booking to test for conflicts. Either
// reference may be empty, in which case that kind of conflict is not checked.
type ConflictCheck struct {
	RoomID        string
	ProfessorID   string
	Date          time.Time
	Day           *int
	StartTime     string
	EndTime       string
	ExcludeSlotID string
}

// CancelSlotParams wraps the data required to cancel a slot.
type CancelSlotParams struct {
	Principal Principal
	SlotID    string
	Reason    string
	Notify    bool
}

// SlotQuery narrows slot listings. From and To are inclusive dates.
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

// Room status values.
const (
	RoomStatusAvailable    = "AVAILABLE"
	RoomStatusMaintenance  = "MAINTENANCE"
	RoomStatusOutOfService = "OUT_OF_SERVICE"
)

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name       string
	Building   string
	Floor      int
	Capacity   int
	Facilities []string
	Status     string
}

// Room represents a bookable space.
type Room struct {
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

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// AvailabilityQuery selects rooms that can host a booking. The time window is
// only applied when Date, StartTime and EndTime are all set.
type AvailabilityQuery struct {
	Date        *time.Time
	StartTime   string
	EndTime     string
	MinCapacity int
	Facilities  []string
}

// StatsQuery narrows room statistics. From and To are inclusive dates.
type StatsQuery struct {
	Principal Principal
	RoomID    string
	From      *time.Time
	To        *time.Time
}

// RoomStats summarises how a room was used over a period.
type RoomStats struct {
	RoomID           string
	RoomName         string
	TotalSlots       int
	TotalHours       float64
	TypeDistribution map[string]int
	CancelledSlots   int
}

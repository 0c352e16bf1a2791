package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Clock is a zero-padded 24-hour wall clock time in HH:MM form. Because the
// representation is fixed width, string ordering equals chronological ordering.
type Clock string

// Valid reports whether the clock is a well formed HH:MM value.
func (c Clock) Valid() bool {
	return clockPattern.MatchString(string(c))
}

// Before reports whether c is strictly earlier than other.
func (c Clock) Before(other Clock) bool {
	return c < other
}

// Minutes returns the number of minutes since midnight. Invalid clocks yield -1.
func (c Clock) Minutes() int {
	if !c.Valid() {
		return -1
	}
	h, _ := strconv.Atoi(string(c[:2]))
	m, _ := strconv.Atoi(string(c[3:]))
	return h*60 + m
}

// SlotType categorises what a slot is used for.
type SlotType string

const (
	// SlotTypeCourse is a regular lecture or lesson.
	SlotTypeCourse SlotType = "COURSE"
	// SlotTypeExam is an examination sitting.
	SlotTypeExam SlotType = "EXAM"
	// SlotTypeEvent is any other booking of a room.
	SlotTypeEvent SlotType = "EVENT"
)

// Valid reports whether the type is one of the known slot types.
func (t SlotType) Valid() bool {
	switch t {
	case SlotTypeCourse, SlotTypeExam, SlotTypeEvent:
		return true
	}
	return false
}

// SlotStatus tracks the lifecycle of a slot.
type SlotStatus string

const (
	// SlotStatusScheduled slots occupy their room and professor.
	SlotStatusScheduled SlotStatus = "SCHEDULED"
	// SlotStatusCancelled slots never take part in conflict checks.
	SlotStatusCancelled SlotStatus = "CANCELLED"
	// SlotStatusCompleted slots have already taken place.
	SlotStatusCompleted SlotStatus = "COMPLETED"
)

// Valid reports whether the status is one of the known statuses.
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotStatusScheduled, SlotStatusCancelled, SlotStatusCompleted:
		return true
	}
	return false
}

// Cadence represents supported recurrence intervals.
type Cadence int

const (
	// CadenceUnspecified indicates the cadence is not set.
	CadenceUnspecified Cadence = iota
	// CadenceWeekly repeats every 7 days.
	CadenceWeekly
	// CadenceBiweekly repeats every 14 days.
	CadenceBiweekly
	// CadenceMonthly repeats on the same day of every month, clamped to the month end.
	CadenceMonthly
)

var cadenceNames = map[Cadence]string{
	CadenceWeekly:   "WEEKLY",
	CadenceBiweekly: "BIWEEKLY",
	CadenceMonthly:  "MONTHLY",
}

// String renders the wire name of the cadence.
func (c Cadence) String() string {
	if name, ok := cadenceNames[c]; ok {
		return name
	}
	return ""
}

// Valid reports whether the cadence is a known, specified value.
func (c Cadence) Valid() bool {
	_, ok := cadenceNames[c]
	return ok
}

// ParseCadence converts a wire name such as "WEEKLY" into a Cadence.
func ParseCadence(value string) (Cadence, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for cadence, name := range cadenceNames {
		if name == normalized {
			return cadence, nil
		}
	}
	return CadenceUnspecified, fmt.Errorf("scheduler: unknown cadence %q", value)
}

// Recurrence describes how a slot repeats after its own date.
type Recurrence struct {
	Cadence Cadence
	Until   *time.Time
}

// TimeSlot is a scheduled occupation of a room by a professor for a course section.
// Room, professor, course and class references are opaque keys.
type TimeSlot struct {
	ID          string
	RoomID      string
	ProfessorID string
	CourseID    string
	ClassID     string
	Date        time.Time
	Day         int
	StartTime   Clock
	EndTime     Clock
	Type        SlotType
	Status      SlotStatus
	Recurrence  *Recurrence
	ParentID    string
}

// Overlaps reports whether the two slots' time ranges intersect using half-open
// [start, end) semantics. Touching ranges do not overlap.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return other.StartTime < s.EndTime && other.EndTime > s.StartTime
}

// IsScheduled reports whether the slot currently takes part in conflict checks.
func (s TimeSlot) IsScheduled() bool {
	return s.Status == "" || s.Status == SlotStatusScheduled
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

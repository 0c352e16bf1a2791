package recurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/school-timetable/internal/scheduler"
)

const (
	// DefaultHorizon bounds series that carry no end date: one school semester.
	DefaultHorizon = 26 * 7 * 24 * time.Hour
	// DefaultMaxOccurrences caps the number of occurrences a single expansion may produce.
	DefaultMaxOccurrences = 260
)

// ErrInvalidRecurrence is matched by every InvalidRecurrenceError.
var ErrInvalidRecurrence = errors.New("recurrence: invalid recurrence")

// InvalidRecurrenceError reports a malformed recurrence descriptor.
type InvalidRecurrenceError struct {
	Reason string
}

// Error implements the error interface.
func (e *InvalidRecurrenceError) Error() string {
	if e == nil {
		return ""
	}
	return "recurrence: invalid recurrence: " + e.Reason
}

// Is allows errors.Is(err, ErrInvalidRecurrence).
func (e *InvalidRecurrenceError) Is(target error) bool {
	return target == ErrInvalidRecurrence
}

// ConflictChecker is the subset of the detector the engine relies on.
type ConflictChecker interface {
	DetectConflicts(ctx context.Context, candidate scheduler.TimeSlot, excludeID string) ([]scheduler.Conflict, error)
}

// Option customises an Engine.
type Option func(*Engine)

// WithHorizon sets how far past the origin date an open ended series is expanded.
func WithHorizon(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.horizon = d
		}
	}
}

// WithMaxOccurrences caps the number of generated occurrences.
func WithMaxOccurrences(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxOccurrences = n
		}
	}
}

// Engine expands recurring slots into dated occurrences and checks each one for
// conflicts. It keeps no state between calls.
type Engine struct {
	checker        ConflictChecker
	horizon        time.Duration
	maxOccurrences int
}

// NewEngine constructs an Engine that checks occurrences with the given checker.
func NewEngine(checker ConflictChecker, opts ...Option) *Engine {
	e := &Engine{
		checker:        checker,
		horizon:        DefaultHorizon,
		maxOccurrences: DefaultMaxOccurrences,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand produces the occurrences that follow origin.Date according to the
// origin's recurrence, up to and including its end date.
//
// The engine enforces the following semantics:
//   - The origin itself is never part of the result.
//   - MONTHLY steps keep the origin's day of month, clamped to the month's last day.
//   - Every occurrence is checked against the repository (excluding the origin's
//     ID) and against the origin and the conflict-free occurrences generated
//     earlier in the same call, using the detector's weekday rule. WEEKLY and
//     BIWEEKLY occurrences share the origin's weekday and are not compared with
//     their own series.
//   - Conflicts are returned as data; they never fail the call.
func (e *Engine) Expand(ctx context.Context, origin scheduler.TimeSlot) (Result, error) {
	if err := scheduler.ValidateSlot(origin); err != nil {
		return Result{}, err
	}
	if origin.Recurrence == nil {
		return Result{}, &InvalidRecurrenceError{Reason: "recurrence is required"}
	}
	if origin.Date.IsZero() {
		return Result{}, &InvalidRecurrenceError{Reason: "origin date is required"}
	}

	cadence := origin.Recurrence.Cadence
	if !cadence.Valid() {
		return Result{}, &InvalidRecurrenceError{Reason: fmt.Sprintf("unrecognized cadence %d", int(cadence))}
	}

	start := scheduler.DateOnly(origin.Date)
	var until time.Time
	if origin.Recurrence.Until != nil {
		until = scheduler.DateOnly(*origin.Recurrence.Until)
		if until.Before(start) {
			return Result{}, &InvalidRecurrenceError{Reason: "until precedes the origin date"}
		}
	} else {
		until = start.Add(e.horizon)
	}

	result := Result{Origin: origin}
	members := []scheduler.TimeSlot{origin}
	axis := seriesWeekday(origin)

	for n := 1; n <= e.maxOccurrences; n++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		date := Step(cadence, start, n)
		if date.After(until) {
			break
		}

		occurrence := occurrenceOf(origin, date)

		conflicts, err := e.checker.DetectConflicts(ctx, occurrence, origin.ID)
		if err != nil {
			return Result{}, err
		}
		conflicts = mergeConflicts(conflicts, batchConflicts(members, occurrence, axis))

		result.Occurrences = append(result.Occurrences, Occurrence{Slot: occurrence, Conflicts: conflicts})
		if len(conflicts) == 0 {
			members = append(members, occurrence)
		}
	}

	return result, nil
}

// Step returns the n-th date after start for the given cadence.
func Step(cadence scheduler.Cadence, start time.Time, n int) time.Time {
	switch cadence {
	case scheduler.CadenceWeekly:
		return start.AddDate(0, 0, 7*n)
	case scheduler.CadenceBiweekly:
		return start.AddDate(0, 0, 14*n)
	case scheduler.CadenceMonthly:
		return addMonthsClamped(start, n)
	default:
		return start
	}
}

func addMonthsClamped(start time.Time, months int) time.Time {
	y, m, d := start.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, start.Location())
	last := daysIn(first.Year(), first.Month())
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, start.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func occurrenceOf(origin scheduler.TimeSlot, date time.Time) scheduler.TimeSlot {
	return scheduler.TimeSlot{
		RoomID:      origin.RoomID,
		ProfessorID: origin.ProfessorID,
		CourseID:    origin.CourseID,
		ClassID:     origin.ClassID,
		Date:        date,
		Day:         int(date.Weekday()),
		StartTime:   origin.StartTime,
		EndTime:     origin.EndTime,
		Type:        origin.Type,
		Status:      scheduler.SlotStatusScheduled,
		ParentID:    origin.ID,
	}
}

// seriesWeekday returns the weekday every occurrence of a fixed-weekday cadence
// falls on, or -1 when occurrences may land on any weekday.
func seriesWeekday(origin scheduler.TimeSlot) int {
	switch origin.Recurrence.Cadence {
	case scheduler.CadenceWeekly, scheduler.CadenceBiweekly:
		return origin.Day
	default:
		return -1
	}
}

// batchConflicts compares an occurrence with the series members already kept
// in the batch the way the detector compares stored slots: same weekday,
// overlapping times, shared room or professor. Occurrences on the series'
// fixed weekday are exempt.
func batchConflicts(members []scheduler.TimeSlot, candidate scheduler.TimeSlot, axis int) []scheduler.Conflict {
	if candidate.Day == axis {
		return nil
	}

	var rooms, professors []scheduler.TimeSlot
	for _, prior := range members {
		if prior.Day != candidate.Day || !candidate.Overlaps(prior) {
			continue
		}
		if candidate.RoomID != "" && prior.RoomID == candidate.RoomID {
			rooms = append(rooms, prior)
		}
		if candidate.ProfessorID != "" && prior.ProfessorID == candidate.ProfessorID {
			professors = append(professors, prior)
		}
	}

	var conflicts []scheduler.Conflict
	if len(rooms) > 0 {
		conflicts = append(conflicts, scheduler.NewConflict(scheduler.ConflictTypeRoom, rooms))
	}
	if len(professors) > 0 {
		conflicts = append(conflicts, scheduler.NewConflict(scheduler.ConflictTypeProfessor, professors))
	}
	return conflicts
}

// mergeConflicts folds extra into base keeping one entry per type, room first.
func mergeConflicts(base, extra []scheduler.Conflict) []scheduler.Conflict {
	if len(extra) == 0 {
		return base
	}

	byType := make(map[scheduler.ConflictType]*scheduler.Conflict, 2)
	var merged []scheduler.Conflict
	for _, c := range append(append([]scheduler.Conflict(nil), base...), extra...) {
		if existing, ok := byType[c.Type]; ok {
			existing.Slots = append(existing.Slots, c.Slots...)
			continue
		}
		cp := c
		cp.Slots = append([]scheduler.TimeSlot(nil), c.Slots...)
		byType[c.Type] = &cp
	}
	for _, kind := range []scheduler.ConflictType{scheduler.ConflictTypeRoom, scheduler.ConflictTypeProfessor} {
		if c, ok := byType[kind]; ok {
			merged = append(merged, *c)
		}
	}
	return merged
}

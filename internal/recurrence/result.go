package recurrence

import "github.com/example/school-timetable/internal/scheduler"

// Occurrence is one generated slot together with the conflicts it would cause.
type Occurrence struct {
	Slot      scheduler.TimeSlot
	Conflicts []scheduler.Conflict
}

// HasConflicts reports whether the occurrence collides with anything.
func (o Occurrence) HasConflicts() bool {
	return len(o.Conflicts) > 0
}

// Result is the full report of an expansion. Deciding what to do with
// conflicting occurrences is left to the caller.
type Result struct {
	Origin      scheduler.TimeSlot
	Occurrences []Occurrence
}

// Len returns the number of generated occurrences.
func (r Result) Len() int {
	return len(r.Occurrences)
}

// HasConflicts reports whether any occurrence carries a conflict.
func (r Result) HasConflicts() bool {
	for _, o := range r.Occurrences {
		if o.HasConflicts() {
			return true
		}
	}
	return false
}

// Accepted returns the conflict free occurrences in date order.
func (r Result) Accepted() []scheduler.TimeSlot {
	var out []scheduler.TimeSlot
	for _, o := range r.Occurrences {
		if !o.HasConflicts() {
			out = append(out, o.Slot)
		}
	}
	return out
}

// Rejected returns the occurrences that carry conflicts in date order.
func (r Result) Rejected() []Occurrence {
	var out []Occurrence
	for _, o := range r.Occurrences {
		if o.HasConflicts() {
			out = append(out, o)
		}
	}
	return out
}

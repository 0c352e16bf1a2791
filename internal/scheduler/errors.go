package scheduler

import (
	"errors"
	"fmt"
)

// ErrInvalidSlot is matched by every InvalidSlotError.
var ErrInvalidSlot = errors.New("scheduler: invalid slot")

// InvalidSlotError reports a malformed time range or weekday on a candidate slot.
type InvalidSlotError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidSlotError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("scheduler: invalid slot: %s: %s", e.Field, e.Reason)
}

// Is allows errors.Is(err, ErrInvalidSlot).
func (e *InvalidSlotError) Is(target error) bool {
	return target == ErrInvalidSlot
}

// ValidateSlot checks the preconditions shared by conflict detection and expansion.
func ValidateSlot(slot TimeSlot) error {
	if !slot.StartTime.Valid() {
		return &InvalidSlotError{Field: "startTime", Reason: "must be HH:MM"}
	}
	if !slot.EndTime.Valid() {
		return &InvalidSlotError{Field: "endTime", Reason: "must be HH:MM"}
	}
	if !slot.StartTime.Before(slot.EndTime) {
		return &InvalidSlotError{Field: "endTime", Reason: "must be after startTime"}
	}
	if slot.Day < 0 || slot.Day > 6 {
		return &InvalidSlotError{Field: "day", Reason: "must be between 0 and 6"}
	}
	return nil
}

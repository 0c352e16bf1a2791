package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/school-timetable/internal/scheduler"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrSlotCancelled is returned when a cancelled slot is modified or cancelled again.
	ErrSlotCancelled = errors.New("application: slot is cancelled")
	// ErrConflict is matched by every ConflictError.
	ErrConflict = errors.New("application: scheduling conflict")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// ConflictError rejects a request whose slot collides with existing bookings.
// Occurrence is the date of the colliding recurrence occurrence, or zero when the
// requested slot itself collides.
type ConflictError struct {
	Conflicts  []scheduler.Conflict
	Occurrence string
}

// Error implements the error interface.
func (c *ConflictError) Error() string {
	if c == nil {
		return ""
	}
	kinds := make([]string, 0, len(c.Conflicts))
	for _, conflict := range c.Conflicts {
		kinds = append(kinds, string(conflict.Type))
	}
	if c.Occurrence != "" {
		return fmt.Sprintf("application: scheduling conflict on %s (%s)", c.Occurrence, strings.Join(kinds, ", "))
	}
	return fmt.Sprintf("application: scheduling conflict (%s)", strings.Join(kinds, ", "))
}

// Is allows errors.Is(err, ErrConflict).
func (c *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

package persistence

import "time"

// TimeSlot is the stored form of a scheduled room occupation.
type TimeSlot struct {
	ID                string
	RoomID            string
	ProfessorID       string
	CourseID          string
	ClassID           string
	Date              time.Time
	Day               int
	StartTime         string
	EndTime           string
	Type              string
	Status            string
	RecurrenceCadence *string
	RecurrenceUntil   *time.Time
	ParentID          *string
	CreatedBy         string
	CancelReason      *string
	CancelledBy       *string
	CancelledAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
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

// OutboxEvent is a notification waiting to be delivered by an external relay.
type OutboxEvent struct {
	ID          string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

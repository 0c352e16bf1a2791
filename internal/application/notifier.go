package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/school-timetable/internal/persistence"
)

// EventType names a timetable notification.
type EventType string

const (
	// EventNewSchedule is emitted after a slot (and its occurrences) is created.
	EventNewSchedule EventType = "NEW_SCHEDULE"
	// EventScheduleUpdated is emitted after a slot changes.
	EventScheduleUpdated EventType = "SCHEDULE_UPDATED"
	// EventScheduleCancelled is emitted after a cancellation when requested.
	EventScheduleCancelled EventType = "SCHEDULE_CANCELLED"
)

// Event describes a change participants of a slot should hear about.
type Event struct {
	Type        EventType
	Slot        Slot
	ActorID     string
	Reason      string
	Occurrences int
}

// Notifier records timetable events for delivery to participants.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type eventPayload struct {
	Type        EventType `json:"type"`
	SlotID      string    `json:"slotId"`
	RoomID      string    `json:"roomId"`
	ProfessorID string    `json:"professorId"`
	CourseID    string    `json:"courseId,omitempty"`
	ClassID     string    `json:"classId,omitempty"`
	Date        string    `json:"date"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	ActorID     string    `json:"actorId,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Occurrences int       `json:"occurrences,omitempty"`
}

func payloadOf(event Event) eventPayload {
	return eventPayload{
		Type:        event.Type,
		SlotID:      event.Slot.ID,
		RoomID:      event.Slot.RoomID,
		ProfessorID: event.Slot.ProfessorID,
		CourseID:    event.Slot.CourseID,
		ClassID:     event.Slot.ClassID,
		Date:        event.Slot.Date.Format(time.DateOnly),
		StartTime:   event.Slot.StartTime,
		EndTime:     event.Slot.EndTime,
		ActorID:     event.ActorID,
		Reason:      event.Reason,
		Occurrences: event.Occurrences,
	}
}

// OutboxNotifier stores events in the outbox table for an external relay.
type OutboxNotifier struct {
	events      persistence.OutboxRepository
	idGenerator func() string
	now         func() time.Time
}

// NewOutboxNotifier constructs a notifier writing to the provided outbox. Event
// IDs default to random UUIDs.
func NewOutboxNotifier(events persistence.OutboxRepository, idGenerator func() string, now func() time.Time) *OutboxNotifier {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &OutboxNotifier{events: events, idGenerator: idGenerator, now: now}
}

// Notify serialises the event and inserts it into the outbox.
func (n *OutboxNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || n.events == nil {
		return fmt.Errorf("outbox notifier not configured")
	}
	payload, err := json.Marshal(payloadOf(event))
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	return n.events.InsertEvent(ctx, persistence.OutboxEvent{
		ID:        n.idGenerator(),
		EventType: string(event.Type),
		Payload:   payload,
		CreatedAt: n.now().UTC(),
	})
}

// LogNotifier writes events to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a notifier that only logs.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: defaultLogger(logger)}
}

// Notify logs the event at info level.
func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	p := payloadOf(event)
	n.logger.InfoContext(ctx, "timetable event",
		"event_type", p.Type,
		"slot_id", p.SlotID,
		"room_id", p.RoomID,
		"professor_id", p.ProfessorID,
		"date", p.Date,
		"occurrences", p.Occurrences,
	)
	return nil
}

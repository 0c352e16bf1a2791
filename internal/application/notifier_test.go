package application

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/school-timetable/internal/persistence/memory"
	"github.com/example/school-timetable/internal/testfixtures"
)

func TestOutboxNotifierStoresEvents(t *testing.T) {
	t.Parallel()

	store := memory.New()
	clock := testfixtures.NewClock(time.Time{})
	notifier := NewOutboxNotifier(store, nil, clock.NowFunc())

	slot := Slot{
		ID:          "slot-1",
		RoomID:      "room-a",
		ProfessorID: "prof-1",
		Date:        testfixtures.Date(2024, time.January, 8),
		StartTime:   "09:00",
		EndTime:     "10:30",
	}
	if err := notifier.Notify(context.Background(), Event{Type: EventScheduleCancelled, Slot: slot, ActorID: "admin-1", Reason: "strike"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events, err := store.ListPendingEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 pending event, got %d", len(events))
	}
	event := events[0]
	if _, err := uuid.Parse(event.ID); err != nil {
		t.Fatalf("expected a UUID event id, got %q", event.ID)
	}
	if event.EventType != string(EventScheduleCancelled) || !event.CreatedAt.Equal(clock.Now()) {
		t.Fatalf("unexpected event: %+v", event)
	}

	var payload map[string]any
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["slotId"] != "slot-1" || payload["date"] != "2024-01-08" || payload["reason"] != "strike" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestLogNotifierNeverFails(t *testing.T) {
	t.Parallel()

	if err := NewLogNotifier(discardLogger()).Notify(context.Background(), Event{Type: EventNewSchedule}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

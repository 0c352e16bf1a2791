package application

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/school-timetable/internal/persistence"
	"github.com/example/school-timetable/internal/persistence/memory"
	"github.com/example/school-timetable/internal/testfixtures"
)

var (
	admin     = Principal{UserID: "admin-1", Role: RoleAdmin}
	professor = Principal{UserID: "prof-1", Role: RoleProfessor}
	student   = Principal{UserID: "student-1", Role: RoleStudent}
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) types() []EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type timetableEnv struct {
	store    *memory.Storage
	notifier *recordingNotifier
	clock    *testfixtures.Clock
	service  *TimetableService
	changes  int
}

func newTimetableEnv(t *testing.T, policy RecurrencePolicy) *timetableEnv {
	t.Helper()

	env := &timetableEnv{
		store:    memory.New(),
		notifier: &recordingNotifier{},
		clock:    testfixtures.NewClock(time.Time{}),
	}
	for _, id := range []string{"room-a", "room-b"} {
		room := testfixtures.NewRoomFixture(testfixtures.WithRoomID(id), testfixtures.WithRoomName(id))
		if err := env.store.CreateRoom(context.Background(), room.Persistence()); err != nil {
			t.Fatalf("seed room %s: %v", id, err)
		}
	}

	env.service = NewTimetableServiceWithConfig(env.store, env.store, env.notifier,
		testfixtures.NewIDGenerator("gen").NextFunc(), env.clock.NowFunc(),
		TimetableConfig{
			Policy:         policy,
			Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
			OnSlotsChanged: func() { env.changes++ },
		})
	return env
}

func (e *timetableEnv) seed(t *testing.T, slots ...persistence.TimeSlot) {
	t.Helper()
	if err := e.store.CreateSlots(context.Background(), slots); err != nil {
		t.Fatalf("seed slots: %v", err)
	}
}

func (e *timetableEnv) allSlots(t *testing.T) []persistence.TimeSlot {
	t.Helper()
	slots, err := e.store.ListSlots(context.Background(), persistence.SlotQuery{})
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	return slots
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T {
	return &v
}

// mondayInput is a COURSE in room-a taught by prof-1 on Monday 2024-01-08.
func mondayInput() SlotInput {
	return SlotInput{
		RoomID:      "room-a",
		ProfessorID: "prof-1",
		CourseID:    "course-1",
		ClassID:     "class-1",
		Date:        testfixtures.Date(2024, time.January, 8),
		StartTime:   "09:00",
		EndTime:     "10:30",
		Type:        "COURSE",
	}
}

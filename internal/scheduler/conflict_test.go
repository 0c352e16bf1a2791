package scheduler

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

type slotRepoStub struct {
	mu    sync.Mutex
	slots []TimeSlot
	err   error
	calls []SlotFilter
}

func (s *slotRepoStub) FindScheduledSlots(ctx context.Context, filter SlotFilter) ([]TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, filter)
	if s.err != nil {
		return nil, s.err
	}
	var out []TimeSlot
	for _, slot := range s.slots {
		if slot.Status != SlotStatusScheduled {
			continue
		}
		if filter.RoomID != "" && slot.RoomID != filter.RoomID {
			continue
		}
		if filter.ProfessorID != "" && slot.ProfessorID != filter.ProfessorID {
			continue
		}
		if filter.Day != nil && slot.Day != *filter.Day {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

func (s *slotRepoStub) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func scheduled(id, room, professor string, day int, start, end Clock) TimeSlot {
	return TimeSlot{
		ID:          id,
		RoomID:      room,
		ProfessorID: professor,
		Day:         day,
		StartTime:   start,
		EndTime:     end,
		Type:        SlotTypeCourse,
		Status:      SlotStatusScheduled,
	}
}

func TestDetectConflicts(t *testing.T) {
	t.Parallel()

	t.Run("touching intervals do not conflict", func(t *testing.T) {
		t.Parallel()
		repo := &slotRepoStub{slots: []TimeSlot{scheduled("slot-1", "room-a", "prof-1", 1, "09:00", "10:00")}}
		detector := NewDetector(repo)

		conflicts, err := detector.DetectConflicts(context.Background(), scheduled("", "room-a", "prof-2", 1, "10:00", "11:00"), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})

	t.Run("room overlap produces conflict", func(t *testing.T) {
		t.Parallel()
		existing := scheduled("slot-1", "room-a", "prof-1", 1, "09:00", "10:00")
		repo := &slotRepoStub{slots: []TimeSlot{existing}}
		detector := NewDetector(repo)

		conflicts, err := detector.DetectConflicts(context.Background(), scheduled("", "room-a", "prof-2", 1, "09:30", "10:30"), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 1 {
			t.Fatalf("expected one conflict, got %+v", conflicts)
		}
		if conflicts[0].Type != ConflictTypeRoom {
			t.Fatalf("expected room conflict, got %s", conflicts[0].Type)
		}
		if len(conflicts[0].Slots) != 1 || conflicts[0].Slots[0].ID != "slot-1" {
			t.Fatalf("expected conflict to reference slot-1, got %+v", conflicts[0].Slots)
		}
		if conflicts[0].Message == "" {
			t.Fatalf("expected a human readable message")
		}
	})

	t.Run("professor overlap in another room is professor conflict only", func(t *testing.T) {
		t.Parallel()
		repo := &slotRepoStub{slots: []TimeSlot{scheduled("slot-1", "room-a", "prof-1", 2, "13:00", "15:00")}}
		detector := NewDetector(repo)

		conflicts, err := detector.DetectConflicts(context.Background(), scheduled("", "room-b", "prof-1", 2, "14:00", "16:00"), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 1 || conflicts[0].Type != ConflictTypeProfessor {
			t.Fatalf("expected only a professor conflict, got %+v", conflicts)
		}
	})

	t.Run("room conflict is reported before professor conflict", func(t *testing.T) {
		t.Parallel()
		repo := &slotRepoStub{slots: []TimeSlot{
			scheduled("slot-1", "room-a", "prof-9", 3, "08:00", "09:00"),
			scheduled("slot-2", "room-z", "prof-1", 3, "08:30", "09:30"),
		}}
		detector := NewDetector(repo)

		conflicts, err := detector.DetectConflicts(context.Background(), scheduled("", "room-a", "prof-1", 3, "08:15", "08:45"), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 2 {
			t.Fatalf("expected two conflicts, got %+v", conflicts)
		}
		if conflicts[0].Type != ConflictTypeRoom || conflicts[1].Type != ConflictTypeProfessor {
			t.Fatalf("unexpected conflict order: %s, %s", conflicts[0].Type, conflicts[1].Type)
		}
	})

	t.Run("different weekday never conflicts", func(t *testing.T) {
		t.Parallel()
		repo := &slotRepoStub{slots: []TimeSlot{scheduled("slot-1", "room-a", "prof-1", 1, "09:00", "10:00")}}
		detector := NewDetector(repo)

		conflicts, err := detector.DetectConflicts(context.Background(), scheduled("", "room-a", "prof-1", 2, "09:00", "10:00"), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})

	t.Run("cancelled slots are ignored", func(t *testing.T) {
		t.Parallel()
		cancelled := scheduled("slot-1", "room-a", "prof-1", 1, "09:00", "10:00")
		cancelled.Status = SlotStatusCancelled
		repo := &slotRepoStub{slots: []TimeSlot{cancelled}}
		detector := NewDetector(repo)

		conflicts, err := detector.DetectConflicts(context.Background(), scheduled("", "room-a", "prof-1", 1, "09:00", "10:00"), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 0 {
			t.Fatalf("expected cancelled slot to be ignored, got %+v", conflicts)
		}
	})

	t.Run("exclude id suppresses self collision", func(t *testing.T) {
		t.Parallel()
		self := scheduled("slot-x", "room-a", "prof-1", 4, "10:00", "12:00")
		repo := &slotRepoStub{slots: []TimeSlot{self}}
		detector := NewDetector(repo)

		moved := self
		moved.StartTime = "11:00"
		moved.EndTime = "13:00"

		conflicts, err := detector.DetectConflicts(context.Background(), moved, "slot-x")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 0 {
			t.Fatalf("expected no self conflict, got %+v", conflicts)
		}

		conflicts, err = detector.DetectConflicts(context.Background(), moved, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 2 {
			t.Fatalf("expected self collision without exclusion, got %+v", conflicts)
		}
	})

	t.Run("repeated calls are idempotent", func(t *testing.T) {
		t.Parallel()
		repo := &slotRepoStub{slots: []TimeSlot{
			scheduled("slot-1", "room-a", "prof-1", 5, "09:00", "10:00"),
			scheduled("slot-2", "room-a", "prof-2", 5, "09:45", "11:00"),
		}}
		detector := NewDetector(repo)
		candidate := scheduled("", "room-a", "prof-1", 5, "09:30", "10:15")

		first, err := detector.DetectConflicts(context.Background(), candidate, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := detector.DetectConflicts(context.Background(), candidate, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("expected identical results, got %+v and %+v", first, second)
		}
	})

	t.Run("repository errors propagate", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("connection reset")
		detector := NewDetector(&slotRepoStub{err: boom})

		_, err := detector.DetectConflicts(context.Background(), scheduled("", "room-a", "prof-1", 1, "09:00", "10:00"), "")
		if !errors.Is(err, boom) {
			t.Fatalf("expected repository error to propagate, got %v", err)
		}
	})
}

func TestDetectConflicts_EmptyReferenceSkipsPass(t *testing.T) {
	t.Parallel()

	existing := scheduled("slot-1", "room-b", "prof-q", 1, "09:00", "10:00")

	t.Run("no professor", func(t *testing.T) {
		t.Parallel()
		repo := &slotRepoStub{slots: []TimeSlot{existing}}
		detector := NewDetector(repo)

		conflicts, err := detector.DetectConflicts(context.Background(), scheduled("", "room-a", "", 1, "09:00", "10:00"), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
		if len(repo.calls) != 1 || repo.calls[0].RoomID != "room-a" || repo.calls[0].ProfessorID != "" {
			t.Fatalf("expected a single room lookup, got %+v", repo.calls)
		}
	})

	t.Run("no room", func(t *testing.T) {
		t.Parallel()
		repo := &slotRepoStub{slots: []TimeSlot{existing}}
		detector := NewDetector(repo)

		conflicts, err := detector.DetectConflicts(context.Background(), scheduled("", "", "prof-q", 1, "09:30", "10:30"), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 1 || conflicts[0].Type != ConflictTypeProfessor {
			t.Fatalf("expected only a professor conflict, got %+v", conflicts)
		}
		if got := repo.callCount(); got != 1 {
			t.Fatalf("expected a single professor lookup, got %d", got)
		}
	})
}

func TestDetectConflicts_InvalidSlotSkipsRepository(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		slot  TimeSlot
		field string
	}{
		{name: "end before start", slot: scheduled("", "room-a", "prof-1", 1, "10:00", "09:00"), field: "endTime"},
		{name: "equal bounds", slot: scheduled("", "room-a", "prof-1", 1, "10:00", "10:00"), field: "endTime"},
		{name: "day above range", slot: scheduled("", "room-a", "prof-1", 7, "09:00", "10:00"), field: "day"},
		{name: "negative day", slot: scheduled("", "room-a", "prof-1", -1, "09:00", "10:00"), field: "day"},
		{name: "malformed clock", slot: scheduled("", "room-a", "prof-1", 1, "9:00", "10:00"), field: "startTime"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			repo := &slotRepoStub{}
			detector := NewDetector(repo)

			_, err := detector.DetectConflicts(context.Background(), tc.slot, "")
			if !errors.Is(err, ErrInvalidSlot) {
				t.Fatalf("expected ErrInvalidSlot, got %v", err)
			}
			var slotErr *InvalidSlotError
			if !errors.As(err, &slotErr) || slotErr.Field != tc.field {
				t.Fatalf("expected field %q, got %v", tc.field, err)
			}
			if got := repo.callCount(); got != 0 {
				t.Fatalf("expected no repository calls, got %d", got)
			}
		})
	}
}

func TestDetectConflicts_ConcurrentUse(t *testing.T) {
	t.Parallel()

	repo := &slotRepoStub{slots: []TimeSlot{scheduled("slot-1", "room-a", "prof-1", 1, "09:00", "10:00")}}
	detector := NewDetector(repo)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conflicts, err := detector.DetectConflicts(context.Background(), scheduled("", "room-a", "prof-2", 1, "09:30", "10:30"), "")
			if err != nil {
				errs <- err
				return
			}
			if len(conflicts) != 1 {
				errs <- errors.New("expected exactly one conflict")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/school-timetable/internal/persistence"
	"github.com/example/school-timetable/internal/scheduler"
	"github.com/example/school-timetable/internal/testfixtures"
)

func TestTimetableService_CreateSlot(t *testing.T) {
	t.Parallel()

	t.Run("requires a scheduling role", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)

		_, err := env.service.CreateSlot(context.Background(), CreateSlotParams{Principal: student, Input: mondayInput()})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("validates required attributes", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)

		input := SlotInput{Date: testfixtures.Date(2024, time.January, 8), Day: ptr(3), StartTime: "11:00", EndTime: "10:00", Type: "LAB"}
		_, err := env.service.CreateSlot(context.Background(), CreateSlotParams{Principal: admin, Input: input})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"roomId", "professorId", "courseId", "classId", "type", "day", "endTime"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("rejects recurrence ending on or before the date", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)

		input := mondayInput()
		input.Recurrence = &RecurrenceInput{Cadence: "WEEKLY", Until: ptr(input.Date)}
		_, err := env.service.CreateSlot(context.Background(), CreateSlotParams{Principal: admin, Input: input})

		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["recurrence.until"] == "" {
			t.Fatalf("expected recurrence.until validation error, got %v", err)
		}
	})

	t.Run("rejects unknown rooms", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)

		input := mondayInput()
		input.RoomID = "room-z"
		_, err := env.service.CreateSlot(context.Background(), CreateSlotParams{Principal: admin, Input: input})

		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["roomId"] == "" {
			t.Fatalf("expected roomId validation error, got %v", err)
		}
	})

	t.Run("persists a single slot and notifies", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)

		result, err := env.service.CreateSlot(context.Background(), CreateSlotParams{Principal: professor, Input: mondayInput()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Slot.ID != "gen-001" || result.Slot.Day != int(time.Monday) {
			t.Fatalf("unexpected slot: %+v", result.Slot)
		}
		if result.Slot.Status != string(scheduler.SlotStatusScheduled) || result.Slot.CreatedBy != professor.UserID {
			t.Fatalf("unexpected bookkeeping: %+v", result.Slot)
		}
		if len(result.Occurrences) != 0 {
			t.Fatalf("expected no occurrences, got %d", len(result.Occurrences))
		}

		if stored := env.allSlots(t); len(stored) != 1 {
			t.Fatalf("expected 1 stored slot, got %d", len(stored))
		}
		if got := env.notifier.types(); len(got) != 1 || got[0] != EventNewSchedule {
			t.Fatalf("expected NEW_SCHEDULE event, got %v", got)
		}
		if env.changes != 1 {
			t.Fatalf("expected change hook to run once, got %d", env.changes)
		}
	})

	t.Run("rejects a conflicting slot", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)
		env.seed(t, testfixtures.NewSlotFixture(
			testfixtures.WithSlotID("busy"),
			testfixtures.WithSlotProfessor("prof-2"),
			testfixtures.WithSlotDate(testfixtures.Date(2024, time.January, 15)),
			testfixtures.WithSlotTimes("10:00", "11:00"),
		).Persistence())

		_, err := env.service.CreateSlot(context.Background(), CreateSlotParams{Principal: admin, Input: mondayInput()})

		var cErr *ConflictError
		if !errors.As(err, &cErr) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if !errors.Is(err, ErrConflict) || ErrorKind(err) != "conflict" {
			t.Fatalf("expected conflict classification, got %v", err)
		}
		if len(cErr.Conflicts) != 1 || cErr.Conflicts[0].Type != scheduler.ConflictTypeRoom {
			t.Fatalf("expected a single room conflict, got %+v", cErr.Conflicts)
		}
		if cErr.Conflicts[0].Slots[0].ID != "busy" {
			t.Fatalf("expected conflict to reference busy slot, got %+v", cErr.Conflicts[0].Slots)
		}
		if stored := env.allSlots(t); len(stored) != 1 {
			t.Fatalf("expected nothing new to be stored, got %d slots", len(stored))
		}
		if len(env.notifier.types()) != 0 {
			t.Fatalf("expected no notification")
		}
	})

	t.Run("expands weekly recurrences into one batch", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)

		input := mondayInput()
		input.Recurrence = &RecurrenceInput{Cadence: "weekly", Until: ptr(testfixtures.Date(2024, time.January, 29))}
		result, err := env.service.CreateSlot(context.Background(), CreateSlotParams{Principal: admin, Input: input})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Slot.Recurrence == nil || result.Slot.Recurrence.Cadence != "WEEKLY" {
			t.Fatalf("expected origin to keep its recurrence, got %+v", result.Slot.Recurrence)
		}
		wantDates := []time.Time{
			testfixtures.Date(2024, time.January, 15),
			testfixtures.Date(2024, time.January, 22),
			testfixtures.Date(2024, time.January, 29),
		}
		if len(result.Occurrences) != len(wantDates) {
			t.Fatalf("expected %d occurrences, got %d", len(wantDates), len(result.Occurrences))
		}
		for i, occ := range result.Occurrences {
			if !occ.Date.Equal(wantDates[i]) {
				t.Fatalf("occurrence %d: expected %v, got %v", i, wantDates[i], occ.Date)
			}
			if occ.ParentID != result.Slot.ID || occ.Recurrence != nil {
				t.Fatalf("occurrence %d: expected parent %s without recurrence, got %+v", i, result.Slot.ID, occ)
			}
		}

		stored := env.allSlots(t)
		if len(stored) != 4 {
			t.Fatalf("expected origin and 3 occurrences stored, got %d", len(stored))
		}
		if env.notifier.events[0].Occurrences != 3 {
			t.Fatalf("expected event to count 3 occurrences, got %d", env.notifier.events[0].Occurrences)
		}
	})

	monthlyWithThursdayClash := func(t *testing.T, policy RecurrencePolicy) (*timetableEnv, CreateSlotResult, error) {
		t.Helper()
		env := newTimetableEnv(t, policy)
		env.seed(t, testfixtures.NewSlotFixture(
			testfixtures.WithSlotID("thursday"),
			testfixtures.WithSlotProfessor("prof-9"),
			testfixtures.WithSlotDate(testfixtures.Date(2024, time.January, 11)),
			testfixtures.WithSlotTimes("09:30", "10:00"),
		).Persistence())

		input := mondayInput()
		input.Recurrence = &RecurrenceInput{Cadence: "MONTHLY", Until: ptr(testfixtures.Date(2024, time.March, 10))}
		result, err := env.service.CreateSlot(context.Background(), CreateSlotParams{Principal: admin, Input: input})
		return env, result, err
	}

	t.Run("reject policy refuses a series with a conflicting occurrence", func(t *testing.T) {
		t.Parallel()
		env, _, err := monthlyWithThursdayClash(t, RecurrencePolicyReject)

		var cErr *ConflictError
		if !errors.As(err, &cErr) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if cErr.Occurrence != "2024-02-08" {
			t.Fatalf("expected clash on 2024-02-08, got %q", cErr.Occurrence)
		}
		if stored := env.allSlots(t); len(stored) != 1 {
			t.Fatalf("expected only the seeded slot, got %d", len(stored))
		}
	})

	t.Run("skip policy drops conflicting occurrences", func(t *testing.T) {
		t.Parallel()
		env, result, err := monthlyWithThursdayClash(t, RecurrencePolicySkip)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Skipped) != 1 || !result.Skipped[0].Slot.Date.Equal(testfixtures.Date(2024, time.February, 8)) {
			t.Fatalf("expected February occurrence to be skipped, got %+v", result.Skipped)
		}
		if len(result.Occurrences) != 1 {
			t.Fatalf("expected one accepted occurrence, got %d", len(result.Occurrences))
		}
		march := result.Occurrences[0]
		if !march.Date.Equal(testfixtures.Date(2024, time.March, 8)) || march.Day != int(time.Friday) {
			t.Fatalf("expected Friday 2024-03-08, got %v (day %d)", march.Date, march.Day)
		}
		if stored := env.allSlots(t); len(stored) != 3 {
			t.Fatalf("expected seeded, origin and March slots, got %d", len(stored))
		}
	})
}

func seedUpdateFixtures(t *testing.T, env *timetableEnv) {
	t.Helper()
	env.seed(t,
		testfixtures.NewSlotFixture(testfixtures.WithSlotID("s-1")).Persistence(),
		testfixtures.NewSlotFixture(
			testfixtures.WithSlotID("s-2"),
			testfixtures.WithSlotProfessor("prof-2"),
			testfixtures.WithSlotTimes("11:00", "12:00"),
		).Persistence(),
	)
}

func TestTimetableService_UpdateSlot(t *testing.T) {
	t.Parallel()

	t.Run("only admins and the slot's professor may update", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)
		seedUpdateFixtures(t, env)

		other := Principal{UserID: "prof-2", Role: RoleProfessor}
		_, err := env.service.UpdateSlot(context.Background(), UpdateSlotParams{Principal: other, SlotID: "s-1", Changes: SlotChanges{StartTime: ptr("08:00")}})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("returns not found for unknown slots", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)

		_, err := env.service.UpdateSlot(context.Background(), UpdateSlotParams{Principal: admin, SlotID: "missing"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ignores the slot's own booking", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)
		seedUpdateFixtures(t, env)
		env.clock.Advance(time.Hour)

		slot, err := env.service.UpdateSlot(context.Background(), UpdateSlotParams{
			Principal: professor,
			SlotID:    "s-1",
			Changes:   SlotChanges{StartTime: ptr("09:30"), EndTime: ptr("11:00")},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if slot.StartTime != "09:30" || !slot.UpdatedAt.Equal(env.clock.Now()) {
			t.Fatalf("unexpected updated slot: %+v", slot)
		}
		if got := env.notifier.types(); len(got) != 1 || got[0] != EventScheduleUpdated {
			t.Fatalf("expected SCHEDULE_UPDATED event, got %v", got)
		}
	})

	t.Run("rejects moves into another booking", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)
		seedUpdateFixtures(t, env)

		_, err := env.service.UpdateSlot(context.Background(), UpdateSlotParams{
			Principal: admin,
			SlotID:    "s-1",
			Changes:   SlotChanges{StartTime: ptr("10:30"), EndTime: ptr("11:30")},
		})
		var cErr *ConflictError
		if !errors.As(err, &cErr) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		stored, _ := env.store.GetSlot(context.Background(), "s-1")
		if stored.StartTime != "09:00" {
			t.Fatalf("expected slot to be unchanged, got %s", stored.StartTime)
		}
	})

	t.Run("moving to another date recomputes the weekday", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)
		seedUpdateFixtures(t, env)

		slot, err := env.service.UpdateSlot(context.Background(), UpdateSlotParams{
			Principal: admin,
			SlotID:    "s-1",
			Changes:   SlotChanges{Date: ptr(testfixtures.Date(2024, time.January, 10)), RoomID: ptr("room-b")},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if slot.Day != int(time.Wednesday) || slot.RoomID != "room-b" {
			t.Fatalf("unexpected slot: %+v", slot)
		}
	})

	t.Run("refuses cancellation through update", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)
		seedUpdateFixtures(t, env)

		_, err := env.service.UpdateSlot(context.Background(), UpdateSlotParams{
			Principal: admin,
			SlotID:    "s-1",
			Changes:   SlotChanges{Status: ptr("cancelled")},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["status"] == "" {
			t.Fatalf("expected status validation error, got %v", err)
		}
	})
}

func TestTimetableService_CancelSlot(t *testing.T) {
	t.Parallel()

	t.Run("requires a reason", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)
		seedUpdateFixtures(t, env)

		_, err := env.service.CancelSlot(context.Background(), CancelSlotParams{Principal: admin, SlotID: "s-1", Reason: "  "})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["reason"] == "" {
			t.Fatalf("expected reason validation error, got %v", err)
		}
	})

	t.Run("cancels once and frees the time", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)
		seedUpdateFixtures(t, env)
		ctx := context.Background()

		slot, err := env.service.CancelSlot(ctx, CancelSlotParams{Principal: professor, SlotID: "s-1", Reason: "sick leave"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slot.Cancelled() || slot.CancelReason != "sick leave" || slot.CancelledBy != professor.UserID {
			t.Fatalf("unexpected cancelled slot: %+v", slot)
		}
		if slot.CancelledAt == nil || !slot.CancelledAt.Equal(env.clock.Now()) {
			t.Fatalf("expected cancellation timestamp, got %v", slot.CancelledAt)
		}
		if len(env.notifier.types()) != 0 {
			t.Fatalf("expected no notification without notify flag")
		}

		_, err = env.service.CancelSlot(ctx, CancelSlotParams{Principal: admin, SlotID: "s-1", Reason: "again"})
		if !errors.Is(err, ErrSlotCancelled) {
			t.Fatalf("expected ErrSlotCancelled, got %v", err)
		}
		_, err = env.service.UpdateSlot(ctx, UpdateSlotParams{Principal: admin, SlotID: "s-1", Changes: SlotChanges{StartTime: ptr("08:00")}})
		if !errors.Is(err, ErrSlotCancelled) {
			t.Fatalf("expected ErrSlotCancelled on update, got %v", err)
		}

		conflicts, err := env.service.CheckConflicts(ctx, ConflictCheck{
			RoomID:    "room-a",
			Date:      testfixtures.Date(2024, time.January, 8),
			StartTime: "09:00",
			EndTime:   "10:30",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 0 {
			t.Fatalf("expected cancelled slot to free the room, got %+v", conflicts)
		}
	})

	t.Run("notifies when requested", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)
		seedUpdateFixtures(t, env)

		if _, err := env.service.CancelSlot(context.Background(), CancelSlotParams{Principal: admin, SlotID: "s-2", Reason: "holiday", Notify: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		events := env.notifier.events
		if len(events) != 1 || events[0].Type != EventScheduleCancelled || events[0].Reason != "holiday" {
			t.Fatalf("expected SCHEDULE_CANCELLED event, got %+v", events)
		}
	})

	t.Run("notification failures do not undo the cancellation", func(t *testing.T) {
		t.Parallel()
		env := newTimetableEnv(t, RecurrencePolicyReject)
		seedUpdateFixtures(t, env)
		env.notifier.err = errors.New("outbox unavailable")

		if _, err := env.service.CancelSlot(context.Background(), CancelSlotParams{Principal: admin, SlotID: "s-2", Reason: "holiday", Notify: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		stored, _ := env.store.GetSlot(context.Background(), "s-2")
		if stored.Status != string(scheduler.SlotStatusCancelled) {
			t.Fatalf("expected slot to stay cancelled, got %s", stored.Status)
		}
	})
}

func TestTimetableService_CheckConflicts(t *testing.T) {
	t.Parallel()

	env := newTimetableEnv(t, RecurrencePolicyReject)
	seedUpdateFixtures(t, env)
	ctx := context.Background()

	t.Run("requires a reference", func(t *testing.T) {
		_, err := env.service.CheckConflicts(ctx, ConflictCheck{Date: testfixtures.Date(2024, time.January, 8), StartTime: "09:00", EndTime: "10:00"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("professor only checks skip room conflicts", func(t *testing.T) {
		conflicts, err := env.service.CheckConflicts(ctx, ConflictCheck{
			ProfessorID: "prof-2",
			Date:        testfixtures.Date(2024, time.January, 22),
			StartTime:   "09:00",
			EndTime:     "11:30",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 1 || conflicts[0].Type != scheduler.ConflictTypeProfessor {
			t.Fatalf("expected a professor conflict only, got %+v", conflicts)
		}
		if len(conflicts[0].Slots) != 1 || conflicts[0].Slots[0].ID != "s-2" {
			t.Fatalf("expected s-2 to be reported, got %+v", conflicts[0].Slots)
		}
	})

	t.Run("excluded slots are not reported", func(t *testing.T) {
		conflicts, err := env.service.CheckConflicts(ctx, ConflictCheck{
			RoomID:        "room-a",
			ProfessorID:   "prof-1",
			Date:          testfixtures.Date(2024, time.January, 8),
			StartTime:     "09:00",
			EndTime:       "10:30",
			ExcludeSlotID: "s-1",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})
}

func TestTimetableService_ListSlots(t *testing.T) {
	t.Parallel()

	env := newTimetableEnv(t, RecurrencePolicyReject)
	env.seed(t,
		testfixtures.NewSlotFixture(testfixtures.WithSlotID("a"), testfixtures.WithSlotClass("class-1")).Persistence(),
		testfixtures.NewSlotFixture(testfixtures.WithSlotID("b"), testfixtures.WithSlotClass("class-2"), testfixtures.WithSlotProfessor("prof-2"),
			testfixtures.WithSlotDate(testfixtures.Date(2024, time.January, 9))).Persistence(),
		testfixtures.NewSlotFixture(testfixtures.WithSlotID("c"), testfixtures.WithSlotClass("class-1"), testfixtures.WithSlotType("EXAM"),
			testfixtures.WithSlotDate(testfixtures.Date(2024, time.January, 10))).Persistence(),
	)
	ctx := context.Background()

	classSlots, err := env.service.ClassSchedule(ctx, "class-1", SlotQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(classSlots) != 2 || classSlots[0].ID != "a" || classSlots[1].ID != "c" {
		t.Fatalf("unexpected class schedule: %+v", classSlots)
	}

	exams, err := env.service.ListSlots(ctx, SlotQuery{Type: "exam"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exams) != 1 || exams[0].ID != "c" {
		t.Fatalf("expected only the exam, got %+v", exams)
	}

	from := testfixtures.Date(2024, time.January, 9)
	ranged, err := env.service.ProfessorSchedule(ctx, "prof-1", SlotQuery{From: &from, To: &from})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranged) != 0 {
		t.Fatalf("expected no prof-1 slots on 2024-01-09, got %+v", ranged)
	}

	to := testfixtures.Date(2024, time.January, 1)
	_, err = env.service.ListSlots(ctx, SlotQuery{From: &from, To: &to})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for inverted range, got %v", err)
	}

	if _, err := env.service.ClassSchedule(ctx, " ", SlotQuery{}); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for empty class, got %v", err)
	}
}

func TestTimetableService_ExpandPreview(t *testing.T) {
	t.Parallel()

	env := newTimetableEnv(t, RecurrencePolicyReject)
	env.seed(t, testfixtures.NewSlotFixture(
		testfixtures.WithSlotID("busy"),
		testfixtures.WithSlotProfessor("prof-2"),
		testfixtures.WithSlotRoom("room-b"),
	).Persistence())
	ctx := context.Background()

	input := mondayInput()
	input.RoomID = "room-b"
	input.Recurrence = &RecurrenceInput{Cadence: "BIWEEKLY", Until: ptr(testfixtures.Date(2024, time.February, 5))}

	preview, err := env.service.ExpandPreview(ctx, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(preview.OriginConflicts) != 1 || preview.OriginConflicts[0].Type != scheduler.ConflictTypeRoom {
		t.Fatalf("expected origin room conflict, got %+v", preview.OriginConflicts)
	}
	if len(preview.Occurrences) != 2 {
		t.Fatalf("expected 2 biweekly occurrences, got %d", len(preview.Occurrences))
	}
	for _, occ := range preview.Occurrences {
		if len(occ.Conflicts) == 0 {
			t.Fatalf("expected occurrence on %v to carry the weekday conflict", occ.Slot.Date)
		}
	}
	if stored := env.allSlots(t); len(stored) != 1 {
		t.Fatalf("expected preview to store nothing, got %d slots", len(stored))
	}

	input.Recurrence = nil
	_, err = env.service.ExpandPreview(ctx, input)
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["recurrence"] == "" {
		t.Fatalf("expected recurrence validation error, got %v", err)
	}
}

func TestMapSlotRepoError(t *testing.T) {
	t.Parallel()

	if !errors.Is(mapSlotRepoError(persistence.ErrNotFound), ErrNotFound) {
		t.Fatalf("expected not found mapping")
	}
	if !errors.Is(mapSlotRepoError(persistence.ErrDuplicate), ErrAlreadyExists) {
		t.Fatalf("expected duplicate mapping")
	}
	var vErr *ValidationError
	if !errors.As(mapSlotRepoError(persistence.ErrForeignKeyViolation), &vErr) {
		t.Fatalf("expected foreign key violations to become validation errors")
	}
	other := errors.New("boom")
	if mapSlotRepoError(other) != other {
		t.Fatalf("expected unknown errors to pass through")
	}
}

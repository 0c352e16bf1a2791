package testfixtures

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/school-timetable/internal/persistence"
)

// Repositories is implemented by every storage backend.
type Repositories interface {
	persistence.SlotRepository
	persistence.RoomRepository
	persistence.OutboxRepository
}

// RunRepositoryContract exercises the behaviour every backend must share.
// open must return an empty, ready to use store for each call.
func RunRepositoryContract(t *testing.T, open func(t *testing.T) Repositories) {
	t.Helper()

	t.Run("rooms", func(t *testing.T) {
		testRoomContract(t, open(t))
	})
	t.Run("slots", func(t *testing.T) {
		testSlotContract(t, open(t))
	})
	t.Run("batch is atomic", func(t *testing.T) {
		testBatchAtomicity(t, open(t))
	})
	t.Run("outbox", func(t *testing.T) {
		testOutboxContract(t, open(t))
	})
}

func testRoomContract(t *testing.T, repo Repositories) {
	ctx := context.Background()

	b := NewRoomFixture(WithRoomID("room-b"), WithRoomName("B-201"), WithRoomFacilities("PROJECTOR", "AC"))
	a := NewRoomFixture(WithRoomID("room-a"), WithRoomName("A-101"), WithRoomFacilities())
	for _, room := range []RoomFixture{b, a} {
		if err := repo.CreateRoom(ctx, room.Persistence()); err != nil {
			t.Fatalf("CreateRoom(%s) failed: %v", room.ID, err)
		}
	}

	dup := NewRoomFixture(WithRoomName("a-101"))
	if err := repo.CreateRoom(ctx, dup.Persistence()); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for case-insensitive name clash, got %v", err)
	}

	fetched, err := repo.GetRoom(ctx, "room-b")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if fetched.Name != "B-201" || len(fetched.Facilities) != 2 || fetched.Facilities[1] != "AC" {
		t.Fatalf("unexpected room: %#v", fetched)
	}
	if !fetched.CreatedAt.Equal(b.CreatedAt) {
		t.Fatalf("expected created_at %v, got %v", b.CreatedAt, fetched.CreatedAt)
	}

	rooms, err := repo.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 2 || rooms[0].ID != "room-a" || rooms[1].ID != "room-b" {
		t.Fatalf("expected rooms ordered by name, got %#v", rooms)
	}
	if rooms[0].Facilities == nil || len(rooms[0].Facilities) != 0 {
		t.Fatalf("expected empty facility list, got %#v", rooms[0].Facilities)
	}

	updated := fetched
	updated.Capacity = 80
	updated.Status = "MAINTENANCE"
	updated.UpdatedAt = fetched.UpdatedAt.Add(time.Hour)
	if err := repo.UpdateRoom(ctx, updated); err != nil {
		t.Fatalf("UpdateRoom failed: %v", err)
	}
	if got, _ := repo.GetRoom(ctx, "room-b"); got.Capacity != 80 || got.Status != "MAINTENANCE" {
		t.Fatalf("update not persisted: %#v", got)
	}

	missing := NewRoomFixture(WithRoomID("room-missing")).Persistence()
	if err := repo.UpdateRoom(ctx, missing); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
	if _, err := repo.GetRoom(ctx, "room-missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on get, got %v", err)
	}

	slot := NewSlotFixture(WithSlotRoom("room-a"))
	if err := repo.CreateSlots(ctx, []persistence.TimeSlot{slot.Persistence()}); err != nil {
		t.Fatalf("CreateSlots failed: %v", err)
	}
	if err := repo.DeleteRoom(ctx, "room-a"); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation deleting a used room, got %v", err)
	}
	if err := repo.DeleteRoom(ctx, "room-b"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if err := repo.DeleteRoom(ctx, "room-b"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testSlotContract(t *testing.T, repo Repositories) {
	ctx := context.Background()

	for _, id := range []string{"room-a", "room-b"} {
		if err := repo.CreateRoom(ctx, NewRoomFixture(WithRoomID(id), WithRoomName(id)).Persistence()); err != nil {
			t.Fatalf("CreateRoom failed: %v", err)
		}
	}

	until := Date(2024, time.January, 29)
	monday := Date(2024, time.January, 8)
	origin := NewSlotFixture(WithSlotID("origin"), WithSlotDate(monday), WithSlotRecurrence("WEEKLY", &until))
	next := NewSlotFixture(WithSlotID("next"), WithSlotDate(monday.AddDate(0, 0, 7)), WithSlotParent("origin"))
	early := NewSlotFixture(WithSlotID("early"), WithSlotDate(monday), WithSlotTimes("08:00", "08:50"),
		WithSlotRoom("room-b"), WithSlotProfessor("prof-2"), WithSlotClass("class-2"), WithSlotType("EXAM"))
	cancelled := NewSlotFixture(WithSlotID("cancelled"), WithSlotDate(monday), WithSlotTimes("14:00", "15:00"),
		WithSlotStatus("CANCELLED"))
	tuesday := NewSlotFixture(WithSlotID("tuesday"), WithSlotDate(monday.AddDate(0, 0, 1)))

	batch := []persistence.TimeSlot{
		origin.Persistence(), next.Persistence(), early.Persistence(), cancelled.Persistence(), tuesday.Persistence(),
	}
	if err := repo.CreateSlots(ctx, batch); err != nil {
		t.Fatalf("CreateSlots failed: %v", err)
	}
	if err := repo.CreateSlots(ctx, nil); err != nil {
		t.Fatalf("CreateSlots with no slots failed: %v", err)
	}

	got, err := repo.GetSlot(ctx, "origin")
	if err != nil {
		t.Fatalf("GetSlot failed: %v", err)
	}
	if !got.Date.Equal(monday) || got.Day != 1 || got.StartTime != "09:00" || got.EndTime != "10:30" {
		t.Fatalf("unexpected slot timing: %#v", got)
	}
	if got.RecurrenceCadence == nil || *got.RecurrenceCadence != "WEEKLY" {
		t.Fatalf("expected WEEKLY cadence, got %v", got.RecurrenceCadence)
	}
	if got.RecurrenceUntil == nil || !got.RecurrenceUntil.Equal(until) {
		t.Fatalf("expected until %v, got %v", until, got.RecurrenceUntil)
	}
	if got.ParentID != nil || got.CancelledAt != nil {
		t.Fatalf("expected nil optional fields, got %#v", got)
	}
	if child, _ := repo.GetSlot(ctx, "next"); child.ParentID == nil || *child.ParentID != "origin" {
		t.Fatalf("expected parent origin, got %#v", child.ParentID)
	}
	if _, err := repo.GetSlot(ctx, "nope"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	all, err := repo.ListSlots(ctx, persistence.SlotQuery{})
	if err != nil {
		t.Fatalf("ListSlots failed: %v", err)
	}
	assertSlotIDs(t, all, "early", "origin", "cancelled", "tuesday", "next")

	to := monday
	sameDay, err := repo.ListSlots(ctx, persistence.SlotQuery{From: &monday, To: &to, Status: persistence.SlotStatusScheduled})
	if err != nil {
		t.Fatalf("ListSlots by date failed: %v", err)
	}
	assertSlotIDs(t, sameDay, "early", "origin")

	exams, _ := repo.ListSlots(ctx, persistence.SlotQuery{Type: "EXAM", ClassID: "class-2", ProfessorID: "prof-2", RoomID: "room-b"})
	assertSlotIDs(t, exams, "early")

	day := 1
	scheduled, err := repo.FindScheduledSlots(ctx, persistence.SlotFilter{RoomID: "room-a", Day: &day})
	if err != nil {
		t.Fatalf("FindScheduledSlots failed: %v", err)
	}
	assertSlotIDs(t, scheduled, "origin", "next")

	byProfessor, _ := repo.FindScheduledSlots(ctx, persistence.SlotFilter{ProfessorID: "prof-1"})
	assertSlotIDs(t, byProfessor, "origin", "tuesday", "next")

	cancelledAt := ReferenceTime().Add(48 * time.Hour)
	reason, by := "professor ill", "admin-1"
	got.Status = "CANCELLED"
	got.CancelReason = &reason
	got.CancelledBy = &by
	got.CancelledAt = &cancelledAt
	got.UpdatedAt = cancelledAt
	if err := repo.UpdateSlot(ctx, got); err != nil {
		t.Fatalf("UpdateSlot failed: %v", err)
	}
	reloaded, _ := repo.GetSlot(ctx, "origin")
	if reloaded.Status != "CANCELLED" || reloaded.CancelReason == nil || *reloaded.CancelReason != reason {
		t.Fatalf("cancellation not persisted: %#v", reloaded)
	}
	if reloaded.CancelledAt == nil || !reloaded.CancelledAt.Equal(cancelledAt) {
		t.Fatalf("expected cancelled_at %v, got %v", cancelledAt, reloaded.CancelledAt)
	}
	scheduled, _ = repo.FindScheduledSlots(ctx, persistence.SlotFilter{RoomID: "room-a", Day: &day})
	assertSlotIDs(t, scheduled, "next")

	ghost := NewSlotFixture(WithSlotID("ghost")).Persistence()
	if err := repo.UpdateSlot(ctx, ghost); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating unknown slot, got %v", err)
	}
}

func testBatchAtomicity(t *testing.T, repo Repositories) {
	ctx := context.Background()

	if err := repo.CreateRoom(ctx, NewRoomFixture(WithRoomID("room-a"), WithRoomName("A")).Persistence()); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	existing := NewSlotFixture(WithSlotID("existing"))
	if err := repo.CreateSlots(ctx, []persistence.TimeSlot{existing.Persistence()}); err != nil {
		t.Fatalf("CreateSlots failed: %v", err)
	}

	fresh := NewSlotFixture(WithSlotID("fresh"))
	err := repo.CreateSlots(ctx, []persistence.TimeSlot{fresh.Persistence(), existing.Persistence()})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := repo.GetSlot(ctx, "fresh"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected failed batch to store nothing, got %v", err)
	}

	orphan := NewSlotFixture(WithSlotID("orphan"), WithSlotRoom("room-zzz"))
	if err := repo.CreateSlots(ctx, []persistence.TimeSlot{orphan.Persistence()}); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation for unknown room, got %v", err)
	}
}

func testOutboxContract(t *testing.T, repo Repositories) {
	ctx := context.Background()
	base := ReferenceTime()

	events := []persistence.OutboxEvent{
		{ID: "evt-2", EventType: "SCHEDULE_UPDATED", Payload: []byte(`{"slotId":"s2"}`), CreatedAt: base.Add(time.Minute)},
		{ID: "evt-1", EventType: "NEW_SCHEDULE", Payload: []byte(`{"slotId":"s1"}`), CreatedAt: base},
		{ID: "evt-3", EventType: "SCHEDULE_CANCELLED", Payload: []byte(`{"slotId":"s3"}`), CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, event := range events {
		if err := repo.InsertEvent(ctx, event); err != nil {
			t.Fatalf("InsertEvent failed: %v", err)
		}
	}
	if err := repo.InsertEvent(ctx, events[0]); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	pending, err := repo.ListPendingEvents(ctx, 2)
	if err != nil {
		t.Fatalf("ListPendingEvents failed: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "evt-1" || pending[1].ID != "evt-2" {
		t.Fatalf("unexpected pending events: %#v", pending)
	}
	if pending[0].EventType != "NEW_SCHEDULE" || len(pending[0].Payload) == 0 {
		t.Fatalf("unexpected event content: %#v", pending[0])
	}

	if err := repo.MarkEventPublished(ctx, "evt-1", base.Add(time.Hour)); err != nil {
		t.Fatalf("MarkEventPublished failed: %v", err)
	}
	if err := repo.MarkEventPublished(ctx, "evt-404", base); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	pending, _ = repo.ListPendingEvents(ctx, 0)
	if len(pending) != 2 || pending[0].ID != "evt-2" || pending[1].ID != "evt-3" {
		t.Fatalf("unexpected pending events after publish: %#v", pending)
	}
}

func assertSlotIDs(t *testing.T, slots []persistence.TimeSlot, want ...string) {
	t.Helper()
	if len(slots) != len(want) {
		ids := make([]string, 0, len(slots))
		for _, s := range slots {
			ids = append(ids, s.ID)
		}
		t.Fatalf("expected slots %v, got %v", want, ids)
	}
	for i, id := range want {
		if slots[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, slots[i].ID)
		}
	}
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/school-timetable/internal/persistence"
	"github.com/example/school-timetable/internal/recurrence"
	"github.com/example/school-timetable/internal/scheduler"
)

const maxCancelReasonLength = 500

// TimetableConfig tunes a TimetableService.
type TimetableConfig struct {
	Policy         RecurrencePolicy
	Horizon        time.Duration
	MaxOccurrences int
	Logger         *slog.Logger
	// OnSlotsChanged runs after every successful slot write.
	OnSlotsChanged func()
}

// TimetableService orchestrates validation, conflict detection, recurrence
// expansion and persistence for time slots.
type TimetableService struct {
	slots       persistence.SlotRepository
	rooms       persistence.RoomRepository
	notifier    Notifier
	detector    *scheduler.Detector
	engine      *recurrence.Engine
	policy      RecurrencePolicy
	onChange    func()
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTimetableService constructs a timetable service with default settings.
func NewTimetableService(slots persistence.SlotRepository, rooms persistence.RoomRepository, notifier Notifier, idGenerator func() string, now func() time.Time) *TimetableService {
	return NewTimetableServiceWithConfig(slots, rooms, notifier, idGenerator, now, TimetableConfig{})
}

// NewTimetableServiceWithConfig constructs a timetable service with explicit settings.
func NewTimetableServiceWithConfig(slots persistence.SlotRepository, rooms persistence.RoomRepository, notifier Notifier, idGenerator func() string, now func() time.Time, cfg TimetableConfig) *TimetableService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	policy := cfg.Policy
	if !policy.Valid() {
		policy = RecurrencePolicyReject
	}
	logger := defaultLogger(cfg.Logger)
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}

	detector := scheduler.NewDetector(slotSource{repo: slots})
	return &TimetableService{
		slots:       slots,
		rooms:       rooms,
		notifier:    notifier,
		detector:    detector,
		engine:      recurrence.NewEngine(detector, recurrence.WithHorizon(cfg.Horizon), recurrence.WithMaxOccurrences(cfg.MaxOccurrences)),
		policy:      policy,
		onChange:    cfg.OnSlotsChanged,
		idGenerator: idGenerator,
		now:         now,
		logger:      logger,
	}
}

func (s *TimetableService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TimetableService", operation, attrs...)
}

// CheckConflicts reports the scheduled slots a prospective booking would collide with.
func (s *TimetableService) CheckConflicts(ctx context.Context, check ConflictCheck) (conflicts []scheduler.Conflict, err error) {
	if s == nil {
		err = fmt.Errorf("TimetableService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CheckConflicts",
		"room_id", check.RoomID,
		"professor_id", check.ProfessorID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to check conflicts", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("conflict_count", len(conflicts)).InfoContext(ctx, "conflicts checked")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(check.RoomID) == "" && strings.TrimSpace(check.ProfessorID) == "" {
		vErr.add("roomId", "roomId or professorId is required")
	}
	day := validateWhen(check.Date, check.Day, check.StartTime, check.EndTime, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	candidate := scheduler.TimeSlot{
		RoomID:      strings.TrimSpace(check.RoomID),
		ProfessorID: strings.TrimSpace(check.ProfessorID),
		Date:        scheduler.DateOnly(check.Date),
		Day:         day,
		StartTime:   scheduler.Clock(check.StartTime),
		EndTime:     scheduler.Clock(check.EndTime),
		Status:      scheduler.SlotStatusScheduled,
	}

	conflicts, err = s.detector.DetectConflicts(ctx, candidate, check.ExcludeSlotID)
	return
}

// CreateSlot validates the request, rejects conflicting bookings, expands
// recurrences and stores the origin together with its occurrences in one batch.
func (s *TimetableService) CreateSlot(ctx context.Context, params CreateSlotParams) (result CreateSlotResult, err error) {
	if s == nil {
		err = fmt.Errorf("TimetableService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateSlot",
		"principal_id", params.Principal.UserID,
		"room_id", params.Input.RoomID,
		"professor_id", params.Input.ProfessorID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"slot_id", result.Slot.ID,
			"occurrence_count", len(result.Occurrences),
			"skipped_count", len(result.Skipped),
		).InfoContext(ctx, "slot created")
	}()

	if !params.Principal.CanSchedule() {
		err = ErrUnauthorized
		return
	}

	slot, vErr := s.newSlot(params.Input, params.Principal)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.ensureRoomExists(ctx, slot.RoomID); err != nil {
		return
	}

	candidate := toSchedulerSlot(slot)
	var conflicts []scheduler.Conflict
	conflicts, err = s.detector.DetectConflicts(ctx, candidate, "")
	if err != nil {
		return
	}
	if len(conflicts) > 0 {
		err = &ConflictError{Conflicts: conflicts}
		return
	}

	rows := []persistence.TimeSlot{slotToRow(slot)}
	if slot.Recurrence != nil {
		var expansion recurrence.Result
		expansion, err = s.engine.Expand(ctx, candidate)
		if err != nil {
			return
		}
		for _, occ := range expansion.Occurrences {
			preview := OccurrencePreview{Slot: occurrenceSlot(occ.Slot, slot), Conflicts: occ.Conflicts}
			if occ.HasConflicts() {
				if s.policy == RecurrencePolicyReject {
					err = &ConflictError{Conflicts: occ.Conflicts, Occurrence: occ.Slot.Date.Format(time.DateOnly)}
					return
				}
				result.Skipped = append(result.Skipped, preview)
				continue
			}
			preview.Slot.ID = s.idGenerator()
			result.Occurrences = append(result.Occurrences, preview.Slot)
			rows = append(rows, slotToRow(preview.Slot))
		}
	}

	if s.slots != nil {
		if err = s.slots.CreateSlots(ctx, rows); err != nil {
			err = mapSlotRepoError(err)
			return
		}
	}
	result.Slot = slot
	s.changed()

	s.notify(ctx, logger, Event{
		Type:        EventNewSchedule,
		Slot:        slot,
		ActorID:     params.Principal.UserID,
		Occurrences: len(result.Occurrences),
	})
	return
}

// ExpandPreview reports the occurrences a recurring slot would produce and the
// conflicts each one would cause. Nothing is stored.
func (s *TimetableService) ExpandPreview(ctx context.Context, input SlotInput) (preview ExpansionPreview, err error) {
	if s == nil {
		err = fmt.Errorf("TimetableService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ExpandPreview",
		"room_id", input.RoomID,
		"professor_id", input.ProfessorID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to preview expansion", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("occurrence_count", len(preview.Occurrences)).InfoContext(ctx, "expansion previewed")
	}()

	origin, vErr := s.newSlot(input, Principal{})
	if input.Recurrence == nil {
		vErr.add("recurrence", "recurrence is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	candidate := toSchedulerSlot(origin)
	preview.Origin = origin
	preview.OriginConflicts, err = s.detector.DetectConflicts(ctx, candidate, "")
	if err != nil {
		return
	}

	var expansion recurrence.Result
	expansion, err = s.engine.Expand(ctx, candidate)
	if err != nil {
		return
	}
	for _, occ := range expansion.Occurrences {
		preview.Occurrences = append(preview.Occurrences, OccurrencePreview{
			Slot:      occurrenceSlot(occ.Slot, origin),
			Conflicts: occ.Conflicts,
		})
	}
	return
}

// UpdateSlot applies changes to a slot for administrators and the slot's professor.
func (s *TimetableService) UpdateSlot(ctx context.Context, params UpdateSlotParams) (slot Slot, err error) {
	if s == nil {
		err = fmt.Errorf("TimetableService is nil")
		return
	}
	if s.slots == nil {
		err = fmt.Errorf("slot repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateSlot",
		"principal_id", params.Principal.UserID,
		"slot_id", params.SlotID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot updated")
	}()

	var existing Slot
	existing, err = s.getSlot(ctx, params.SlotID)
	if err != nil {
		return
	}
	if !params.Principal.IsAdmin() && existing.ProfessorID != params.Principal.UserID {
		err = ErrUnauthorized
		return
	}
	if existing.Cancelled() {
		err = ErrSlotCancelled
		return
	}

	updated, vErr := applySlotChanges(existing, params.Changes)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if updated.RoomID != existing.RoomID {
		if err = s.ensureRoomExists(ctx, updated.RoomID); err != nil {
			return
		}
	}

	if updated.Status == string(scheduler.SlotStatusScheduled) && reschedules(existing, updated) {
		var conflicts []scheduler.Conflict
		conflicts, err = s.detector.DetectConflicts(ctx, toSchedulerSlot(updated), existing.ID)
		if err != nil {
			return
		}
		if len(conflicts) > 0 {
			err = &ConflictError{Conflicts: conflicts}
			return
		}
	}

	updated.UpdatedAt = s.now()
	if err = s.slots.UpdateSlot(ctx, slotToRow(updated)); err != nil {
		err = mapSlotRepoError(err)
		return
	}
	slot = updated
	s.changed()

	s.notify(ctx, logger, Event{Type: EventScheduleUpdated, Slot: slot, ActorID: params.Principal.UserID})
	return
}

// CancelSlot marks a slot as cancelled. Cancelled slots no longer block rooms
// or professors.
func (s *TimetableService) CancelSlot(ctx context.Context, params CancelSlotParams) (slot Slot, err error) {
	if s == nil {
		err = fmt.Errorf("TimetableService is nil")
		return
	}
	if s.slots == nil {
		err = fmt.Errorf("slot repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CancelSlot",
		"principal_id", params.Principal.UserID,
		"slot_id", params.SlotID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("notify", params.Notify).InfoContext(ctx, "slot cancelled")
	}()

	reason := strings.TrimSpace(params.Reason)
	vErr := &ValidationError{}
	if reason == "" {
		vErr.add("reason", "reason is required")
	} else if len(reason) > maxCancelReasonLength {
		vErr.add("reason", fmt.Sprintf("reason must be at most %d characters", maxCancelReasonLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var existing Slot
	existing, err = s.getSlot(ctx, params.SlotID)
	if err != nil {
		return
	}
	if !params.Principal.IsAdmin() && existing.ProfessorID != params.Principal.UserID {
		err = ErrUnauthorized
		return
	}
	if existing.Cancelled() {
		err = ErrSlotCancelled
		return
	}

	now := s.now()
	cancelled := existing
	cancelled.Status = string(scheduler.SlotStatusCancelled)
	cancelled.CancelReason = reason
	cancelled.CancelledBy = params.Principal.UserID
	cancelled.CancelledAt = &now
	cancelled.UpdatedAt = now

	if err = s.slots.UpdateSlot(ctx, slotToRow(cancelled)); err != nil {
		err = mapSlotRepoError(err)
		return
	}
	slot = cancelled
	s.changed()

	if params.Notify {
		s.notify(ctx, logger, Event{Type: EventScheduleCancelled, Slot: slot, ActorID: params.Principal.UserID, Reason: reason})
	}
	return
}

// ListSlots returns slots matching the query ordered by date and start time.
func (s *TimetableService) ListSlots(ctx context.Context, query SlotQuery) (slots []Slot, err error) {
	if s == nil {
		err = fmt.Errorf("TimetableService is nil")
		return
	}
	if s.slots == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListSlots",
		"class_id", query.ClassID,
		"professor_id", query.ProfessorID,
		"room_id", query.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list slots", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(slots)).InfoContext(ctx, "slots listed")
	}()

	if vErr := validateSlotQuery(query); vErr.HasErrors() {
		err = vErr
		return
	}

	var rows []persistence.TimeSlot
	rows, err = s.slots.ListSlots(ctx, persistence.SlotQuery{
		Type:        strings.ToUpper(query.Type),
		ClassID:     query.ClassID,
		ProfessorID: query.ProfessorID,
		RoomID:      query.RoomID,
		CourseID:    query.CourseID,
		Status:      strings.ToUpper(query.Status),
		From:        query.From,
		To:          query.To,
	})
	if err != nil {
		err = mapSlotRepoError(err)
		return
	}

	slots = make([]Slot, 0, len(rows))
	for _, row := range rows {
		slots = append(slots, slotFromRow(row))
	}
	return
}

// ClassSchedule lists the slots of one class.
func (s *TimetableService) ClassSchedule(ctx context.Context, classID string, query SlotQuery) ([]Slot, error) {
	if strings.TrimSpace(classID) == "" {
		vErr := &ValidationError{}
		vErr.add("classId", "classId is required")
		return nil, vErr
	}
	query.ClassID = classID
	return s.ListSlots(ctx, query)
}

// ProfessorSchedule lists the slots taught by one professor.
func (s *TimetableService) ProfessorSchedule(ctx context.Context, professorID string, query SlotQuery) ([]Slot, error) {
	if strings.TrimSpace(professorID) == "" {
		vErr := &ValidationError{}
		vErr.add("professorId", "professorId is required")
		return nil, vErr
	}
	query.ProfessorID = professorID
	return s.ListSlots(ctx, query)
}

func (s *TimetableService) getSlot(ctx context.Context, id string) (Slot, error) {
	if strings.TrimSpace(id) == "" {
		return Slot{}, ErrNotFound
	}
	row, err := s.slots.GetSlot(ctx, id)
	if err != nil {
		return Slot{}, mapSlotRepoError(err)
	}
	return slotFromRow(row), nil
}

func (s *TimetableService) ensureRoomExists(ctx context.Context, roomID string) error {
	if s.rooms == nil {
		return nil
	}
	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			vErr := &ValidationError{}
			vErr.add("roomId", "room does not exist")
			return vErr
		}
		return err
	}
	return nil
}

func (s *TimetableService) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// notify never fails the calling operation: the slot change is already stored.
func (s *TimetableService) notify(ctx context.Context, logger *slog.Logger, event Event) {
	if err := s.notifier.Notify(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to record notification", "event_type", event.Type, "error", err)
	}
}

func (s *TimetableService) newSlot(input SlotInput, principal Principal) (Slot, *ValidationError) {
	vErr := &ValidationError{}

	required := map[string]string{
		"roomId":      input.RoomID,
		"professorId": input.ProfessorID,
		"courseId":    input.CourseID,
		"classId":     input.ClassID,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			vErr.add(field, field+" is required")
		}
	}

	slotType := strings.ToUpper(strings.TrimSpace(input.Type))
	if !scheduler.SlotType(slotType).Valid() {
		vErr.add("type", "type must be one of COURSE, EXAM, EVENT")
	}

	day := validateWhen(input.Date, input.Day, input.StartTime, input.EndTime, vErr)
	date := scheduler.DateOnly(input.Date)
	now := s.now()

	var rec *SlotRecurrence
	if input.Recurrence != nil {
		cadence, err := scheduler.ParseCadence(input.Recurrence.Cadence)
		if err != nil {
			vErr.add("recurrence.type", "type must be one of WEEKLY, BIWEEKLY, MONTHLY")
		}
		var until *time.Time
		if input.Recurrence.Until != nil {
			u := scheduler.DateOnly(*input.Recurrence.Until)
			switch {
			case !date.IsZero() && !u.After(date):
				vErr.add("recurrence.until", "until must be after date")
			case !input.Recurrence.Until.After(now):
				vErr.add("recurrence.until", "until must be in the future")
			}
			until = &u
		}
		rec = &SlotRecurrence{Cadence: cadence.String(), Until: until}
	}

	slot := Slot{
		ID:          s.idGenerator(),
		RoomID:      strings.TrimSpace(input.RoomID),
		ProfessorID: strings.TrimSpace(input.ProfessorID),
		CourseID:    strings.TrimSpace(input.CourseID),
		ClassID:     strings.TrimSpace(input.ClassID),
		Date:        date,
		Day:         day,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Type:        slotType,
		Status:      string(scheduler.SlotStatusScheduled),
		Recurrence:  rec,
		CreatedBy:   principal.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return slot, vErr
}

// validateWhen checks the date, weekday and time range of a booking and returns
// the effective weekday.
func validateWhen(date time.Time, day *int, start, end string, vErr *ValidationError) int {
	effective := -1
	if date.IsZero() {
		vErr.add("date", "date is required")
	} else {
		effective = int(date.Weekday())
	}
	if day != nil {
		switch {
		case *day < 0 || *day > 6:
			vErr.add("day", "day must be between 0 and 6")
		case effective >= 0 && *day != effective:
			vErr.add("day", "day must match the weekday of date")
		default:
			effective = *day
		}
	}

	startOK := scheduler.Clock(start).Valid()
	endOK := scheduler.Clock(end).Valid()
	if !startOK {
		vErr.add("startTime", "startTime must be HH:MM")
	}
	if !endOK {
		vErr.add("endTime", "endTime must be HH:MM")
	}
	if startOK && endOK && !scheduler.Clock(start).Before(scheduler.Clock(end)) {
		vErr.add("endTime", "endTime must be after startTime")
	}
	return effective
}

func applySlotChanges(existing Slot, changes SlotChanges) (Slot, *ValidationError) {
	vErr := &ValidationError{}
	updated := existing

	setRef := func(field string, value *string, target *string) {
		if value == nil {
			return
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			vErr.add(field, field+" must not be empty")
			return
		}
		*target = trimmed
	}
	setRef("roomId", changes.RoomID, &updated.RoomID)
	setRef("professorId", changes.ProfessorID, &updated.ProfessorID)
	setRef("courseId", changes.CourseID, &updated.CourseID)
	setRef("classId", changes.ClassID, &updated.ClassID)

	if changes.Date != nil {
		updated.Date = scheduler.DateOnly(*changes.Date)
	}
	if changes.StartTime != nil {
		updated.StartTime = *changes.StartTime
	}
	if changes.EndTime != nil {
		updated.EndTime = *changes.EndTime
	}
	updated.Day = validateWhen(updated.Date, nil, updated.StartTime, updated.EndTime, vErr)

	if changes.Type != nil {
		slotType := strings.ToUpper(strings.TrimSpace(*changes.Type))
		if !scheduler.SlotType(slotType).Valid() {
			vErr.add("type", "type must be one of COURSE, EXAM, EVENT")
		}
		updated.Type = slotType
	}
	if changes.Status != nil {
		status := scheduler.SlotStatus(strings.ToUpper(strings.TrimSpace(*changes.Status)))
		switch {
		case status == scheduler.SlotStatusCancelled:
			vErr.add("status", "use the cancel operation to cancel a slot")
		case !status.Valid():
			vErr.add("status", "status must be one of SCHEDULED, COMPLETED")
		}
		updated.Status = string(status)
	}
	return updated, vErr
}

// reschedules reports whether the update moves the slot in time or changes who
// or what it occupies.
func reschedules(before, after Slot) bool {
	return before.RoomID != after.RoomID ||
		before.ProfessorID != after.ProfessorID ||
		!before.Date.Equal(after.Date) ||
		before.Day != after.Day ||
		before.StartTime != after.StartTime ||
		before.EndTime != after.EndTime ||
		before.Status != after.Status
}

func validateSlotQuery(query SlotQuery) *ValidationError {
	vErr := &ValidationError{}
	if query.Type != "" && !scheduler.SlotType(strings.ToUpper(query.Type)).Valid() {
		vErr.add("type", "type must be one of COURSE, EXAM, EVENT")
	}
	if query.Status != "" && !scheduler.SlotStatus(strings.ToUpper(query.Status)).Valid() {
		vErr.add("status", "status must be one of SCHEDULED, CANCELLED, COMPLETED")
	}
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		vErr.add("endDate", "endDate must not precede startDate")
	}
	return vErr
}

func mapSlotRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add("roomId", "room does not exist")
		return vErr
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("slot", "slot violates a storage constraint")
		return vErr
	}
	return err
}

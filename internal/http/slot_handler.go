package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/school-timetable/internal/application"
	"github.com/example/school-timetable/internal/scheduler"
)

type slotService interface {
	CreateSlot(ctx context.Context, params application.CreateSlotParams) (application.CreateSlotResult, error)
	UpdateSlot(ctx context.Context, params application.UpdateSlotParams) (application.Slot, error)
	CancelSlot(ctx context.Context, params application.CancelSlotParams) (application.Slot, error)
	CheckConflicts(ctx context.Context, check application.ConflictCheck) ([]scheduler.Conflict, error)
	ExpandPreview(ctx context.Context, input application.SlotInput) (application.ExpansionPreview, error)
	ListSlots(ctx context.Context, query application.SlotQuery) ([]application.Slot, error)
	ClassSchedule(ctx context.Context, classID string, query application.SlotQuery) ([]application.Slot, error)
	ProfessorSchedule(ctx context.Context, professorID string, query application.SlotQuery) ([]application.Slot, error)
}

// SlotHandler serves timetable slot endpoints.
type SlotHandler struct {
	service   slotService
	responder responder
	validator *requestValidator
	logger    *slog.Logger
}

// NewSlotHandler constructs a SlotHandler backed by the given service.
func NewSlotHandler(service slotService, logger *slog.Logger) *SlotHandler {
	base := defaultLogger(logger)
	return &SlotHandler{
		service:   service,
		responder: newResponder(base),
		validator: newRequestValidator(),
		logger:    base,
	}
}

func (h *SlotHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SlotHandler", operation, attrs...)
}

func (h *SlotHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// decode reads and validates a JSON body. It writes the error response itself
// and reports whether the handler may continue.
func (h *SlotHandler) decode(w http.ResponseWriter, r *http.Request, operation string, dst interface{ normalize() }) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode slot request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return false
	}
	dst.normalize()
	if fields := h.validator.Struct(dst); len(fields) > 0 {
		h.log(r.Context(), operation, "error_kind", "validation").WarnContext(r.Context(), "slot request rejected", "fields", len(fields))
		h.responder.writeFieldErrors(r.Context(), w, fields)
		return false
	}
	return true
}

// Create books a new slot, expanding its recurrence when one is requested.
func (h *SlotHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req slotRequest
	if !h.decode(w, r, "Create", &req) {
		return
	}

	logger := h.log(r.Context(), "Create")

	result, err := h.service.CreateSlot(r.Context(), application.CreateSlotParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "slot creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("slot_id", result.Slot.ID, "occurrence_count", len(result.Occurrences)).InfoContext(r.Context(), "slot created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createSlotResponse{
		Slot:        toSlotDTO(result.Slot),
		Occurrences: toSlotDTOs(result.Occurrences),
		Skipped:     toOccurrenceDTOs(result.Skipped),
	})
}

// CheckConflicts reports the bookings a prospective slot would collide with.
func (h *SlotHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req conflictCheckRequest
	if !h.decode(w, r, "CheckConflicts", &req) {
		return
	}

	logger := h.log(r.Context(), "CheckConflicts", "room_id", req.RoomID, "professor_id", req.ProfessorID)

	conflicts, err := h.service.CheckConflicts(r.Context(), req.toCheck())
	if err != nil {
		logger.ErrorContext(r.Context(), "conflict check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("conflict_count", len(conflicts)).InfoContext(r.Context(), "conflicts checked")
	dtos := toConflictDTOs(conflicts)
	if dtos == nil {
		dtos = []conflictDTO{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictCheckResponse{
		HasConflicts: len(conflicts) > 0,
		Conflicts:    dtos,
	})
}

// Expand previews the occurrences a recurring slot would produce.
func (h *SlotHandler) Expand(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req slotRequest
	if !h.decode(w, r, "Expand", &req) {
		return
	}

	logger := h.log(r.Context(), "Expand", "room_id", req.RoomID, "professor_id", req.ProfessorID)

	preview, err := h.service.ExpandPreview(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "expansion preview failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("occurrence_count", len(preview.Occurrences)).InfoContext(r.Context(), "expansion previewed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, ToExpansionDTO(preview))
}

// Update applies a partial change to an existing slot.
func (h *SlotHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	slotID, ok := SlotIDFromContext(r.Context())
	if !ok || strings.TrimSpace(slotID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing slot id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req updateSlotRequest
	if !h.decode(w, r, "Update", &req) {
		return
	}
	if req.empty() {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errEmptyUpdate)
		return
	}

	logger := h.log(r.Context(), "Update")

	slot, err := h.service.UpdateSlot(r.Context(), application.UpdateSlotParams{
		Principal: principal,
		SlotID:    slotID,
		Changes:   req.toChanges(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "slot update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "slot updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotResponse{Slot: toSlotDTO(slot)})
}

// Cancel marks a slot as cancelled.
func (h *SlotHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	slotID, ok := SlotIDFromContext(r.Context())
	if !ok || strings.TrimSpace(slotID) == "" {
		h.log(r.Context(), "Cancel", "error_kind", "bad_request").ErrorContext(r.Context(), "missing slot id for cancel")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req cancelRequest
	if !h.decode(w, r, "Cancel", &req) {
		return
	}

	logger := h.log(r.Context(), "Cancel")

	slot, err := h.service.CancelSlot(r.Context(), application.CancelSlotParams{
		Principal: principal,
		SlotID:    slotID,
		Reason:    req.Reason,
		Notify:    req.Notify,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "slot cancel failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "slot cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotResponse{Slot: toSlotDTO(slot)})
}

// List returns slots filtered by query parameters.
func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "List", func(ctx context.Context, query application.SlotQuery) ([]application.Slot, error) {
		return h.service.ListSlots(ctx, query)
	})
}

// ClassSchedule returns the slots of the class named in the path.
func (h *SlotHandler) ClassSchedule(w http.ResponseWriter, r *http.Request) {
	classID, _ := OwnerIDFromContext(r.Context())
	h.list(w, r, "ClassSchedule", func(ctx context.Context, query application.SlotQuery) ([]application.Slot, error) {
		return h.service.ClassSchedule(ctx, classID, query)
	})
}

// ProfessorSchedule returns the slots taught by the professor named in the path.
func (h *SlotHandler) ProfessorSchedule(w http.ResponseWriter, r *http.Request) {
	professorID, _ := OwnerIDFromContext(r.Context())
	h.list(w, r, "ProfessorSchedule", func(ctx context.Context, query application.SlotQuery) ([]application.Slot, error) {
		return h.service.ProfessorSchedule(ctx, professorID, query)
	})
}

func (h *SlotHandler) list(w http.ResponseWriter, r *http.Request, operation string, fetch func(context.Context, application.SlotQuery) ([]application.Slot, error)) {
	if !h.ready(w) {
		return
	}

	params := slotListParamsFrom(r)
	if fields := h.validator.Struct(params); len(fields) > 0 {
		h.log(r.Context(), operation, "error_kind", "validation").WarnContext(r.Context(), "slot query rejected", "fields", len(fields))
		h.responder.writeFieldErrors(r.Context(), w, fields)
		return
	}

	logger := h.log(r.Context(), operation)
	slots, err := fetch(r.Context(), params.toQuery())
	if err != nil {
		logger.ErrorContext(r.Context(), "slot list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(slots)).InfoContext(r.Context(), "slots listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSlotsResponse{Slots: toSlotDTOs(slots)})
}

type recurrenceRequest struct {
	Type  string  `json:"type" validate:"required,oneof=WEEKLY BIWEEKLY MONTHLY"`
	Until *string `json:"until" validate:"omitempty,datetime=2006-01-02"`
}

type slotRequest struct {
	RoomID      string             `json:"roomId" validate:"required,notblank"`
	ProfessorID string             `json:"professorId" validate:"required,notblank"`
	CourseID    string             `json:"courseId" validate:"required,notblank"`
	ClassID     string             `json:"classId" validate:"required,notblank"`
	Date        string             `json:"date" validate:"required,datetime=2006-01-02"`
	Day         *int               `json:"day" validate:"omitempty,min=0,max=6"`
	StartTime   string             `json:"startTime" validate:"required,clock"`
	EndTime     string             `json:"endTime" validate:"required,clock"`
	Type        string             `json:"type" validate:"required,oneof=COURSE EXAM EVENT"`
	Recurrence  *recurrenceRequest `json:"recurrence"`
}

func (r *slotRequest) normalize() {
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.ProfessorID = strings.TrimSpace(r.ProfessorID)
	r.CourseID = strings.TrimSpace(r.CourseID)
	r.ClassID = strings.TrimSpace(r.ClassID)
	r.Date = strings.TrimSpace(r.Date)
	r.StartTime = strings.TrimSpace(r.StartTime)
	r.EndTime = strings.TrimSpace(r.EndTime)
	r.Type = strings.ToUpper(strings.TrimSpace(r.Type))
	if r.Recurrence != nil {
		r.Recurrence.Type = strings.ToUpper(strings.TrimSpace(r.Recurrence.Type))
	}
}

func (r slotRequest) toInput() application.SlotInput {
	input := application.SlotInput{
		RoomID:      r.RoomID,
		ProfessorID: r.ProfessorID,
		CourseID:    r.CourseID,
		ClassID:     r.ClassID,
		Date:        parseDate(r.Date),
		Day:         r.Day,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Type:        r.Type,
	}
	if r.Recurrence != nil {
		input.Recurrence = &application.RecurrenceInput{Cadence: r.Recurrence.Type}
		if r.Recurrence.Until != nil {
			until := parseDate(*r.Recurrence.Until)
			input.Recurrence.Until = &until
		}
	}
	return input
}

// ParseSlotInput decodes a slot document in the POST /slots format. Field
// problems are reported as an *application.ValidationError.
func ParseSlotInput(data []byte) (application.SlotInput, error) {
	var req slotRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return application.SlotInput{}, fmt.Errorf("decode slot: %w", err)
	}
	req.normalize()
	if fields := newRequestValidator().Struct(&req); len(fields) > 0 {
		return application.SlotInput{}, &application.ValidationError{FieldErrors: fields}
	}
	return req.toInput(), nil
}

type updateSlotRequest struct {
	RoomID      *string `json:"roomId" validate:"omitempty,notblank"`
	ProfessorID *string `json:"professorId" validate:"omitempty,notblank"`
	CourseID    *string `json:"courseId" validate:"omitempty,notblank"`
	ClassID     *string `json:"classId" validate:"omitempty,notblank"`
	Date        *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime   *string `json:"startTime" validate:"omitempty,clock"`
	EndTime     *string `json:"endTime" validate:"omitempty,clock"`
	Type        *string `json:"type" validate:"omitempty,oneof=COURSE EXAM EVENT"`
	Status      *string `json:"status" validate:"omitempty,oneof=SCHEDULED COMPLETED"`
}

func (r *updateSlotRequest) normalize() {
	for _, field := range []*string{r.RoomID, r.ProfessorID, r.CourseID, r.ClassID, r.Date, r.StartTime, r.EndTime} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
	for _, field := range []*string{r.Type, r.Status} {
		if field != nil {
			*field = strings.ToUpper(strings.TrimSpace(*field))
		}
	}
}

func (r updateSlotRequest) empty() bool {
	return r.RoomID == nil && r.ProfessorID == nil && r.CourseID == nil && r.ClassID == nil &&
		r.Date == nil && r.StartTime == nil && r.EndTime == nil && r.Type == nil && r.Status == nil
}

func (r updateSlotRequest) toChanges() application.SlotChanges {
	changes := application.SlotChanges{
		RoomID:      r.RoomID,
		ProfessorID: r.ProfessorID,
		CourseID:    r.CourseID,
		ClassID:     r.ClassID,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Type:        r.Type,
		Status:      r.Status,
	}
	if r.Date != nil {
		date := parseDate(*r.Date)
		changes.Date = &date
	}
	return changes
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=500"`
	Notify bool   `json:"notify"`
}

func (r *cancelRequest) normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

type conflictCheckRequest struct {
	RoomID        string `json:"roomId" validate:"required_without=ProfessorID"`
	ProfessorID   string `json:"professorId" validate:"required_without=RoomID"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Day           *int   `json:"day" validate:"omitempty,min=0,max=6"`
	StartTime     string `json:"startTime" validate:"required,clock"`
	EndTime       string `json:"endTime" validate:"required,clock"`
	ExcludeSlotID string `json:"excludeSlotId"`
}

func (r *conflictCheckRequest) normalize() {
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.ProfessorID = strings.TrimSpace(r.ProfessorID)
	r.Date = strings.TrimSpace(r.Date)
	r.StartTime = strings.TrimSpace(r.StartTime)
	r.EndTime = strings.TrimSpace(r.EndTime)
	r.ExcludeSlotID = strings.TrimSpace(r.ExcludeSlotID)
}

func (r conflictCheckRequest) toCheck() application.ConflictCheck {
	return application.ConflictCheck{
		RoomID:        r.RoomID,
		ProfessorID:   r.ProfessorID,
		Date:          parseDate(r.Date),
		Day:           r.Day,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		ExcludeSlotID: r.ExcludeSlotID,
	}
}

type slotListParams struct {
	Type        string `json:"type" validate:"omitempty,oneof=COURSE EXAM EVENT"`
	ClassID     string `json:"classId"`
	ProfessorID string `json:"professorId"`
	RoomID      string `json:"roomId"`
	CourseID    string `json:"courseId"`
	Status      string `json:"status" validate:"omitempty,oneof=SCHEDULED CANCELLED COMPLETED"`
	StartDate   string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

func slotListParamsFrom(r *http.Request) slotListParams {
	q := r.URL.Query()
	return slotListParams{
		Type:        strings.ToUpper(strings.TrimSpace(q.Get("type"))),
		ClassID:     strings.TrimSpace(q.Get("classId")),
		ProfessorID: strings.TrimSpace(q.Get("professorId")),
		RoomID:      strings.TrimSpace(q.Get("roomId")),
		CourseID:    strings.TrimSpace(q.Get("courseId")),
		Status:      strings.ToUpper(strings.TrimSpace(q.Get("status"))),
		StartDate:   strings.TrimSpace(q.Get("startDate")),
		EndDate:     strings.TrimSpace(q.Get("endDate")),
	}
}

func (p slotListParams) toQuery() application.SlotQuery {
	return application.SlotQuery{
		Type:        p.Type,
		ClassID:     p.ClassID,
		ProfessorID: p.ProfessorID,
		RoomID:      p.RoomID,
		CourseID:    p.CourseID,
		Status:      p.Status,
		From:        optionalDate(p.StartDate),
		To:          optionalDate(p.EndDate),
	}
}

// parseDate reads a YYYY-MM-DD value that has already passed validation.
func parseDate(value string) time.Time {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func optionalDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t := parseDate(value)
	return &t
}

type slotResponse struct {
	Slot slotDTO `json:"slot"`
}

type listSlotsResponse struct {
	Slots []slotDTO `json:"slots"`
}

type createSlotResponse struct {
	Slot        slotDTO         `json:"slot"`
	Occurrences []slotDTO       `json:"occurrences"`
	Skipped     []occurrenceDTO `json:"skipped,omitempty"`
}

type conflictCheckResponse struct {
	HasConflicts bool          `json:"hasConflicts"`
	Conflicts    []conflictDTO `json:"conflicts"`
}

// ExpansionDTO is the JSON shape of an expansion preview. The CLI prints the
// same document.
type ExpansionDTO struct {
	Origin          slotDTO         `json:"origin"`
	OriginConflicts []conflictDTO   `json:"originConflicts"`
	Occurrences     []occurrenceDTO `json:"occurrences"`
}

type recurrenceDTO struct {
	Type  string `json:"type"`
	Until string `json:"until,omitempty"`
}

type cancellationDTO struct {
	Reason      string `json:"reason"`
	CancelledBy string `json:"cancelledBy"`
	CancelledAt string `json:"cancelledAt,omitempty"`
}

type slotDTO struct {
	ID           string           `json:"id,omitempty"`
	RoomID       string           `json:"roomId"`
	ProfessorID  string           `json:"professorId"`
	CourseID     string           `json:"courseId"`
	ClassID      string           `json:"classId"`
	Date         string           `json:"date"`
	Day          int              `json:"day"`
	StartTime    string           `json:"startTime"`
	EndTime      string           `json:"endTime"`
	Type         string           `json:"type"`
	Status       string           `json:"status"`
	Recurrence   *recurrenceDTO   `json:"recurrence,omitempty"`
	ParentID     string           `json:"parentId,omitempty"`
	CreatedBy    string           `json:"createdBy,omitempty"`
	Cancellation *cancellationDTO `json:"cancellation,omitempty"`
	CreatedAt    string           `json:"createdAt,omitempty"`
	UpdatedAt    string           `json:"updatedAt,omitempty"`
}

type occurrenceDTO struct {
	Slot      slotDTO       `json:"slot"`
	Conflicts []conflictDTO `json:"conflicts,omitempty"`
}

type conflictSlotDTO struct {
	ID          string `json:"id"`
	RoomID      string `json:"roomId"`
	ProfessorID string `json:"professorId"`
	CourseID    string `json:"courseId,omitempty"`
	ClassID     string `json:"classId,omitempty"`
	Date        string `json:"date,omitempty"`
	Day         int    `json:"day"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
}

type conflictDTO struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Slots   []conflictSlotDTO `json:"slots"`
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func toSlotDTO(slot application.Slot) slotDTO {
	dto := slotDTO{
		ID:          slot.ID,
		RoomID:      slot.RoomID,
		ProfessorID: slot.ProfessorID,
		CourseID:    slot.CourseID,
		ClassID:     slot.ClassID,
		Date:        formatDate(slot.Date),
		Day:         slot.Day,
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		Type:        slot.Type,
		Status:      slot.Status,
		ParentID:    slot.ParentID,
		CreatedBy:   slot.CreatedBy,
		CreatedAt:   formatTimestamp(slot.CreatedAt),
		UpdatedAt:   formatTimestamp(slot.UpdatedAt),
	}
	if slot.Recurrence != nil {
		dto.Recurrence = &recurrenceDTO{Type: slot.Recurrence.Cadence}
		if slot.Recurrence.Until != nil {
			dto.Recurrence.Until = formatDate(*slot.Recurrence.Until)
		}
	}
	if slot.Cancelled() {
		dto.Cancellation = &cancellationDTO{Reason: slot.CancelReason, CancelledBy: slot.CancelledBy}
		if slot.CancelledAt != nil {
			dto.Cancellation.CancelledAt = formatTimestamp(*slot.CancelledAt)
		}
	}
	return dto
}

func toSlotDTOs(slots []application.Slot) []slotDTO {
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, toSlotDTO(slot))
	}
	return out
}

func toOccurrenceDTOs(occurrences []application.OccurrencePreview) []occurrenceDTO {
	if len(occurrences) == 0 {
		return nil
	}
	out := make([]occurrenceDTO, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, occurrenceDTO{Slot: toSlotDTO(occ.Slot), Conflicts: toConflictDTOs(occ.Conflicts)})
	}
	return out
}

func toConflictDTOs(conflicts []scheduler.Conflict) []conflictDTO {
	if len(conflicts) == 0 {
		return nil
	}
	out := make([]conflictDTO, 0, len(conflicts))
	for _, conflict := range conflicts {
		dto := conflictDTO{
			Type:    string(conflict.Type),
			Message: conflict.Message,
			Slots:   make([]conflictSlotDTO, 0, len(conflict.Slots)),
		}
		for _, slot := range conflict.Slots {
			dto.Slots = append(dto.Slots, conflictSlotDTO{
				ID:          slot.ID,
				RoomID:      slot.RoomID,
				ProfessorID: slot.ProfessorID,
				CourseID:    slot.CourseID,
				ClassID:     slot.ClassID,
				Date:        formatDate(slot.Date),
				Day:         slot.Day,
				StartTime:   string(slot.StartTime),
				EndTime:     string(slot.EndTime),
			})
		}
		out = append(out, dto)
	}
	return out
}

// ToExpansionDTO renders an expansion preview as its JSON document.
func ToExpansionDTO(preview application.ExpansionPreview) ExpansionDTO {
	occurrences := toOccurrenceDTOs(preview.Occurrences)
	if occurrences == nil {
		occurrences = []occurrenceDTO{}
	}
	conflicts := toConflictDTOs(preview.OriginConflicts)
	if conflicts == nil {
		conflicts = []conflictDTO{}
	}
	return ExpansionDTO{
		Origin:          toSlotDTO(preview.Origin),
		OriginConflicts: conflicts,
		Occurrences:     occurrences,
	}
}

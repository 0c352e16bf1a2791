package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/school-timetable/internal/application"
)

type roomService interface {
	CreateRoom(ctx context.Context, params application.CreateRoomParams) (application.Room, error)
	UpdateRoom(ctx context.Context, params application.UpdateRoomParams) (application.Room, error)
	DeleteRoom(ctx context.Context, principal application.Principal, roomID string) error
	ListRooms(ctx context.Context) ([]application.Room, error)
	AvailableRooms(ctx context.Context, query application.AvailabilityQuery) ([]application.Room, error)
	RoomStats(ctx context.Context, query application.StatsQuery) ([]application.RoomStats, error)
}

// RoomHandler serves the room catalog, availability and usage statistics.
type RoomHandler struct {
	service   roomService
	responder responder
	validator *requestValidator
	logger    *slog.Logger
}

func NewRoomHandler(service roomService, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{
		service:   service,
		responder: newResponder(base),
		validator: newRequestValidator(),
		logger:    base,
	}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

func (h *RoomHandler) decodeRoom(w http.ResponseWriter, r *http.Request, operation string) (roomRequest, bool) {
	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode room request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return req, false
	}
	req.normalize()
	if fields := h.validator.Struct(&req); len(fields) > 0 {
		h.log(r.Context(), operation, "error_kind", "validation").WarnContext(r.Context(), "room request rejected", "fields", len(fields))
		h.responder.writeFieldErrors(r.Context(), w, fields)
		return req, false
	}
	return req, true
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	req, ok := h.decodeRoom(w, r, "Create")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Create")

	room, err := h.service.CreateRoom(r.Context(), application.CreateRoomParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "room creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("room_id", room.ID).InfoContext(r.Context(), "room created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing room id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	req, ok := h.decodeRoom(w, r, "Update")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Update")

	room, err := h.service.UpdateRoom(r.Context(), application.UpdateRoomParams{
		Principal: principal,
		RoomID:    roomID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "room update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "room updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing room id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete")
	if err := h.service.DeleteRoom(r.Context(), principal, roomID); err != nil {
		logger.ErrorContext(r.Context(), "room delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "room deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	rooms, err := h.service.ListRooms(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "room list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(rooms)).InfoContext(r.Context(), "rooms listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

// Available lists rooms able to host a booking. Facilities may be repeated or
// comma separated.
func (h *RoomHandler) Available(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params, fields := availabilityParamsFrom(r)
	if len(fields) == 0 {
		fields = h.validator.Struct(params)
	}
	if len(fields) > 0 {
		h.log(r.Context(), "Available", "error_kind", "validation").WarnContext(r.Context(), "availability query rejected", "fields", len(fields))
		h.responder.writeFieldErrors(r.Context(), w, fields)
		return
	}

	logger := h.log(r.Context(), "Available", "min_capacity", params.Capacity)
	rooms, err := h.service.AvailableRooms(r.Context(), params.toQuery())
	if err != nil {
		logger.ErrorContext(r.Context(), "availability lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(rooms)).InfoContext(r.Context(), "available rooms listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

// Stats reports usage per room over an optional date range.
func (h *RoomHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	params := statsParams{
		RoomID:    strings.TrimSpace(q.Get("roomId")),
		StartDate: strings.TrimSpace(q.Get("startDate")),
		EndDate:   strings.TrimSpace(q.Get("endDate")),
	}
	if fields := h.validator.Struct(params); len(fields) > 0 {
		h.log(r.Context(), "Stats", "error_kind", "validation").WarnContext(r.Context(), "stats query rejected", "fields", len(fields))
		h.responder.writeFieldErrors(r.Context(), w, fields)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Stats", "stats_room_id", params.RoomID)

	stats, err := h.service.RoomStats(r.Context(), application.StatsQuery{
		Principal: principal,
		RoomID:    params.RoomID,
		From:      optionalDate(params.StartDate),
		To:        optionalDate(params.EndDate),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "room stats failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(stats)).InfoContext(r.Context(), "room stats listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomStatsResponse{Stats: toRoomStatsDTOs(stats)})
}

type roomRequest struct {
	Name       string   `json:"name" validate:"required,notblank,max=100"`
	Building   string   `json:"building" validate:"max=100"`
	Floor      int      `json:"floor" validate:"min=0"`
	Capacity   int      `json:"capacity" validate:"required,gt=0"`
	Facilities []string `json:"facilities" validate:"dive,notblank"`
	Status     string   `json:"status" validate:"omitempty,oneof=AVAILABLE MAINTENANCE OUT_OF_SERVICE"`
}

func (r *roomRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Building = strings.TrimSpace(r.Building)
	r.Status = strings.ToUpper(strings.TrimSpace(r.Status))
}

func (r roomRequest) toInput() application.RoomInput {
	return application.RoomInput{
		Name:       r.Name,
		Building:   r.Building,
		Floor:      r.Floor,
		Capacity:   r.Capacity,
		Facilities: r.Facilities,
		Status:     r.Status,
	}
}

type availabilityParams struct {
	Date       string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime  string   `json:"startTime" validate:"omitempty,clock"`
	EndTime    string   `json:"endTime" validate:"omitempty,clock"`
	Capacity   int      `json:"capacity" validate:"min=0"`
	Facilities []string `json:"facilities"`
}

func availabilityParamsFrom(r *http.Request) (availabilityParams, map[string]string) {
	q := r.URL.Query()
	params := availabilityParams{
		Date:      strings.TrimSpace(q.Get("date")),
		StartTime: strings.TrimSpace(q.Get("startTime")),
		EndTime:   strings.TrimSpace(q.Get("endTime")),
	}
	if raw := strings.TrimSpace(q.Get("capacity")); raw != "" {
		capacity, err := strconv.Atoi(raw)
		if err != nil {
			return params, map[string]string{"capacity": "capacity must be a whole number"}
		}
		params.Capacity = capacity
	}
	for _, value := range q["facilities"] {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				params.Facilities = append(params.Facilities, name)
			}
		}
	}
	return params, nil
}

func (p availabilityParams) toQuery() application.AvailabilityQuery {
	return application.AvailabilityQuery{
		Date:        optionalDate(p.Date),
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		MinCapacity: p.Capacity,
		Facilities:  p.Facilities,
	}
}

type statsParams struct {
	RoomID    string `json:"roomId"`
	StartDate string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

type roomResponse struct {
	Room roomDTO `json:"room"`
}

type listRoomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type roomStatsResponse struct {
	Stats []roomStatsDTO `json:"stats"`
}

type roomDTO struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Building   string   `json:"building,omitempty"`
	Floor      int      `json:"floor"`
	Capacity   int      `json:"capacity"`
	Facilities []string `json:"facilities"`
	Status     string   `json:"status"`
	CreatedAt  string   `json:"createdAt,omitempty"`
	UpdatedAt  string   `json:"updatedAt,omitempty"`
}

type roomStatsDTO struct {
	RoomID           string         `json:"roomId"`
	RoomName         string         `json:"roomName"`
	TotalSlots       int            `json:"totalSlots"`
	TotalHours       float64        `json:"totalHours"`
	TypeDistribution map[string]int `json:"typeDistribution"`
	CancelledSlots   int            `json:"cancelledSlots"`
}

func toRoomDTO(room application.Room) roomDTO {
	facilities := room.Facilities
	if facilities == nil {
		facilities = []string{}
	}
	return roomDTO{
		ID:         room.ID,
		Name:       room.Name,
		Building:   room.Building,
		Floor:      room.Floor,
		Capacity:   room.Capacity,
		Facilities: facilities,
		Status:     room.Status,
		CreatedAt:  formatTimestamp(room.CreatedAt),
		UpdatedAt:  formatTimestamp(room.UpdatedAt),
	}
}

func toRoomDTOs(rooms []application.Room) []roomDTO {
	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	return out
}

func toRoomStatsDTOs(stats []application.RoomStats) []roomStatsDTO {
	out := make([]roomStatsDTO, 0, len(stats))
	for _, s := range stats {
		distribution := s.TypeDistribution
		if distribution == nil {
			distribution = map[string]int{}
		}
		out = append(out, roomStatsDTO{
			RoomID:           s.RoomID,
			RoomName:         s.RoomName,
			TotalSlots:       s.TotalSlots,
			TotalHours:       s.TotalHours,
			TypeDistribution: distribution,
			CancelledSlots:   s.CancelledSlots,
		})
	}
	return out
}

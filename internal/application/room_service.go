package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/school-timetable/internal/persistence"
	"github.com/example/school-timetable/internal/scheduler"
)

// RoomServiceConfig tunes a RoomService.
type RoomServiceConfig struct {
	StatsTTL        time.Duration
	StatsMaxEntries int
	Logger          *slog.Logger
}

// RoomService orchestrates validation, authorization, and persistence for rooms.
type RoomService struct {
	rooms       persistence.RoomRepository
	slots       persistence.SlotRepository
	stats       *statsCache
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms persistence.RoomRepository, slots persistence.SlotRepository, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithConfig(rooms, slots, idGenerator, now, RoomServiceConfig{})
}

// NewRoomServiceWithConfig constructs a room service with explicit settings.
func NewRoomServiceWithConfig(rooms persistence.RoomRepository, slots persistence.SlotRepository, idGenerator func() string, now func() time.Time, cfg RoomServiceConfig) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{
		rooms:       rooms,
		slots:       slots,
		stats:       newStatsCache(cfg.StatsTTL, cfg.StatsMaxEntries, now),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(cfg.Logger),
	}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// InvalidateStats drops cached statistics. It is called after slot writes.
func (s *RoomService) InvalidateStats() {
	if s == nil {
		return
	}
	s.stats.Invalidate()
}

// CreateRoom validates input and persists a new room for administrators.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	room = Room{
		ID:         s.idGenerator(),
		Name:       strings.TrimSpace(params.Input.Name),
		Building:   strings.TrimSpace(params.Input.Building),
		Floor:      params.Input.Floor,
		Capacity:   params.Input.Capacity,
		Facilities: normalizeFacilities(params.Input.Facilities),
		Status:     roomStatusOrDefault(params.Input.Status),
		CreatedAt:  s.now(),
	}
	room.UpdatedAt = room.CreatedAt

	if s.rooms == nil {
		return
	}

	if err = s.rooms.CreateRoom(ctx, roomToRow(room)); err != nil {
		err = mapRoomRepoError(err)
		return
	}
	return
}

// UpdateRoom validates input and updates an existing room for administrators.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room updated")
	}()

	var existing persistence.Room
	existing, err = s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := roomFromRow(existing)
	updated.Name = strings.TrimSpace(params.Input.Name)
	updated.Building = strings.TrimSpace(params.Input.Building)
	updated.Floor = params.Input.Floor
	updated.Capacity = params.Input.Capacity
	updated.Facilities = normalizeFacilities(params.Input.Facilities)
	updated.Status = roomStatusOrDefault(params.Input.Status)
	updated.UpdatedAt = s.now()

	if err = s.rooms.UpdateRoom(ctx, roomToRow(updated)); err != nil {
		err = mapRoomRepoError(err)
		return
	}
	room = updated
	s.stats.Invalidate()
	return
}

// DeleteRoom removes an existing room when requested by an administrator. Rooms
// still referenced by slots cannot be deleted.
func (s *RoomService) DeleteRoom(ctx context.Context, principal Principal, roomID string) error {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteRoom",
		"principal_id", principal.UserID,
		"room_id", roomID,
	)

	if err := s.rooms.DeleteRoom(ctx, roomID); err != nil {
		err = mapRoomRepoError(err)
		logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	s.stats.Invalidate()
	logger.InfoContext(ctx, "room deleted")
	return nil
}

// ListRooms returns the catalog of rooms sorted by name.
func (s *RoomService) ListRooms(ctx context.Context) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRooms")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).InfoContext(ctx, "rooms listed")
	}()

	rooms, err = s.listRooms(ctx)
	return
}

// AvailableRooms returns rooms in service that satisfy the capacity and facility
// requirements and, when a time window is given, hold no scheduled slot
// overlapping it on that date.
func (s *RoomService) AvailableRooms(ctx context.Context, query AvailabilityQuery) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "AvailableRooms",
		"min_capacity", query.MinCapacity,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to find available rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).InfoContext(ctx, "available rooms listed")
	}()

	windowed, vErr := validateAvailabilityQuery(query)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var all []Room
	all, err = s.listRooms(ctx)
	if err != nil {
		return
	}

	occupied := map[string]bool{}
	if windowed && s.slots != nil {
		date := scheduler.DateOnly(*query.Date)
		window := scheduler.TimeSlot{StartTime: scheduler.Clock(query.StartTime), EndTime: scheduler.Clock(query.EndTime)}

		var rows []persistence.TimeSlot
		rows, err = s.slots.ListSlots(ctx, persistence.SlotQuery{
			Status: persistence.SlotStatusScheduled,
			From:   &date,
			To:     &date,
		})
		if err != nil {
			return
		}
		for _, row := range rows {
			if window.Overlaps(scheduler.TimeSlot{StartTime: scheduler.Clock(row.StartTime), EndTime: scheduler.Clock(row.EndTime)}) {
				occupied[row.RoomID] = true
			}
		}
	}

	required := normalizeFacilities(query.Facilities)
	rooms = []Room{}
	for _, room := range all {
		if room.Status != RoomStatusAvailable || occupied[room.ID] {
			continue
		}
		if room.Capacity < query.MinCapacity || !hasFacilities(room.Facilities, required) {
			continue
		}
		rooms = append(rooms, room)
	}
	return
}

// RoomStats aggregates slot usage per room for administrators. Results are
// cached until the next slot or room write or until the cache TTL elapses.
func (s *RoomService) RoomStats(ctx context.Context, query StatsQuery) (stats []RoomStats, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RoomStats",
		"principal_id", query.Principal.UserID,
		"room_id", query.RoomID,
	)
	cached := false
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compute room stats", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(stats), "cached", cached).InfoContext(ctx, "room stats computed")
	}()

	if !query.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		vErr := &ValidationError{}
		vErr.add("endDate", "endDate must not precede startDate")
		err = vErr
		return
	}

	key := buildStatsCacheKey(query)
	if stats, cached = s.stats.Get(key); cached {
		return
	}
	if s.rooms == nil || s.slots == nil {
		return nil, nil
	}

	var rows []persistence.TimeSlot
	rows, err = s.slots.ListSlots(ctx, persistence.SlotQuery{RoomID: query.RoomID, From: query.From, To: query.To})
	if err != nil {
		return
	}
	var rooms []Room
	rooms, err = s.listRooms(ctx)
	if err != nil {
		return
	}

	stats = aggregateRoomStats(rooms, rows)
	s.stats.Store(key, stats)
	return
}

func (s *RoomService) listRooms(ctx context.Context) ([]Room, error) {
	raw, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	rooms := make([]Room, 0, len(raw))
	for _, row := range raw {
		rooms = append(rooms, roomFromRow(row))
	}
	sort.Slice(rooms, func(i, j int) bool {
		if strings.EqualFold(rooms[i].Name, rooms[j].Name) {
			return rooms[i].ID < rooms[j].ID
		}
		return strings.ToLower(rooms[i].Name) < strings.ToLower(rooms[j].Name)
	})
	return rooms, nil
}

// aggregateRoomStats groups slots by room. Slots whose room no longer exists are
// ignored. Output follows the room order.
func aggregateRoomStats(rooms []Room, rows []persistence.TimeSlot) []RoomStats {
	byRoom := make(map[string]*RoomStats)
	for _, row := range rows {
		entry, ok := byRoom[row.RoomID]
		if !ok {
			entry = &RoomStats{RoomID: row.RoomID, TypeDistribution: map[string]int{}}
			byRoom[row.RoomID] = entry
		}
		entry.TotalSlots++
		minutes := scheduler.Clock(row.EndTime).Minutes() - scheduler.Clock(row.StartTime).Minutes()
		if minutes > 0 {
			entry.TotalHours += float64(minutes) / 60
		}
		entry.TypeDistribution[row.Type]++
		if row.Status == string(scheduler.SlotStatusCancelled) {
			entry.CancelledSlots++
		}
	}

	var stats []RoomStats
	for _, room := range rooms {
		entry, ok := byRoom[room.ID]
		if !ok {
			continue
		}
		entry.RoomName = room.Name
		stats = append(stats, *entry)
	}
	return stats
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}
	if input.Floor < 0 {
		vErr.add("floor", "floor must not be negative")
	}
	switch roomStatusOrDefault(input.Status) {
	case RoomStatusAvailable, RoomStatusMaintenance, RoomStatusOutOfService:
	default:
		vErr.add("status", "status must be one of AVAILABLE, MAINTENANCE, OUT_OF_SERVICE")
	}

	return vErr
}

func validateAvailabilityQuery(query AvailabilityQuery) (bool, *ValidationError) {
	vErr := &ValidationError{}
	if query.MinCapacity < 0 {
		vErr.add("capacity", "capacity must not be negative")
	}

	provided := query.Date != nil || query.StartTime != "" || query.EndTime != ""
	if !provided {
		return false, vErr
	}
	if query.Date == nil {
		vErr.add("date", "date is required with a time window")
	}
	start, end := scheduler.Clock(query.StartTime), scheduler.Clock(query.EndTime)
	if !start.Valid() {
		vErr.add("startTime", "startTime must be HH:MM")
	}
	if !end.Valid() {
		vErr.add("endTime", "endTime must be HH:MM")
	}
	if start.Valid() && end.Valid() && !start.Before(end) {
		vErr.add("endTime", "endTime must be after startTime")
	}
	return true, vErr
}

func mapRoomRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("room", "room is still referenced by time slots")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("capacity", "capacity must be positive")
		return vErr
	}
	return err
}

func roomStatusOrDefault(status string) string {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		return RoomStatusAvailable
	}
	return status
}

// normalizeFacilities upper-cases, trims and de-duplicates facility names.
func normalizeFacilities(values []string) []string {
	out := []string{}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		name := strings.ToUpper(strings.TrimSpace(v))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func hasFacilities(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, f := range have {
		set[strings.ToUpper(f)] = struct{}{}
	}
	for _, f := range want {
		if _, ok := set[f]; !ok {
			return false
		}
	}
	return true
}

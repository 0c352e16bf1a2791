package http

import (
	"context"
	"log/slog"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger annotates the request logger with the handler, the operation
// and the slot, room or owner identifier the router resolved from the path.
// The principal is already attached by RequirePrincipal.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	pairs := []any{"handler", handlerName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if slotID, ok := SlotIDFromContext(ctx); ok {
		pairs = append(pairs, "slot_id", slotID)
	}
	if roomID, ok := RoomIDFromContext(ctx); ok {
		pairs = append(pairs, "room_id", roomID)
	}
	if ownerID, ok := OwnerIDFromContext(ctx); ok {
		pairs = append(pairs, "owner_id", ownerID)
	}
	return logger.With(append(pairs, attrs...)...)
}

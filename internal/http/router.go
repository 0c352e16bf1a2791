package http

import (
	"context"
	"net/http"
	"strings"
)

const healthPath = "/healthz"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Slots      *SlotHandler
	Rooms      *RoomHandler
	Health     Pinger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(healthPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		status, body := http.StatusOK, "ok"
		if cfg.Health != nil {
			if err := cfg.Health.Ping(r.Context()); err != nil {
				status, body = http.StatusServiceUnavailable, "unavailable"
			}
		}
		newResponder(LoggerFromContext(r.Context())).writeJSON(r.Context(), w, status, map[string]string{"status": body})
	})

	if cfg.Slots != nil {
		mux.HandleFunc("/slots", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Slots.List(w, r)
			case http.MethodPost:
				cfg.Slots.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/slots/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/slots/")
			switch rest {
			case "":
				http.NotFound(w, r)
				return
			case "conflicts":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Slots.CheckConflicts(w, r)
				return
			case "expand":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Slots.Expand(w, r)
				return
			}

			id, action, _ := strings.Cut(rest, "/")
			r = r.WithContext(ContextWithSlotID(r.Context(), id))
			switch action {
			case "":
				if r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPut)
					return
				}
				cfg.Slots.Update(w, r)
			case "cancel":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Slots.Cancel(w, r)
			default:
				http.NotFound(w, r)
			}
		})
		mux.HandleFunc("/classes/", ownerSlots("/classes/", cfg.Slots.ClassSchedule))
		mux.HandleFunc("/professors/", ownerSlots("/professors/", cfg.Slots.ProfessorSchedule))
	}

	if cfg.Rooms != nil {
		mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Rooms.List(w, r)
			case http.MethodPost:
				cfg.Rooms.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/rooms/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/rooms/")
			switch {
			case id == "" || strings.Contains(id, "/"):
				http.NotFound(w, r)
				return
			case id == "available" || id == "stats":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				if id == "available" {
					cfg.Rooms.Available(w, r)
				} else {
					cfg.Rooms.Stats(w, r)
				}
				return
			}

			ctx := ContextWithRoomID(r.Context(), id)
			r = r.WithContext(ctx)
			switch r.Method {
			case http.MethodPut:
				cfg.Rooms.Update(w, r)
			case http.MethodDelete:
				cfg.Rooms.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// ownerSlots routes {prefix}{id}/slots to a schedule handler.
func ownerSlots(prefix string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, tail, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, prefix), "/")
		if id == "" || tail != "slots" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		next(w, r.WithContext(ContextWithOwnerID(r.Context(), id)))
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/school-timetable/internal/application"
)

func TestRequirePrincipal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		path         string
		userID       string
		role         string
		expectStatus int
		expectRole   application.Role
	}{
		{name: "missing user id", path: "/slots", expectStatus: http.StatusUnauthorized},
		{name: "blank user id", path: "/slots", userID: "   ", expectStatus: http.StatusUnauthorized},
		{name: "admin", path: "/slots", userID: "u-1", role: "Admin", expectStatus: http.StatusOK, expectRole: application.RoleAdmin},
		{name: "unknown role falls back to student", path: "/slots", userID: "u-2", role: "janitor", expectStatus: http.StatusOK, expectRole: application.RoleStudent},
		{name: "health check is exempt", path: "/healthz", expectStatus: http.StatusOK},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var (
				seen   application.Principal
				called bool
			)
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				seen, _ = PrincipalFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.userID != "" {
				req.Header.Set(HeaderUserID, tc.userID)
			}
			if tc.role != "" {
				req.Header.Set(HeaderUserRole, tc.role)
			}
			rec := httptest.NewRecorder()
			RequirePrincipal(discardLogger())(next).ServeHTTP(rec, req)

			if rec.Code != tc.expectStatus {
				t.Fatalf("expected %d, got %d", tc.expectStatus, rec.Code)
			}
			if tc.expectStatus != http.StatusOK {
				if called {
					t.Fatal("next handler must not run")
				}
				return
			}
			if tc.expectRole != "" && seen.Role != tc.expectRole {
				t.Fatalf("expected role %q, got %q", tc.expectRole, seen.Role)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("assigns a request id and exposes a logger", func(t *testing.T) {
		t.Parallel()

		var hasLogger bool
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasLogger = LoggerFromContext(r.Context()) != nil
			w.WriteHeader(http.StatusTeapot)
		})

		rec := httptest.NewRecorder()
		RequestLogger(discardLogger())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slots", nil))

		if !hasLogger {
			t.Fatal("expected request scoped logger")
		}
		if rec.Header().Get(HeaderRequestID) == "" {
			t.Fatal("expected generated request id")
		}
		if rec.Code != http.StatusTeapot {
			t.Fatalf("status must pass through, got %d", rec.Code)
		}
	})

	t.Run("keeps a caller supplied request id", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/slots", nil)
		req.Header.Set(HeaderRequestID, "req-42")
		rec := httptest.NewRecorder()
		RequestLogger(discardLogger())(http.NotFoundHandler()).ServeHTTP(rec, req)

		if got := rec.Header().Get(HeaderRequestID); got != "req-42" {
			t.Fatalf("expected req-42, got %q", got)
		}
	})
}

func TestHandlerLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := ContextWithLogger(context.Background(), base.With("principal_id", "prof-1"))
	ctx = ContextWithSlotID(ctx, "slot-9")
	ctx = ContextWithOwnerID(ctx, "class-3")

	handlerLogger(ctx, nil, "SlotHandler", "Cancel", "notify", true).Info("slot cancelled")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected a JSON record, got %q: %v", buf.String(), err)
	}
	want := map[string]any{
		"principal_id": "prof-1",
		"handler":      "SlotHandler",
		"operation":    "Cancel",
		"slot_id":      "slot-9",
		"owner_id":     "class-3",
		"notify":       true,
	}
	for key, value := range want {
		if record[key] != value {
			t.Errorf("expected %s=%v, got %v", key, value, record[key])
		}
	}
	if _, ok := record["room_id"]; ok {
		t.Errorf("room_id must be absent when the path names no room: %v", record)
	}

	var fallback bytes.Buffer
	handlerLogger(context.Background(), slog.New(slog.NewJSONHandler(&fallback, nil)), "RoomHandler", "List").Info("rooms listed")
	if !bytes.Contains(fallback.Bytes(), []byte(`"handler":"RoomHandler"`)) {
		t.Fatalf("expected the fallback logger to be used, got %q", fallback.String())
	}
}

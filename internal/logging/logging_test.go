package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output honours the level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := New("warn", "json", &buf)
		logger.Info("dropped")
		logger.Warn("kept", "slot_id", "slot-1")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("expected one record, got %d: %q", len(lines), buf.String())
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
			t.Fatalf("expected JSON record: %v", err)
		}
		if record["msg"] != "kept" || record["slot_id"] != "slot-1" {
			t.Fatalf("unexpected record: %v", record)
		}
	})

	t.Run("text format and unknown level fallback", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := New("verbose", "TEXT", &buf)
		logger.Debug("hidden")
		logger.Info("shown")

		out := buf.String()
		if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown") {
			t.Fatalf("unexpected output: %q", out)
		}
	})
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != nil {
		t.Fatal("expected no logger on a bare context")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("expected the attached logger")
	}
	if ContextWithLogger(ctx, nil) != ctx {
		t.Fatal("a nil logger must leave the context untouched")
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/school-timetable/internal/application"
)

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func useDriver(t *testing.T, driver string) {
	t.Helper()
	t.Setenv("TIMETABLE_DATABASE_DRIVER", driver)
	t.Setenv("TIMETABLE_LOG_LEVEL", "error")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "timetable dev") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExpandCommand(t *testing.T) {
	noEnv := filepath.Join(t.TempDir(), "absent.env")

	t.Run("prints occurrences until the end date", func(t *testing.T) {
		useDriver(t, "memory")
		slot := writeFile(t, "slot.json", `{
			"roomId": "room-a",
			"professorId": "prof-1",
			"courseId": "course-1",
			"classId": "class-1",
			"date": "2099-01-05",
			"startTime": "09:00",
			"endTime": "10:00",
			"type": "COURSE",
			"recurrence": {"type": "BIWEEKLY", "until": "2099-02-02"}
		}`)

		out, _, err := runCommand(t, "--env-file", noEnv, "expand", "--file", slot)
		if err != nil {
			t.Fatalf("expand failed: %v", err)
		}

		var report struct {
			Origin struct {
				Date string `json:"date"`
			} `json:"origin"`
			Occurrences []struct {
				Slot struct {
					Date string `json:"date"`
					Day  int    `json:"day"`
				} `json:"slot"`
			} `json:"occurrences"`
		}
		if err := json.Unmarshal([]byte(out), &report); err != nil {
			t.Fatalf("expected JSON report, got %q: %v", out, err)
		}
		if report.Origin.Date != "2099-01-05" {
			t.Fatalf("unexpected origin %q", report.Origin.Date)
		}
		var dates []string
		for _, occ := range report.Occurrences {
			dates = append(dates, occ.Slot.Date)
		}
		if got := strings.Join(dates, ","); got != "2099-01-19,2099-02-02" {
			t.Fatalf("unexpected occurrences %s", got)
		}
	})

	t.Run("reports invalid documents", func(t *testing.T) {
		useDriver(t, "memory")
		slot := writeFile(t, "slot.json", `{"roomId":"room-a","date":"2099-01-05","startTime":"10:00","endTime":"09:00","type":"COURSE"}`)

		_, _, err := runCommand(t, "--env-file", noEnv, "expand", "--file", slot)
		if err == nil || !strings.Contains(err.Error(), "invalid slot") || !strings.Contains(err.Error(), "professorId") {
			t.Fatalf("expected field errors, got %v", err)
		}
	})

	t.Run("requires the file flag", func(t *testing.T) {
		useDriver(t, "memory")

		if _, _, err := runCommand(t, "--env-file", noEnv, "expand"); err == nil {
			t.Fatal("expected missing flag error")
		}
	})
}

func TestMigrateCommand(t *testing.T) {
	noEnv := filepath.Join(t.TempDir(), "absent.env")

	t.Run("applies sqlite migrations idempotently", func(t *testing.T) {
		useDriver(t, "sqlite")
		t.Setenv("TIMETABLE_SQLITE_DSN", filepath.Join(t.TempDir(), "db", "timetable.db"))

		for i := 0; i < 2; i++ {
			if _, _, err := runCommand(t, "--env-file", noEnv, "migrate"); err != nil {
				t.Fatalf("migrate run %d failed: %v", i+1, err)
			}
		}
	})

	t.Run("memory driver has nothing to migrate", func(t *testing.T) {
		useDriver(t, "memory")

		if _, _, err := runCommand(t, "--env-file", noEnv, "migrate"); err != nil {
			t.Fatalf("migrate failed: %v", err)
		}
	})

	t.Run("surfaces configuration errors", func(t *testing.T) {
		useDriver(t, "oracle")

		_, _, err := runCommand(t, "--env-file", noEnv, "migrate")
		if err == nil || !strings.Contains(err.Error(), "TIMETABLE_DATABASE_DRIVER") {
			t.Fatalf("expected driver error, got %v", err)
		}
	})
}

func TestDescribeInputError(t *testing.T) {
	t.Parallel()

	err := describeInputError(&application.ValidationError{FieldErrors: map[string]string{
		"type":      "bad type",
		"startTime": "bad time",
	}})
	if err.Error() != "invalid slot: startTime: bad time; type: bad type" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	plain := os.ErrNotExist
	if describeInputError(plain) != plain {
		t.Fatal("non validation errors must pass through")
	}
}

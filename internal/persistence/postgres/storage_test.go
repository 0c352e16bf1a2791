package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/example/school-timetable/internal/persistence/postgres"
	"github.com/example/school-timetable/internal/testfixtures"
)

// openTestStorage connects to TIMETABLE_TEST_POSTGRES_DSN and resets the schema.
func openTestStorage(t *testing.T) *postgres.Storage {
	t.Helper()

	dsn := os.Getenv("TIMETABLE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TIMETABLE_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	storage, err := postgres.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close() })

	if err := storage.Reset(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if err := storage.Migrate(ctx, nil); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return storage
}

func TestStorageContract(t *testing.T) {
	testfixtures.RunRepositoryContract(t, func(t *testing.T) testfixtures.Repositories {
		return openTestStorage(t)
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	if err := storage.Migrate(ctx, nil); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	status, err := storage.Migrations(nil).Status(ctx)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.CurrentVersion != "002" || status.PendingCount != 0 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

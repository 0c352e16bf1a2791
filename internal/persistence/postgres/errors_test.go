package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/example/school-timetable/internal/persistence"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, persistence.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), persistence.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, persistence.ErrDuplicate},
		{"foreign key", &pgconn.PgError{Code: "23503"}, persistence.ErrForeignKeyViolation},
		{"check", &pgconn.PgError{Code: "23514"}, persistence.ErrConstraintViolation},
		{"not null", &pgconn.PgError{Code: "23502"}, persistence.ErrConstraintViolation},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := mapError(tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("mapError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}

	other := &pgconn.PgError{Code: "42601"}
	if got := mapError(other); got != other {
		t.Fatalf("expected unmapped error to pass through, got %v", got)
	}
	if mapError(nil) != nil {
		t.Fatalf("expected nil")
	}
}

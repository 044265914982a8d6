package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/heri/availabilities/services/availability-service/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestBuildListQuery_NoFilter(t *testing.T) {
	query, args := buildListQuery(model.IntervalFilter{})
	want := `SELECT ` + intervalColumns + ` FROM intervals ORDER BY starts_at ASC, id ASC`
	if query != want {
		t.Fatalf("expected %q, got %q", want, query)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestBuildListQuery_RecurringOpenings(t *testing.T) {
	bound := time.Date(2014, 8, 17, 0, 0, 0, 0, time.UTC)
	query, args := buildListQuery(model.IntervalFilter{
		Kind:        model.KindOpening,
		Recurrence:  model.RecurrenceWeekly,
		StartBefore: bound,
	})
	want := `SELECT ` + intervalColumns + ` FROM intervals WHERE kind = $1 AND recurrence = $2 AND starts_at < $3 ORDER BY starts_at ASC, id ASC`
	if query != want {
		t.Fatalf("expected %q, got %q", want, query)
	}
	if len(args) != 3 || args[0] != "opening" || args[1] != "weekly" || args[2] != bound {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestBuildListQuery_RangeAndLimit(t *testing.T) {
	from := time.Date(2014, 8, 10, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 0, 7)
	query, args := buildListQuery(model.IntervalFilter{
		Kind:      model.KindAppointment,
		StartFrom: from,
		EndUntil:  until,
		Limit:     20,
	})
	want := `SELECT ` + intervalColumns + ` FROM intervals WHERE kind = $1 AND starts_at >= $2 AND ends_at <= $3 ORDER BY starts_at ASC, id ASC LIMIT $4`
	if query != want {
		t.Fatalf("expected %q, got %q", want, query)
	}
	if len(args) != 4 || args[3] != 20 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsNotFound(fmt.Errorf("get: %w", pgx.ErrNoRows)) {
		t.Fatal("expected wrapped ErrNoRows to be not found")
	}
	if !IsConflict(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Fatal("expected unique violation to be a conflict")
	}
	if IsConflict(errors.New("boom")) || IsConflict(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("expected other errors not to be conflicts")
	}
}

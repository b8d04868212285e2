package postgres

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"toda/internal/domain"
)

// fakeQuerier captures the last statement so tests can assert on the columns
// a write actually touches.
type fakeQuerier struct {
	query string
	args  []any
	rows  int64
}

func (f *fakeQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.query = query
	f.args = args
	return fakeResult{rows: f.rows}, nil
}

func (f *fakeQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}

func (f *fakeQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, nil
}

type fakeResult struct{ rows int64 }

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, nil }

// The matching engine settles the driver travel surcharge into the estimate
// right before the assignment transition, so the compare-and-set write must
// carry estimated_fare or the settlement is lost on the floor.
func TestCompareAndSetStatus_WritesSettledEstimate(t *testing.T) {
	q := &fakeQuerier{rows: 1}
	repo := &BookingRepository{q: q}

	booking := &domain.Booking{
		ID:               "b-1",
		CustomerID:       "customer-1",
		Status:           domain.BookingStatusAccepted,
		AssignedDriverID: "d-1",
		TricycleID:       "T-7",
		EstimatedFare:    57.5,
		CreatedAt:        time.Now(),
	}

	if err := repo.CompareAndSetStatus(context.Background(), booking, domain.BookingStatusPending); err != nil {
		t.Fatalf("compare-and-set: %v", err)
	}

	if !strings.Contains(q.query, "estimated_fare") {
		t.Error("update must write the settled estimate")
	}

	bound := false
	for _, arg := range q.args {
		if fare, ok := arg.(float64); ok && fare == 57.5 {
			bound = true
		}
	}
	if !bound {
		t.Errorf("estimated fare 57.50 must be bound as a parameter, got args %v", q.args)
	}
}

func TestCompareAndSetStatus_GuardsOnExpectedStatus(t *testing.T) {
	q := &fakeQuerier{rows: 1}
	repo := &BookingRepository{q: q}

	booking := &domain.Booking{ID: "b-1", Status: domain.BookingStatusAccepted}
	if err := repo.CompareAndSetStatus(context.Background(), booking, domain.BookingStatusPending); err != nil {
		t.Fatalf("compare-and-set: %v", err)
	}

	if len(q.args) == 0 {
		t.Fatal("no parameters bound")
	}
	last := q.args[len(q.args)-1]
	if status, ok := last.(domain.BookingStatus); !ok || status != domain.BookingStatusPending {
		t.Errorf("expected-status guard = %v, want PENDING as the final parameter", last)
	}
}

package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"toda/internal/domain"
	"toda/internal/service"
)

func pendingBooking(id string) *domain.Booking {
	return &domain.Booking{
		ID:            id,
		CustomerID:    "customer-1",
		CustomerName:  "Maria",
		PickupLat:     14.5995,
		PickupLng:     120.9842,
		PickupName:    "Terminal",
		DropoffLat:    14.5995,
		DropoffLng:    121.0842,
		DropoffName:   "Market",
		EstimatedFare: 100,
		Status:        domain.BookingStatusPending,
		CreatedAt:     time.Now(),
	}
}

func TestCanTransition(t *testing.T) {
	tt := []struct {
		from domain.BookingStatus
		to   domain.BookingStatus
		want bool
	}{
		{domain.BookingStatusPending, domain.BookingStatusAccepted, true},
		{domain.BookingStatusPending, domain.BookingStatusCancelled, true},
		{domain.BookingStatusPending, domain.BookingStatusRejected, true},
		{domain.BookingStatusPending, domain.BookingStatusInProgress, false},
		{domain.BookingStatusPending, domain.BookingStatusCompleted, false},
		{domain.BookingStatusAccepted, domain.BookingStatusAtPickup, true},
		{domain.BookingStatusAccepted, domain.BookingStatusInProgress, true},
		{domain.BookingStatusAccepted, domain.BookingStatusNoShow, true},
		{domain.BookingStatusAccepted, domain.BookingStatusCancelled, true},
		{domain.BookingStatusAccepted, domain.BookingStatusRejected, false},
		{domain.BookingStatusAtPickup, domain.BookingStatusInProgress, true},
		{domain.BookingStatusAtPickup, domain.BookingStatusNoShow, true},
		{domain.BookingStatusAtPickup, domain.BookingStatusCancelled, false},
		{domain.BookingStatusInProgress, domain.BookingStatusCompleted, true},
		{domain.BookingStatusInProgress, domain.BookingStatusCancelled, false},
		{domain.BookingStatusCompleted, domain.BookingStatusPending, false},
		{domain.BookingStatusCancelled, domain.BookingStatusAccepted, false},
		{domain.BookingStatusNoShow, domain.BookingStatusInProgress, false},
		{domain.BookingStatusRejected, domain.BookingStatusAccepted, false},
	}

	for _, tc := range tt {
		if got := service.CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTransition_WritesThroughCAS(t *testing.T) {
	ctx := context.Background()
	repo := NewMockBookingRepository()
	sm := service.NewStateMachine(repo, nil)

	booking := pendingBooking("b-1")
	repo.AddBooking(booking)

	updated, err := sm.Transition(ctx, booking, domain.BookingStatusAccepted, service.Actor{Role: service.ActorSystem})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.BookingStatusAccepted {
		t.Errorf("status = %s, want ACCEPTED", updated.Status)
	}
	if stored := repo.GetBooking("b-1"); stored.Status != domain.BookingStatusAccepted {
		t.Errorf("stored status = %s, want ACCEPTED", stored.Status)
	}
}

func TestTransition_StaleReadFails(t *testing.T) {
	ctx := context.Background()
	repo := NewMockBookingRepository()
	sm := service.NewStateMachine(repo, nil)

	booking := pendingBooking("b-stale")
	repo.AddBooking(booking)

	// Another writer resolves the booking after our read.
	observed := *booking
	repo.SetStatus("b-stale", domain.BookingStatusCancelled)

	_, err := sm.Transition(ctx, &observed, domain.BookingStatusAccepted, service.Actor{Role: service.ActorSystem})
	if !errors.Is(err, service.ErrStaleState) {
		t.Fatalf("expected ErrStaleState, got %v", err)
	}
	if stored := repo.GetBooking("b-stale"); stored.Status != domain.BookingStatusCancelled {
		t.Errorf("stale write must not clobber the store; status = %s", stored.Status)
	}
}

func TestTransition_TerminalIsImmutable(t *testing.T) {
	ctx := context.Background()
	repo := NewMockBookingRepository()
	sm := service.NewStateMachine(repo, nil)

	booking := pendingBooking("b-done")
	booking.Status = domain.BookingStatusCompleted
	repo.AddBooking(booking)

	_, err := sm.Transition(ctx, booking, domain.BookingStatusCancelled, service.Actor{Role: service.ActorPassenger})
	if !errors.Is(err, service.ErrBookingTerminal) {
		t.Fatalf("expected ErrBookingTerminal, got %v", err)
	}
}

func TestTransition_InvalidEdgeRejected(t *testing.T) {
	ctx := context.Background()
	repo := NewMockBookingRepository()
	sm := service.NewStateMachine(repo, nil)

	booking := pendingBooking("b-skip")
	repo.AddBooking(booking)

	_, err := sm.Transition(ctx, booking, domain.BookingStatusCompleted, service.Actor{Role: service.ActorDriver})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if repo.CASCallCount != 0 {
		t.Errorf("invalid transition must not reach the store; CAS calls = %d", repo.CASCallCount)
	}
}

func TestTransition_ArrivalStampedOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMockBookingRepository()
	sm := service.NewStateMachine(repo, nil)

	booking := pendingBooking("b-arrive")
	booking.Status = domain.BookingStatusAccepted
	booking.AssignedDriverID = "d-1"
	repo.AddBooking(booking)

	updated, err := sm.Transition(ctx, booking, domain.BookingStatusAtPickup, service.Actor{Role: service.ActorDriver, ID: "d-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.ArrivedAtPickup || updated.ArrivedAtPickupAt.IsZero() {
		t.Fatal("arrival must be stamped on entering AT_PICKUP")
	}

	firstStamp := updated.ArrivedAtPickupAt

	// A later transition carries the stamp forward untouched.
	inProgress, err := sm.Transition(ctx, updated, domain.BookingStatusInProgress, service.Actor{Role: service.ActorDriver, ID: "d-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inProgress.ArrivedAtPickupAt.Equal(firstStamp) {
		t.Errorf("arrival stamp changed: %v -> %v", firstStamp, inProgress.ArrivedAtPickupAt)
	}
}

func TestTransition_CompletionCreatesRatingPlaceholder(t *testing.T) {
	ctx := context.Background()
	repo := NewMockBookingRepository()
	ratings := NewMockRatingRepository()
	sm := service.NewStateMachine(repo, ratings)

	booking := pendingBooking("b-complete")
	booking.Status = domain.BookingStatusInProgress
	booking.AssignedDriverID = "d-1"
	booking.ActualFare = 120
	repo.AddBooking(booking)

	if _, err := sm.Transition(ctx, booking, domain.BookingStatusCompleted, service.Actor{Role: service.ActorDriver, ID: "d-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Placeholder creation is fire-and-forget; give it a moment.
	deadline := time.Now().Add(time.Second)
	for ratings.CountRatings() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ratings.CountRatings() != 1 {
		t.Errorf("rating placeholders = %d, want 1", ratings.CountRatings())
	}
}

package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"toda/internal/domain"
	"toda/internal/repository"
	"toda/internal/service"
)

func newMatchingFixture() (*MockBookingRepository, *MockQueueStore, *MockAlerter, *service.MatchingService) {
	repo := NewMockBookingRepository()
	queue := NewMockQueueStore()
	alerter := NewMockAlerter()
	sm := service.NewStateMachine(repo, nil)
	matching := service.NewMatchingService(repo, queue, sm, nil, nil, nil, nil, alerter)
	return repo, queue, alerter, matching
}

func queuedDriver(driverID string) *domain.QueueEntry {
	return &domain.QueueEntry{
		DriverID:   driverID,
		DriverName: "Driver " + driverID,
		TricycleID: "T-" + driverID,
		Source:     domain.QueueSourceMobile,
		EnqueuedAt: time.Now(),
	}
}

func TestTryMatch_EmptyQueue(t *testing.T) {
	ctx := context.Background()
	repo, queue, _, matching := newMatchingFixture()
	repo.AddBooking(pendingBooking("b-1"))

	matched, err := matching.TryMatchFirstAvailable(ctx, "b-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Fatal("must not match with an empty queue")
	}
	if queue.PushFrontCallCount != 0 {
		t.Errorf("nothing was claimed, nothing to compensate; PushFront calls = %d", queue.PushFrontCallCount)
	}
	if repo.GetBooking("b-1").Status != domain.BookingStatusPending {
		t.Errorf("booking must stay PENDING, got %s", repo.GetBooking("b-1").Status)
	}
}

func TestTryMatch_AssignsHeadOfQueue(t *testing.T) {
	ctx := context.Background()
	repo, queue, _, matching := newMatchingFixture()
	repo.AddBooking(pendingBooking("b-1"))
	_ = queue.Append(ctx, queuedDriver("d-1"))
	_ = queue.Append(ctx, queuedDriver("d-2"))

	matched, err := matching.TryMatchFirstAvailable(ctx, "b-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !matched {
		t.Fatal("expected a match")
	}

	booking := repo.GetBooking("b-1")
	if booking.Status != domain.BookingStatusAccepted {
		t.Errorf("status = %s, want ACCEPTED", booking.Status)
	}
	if booking.AssignedDriverID != "d-1" {
		t.Errorf("assigned driver = %s, want the head of the queue d-1", booking.AssignedDriverID)
	}
	if booking.TricycleID != "T-d-1" {
		t.Errorf("tricycle = %s, want T-d-1", booking.TricycleID)
	}
	if queue.FrontDriverID() != "d-2" {
		t.Errorf("queue front = %s, want d-2", queue.FrontDriverID())
	}
	if queue.Len() != 1 {
		t.Errorf("queue length = %d, want 1", queue.Len())
	}
}

func TestTryMatch_ResolvedBookingIsNoOp(t *testing.T) {
	ctx := context.Background()
	repo, queue, _, matching := newMatchingFixture()

	booking := pendingBooking("b-1")
	booking.Status = domain.BookingStatusCancelled
	repo.AddBooking(booking)
	_ = queue.Append(ctx, queuedDriver("d-1"))

	matched, err := matching.TryMatchFirstAvailable(ctx, "b-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Fatal("resolved booking must not match")
	}
	if queue.Len() != 1 {
		t.Errorf("queue must be untouched, length = %d", queue.Len())
	}
}

func TestTryMatch_LostRemoveRaceRetriesNextHead(t *testing.T) {
	ctx := context.Background()
	repo, queue, _, matching := newMatchingFixture()
	repo.AddBooking(pendingBooking("b-1"))
	_ = queue.Append(ctx, queuedDriver("d-1"))
	_ = queue.Append(ctx, queuedDriver("d-2"))
	queue.LoseRemoveRace = map[string]bool{"d-1": true}

	matched, err := matching.TryMatchFirstAvailable(ctx, "b-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !matched {
		t.Fatal("expected the retry to claim the next head")
	}
	if got := repo.GetBooking("b-1").AssignedDriverID; got != "d-2" {
		t.Errorf("assigned driver = %s, want d-2", got)
	}
}

func TestTryMatch_FailedAssignmentCompensates(t *testing.T) {
	ctx := context.Background()
	repo, queue, _, matching := newMatchingFixture()

	booking := pendingBooking("b-1")
	repo.AddBooking(booking)
	_ = queue.Append(ctx, queuedDriver("d-1"))
	_ = queue.Append(ctx, queuedDriver("d-2"))

	// The booking resolves between our read and the write: the CAS fails
	// stale, and the claimed driver must go back in front.
	repo.CASError = repository.ErrStaleStatus

	matched, err := matching.TryMatchFirstAvailable(ctx, "b-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Fatal("assignment against a resolved booking must not report a match")
	}
	if queue.Len() != 2 {
		t.Errorf("queue length = %d, want 2 (claimed driver restored)", queue.Len())
	}
	if queue.FrontDriverID() != "d-1" {
		t.Errorf("queue front = %s, want the restored d-1", queue.FrontDriverID())
	}
}

func TestTryMatch_CompensationFailureEscalates(t *testing.T) {
	ctx := context.Background()
	repo, queue, alerter, matching := newMatchingFixture()

	repo.AddBooking(pendingBooking("b-1"))
	_ = queue.Append(ctx, queuedDriver("d-1"))

	repo.CASError = repository.ErrStaleStatus // force a stale assignment write
	queue.PushFrontError = ErrMockStoreDown   // and the re-enqueue fails too

	matched, err := matching.TryMatchFirstAvailable(ctx, "b-1")
	if matched {
		t.Fatal("must not report a match")
	}
	if !errors.Is(err, service.ErrCompensationFailed) {
		t.Fatalf("expected ErrCompensationFailed, got %v", err)
	}
	if alerter.CountAlerts() != 1 {
		t.Errorf("alerts = %d, want 1", alerter.CountAlerts())
	}
}

func TestTryMatch_TwoBookingsOneDriver(t *testing.T) {
	ctx := context.Background()
	repo := NewMockBookingRepository()
	queue := NewMockQueueStore()
	sm := service.NewStateMachine(repo, nil)
	matching := service.NewMatchingService(repo, queue, sm, nil, nil, nil, nil, nil)

	repo.AddBooking(pendingBooking("b-1"))
	repo.AddBooking(pendingBooking("b-2"))
	_ = queue.Append(ctx, queuedDriver("d-1"))

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i, id := range []string{"b-1", "b-2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			matched, err := matching.TryMatchFirstAvailable(ctx, id)
			if err != nil {
				t.Errorf("match %s: %v", id, err)
			}
			results[i] = matched
		}(i, id)
	}
	wg.Wait()

	if results[0] == results[1] {
		t.Fatalf("exactly one booking must win the driver, got %v and %v", results[0], results[1])
	}
	if queue.Len() != 0 {
		t.Errorf("queue length = %d, want 0", queue.Len())
	}

	assigned := 0
	for _, id := range []string{"b-1", "b-2"} {
		if repo.GetBooking(id).AssignedDriverID == "d-1" {
			assigned++
		}
	}
	if assigned != 1 {
		t.Errorf("driver assigned to %d bookings, want exactly 1", assigned)
	}
}

func TestTryMatch_LockLostIsNoMatch(t *testing.T) {
	ctx := context.Background()
	repo := NewMockBookingRepository()
	queue := NewMockQueueStore()
	locks := NewMockLockStore()
	locks.ForceAcquireFailure = true
	sm := service.NewStateMachine(repo, nil)
	matching := service.NewMatchingService(repo, queue, sm, locks, nil, nil, nil, nil)

	repo.AddBooking(pendingBooking("b-1"))
	_ = queue.Append(ctx, queuedDriver("d-1"))

	matched, err := matching.TryMatchFirstAvailable(ctx, "b-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Fatal("losing the booking lock must be a quiet no-match")
	}
	if queue.Len() != 1 {
		t.Errorf("queue must be untouched, length = %d", queue.Len())
	}
}

func TestTryMatch_SettlesDriverTravelFee(t *testing.T) {
	ctx := context.Background()
	repo := NewMockBookingRepository()
	queue := NewMockQueueStore()
	locations := NewMockLocationStore()
	fares := service.NewFareService(testFareConfig())
	sm := service.NewStateMachine(repo, nil)
	matching := service.NewMatchingService(repo, queue, sm, nil, locations, fares, nil, nil)

	booking := pendingBooking("b-1")
	repo.AddBooking(booking)
	_ = queue.Append(ctx, queuedDriver("d-1"))

	// Driver reports from roughly 5.4 km away.
	_ = locations.UpdateLocation(ctx, "d-1", 14.5995, 120.9342)

	matched, err := matching.TryMatchFirstAvailable(ctx, "b-1")
	if err != nil || !matched {
		t.Fatalf("matched=%v err=%v", matched, err)
	}

	updated := repo.GetBooking("b-1")
	if updated.EstimatedFare <= booking.EstimatedFare {
		t.Errorf("estimate %.2f should grow by the travel surcharge (was %.2f)",
			updated.EstimatedFare, booking.EstimatedFare)
	}
}

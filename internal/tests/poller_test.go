package tests

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"toda/internal/config"
	"toda/internal/domain"
	"toda/internal/service"
)

// scriptedMatcher implements MatchingServiceInterface with canned results.
type scriptedMatcher struct {
	attempts int32
	// matchOn is the attempt number (1-based) that reports a match; 0 never
	// matches.
	matchOn int32
	err     error
}

func (m *scriptedMatcher) TryMatchFirstAvailable(ctx context.Context, bookingID string) (bool, error) {
	n := atomic.AddInt32(&m.attempts, 1)
	if m.err != nil {
		return false, m.err
	}
	return m.matchOn != 0 && n >= m.matchOn, nil
}

func (m *scriptedMatcher) calls() int32 {
	return atomic.LoadInt32(&m.attempts)
}

func fastDispatchConfig(maxAttempts int) config.DispatchConfig {
	return config.DispatchConfig{
		PollInterval: 5 * time.Millisecond,
		MaxAttempts:  maxAttempts,
		NoShowGrace:  5 * time.Minute,
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestPoller_StopsWhenMatched(t *testing.T) {
	repo := NewMockBookingRepository()
	repo.AddBooking(pendingBooking("b-1"))
	matcher := &scriptedMatcher{matchOn: 3}
	poller := service.NewPollerService(repo, matcher, fastDispatchConfig(10))

	poller.StartPolling("b-1")
	waitUntil(t, 2*time.Second, func() bool { return !poller.IsPolling("b-1") })

	if got := matcher.calls(); got != 3 {
		t.Errorf("match attempts = %d, want 3", got)
	}
}

func TestPoller_GivesUpAfterAttemptBudget(t *testing.T) {
	repo := NewMockBookingRepository()
	repo.AddBooking(pendingBooking("b-1"))
	matcher := &scriptedMatcher{} // never matches
	poller := service.NewPollerService(repo, matcher, fastDispatchConfig(4))

	poller.StartPolling("b-1")
	waitUntil(t, 2*time.Second, func() bool { return !poller.IsPolling("b-1") })

	if got := matcher.calls(); got != 4 {
		t.Errorf("match attempts = %d, want 4", got)
	}
	if repo.GetBooking("b-1").Status != domain.BookingStatusPending {
		t.Errorf("booking must stay PENDING after budget runs out")
	}
}

func TestPoller_StartIsIdempotent(t *testing.T) {
	repo := NewMockBookingRepository()
	repo.AddBooking(pendingBooking("b-1"))
	matcher := &scriptedMatcher{}
	poller := service.NewPollerService(repo, matcher, fastDispatchConfig(1000))
	defer poller.StopPolling("b-1")

	for i := 0; i < 5; i++ {
		poller.StartPolling("b-1")
	}

	if got := poller.ActiveCount(); got != 1 {
		t.Errorf("active pollers = %d, want 1", got)
	}
}

func TestPoller_StopCancelsLoop(t *testing.T) {
	repo := NewMockBookingRepository()
	repo.AddBooking(pendingBooking("b-1"))
	matcher := &scriptedMatcher{}
	poller := service.NewPollerService(repo, matcher, fastDispatchConfig(1000))

	poller.StartPolling("b-1")
	waitUntil(t, time.Second, func() bool { return matcher.calls() >= 1 })
	poller.StopPolling("b-1")

	if poller.IsPolling("b-1") {
		t.Fatal("StopPolling must clear the task")
	}

	calls := matcher.calls()
	time.Sleep(30 * time.Millisecond)
	if matcher.calls() > calls+1 {
		t.Errorf("loop kept running after stop: %d -> %d attempts", calls, matcher.calls())
	}
}

func TestPoller_StopUnknownBookingIsSafe(t *testing.T) {
	repo := NewMockBookingRepository()
	poller := service.NewPollerService(repo, &scriptedMatcher{}, fastDispatchConfig(10))

	poller.StopPolling("never-started") // must not panic
	if poller.ActiveCount() != 0 {
		t.Errorf("active pollers = %d, want 0", poller.ActiveCount())
	}
}

func TestPoller_ExitsWhenBookingResolvesElsewhere(t *testing.T) {
	repo := NewMockBookingRepository()
	booking := pendingBooking("b-1")
	repo.AddBooking(booking)
	matcher := &scriptedMatcher{}
	poller := service.NewPollerService(repo, matcher, fastDispatchConfig(1000))

	poller.StartPolling("b-1")
	waitUntil(t, time.Second, func() bool { return matcher.calls() >= 1 })

	// The passenger cancels from the app while the poller is mid-loop.
	repo.SetStatus("b-1", domain.BookingStatusCancelled)

	waitUntil(t, 2*time.Second, func() bool { return !poller.IsPolling("b-1") })
}

package service

import (
	"context"
	"log"
	"sync"
	"time"

	"toda/internal/config"
	"toda/internal/domain"
	"toda/internal/repository"
)

// MatchingServiceInterface defines the matching contract the poller needs.
// This interface allows for testing with mock implementations.
type MatchingServiceInterface interface {
	TryMatchFirstAvailable(ctx context.Context, bookingID string) (bool, error)
}

// Ensure MatchingService implements MatchingServiceInterface.
var _ MatchingServiceInterface = (*MatchingService)(nil)

type pollTask struct {
	cancel context.CancelFunc
}

// PollerService retries matching for pending bookings at a fixed interval.
//
// One goroutine runs per actively polled booking. Tasks share no state with
// each other; the queue and booking stores are the only synchronization
// points. Cancellation is cooperative and checked between attempts.
type PollerService struct {
	bookingRepo repository.BookingRepository
	matching    MatchingServiceInterface
	interval    time.Duration
	maxAttempts int

	mu    sync.Mutex
	tasks map[string]*pollTask
}

// NewPollerService creates a new PollerService.
func NewPollerService(bookingRepo repository.BookingRepository, matching MatchingServiceInterface, cfg config.DispatchConfig) *PollerService {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 12
	}

	return &PollerService{
		bookingRepo: bookingRepo,
		matching:    matching,
		interval:    interval,
		maxAttempts: maxAttempts,
		tasks:       make(map[string]*pollTask),
	}
}

// StartPolling starts a background matching loop for the booking. Starting
// a booking that is already being polled is a no-op.
func (s *PollerService) StartPolling(bookingID string) {
	if bookingID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[bookingID]; ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &pollTask{cancel: cancel}
	s.tasks[bookingID] = task

	go s.poll(ctx, bookingID, task)
}

// StopPolling cancels the background loop for the booking. Safe to call
// from any context, including after the loop already expired on its own.
func (s *PollerService) StopPolling(bookingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task, ok := s.tasks[bookingID]; ok {
		task.cancel()
		delete(s.tasks, bookingID)
	}
}

// IsPolling reports whether a booking currently has an active poller.
func (s *PollerService) IsPolling(bookingID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[bookingID]
	return ok
}

// ActiveCount returns the number of bookings currently being polled.
func (s *PollerService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *PollerService) poll(ctx context.Context, bookingID string, task *pollTask) {
	defer s.finish(bookingID, task)

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.interval):
			}
		}
		if ctx.Err() != nil {
			return
		}

		booking, err := s.bookingRepo.GetByID(ctx, bookingID)
		if err != nil {
			// Transient store failure; counts against the attempt budget.
			log.Printf("poller: read booking %s failed: %v", bookingID, err)
			continue
		}
		if booking.Status != domain.BookingStatusPending {
			return // resolved; nothing left to poll for
		}

		matched, err := s.matching.TryMatchFirstAvailable(ctx, bookingID)
		if err != nil {
			log.Printf("poller: match attempt for booking %s failed: %v", bookingID, err)
			continue
		}
		if matched {
			return
		}
	}

	// Attempt budget exhausted. The booking stays PENDING; the passenger
	// retries manually or cancels.
	log.Printf("poller: no driver found for booking %s after %d attempts", bookingID, s.maxAttempts)
}

// finish removes the task entry, but only if it is still ours; a stop
// followed by a fresh start must not lose the new task.
func (s *PollerService) finish(bookingID string, task *pollTask) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.tasks[bookingID]; ok && current == task {
		task.cancel()
		delete(s.tasks, bookingID)
	}
}

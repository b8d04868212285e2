package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"toda/internal/domain"
	"toda/internal/redis"
	"toda/internal/repository"
)

const (
	bookingLockTTL = 30 * time.Second // lock booking during a match attempt

	// One initial claim plus one bounded retry of peek/remove within the
	// same invocation. Losing the head twice means give up until the next
	// poll; the engine must not spin against a hot queue.
	claimAttempts = 2
)

// MatchingService assigns queued drivers to pending bookings.
//
// The queue has no atomic pop, so a claim is peek-then-remove and the
// remove result decides who won. A driver removed from the queue is either
// assigned or pushed back to the front; it is never dropped.
type MatchingService struct {
	bookingRepo  repository.BookingRepository
	queueStore   redis.QueueStoreInterface
	stateMachine *StateMachine
	lockStore    redis.LockStoreInterface
	locations    redis.LocationStoreInterface
	fares        *FareService
	notification *NotificationService
	alerter      Alerter
}

// NewMatchingService creates a new MatchingService. lockStore, locations,
// fares, notification and alerter are optional.
func NewMatchingService(
	bookingRepo repository.BookingRepository,
	queueStore redis.QueueStoreInterface,
	stateMachine *StateMachine,
	lockStore redis.LockStoreInterface,
	locations redis.LocationStoreInterface,
	fares *FareService,
	notification *NotificationService,
	alerter Alerter,
) *MatchingService {
	return &MatchingService{
		bookingRepo:  bookingRepo,
		queueStore:   queueStore,
		stateMachine: stateMachine,
		lockStore:    lockStore,
		locations:    locations,
		fares:        fares,
		notification: notification,
		alerter:      alerter,
	}
}

// TryMatchFirstAvailable attempts to assign the driver at the head of the
// queue to the given booking. Returns true when the booking was matched,
// false when no driver is currently available or the booking is already
// resolved. Store I/O failures are returned as errors and are retryable.
func (s *MatchingService) TryMatchFirstAvailable(ctx context.Context, bookingID string) (bool, error) {
	if bookingID == "" {
		return false, ErrInvalidBookingID
	}

	// Keep concurrent match attempts for the same booking from racing each
	// other; losing the lock is a normal no-match outcome.
	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireBookingLock(ctx, bookingID, bookingLockTTL)
		if err != nil {
			return false, err
		}
		if !locked {
			return false, nil
		}
		defer func() { _ = s.lockStore.ReleaseBookingLock(ctx, bookingID) }()
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if booking.Status != domain.BookingStatusPending {
		return false, nil // already resolved by another path
	}

	for attempt := 0; attempt < claimAttempts; attempt++ {
		entry, err := s.queueStore.PeekFirst(ctx)
		if err != nil {
			return false, err
		}
		if entry == nil {
			return false, nil
		}

		removed, err := s.queueStore.Remove(ctx, entry.DriverID)
		if err != nil {
			return false, err
		}
		if !removed {
			// Another booking claimed this driver between peek and remove.
			continue
		}

		return s.assignClaimedDriver(ctx, booking, entry)
	}

	return false, nil
}

// assignClaimedDriver transitions the booking to ACCEPTED carrying the
// claimed driver. If the transition fails for any reason, the driver is
// returned to the front of the queue.
func (s *MatchingService) assignClaimedDriver(ctx context.Context, booking *domain.Booking, entry *domain.QueueEntry) (bool, error) {
	assigned := *booking
	assigned.AssignedDriverID = entry.DriverID
	assigned.TricycleID = entry.TricycleID
	assigned.EstimatedFare += s.driverTravelFee(ctx, &assigned, entry.DriverID)

	updated, err := s.stateMachine.Transition(ctx, &assigned, domain.BookingStatusAccepted, Actor{Role: ActorSystem})
	if err == nil {
		if s.notification != nil {
			_ = s.notification.NotifyDriverAssigned(ctx, updated, entry)
		}
		return true, nil
	}

	// The booking resolved elsewhere, or the write failed. Either way the
	// claimed driver goes back to the front of the queue.
	if compErr := s.queueStore.PushFront(ctx, entry); compErr != nil {
		if s.alerter != nil {
			s.alerter.CompensationFailure(booking.ID, entry.DriverID, compErr)
		}
		return false, fmt.Errorf("%w: %v (assignment failed with: %v)", ErrCompensationFailed, compErr, err)
	}

	if errors.Is(err, ErrStaleState) || errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrBookingTerminal) {
		return false, nil
	}
	return false, err
}

// driverTravelFee computes the pickup surcharge from the driver's last
// reported position. Estimates are made before a driver is known, so the
// surcharge is settled here. A driver with no reported position rides the
// estimate as-is.
func (s *MatchingService) driverTravelFee(ctx context.Context, booking *domain.Booking, driverID string) float64 {
	if s.locations == nil || s.fares == nil {
		return 0
	}

	loc, err := s.locations.GetLocation(ctx, driverID)
	if err != nil || loc == nil {
		return 0
	}

	return s.fares.DriverTravelFee(
		domain.LatLng{Lat: loc.Lat, Lng: loc.Lng},
		domain.LatLng{Lat: booking.PickupLat, Lng: booking.PickupLng},
	)
}

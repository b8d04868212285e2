package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"toda/internal/domain"
	"toda/internal/repository"
)

// ActorRole identifies who requested a status transition.
type ActorRole string

const (
	ActorPassenger ActorRole = "PASSENGER"
	ActorDriver    ActorRole = "DRIVER"
	ActorSystem    ActorRole = "SYSTEM"
)

// Actor carries the identity behind a transition request.
type Actor struct {
	Role ActorRole
	ID   string
}

// transitions is the legal edge set of the booking state machine. Terminal
// statuses have no outgoing edges.
var transitions = map[domain.BookingStatus]map[domain.BookingStatus]struct{}{
	domain.BookingStatusPending: {
		domain.BookingStatusAccepted:  {},
		domain.BookingStatusCancelled: {},
		domain.BookingStatusRejected:  {},
	},
	domain.BookingStatusAccepted: {
		domain.BookingStatusAtPickup:   {},
		domain.BookingStatusInProgress: {},
		domain.BookingStatusNoShow:     {},
		domain.BookingStatusCancelled:  {},
	},
	domain.BookingStatusAtPickup: {
		domain.BookingStatusInProgress: {},
		domain.BookingStatusNoShow:     {},
	},
	domain.BookingStatusInProgress: {
		domain.BookingStatusCompleted: {},
	},
}

// CanTransition reports whether the state machine permits moving from one
// status to another.
func CanTransition(from, to domain.BookingStatus) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// StateMachine validates and applies booking status transitions.
type StateMachine struct {
	bookingRepo repository.BookingRepository
	ratingRepo  repository.RatingRepository
}

// NewStateMachine creates a new StateMachine.
func NewStateMachine(bookingRepo repository.BookingRepository, ratingRepo repository.RatingRepository) *StateMachine {
	return &StateMachine{
		bookingRepo: bookingRepo,
		ratingRepo:  ratingRepo,
	}
}

// Transition moves a booking to the target status.
//
// The booking argument carries the state the caller last observed; its
// Status field is used as the compare-and-set guard, so a transition based
// on an out-of-date read fails with ErrStaleState and the caller must
// re-read. On success the updated booking is returned.
//
// Side effects: entering AT_PICKUP stamps the arrival time exactly once,
// entering NO_SHOW stamps the no-show time exactly once, and entering
// COMPLETED creates a rating placeholder without blocking the transition.
func (m *StateMachine) Transition(ctx context.Context, booking *domain.Booking, target domain.BookingStatus, actor Actor) (*domain.Booking, error) {
	observed := booking.Status

	if observed.IsTerminal() {
		return nil, ErrBookingTerminal
	}
	if !CanTransition(observed, target) {
		return nil, ErrInvalidTransition
	}

	updated := *booking
	updated.Status = target

	now := time.Now()
	switch target {
	case domain.BookingStatusAtPickup:
		if !updated.ArrivedAtPickup {
			updated.ArrivedAtPickup = true
			updated.ArrivedAtPickupAt = now
		}
	case domain.BookingStatusNoShow:
		if !updated.NoShowReported {
			updated.NoShowReported = true
			updated.NoShowReportedAt = now
		}
	case domain.BookingStatusCancelled, domain.BookingStatusRejected:
		if updated.CancelledBy == "" {
			updated.CancelledBy = actor.ID
		}
	}

	if err := m.bookingRepo.CompareAndSetStatus(ctx, &updated, observed); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, ErrStaleState
		}
		return nil, err
	}

	if target == domain.BookingStatusCompleted {
		m.createRatingPlaceholderAsync(&updated)
	}

	return &updated, nil
}

// createRatingPlaceholderAsync creates the rating row for a completed
// booking (fire and forget; never blocks or fails the transition).
func (m *StateMachine) createRatingPlaceholderAsync(booking *domain.Booking) {
	if m.ratingRepo == nil {
		return
	}

	rating := &domain.Rating{
		ID:         uuid.New().String(),
		BookingID:  booking.ID,
		CustomerID: booking.CustomerID,
		DriverID:   booking.AssignedDriverID,
		CreatedAt:  time.Now(),
	}

	go func() {
		if err := m.ratingRepo.CreatePlaceholder(context.Background(), rating); err != nil {
			log.Printf("failed to create rating placeholder for booking %s: %v", booking.ID, err)
		}
	}()
}

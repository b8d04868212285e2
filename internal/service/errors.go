package service

import "errors"

var (
	// ErrInvalidTransition is returned when a status change does not follow
	// an edge of the booking state machine. This is a caller bug, not a
	// recoverable race.
	ErrInvalidTransition = errors.New("invalid booking status transition")

	// ErrStaleState is returned when the stored booking status no longer
	// matches the status the caller last observed. Expected under concurrent
	// writers; re-read and retry or give up.
	ErrStaleState = errors.New("booking state is stale")

	// ErrBookingTerminal is returned when mutating a booking already in a
	// terminal status.
	ErrBookingTerminal = errors.New("booking is in a terminal status")

	// ErrCompensationFailed is returned when a claimed driver could not be
	// returned to the queue after a failed assignment. This silently shrinks
	// the driver pool, so it is escalated through the alerter as well.
	ErrCompensationFailed = errors.New("failed to re-enqueue claimed driver")

	// ErrInvalidBookingID is returned when a booking ID is empty.
	ErrInvalidBookingID = errors.New("invalid booking id")

	// ErrInvalidCustomerID is returned when a customer ID is empty.
	ErrInvalidCustomerID = errors.New("invalid customer id")

	// ErrInvalidDriverID is returned when a driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidPickupLocation is returned when pickup coordinates are invalid.
	ErrInvalidPickupLocation = errors.New("invalid pickup location")

	// ErrInvalidDropoffLocation is returned when dropoff coordinates are invalid.
	ErrInvalidDropoffLocation = errors.New("invalid dropoff location")

	// ErrTripTooShort is returned when pickup and dropoff are closer than
	// the minimum bookable distance.
	ErrTripTooShort = errors.New("pickup and dropoff are too close")

	// ErrDriverNotAssigned is returned when the acting driver is not the one
	// assigned to the booking.
	ErrDriverNotAssigned = errors.New("driver not assigned to this booking")

	// ErrBookingNotCompleted is returned when asking for a receipt on a
	// booking that has not finished.
	ErrBookingNotCompleted = errors.New("booking is not completed")

	// ErrCustomerBlocked is returned when a blocked customer tries to book.
	ErrCustomerBlocked = errors.New("customer is blocked from booking")
)

package repository

import (
	"context"

	"toda/internal/domain"
)

// BookingRepository defines the persistence operations for bookings.
//
// The remote store has no transactional claim primitive, so conditional
// writes are expressed as compare-and-set on the status column: the write
// succeeds only if the stored status still equals the status the caller
// last observed.
type BookingRepository interface {
	// Create persists a new booking.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// GetAll retrieves recent bookings.
	GetAll(ctx context.Context) ([]*domain.Booking, error)

	// CompareAndSetStatus writes the full booking record, guarded by the
	// expected current status. Returns ErrStaleStatus if the stored status
	// differs, ErrNotFound if the booking does not exist.
	CompareAndSetStatus(ctx context.Context, booking *domain.Booking, expected domain.BookingStatus) error
}

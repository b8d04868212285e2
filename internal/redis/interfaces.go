package redis

import (
	"context"
	"time"

	"toda/internal/domain"
)

// QueueStoreInterface defines the interface for the driver availability queue.
type QueueStoreInterface interface {
	PeekFirst(ctx context.Context) (*domain.QueueEntry, error)
	Remove(ctx context.Context, driverID string) (bool, error)
	Append(ctx context.Context, entry *domain.QueueEntry) error
	PushFront(ctx context.Context, entry *domain.QueueEntry) error
	Contains(ctx context.Context, driverID string) (bool, error)
	List(ctx context.Context) ([]*domain.QueueEntry, error)
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireBookingLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error)
	ReleaseBookingLock(ctx context.Context, bookingID string) error
}

// LocationStoreInterface defines the interface for driver location tracking.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error
	GetLocation(ctx context.Context, driverID string) (*DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ QueueStoreInterface    = (*QueueStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ LocationStoreInterface = (*LocationStore)(nil)
)

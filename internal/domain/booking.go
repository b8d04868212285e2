package domain

import "time"

// BookingStatus represents the current status of a booking.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "PENDING"
	BookingStatusAccepted   BookingStatus = "ACCEPTED"
	BookingStatusAtPickup   BookingStatus = "AT_PICKUP"
	BookingStatusInProgress BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted  BookingStatus = "COMPLETED"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
	BookingStatusRejected   BookingStatus = "REJECTED"
	BookingStatusNoShow     BookingStatus = "NO_SHOW"
)

// IsTerminal reports whether the status is final. Terminal bookings are
// immutable; no further transition is accepted.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected, BookingStatusNoShow:
		return true
	}
	return false
}

// ParseBookingStatus maps the external string representation to a
// BookingStatus. The stored schema uses the same uppercase strings, so this
// is the single place display logic and persisted values meet.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusAtPickup,
		BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled,
		BookingStatusRejected, BookingStatusNoShow:
		return BookingStatus(s), true
	}
	return "", false
}

// Booking represents a passenger booking in the system.
type Booking struct {
	ID                string
	CustomerID        string
	CustomerName      string
	CustomerPhone     string
	PickupLat         float64
	PickupLng         float64
	PickupName        string
	DropoffLat        float64
	DropoffLng        float64
	DropoffName       string
	EstimatedFare     float64
	ActualFare        float64
	Status            BookingStatus
	AssignedDriverID  string
	TricycleID        string
	VerificationCode  string
	ArrivedAtPickup   bool
	ArrivedAtPickupAt time.Time
	NoShowReported    bool
	NoShowReportedAt  time.Time
	CancelledBy       string
	CancelReason      string
	CreatedAt         time.Time
}

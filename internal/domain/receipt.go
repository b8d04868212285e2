package domain

import "time"

// Receipt is the trip summary issued to the passenger after a completed
// booking.
type Receipt struct {
	ID            string
	BookingID     string
	CustomerID    string
	CustomerName  string
	DriverID      string
	TricycleID    string
	PickupName    string
	DropoffName   string
	DistanceKm    float64
	EstimatedFare float64
	TotalFare     float64
	CompletedAt   time.Time
	CreatedAt     time.Time
}

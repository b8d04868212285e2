package domain

import "time"

// Rating is the placeholder created when a booking completes. Stars and
// comment stay empty until the passenger submits them.
type Rating struct {
	ID         string
	BookingID  string
	CustomerID string
	DriverID   string
	Stars      int
	Comment    string
	CreatedAt  time.Time
}

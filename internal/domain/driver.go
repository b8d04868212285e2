package domain

import "time"

// DriverStatus represents the current status of a driver.
type DriverStatus string

const (
	DriverStatusOnline  DriverStatus = "ONLINE"
	DriverStatusOffline DriverStatus = "OFFLINE"
	DriverStatusOnTrip  DriverStatus = "ON_TRIP"
)

// Driver represents a cooperative member registered to drive.
type Driver struct {
	ID          string
	Name        string
	Phone       string
	TricycleID  string
	PlateNumber string
	Status      DriverStatus
	CreatedAt   time.Time
}

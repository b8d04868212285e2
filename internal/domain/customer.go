package domain

import "time"

// Customer represents a registered passenger. Discount eligibility lives
// here because it must be verified by the cooperative office before it
// affects a fare.
type Customer struct {
	ID               string
	Name             string
	Phone            string
	DiscountType     DiscountType
	DiscountVerified bool
	IsBlocked        bool
	CreatedAt        time.Time
}

// DiscountProfile returns the customer's discount in the form the fare
// calculator consumes.
func (c *Customer) DiscountProfile() DiscountProfile {
	return DiscountProfile{Type: c.DiscountType, Verified: c.DiscountVerified}
}

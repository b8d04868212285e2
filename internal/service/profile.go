package service

import (
	"context"
	"encoding/json"

	"toda/internal/domain"
	"toda/internal/repository"
)

// Profile is the subset of the identity service's user record the engine
// needs: the normalized discount and the booking-eligibility fields.
type Profile struct {
	UserID     string
	Discount   domain.DiscountProfile
	TrustScore float64
	IsBlocked  bool
}

// ProfileService is implemented by the external identity/profile backend.
type ProfileService interface {
	GetUserProfile(ctx context.Context, id string) (*Profile, error)
}

// DecodeProfile builds a Profile from a raw identity-service record. The
// discount field has two historical shapes (bare string or nested object);
// domain.DecodeDiscountProfile handles the fallback order so everything
// past this boundary sees only the normalized value.
func DecodeProfile(userID string, raw []byte) (*Profile, error) {
	var rec struct {
		Discount   json.RawMessage `json:"discount"`
		TrustScore float64         `json:"trust_score"`
		IsBlocked  bool            `json:"is_blocked"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}

	discount, err := domain.DecodeDiscountProfile(rec.Discount)
	if err != nil {
		return nil, err
	}

	return &Profile{
		UserID:     userID,
		Discount:   discount,
		TrustScore: rec.TrustScore,
		IsBlocked:  rec.IsBlocked,
	}, nil
}

// CustomerProfileService serves profiles from the local customers table.
// Deployments without an external identity backend use this one.
type CustomerProfileService struct {
	customerRepo repository.CustomerRepository
}

// NewCustomerProfileService creates a new CustomerProfileService.
func NewCustomerProfileService(customerRepo repository.CustomerRepository) *CustomerProfileService {
	return &CustomerProfileService{customerRepo: customerRepo}
}

// GetUserProfile implements ProfileService.
func (s *CustomerProfileService) GetUserProfile(ctx context.Context, id string) (*Profile, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Profile{
		UserID:    customer.ID,
		Discount:  customer.DiscountProfile(),
		IsBlocked: customer.IsBlocked,
	}, nil
}

var _ ProfileService = (*CustomerProfileService)(nil)

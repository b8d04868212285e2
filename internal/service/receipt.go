package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"toda/internal/domain"
	"toda/internal/repository"
)

// ReceiptService builds trip receipts for completed bookings.
type ReceiptService struct {
	bookingRepo repository.BookingRepository
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService(bookingRepo repository.BookingRepository) *ReceiptService {
	return &ReceiptService{bookingRepo: bookingRepo}
}

// GenerateReceipt builds a receipt for a completed booking.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, bookingID string) (*domain.Receipt, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusCompleted {
		return nil, ErrBookingNotCompleted
	}

	total := booking.ActualFare
	if total == 0 {
		total = booking.EstimatedFare
	}

	now := time.Now()
	return &domain.Receipt{
		ID:           uuid.New().String(),
		BookingID:    booking.ID,
		CustomerID:   booking.CustomerID,
		CustomerName: booking.CustomerName,
		DriverID:     booking.AssignedDriverID,
		TricycleID:   booking.TricycleID,
		PickupName:   booking.PickupName,
		DropoffName:  booking.DropoffName,
		DistanceKm: haversineKm(
			domain.LatLng{Lat: booking.PickupLat, Lng: booking.PickupLng},
			domain.LatLng{Lat: booking.DropoffLat, Lng: booking.DropoffLng},
		),
		EstimatedFare: booking.EstimatedFare,
		TotalFare:     total,
		CompletedAt:   now,
		CreatedAt:     now,
	}, nil
}

// FormatReceipt formats the receipt as plain text for SMS or printing at
// the stand.
func (s *ReceiptService) FormatReceipt(receipt *domain.Receipt) string {
	return `
=====================================
          TRIP RECEIPT
=====================================
Receipt:  ` + receipt.ID + `
Booking:  ` + receipt.BookingID + `
Date:     ` + receipt.CreatedAt.Format("Jan 02, 2006 3:04 PM") + `

TRIP DETAILS
-------------------------------------
Passenger: ` + receipt.CustomerName + `
Tricycle:  ` + receipt.TricycleID + `
From:      ` + receipt.PickupName + `
To:        ` + receipt.DropoffName + `
Distance:  ` + formatFloat(receipt.DistanceKm) + ` km

FARE
-------------------------------------
Estimated:  PHP ` + formatFloat(receipt.EstimatedFare) + `
TOTAL:      PHP ` + formatFloat(receipt.TotalFare) + `

=====================================
     Thank you for riding with us!
=====================================
`
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"toda/internal/config"
	"toda/internal/domain"
	"toda/internal/repository"
)

// Pickup and dropoff closer than this are treated as input errors before
// any booking is created.
const minTripKm = 0.01

// BookingService handles the passenger- and driver-facing booking
// operations: creation, cancellation, arrival, trip start and completion.
type BookingService struct {
	bookingRepo  repository.BookingRepository
	stateMachine *StateMachine
	fareService  *FareService
	matching     MatchingServiceInterface
	poller       *PollerService
	notification *NotificationService
	profiles     ProfileService
	noShowGrace  time.Duration
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	bookingRepo repository.BookingRepository,
	stateMachine *StateMachine,
	fareService *FareService,
	matching MatchingServiceInterface,
	poller *PollerService,
	notification *NotificationService,
	profiles ProfileService,
	cfg config.DispatchConfig,
) *BookingService {
	grace := cfg.NoShowGrace
	if grace <= 0 {
		grace = 5 * time.Minute
	}

	return &BookingService{
		bookingRepo:  bookingRepo,
		stateMachine: stateMachine,
		fareService:  fareService,
		matching:     matching,
		poller:       poller,
		notification: notification,
		profiles:     profiles,
		noShowGrace:  grace,
	}
}

// CreateBookingRequest contains the parameters for creating a booking.
type CreateBookingRequest struct {
	CustomerID    string
	CustomerName  string
	CustomerPhone string
	Pickup        domain.LatLng
	PickupName    string
	Dropoff       domain.LatLng
	DropoffName   string
	Discount      domain.DiscountProfile
}

// CreateBookingResponse contains the result of creating a booking.
type CreateBookingResponse struct {
	Booking        *domain.Booking
	DriverAssigned bool
}

// CreateBooking creates a booking in PENDING state, attempts an immediate
// match, and starts the background poller if no driver was available yet.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*CreateBookingResponse, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	discount := req.Discount
	if s.profiles != nil {
		profile, err := s.profiles.GetUserProfile(ctx, req.CustomerID)
		if err != nil {
			return nil, err
		}
		if profile.IsBlocked {
			return nil, ErrCustomerBlocked
		}
		discount = profile.Discount
	}

	// The estimate assumes the driver starts at the pickup; the surcharge
	// component is recomputed once a driver is actually assigned.
	estimate := s.fareService.ComputeFare(req.Pickup, req.Dropoff, req.Pickup, discount)

	booking := &domain.Booking{
		ID:               uuid.New().String(),
		CustomerID:       req.CustomerID,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		PickupLat:        req.Pickup.Lat,
		PickupLng:        req.Pickup.Lng,
		PickupName:       req.PickupName,
		DropoffLat:       req.Dropoff.Lat,
		DropoffLng:       req.Dropoff.Lng,
		DropoffName:      req.DropoffName,
		EstimatedFare:    estimate.TotalFare,
		Status:           domain.BookingStatusPending,
		VerificationCode: newVerificationCode(),
		CreatedAt:        time.Now(),
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, err
	}

	matched, err := s.matching.TryMatchFirstAvailable(ctx, booking.ID)
	if err != nil && !errors.Is(err, ErrCompensationFailed) {
		// The booking exists either way; the poller keeps trying.
		matched = false
	}

	if matched {
		updated, err := s.bookingRepo.GetByID(ctx, booking.ID)
		if err == nil {
			booking = updated
		}
		return &CreateBookingResponse{Booking: booking, DriverAssigned: true}, nil
	}

	if s.poller != nil {
		s.poller.StartPolling(booking.ID)
	}
	return &CreateBookingResponse{Booking: booking, DriverAssigned: false}, nil
}

// GetBooking retrieves the current state of a booking, applying the lazy
// no-show check: a booking whose driver arrived more than the grace period
// ago without the trip starting is closed as NO_SHOW on read.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !s.noShowDue(booking) {
		return booking, nil
	}

	updated, err := s.stateMachine.Transition(ctx, booking, domain.BookingStatusNoShow, Actor{Role: ActorSystem})
	if err != nil {
		if errors.Is(err, ErrStaleState) {
			// Someone else moved the booking first; the re-read is the answer.
			return s.bookingRepo.GetByID(ctx, bookingID)
		}
		return nil, err
	}

	if s.notification != nil {
		_ = s.notification.NotifyNoShow(ctx, updated)
	}
	return updated, nil
}

// ListBookings returns recent bookings for the dispatcher view.
func (s *BookingService) ListBookings(ctx context.Context) ([]*domain.Booking, error) {
	return s.bookingRepo.GetAll(ctx)
}

func (s *BookingService) noShowDue(booking *domain.Booking) bool {
	if booking.Status != domain.BookingStatusAccepted && booking.Status != domain.BookingStatusAtPickup {
		return false
	}
	if !booking.ArrivedAtPickup || booking.ArrivedAtPickupAt.IsZero() {
		return false
	}
	return time.Since(booking.ArrivedAtPickupAt) > s.noShowGrace
}

// CancelBookingRequest contains the parameters for cancelling a booking.
type CancelBookingRequest struct {
	BookingID   string
	CancelledBy string
	Reason      string
	Actor       Actor
}

// CancelBooking cancels a booking before the trip starts. Cancellation is
// legal while PENDING or ACCEPTED; later than that the trip is underway.
func (s *BookingService) CancelBooking(ctx context.Context, req CancelBookingRequest) (*domain.Booking, error) {
	if req.BookingID == "" {
		return nil, ErrInvalidBookingID
	}

	booking, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	booking.CancelledBy = req.CancelledBy
	booking.CancelReason = req.Reason

	updated, err := s.stateMachine.Transition(ctx, booking, domain.BookingStatusCancelled, req.Actor)
	if err != nil {
		return nil, err
	}

	if s.poller != nil {
		s.poller.StopPolling(req.BookingID)
	}
	if s.notification != nil {
		_ = s.notification.NotifyBookingCancelled(ctx, updated, req.CancelledBy)
	}
	return updated, nil
}

// RejectBooking records a driver explicitly declining a booking. Only valid
// before a driver has been assigned.
func (s *BookingService) RejectBooking(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	booking.CancelledBy = driverID
	updated, err := s.stateMachine.Transition(ctx, booking, domain.BookingStatusRejected, Actor{Role: ActorDriver, ID: driverID})
	if err != nil {
		return nil, err
	}

	if s.poller != nil {
		s.poller.StopPolling(bookingID)
	}
	return updated, nil
}

// MarkArrival records the assigned driver arriving at the pickup point.
func (s *BookingService) MarkArrival(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	booking, err := s.bookingForDriver(ctx, bookingID, driverID)
	if err != nil {
		return nil, err
	}

	updated, err := s.stateMachine.Transition(ctx, booking, domain.BookingStatusAtPickup, Actor{Role: ActorDriver, ID: driverID})
	if err != nil {
		return nil, err
	}

	if s.notification != nil {
		_ = s.notification.NotifyDriverArrived(ctx, updated)
	}
	return updated, nil
}

// StartTrip begins the trip. A non-empty verification code must match the
// one issued to the passenger at booking time.
func (s *BookingService) StartTrip(ctx context.Context, bookingID, driverID, verificationCode string) (*domain.Booking, error) {
	booking, err := s.bookingForDriver(ctx, bookingID, driverID)
	if err != nil {
		return nil, err
	}

	if verificationCode != "" && verificationCode != booking.VerificationCode {
		return nil, fmt.Errorf("verification code mismatch for booking %s", bookingID)
	}

	return s.stateMachine.Transition(ctx, booking, domain.BookingStatusInProgress, Actor{Role: ActorDriver, ID: driverID})
}

// CompleteTrip finishes the trip. The recorded fare defaults to the
// estimate when the driver does not report an adjusted amount.
func (s *BookingService) CompleteTrip(ctx context.Context, bookingID, driverID string, actualFare float64) (*domain.Booking, error) {
	booking, err := s.bookingForDriver(ctx, bookingID, driverID)
	if err != nil {
		return nil, err
	}

	if actualFare > 0 {
		booking.ActualFare = actualFare
	} else {
		booking.ActualFare = booking.EstimatedFare
	}

	updated, err := s.stateMachine.Transition(ctx, booking, domain.BookingStatusCompleted, Actor{Role: ActorDriver, ID: driverID})
	if err != nil {
		return nil, err
	}

	if s.notification != nil {
		_ = s.notification.NotifyTripCompleted(ctx, updated)
	}
	return updated, nil
}

func (s *BookingService) bookingForDriver(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.AssignedDriverID != driverID {
		return nil, ErrDriverNotAssigned
	}
	return booking, nil
}

func (s *BookingService) validateCreateRequest(req CreateBookingRequest) error {
	if req.CustomerID == "" {
		return ErrInvalidCustomerID
	}
	if !isValidLatitude(req.Pickup.Lat) || !isValidLongitude(req.Pickup.Lng) {
		return ErrInvalidPickupLocation
	}
	if !isValidLatitude(req.Dropoff.Lat) || !isValidLongitude(req.Dropoff.Lng) {
		return ErrInvalidDropoffLocation
	}
	if haversineKm(req.Pickup, req.Dropoff) < minTripKm {
		return ErrTripTooShort
	}
	return nil
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

// newVerificationCode returns the 4-digit code the passenger shows the
// driver at pickup.
func newVerificationCode() string {
	return fmt.Sprintf("%04d", rand.Intn(10000))
}

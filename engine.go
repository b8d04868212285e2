// Package toda implements the booking lifecycle and driver-queue matching
// engine for a tricycle dispatch cooperative: bookings move through a
// validated state machine, pending bookings are matched against an ordered
// queue of available drivers, and per-booking pollers retry matching until
// a driver is found, the booking is cancelled, or the attempt budget runs
// out. It is a library consumed by the UI layer; it has no network surface
// of its own.
package toda

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	goredis "github.com/redis/go-redis/v9"

	"toda/internal/app"
	"toda/internal/config"
	"toda/internal/domain"
	"toda/internal/redis"
	"toda/internal/repository/postgres"
	"toda/internal/service"
)

// Re-exported types so consumers do not import internal packages.
type (
	Config = config.Config

	Booking         = domain.Booking
	BookingStatus   = domain.BookingStatus
	QueueEntry      = domain.QueueEntry
	QueueSource     = domain.QueueSource
	LatLng          = domain.LatLng
	DiscountProfile = domain.DiscountProfile
	DiscountType    = domain.DiscountType
	FareBreakdown   = domain.FareBreakdown

	Driver   = domain.Driver
	Customer = domain.Customer
	Receipt  = domain.Receipt

	CreateBookingRequest  = service.CreateBookingRequest
	CreateBookingResponse = service.CreateBookingResponse
	CancelBookingRequest  = service.CancelBookingRequest
	RegisterDriverRequest = service.RegisterDriverRequest
	UpdateLocationRequest = service.UpdateLocationRequest
	Actor                 = service.Actor
	Profile               = service.Profile
	ProfileService        = service.ProfileService
)

// Booking statuses.
const (
	StatusPending    = domain.BookingStatusPending
	StatusAccepted   = domain.BookingStatusAccepted
	StatusAtPickup   = domain.BookingStatusAtPickup
	StatusInProgress = domain.BookingStatusInProgress
	StatusCompleted  = domain.BookingStatusCompleted
	StatusCancelled  = domain.BookingStatusCancelled
	StatusRejected   = domain.BookingStatusRejected
	StatusNoShow     = domain.BookingStatusNoShow
)

// Queue entry sources.
const (
	SourceMobile   = domain.QueueSourceMobile
	SourceHardware = domain.QueueSourceHardware
)

// LoadConfig loads engine configuration from environment variables.
func LoadConfig() *Config {
	return config.Load()
}

// Engine wires the dispatch services over their Postgres and Redis stores.
type Engine struct {
	db          *sql.DB
	redisClient *goredis.Client
	nrApp       *newrelic.Application

	bookings *service.BookingService
	queue    *service.QueueService
	matching *service.MatchingService
	poller   *service.PollerService
	fares    *service.FareService
	drivers  *service.DriverService
	receipts *service.ReceiptService
}

// New connects to the booking and queue stores and wires the engine.
// profiles is the external identity/profile backend; pass nil to serve
// profiles from the local customers table instead.
func New(ctx context.Context, cfg *Config, profiles ProfileService) (*Engine, error) {
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
			nrApp = nil
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	queueStore := redis.NewQueueStore(redisClient)
	lockStore := redis.NewLockStore(redisClient)
	locationStore := redis.NewLocationStore(redisClient)
	cacheStore := redis.NewCacheStore(redisClient)
	bookingRepo := postgres.NewBookingRepository(db)
	ratingRepo := postgres.NewRatingRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)

	if profiles == nil {
		profiles = service.NewCustomerProfileService(customerRepo)
	}

	stateMachine := service.NewStateMachine(bookingRepo, ratingRepo)
	notification := service.NewNotificationService()
	alerter := service.NewNewRelicAlerter(nrApp)
	fares := service.NewFareService(cfg.Fare)
	matching := service.NewMatchingService(bookingRepo, queueStore, stateMachine, lockStore, locationStore, fares, notification, alerter)
	poller := service.NewPollerService(bookingRepo, matching, cfg.Dispatch)
	bookings := service.NewBookingService(bookingRepo, stateMachine, fares, matching, poller, notification, profiles, cfg.Dispatch)
	queue := service.NewQueueService(queueStore, driverRepo)
	drivers := service.NewDriverService(driverRepo, locationStore, cacheStore, queueStore)
	receipts := service.NewReceiptService(bookingRepo)

	return &Engine{
		db:          db,
		redisClient: redisClient,
		nrApp:       nrApp,
		bookings:    bookings,
		queue:       queue,
		matching:    matching,
		poller:      poller,
		fares:       fares,
		drivers:     drivers,
		receipts:    receipts,
	}, nil
}

// Close releases the engine's store connections.
func (e *Engine) Close() error {
	if e.redisClient != nil {
		_ = e.redisClient.Close()
	}
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// CreateBooking creates a PENDING booking, attempts an immediate match, and
// starts polling when no driver is available yet.
func (e *Engine) CreateBooking(ctx context.Context, req CreateBookingRequest) (*CreateBookingResponse, error) {
	return e.bookings.CreateBooking(ctx, req)
}

// GetBooking returns the current booking state, applying the lazy no-show
// check.
func (e *Engine) GetBooking(ctx context.Context, bookingID string) (*Booking, error) {
	return e.bookings.GetBooking(ctx, bookingID)
}

// ListBookings returns recent bookings for the dispatcher view.
func (e *Engine) ListBookings(ctx context.Context) ([]*Booking, error) {
	return e.bookings.ListBookings(ctx)
}

// CancelBooking cancels a booking before the trip starts.
func (e *Engine) CancelBooking(ctx context.Context, req CancelBookingRequest) (*Booking, error) {
	return e.bookings.CancelBooking(ctx, req)
}

// RejectBooking records a driver declining a booking pre-assignment.
func (e *Engine) RejectBooking(ctx context.Context, bookingID, driverID string) (*Booking, error) {
	return e.bookings.RejectBooking(ctx, bookingID, driverID)
}

// MarkArrival records the assigned driver arriving at the pickup point.
func (e *Engine) MarkArrival(ctx context.Context, bookingID, driverID string) (*Booking, error) {
	return e.bookings.MarkArrival(ctx, bookingID, driverID)
}

// StartTrip begins the trip, optionally checking the verification code.
func (e *Engine) StartTrip(ctx context.Context, bookingID, driverID, verificationCode string) (*Booking, error) {
	return e.bookings.StartTrip(ctx, bookingID, driverID, verificationCode)
}

// CompleteTrip finishes the trip and records the fare.
func (e *Engine) CompleteTrip(ctx context.Context, bookingID, driverID string, actualFare float64) (*Booking, error) {
	return e.bookings.CompleteTrip(ctx, bookingID, driverID, actualFare)
}

// TryMatch runs a single matching attempt for a booking.
func (e *Engine) TryMatch(ctx context.Context, bookingID string) (bool, error) {
	return e.matching.TryMatchFirstAvailable(ctx, bookingID)
}

// StartPolling starts the background matching loop for a booking
// (idempotent).
func (e *Engine) StartPolling(bookingID string) {
	e.poller.StartPolling(bookingID)
}

// StopPolling cancels the background matching loop for a booking (safe to
// call at any time).
func (e *Engine) StopPolling(bookingID string) {
	e.poller.StopPolling(bookingID)
}

// JoinQueue adds a driver to the back of the availability queue.
func (e *Engine) JoinQueue(ctx context.Context, entry *QueueEntry) error {
	return e.queue.JoinQueue(ctx, entry)
}

// LeaveQueue removes a driver from the availability queue.
func (e *Engine) LeaveQueue(ctx context.Context, driverID string) (bool, error) {
	return e.queue.LeaveQueue(ctx, driverID)
}

// QueueSnapshot returns the current queue in FIFO order.
func (e *Engine) QueueSnapshot(ctx context.Context) ([]*QueueEntry, error) {
	return e.queue.Snapshot(ctx)
}

// WatchQueue streams ordered queue snapshots for the dispatcher view: the
// current line-up immediately, then a fresh snapshot whenever it changes.
// The channel closes when ctx is cancelled.
func (e *Engine) WatchQueue(ctx context.Context, interval time.Duration) <-chan []*QueueEntry {
	return e.queue.Watch(ctx, interval)
}

// JoinQueueByTricycle enqueues the driver registered to a tricycle; used by
// the terminal at the stand.
func (e *Engine) JoinQueueByTricycle(ctx context.Context, tricycleID string) (*QueueEntry, error) {
	return e.queue.JoinQueueByTricycle(ctx, tricycleID)
}

// ComputeFare computes a fare breakdown from the configured tariff.
func (e *Engine) ComputeFare(pickup, dropoff, driverLoc LatLng, discount DiscountProfile) FareBreakdown {
	return e.fares.ComputeFare(pickup, dropoff, driverLoc, discount)
}

// RegisterDriver adds a driver to the registry.
func (e *Engine) RegisterDriver(ctx context.Context, req RegisterDriverRequest) (*Driver, error) {
	return e.drivers.RegisterDriver(ctx, req)
}

// GetDriver retrieves a driver record.
func (e *Engine) GetDriver(ctx context.Context, driverID string) (*Driver, error) {
	return e.drivers.GetDriver(ctx, driverID)
}

// UpdateDriverLocation records a driver position report.
func (e *Engine) UpdateDriverLocation(ctx context.Context, req UpdateLocationRequest) error {
	return e.drivers.UpdateLocation(ctx, req)
}

// SetDriverOffline takes a driver off shift and out of the queue.
func (e *Engine) SetDriverOffline(ctx context.Context, driverID string) error {
	return e.drivers.SetDriverOffline(ctx, driverID)
}

// GetReceipt builds the receipt for a completed booking.
func (e *Engine) GetReceipt(ctx context.Context, bookingID string) (*Receipt, error) {
	return e.receipts.GenerateReceipt(ctx, bookingID)
}

// FormatReceipt renders a receipt as plain text.
func (e *Engine) FormatReceipt(receipt *Receipt) string {
	return e.receipts.FormatReceipt(receipt)
}

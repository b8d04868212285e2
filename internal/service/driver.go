package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"toda/internal/domain"
	"toda/internal/redis"
	"toda/internal/repository"
)

// DriverService handles the driver registry and presence: registration,
// location reports, and going on or off shift.
type DriverService struct {
	driverRepo    repository.DriverRepository
	locationStore redis.LocationStoreInterface
	cacheStore    *redis.CacheStore
	queueStore    redis.QueueStoreInterface
}

// NewDriverService creates a new DriverService. cacheStore and queueStore
// are optional.
func NewDriverService(
	driverRepo repository.DriverRepository,
	locationStore redis.LocationStoreInterface,
	cacheStore *redis.CacheStore,
	queueStore redis.QueueStoreInterface,
) *DriverService {
	return &DriverService{
		driverRepo:    driverRepo,
		locationStore: locationStore,
		cacheStore:    cacheStore,
		queueStore:    queueStore,
	}
}

// RegisterDriverRequest contains the parameters for registering a driver.
type RegisterDriverRequest struct {
	Name        string
	Phone       string
	TricycleID  string
	PlateNumber string
}

// RegisterDriver adds a new driver to the registry, starting OFFLINE.
func (s *DriverService) RegisterDriver(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	if req.Name == "" {
		return nil, ErrInvalidDriverID
	}

	driver := &domain.Driver{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Phone:       req.Phone,
		TricycleID:  req.TricycleID,
		PlateNumber: req.PlateNumber,
		Status:      domain.DriverStatusOffline,
		CreatedAt:   time.Now(),
	}

	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// GetDriver retrieves a driver record, cache-aside.
func (s *DriverService) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetDriver(ctx, driverID)
		if err == nil && cached != nil {
			return &domain.Driver{
				ID:          cached.ID,
				Name:        cached.Name,
				Phone:       cached.Phone,
				TricycleID:  cached.TricycleID,
				PlateNumber: cached.PlateNumber,
				Status:      domain.DriverStatus(cached.Status),
			}, nil
		}
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetDriver(ctx, cachedDriver(driver))
	}
	return driver, nil
}

// UpdateLocationRequest contains the parameters for updating driver location.
type UpdateLocationRequest struct {
	DriverID string
	Lat      float64
	Lng      float64
}

// UpdateLocation records a driver's position and marks them ONLINE. The
// position feeds the pickup surcharge settled at assignment time.
func (s *DriverService) UpdateLocation(ctx context.Context, req UpdateLocationRequest) error {
	if req.DriverID == "" {
		return ErrInvalidDriverID
	}
	if !isValidLatitude(req.Lat) || !isValidLongitude(req.Lng) {
		return ErrInvalidLocation
	}

	if err := s.locationStore.UpdateLocation(ctx, req.DriverID, req.Lat, req.Lng); err != nil {
		return err
	}

	err := s.driverRepo.UpdateStatus(ctx, req.DriverID, domain.DriverStatusOnline)
	if err != nil && err != repository.ErrNotFound {
		return err
	}

	if s.cacheStore != nil {
		if driver, err := s.driverRepo.GetByID(ctx, req.DriverID); err == nil {
			_ = s.cacheStore.SetDriver(ctx, cachedDriver(driver))
		}
	}
	return nil
}

// SetDriverOffline takes a driver off shift: status OFFLINE, out of the
// availability queue, location dropped.
func (s *DriverService) SetDriverOffline(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}

	if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusOffline); err != nil {
		return err
	}

	if s.queueStore != nil {
		_, _ = s.queueStore.Remove(ctx, driverID)
	}

	if err := s.locationStore.RemoveLocation(ctx, driverID); err != nil {
		return err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateDriver(ctx, driverID)
	}
	return nil
}

func cachedDriver(driver *domain.Driver) *redis.CachedDriver {
	return &redis.CachedDriver{
		ID:          driver.ID,
		Name:        driver.Name,
		Phone:       driver.Phone,
		TricycleID:  driver.TricycleID,
		PlateNumber: driver.PlateNumber,
		Status:      string(driver.Status),
	}
}

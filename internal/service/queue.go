package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"toda/internal/domain"
	"toda/internal/redis"
	"toda/internal/repository"
)

// QueueService handles the driver-side queue operations: signaling
// availability (from the mobile app or the RFID terminal at the stand),
// leaving the queue, and reading the current line-up.
type QueueService struct {
	queueStore redis.QueueStoreInterface
	driverRepo repository.DriverRepository
}

// NewQueueService creates a new QueueService. driverRepo is optional; when
// present, queue entries are filled in from the driver registry.
func NewQueueService(queueStore redis.QueueStoreInterface, driverRepo repository.DriverRepository) *QueueService {
	return &QueueService{queueStore: queueStore, driverRepo: driverRepo}
}

// JoinQueue appends a driver to the back of the availability queue. A
// driver already queued is rejected with repository.ErrDuplicateEntry.
func (s *QueueService) JoinQueue(ctx context.Context, entry *domain.QueueEntry) error {
	if entry.DriverID == "" {
		return ErrInvalidDriverID
	}
	if entry.Source == "" {
		entry.Source = domain.QueueSourceMobile
	}
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now()
	}

	if err := s.hydrateEntry(ctx, entry); err != nil {
		return err
	}

	return s.queueStore.Append(ctx, entry)
}

// JoinQueueByTricycle enqueues the driver registered to the given tricycle.
// This is the path the terminal at the stand takes: the unit is what it
// knows, not the driver.
func (s *QueueService) JoinQueueByTricycle(ctx context.Context, tricycleID string) (*domain.QueueEntry, error) {
	if s.driverRepo == nil {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByTricycle(ctx, tricycleID)
	if err != nil {
		return nil, err
	}

	entry := &domain.QueueEntry{
		DriverID:   driver.ID,
		DriverName: driver.Name,
		TricycleID: driver.TricycleID,
		Source:     domain.QueueSourceHardware,
		EnqueuedAt: time.Now(),
	}
	if err := s.queueStore.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// LeaveQueue removes a driver from the queue. Returns false when the driver
// was not queued, which is not an error.
func (s *QueueService) LeaveQueue(ctx context.Context, driverID string) (bool, error) {
	if driverID == "" {
		return false, ErrInvalidDriverID
	}
	return s.queueStore.Remove(ctx, driverID)
}

// InQueue reports whether a driver is currently queued.
func (s *QueueService) InQueue(ctx context.Context, driverID string) (bool, error) {
	if driverID == "" {
		return false, ErrInvalidDriverID
	}
	return s.queueStore.Contains(ctx, driverID)
}

// Snapshot returns the current queue in FIFO order with positions filled in.
func (s *QueueService) Snapshot(ctx context.Context) ([]*domain.QueueEntry, error) {
	return s.queueStore.List(ctx)
}

// Watch streams the queue in FIFO order: the current line-up immediately,
// then a fresh snapshot whenever membership or order changes. Snapshots are
// taken by polling the queue store at the given interval. The channel closes
// when ctx is cancelled.
func (s *QueueService) Watch(ctx context.Context, interval time.Duration) <-chan []*domain.QueueEntry {
	if interval <= 0 {
		interval = time.Second
	}

	updates := make(chan []*domain.QueueEntry, 1)
	go func() {
		defer close(updates)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Sentinel distinct from the empty queue's signature, so the first
		// snapshot is always delivered.
		last := "\x00"
		for {
			entries, err := s.queueStore.List(ctx)
			if err == nil {
				if sig := queueSignature(entries); sig != last {
					last = sig
					select {
					case updates <- entries:
					case <-ctx.Done():
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return updates
}

// queueSignature collapses a snapshot into its ordered membership; Watch
// emits only when the line-up actually changed.
func queueSignature(entries []*domain.QueueEntry) string {
	ids := make([]string, len(entries))
	for i, entry := range entries {
		ids[i] = entry.DriverID
	}
	return strings.Join(ids, ",")
}

// hydrateEntry fills name and tricycle from the registry when the caller
// only sent the driver ID. An unregistered driver may still queue; the
// mobile app sends the fields itself.
func (s *QueueService) hydrateEntry(ctx context.Context, entry *domain.QueueEntry) error {
	if s.driverRepo == nil || (entry.DriverName != "" && entry.TricycleID != "") {
		return nil
	}

	driver, err := s.driverRepo.GetByID(ctx, entry.DriverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	if entry.DriverName == "" {
		entry.DriverName = driver.Name
	}
	if entry.TricycleID == "" {
		entry.TricycleID = driver.TricycleID
	}
	return nil
}

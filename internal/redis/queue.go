package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"toda/internal/domain"
	"toda/internal/repository"
)

const (
	queueKey         = "queue:drivers"
	queueEntryPrefix = "queue:entry:"
)

// QueueStore is the Redis-backed driver availability queue.
//
// Ordering lives in a sorted set scored by enqueue time in nanoseconds, so
// FIFO order falls out of ZRANGE and ties are broken by insertion. Entry
// metadata is a JSON blob per driver. ZREM's removed-count is the
// compare-and-remove arbiter: of all concurrent claimants for the same
// driver, exactly one sees a non-zero count.
type QueueStore struct {
	client *redis.Client
}

// NewQueueStore creates a new QueueStore.
func NewQueueStore(client *redis.Client) *QueueStore {
	return &QueueStore{client: client}
}

type queueEntryRecord struct {
	DriverID   string    `json:"driver_id"`
	DriverName string    `json:"driver_name"`
	TricycleID string    `json:"tricycle_id"`
	Source     string    `json:"source"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// PeekFirst returns the head of the queue, or nil if the queue is empty.
func (s *QueueStore) PeekFirst(ctx context.Context) (*domain.QueueEntry, error) {
	members, err := s.client.ZRangeWithScores(ctx, queueKey, 0, 0).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	driverID, _ := members[0].Member.(string)
	return s.loadEntry(ctx, driverID, members[0].Score)
}

// Remove removes a driver from the queue. Removing an absent driver returns
// false, not an error.
func (s *QueueStore) Remove(ctx context.Context, driverID string) (bool, error) {
	removed, err := s.client.ZRem(ctx, queueKey, driverID).Result()
	if err != nil {
		return false, err
	}
	if removed == 0 {
		return false, nil
	}

	// Metadata cleanup is best effort; the sorted set is authoritative.
	_ = s.client.Del(ctx, queueEntryPrefix+driverID).Err()
	return true, nil
}

// Append adds a driver to the back of the queue. A driver already queued is
// rejected with repository.ErrDuplicateEntry.
func (s *QueueStore) Append(ctx context.Context, entry *domain.QueueEntry) error {
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now()
	}

	if err := s.storeEntry(ctx, entry); err != nil {
		return err
	}

	added, err := s.client.ZAddNX(ctx, queueKey, redis.Z{
		Score:  float64(entry.EnqueuedAt.UnixNano()),
		Member: entry.DriverID,
	}).Result()
	if err != nil {
		return err
	}
	if added == 0 {
		return repository.ErrDuplicateEntry
	}
	return nil
}

// PushFront returns a claimed driver to the front of the queue. The entry is
// re-scored just below the current minimum so FIFO fairness is preserved for
// a driver whose claim was rolled back.
func (s *QueueStore) PushFront(ctx context.Context, entry *domain.QueueEntry) error {
	if err := s.storeEntry(ctx, entry); err != nil {
		return err
	}

	score := float64(time.Now().UnixNano())
	members, err := s.client.ZRangeWithScores(ctx, queueKey, 0, 0).Result()
	if err != nil {
		return err
	}
	if len(members) > 0 {
		score = members[0].Score - 1
	}

	return s.client.ZAdd(ctx, queueKey, redis.Z{Score: score, Member: entry.DriverID}).Err()
}

// Contains reports whether a driver is currently queued.
func (s *QueueStore) Contains(ctx context.Context, driverID string) (bool, error) {
	err := s.client.ZScore(ctx, queueKey, driverID).Err()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns the current queue in FIFO order with derived positions.
func (s *QueueStore) List(ctx context.Context) ([]*domain.QueueEntry, error) {
	members, err := s.client.ZRangeWithScores(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.QueueEntry, 0, len(members))
	for i, member := range members {
		driverID, _ := member.Member.(string)
		entry, err := s.loadEntry(ctx, driverID, member.Score)
		if err != nil {
			return nil, err
		}
		entry.Position = i + 1
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *QueueStore) storeEntry(ctx context.Context, entry *domain.QueueEntry) error {
	data, err := json.Marshal(queueEntryRecord{
		DriverID:   entry.DriverID,
		DriverName: entry.DriverName,
		TricycleID: entry.TricycleID,
		Source:     string(entry.Source),
		EnqueuedAt: entry.EnqueuedAt,
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, queueEntryPrefix+entry.DriverID, data, 0).Err()
}

func (s *QueueStore) loadEntry(ctx context.Context, driverID string, score float64) (*domain.QueueEntry, error) {
	entry := &domain.QueueEntry{
		DriverID:   driverID,
		EnqueuedAt: time.Unix(0, int64(score)),
	}

	data, err := s.client.Get(ctx, queueEntryPrefix+driverID).Bytes()
	if err != nil {
		if err == redis.Nil {
			// Metadata expired or never written; the queue membership alone
			// is enough to dispatch.
			return entry, nil
		}
		return nil, err
	}

	var rec queueEntryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}

	entry.DriverName = rec.DriverName
	entry.TricycleID = rec.TricycleID
	entry.Source = domain.QueueSource(rec.Source)
	if !rec.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = rec.EnqueuedAt
	}
	return entry, nil
}

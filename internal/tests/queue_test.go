package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"toda/internal/domain"
	"toda/internal/repository"
	"toda/internal/service"
)

func registeredDriver(id, tricycle string) *domain.Driver {
	return &domain.Driver{
		ID:         id,
		Name:       "Driver " + id,
		Phone:      "+63917000" + id,
		TricycleID: tricycle,
		Status:     domain.DriverStatusOffline,
		CreatedAt:  time.Now(),
	}
}

func TestJoinQueue_Defaults(t *testing.T) {
	ctx := context.Background()
	queue := NewMockQueueStore()
	svc := service.NewQueueService(queue, nil)

	entry := &domain.QueueEntry{DriverID: "d-1", DriverName: "Ben", TricycleID: "T-7"}
	if err := svc.JoinQueue(ctx, entry); err != nil {
		t.Fatalf("join: %v", err)
	}

	if entry.Source != domain.QueueSourceMobile {
		t.Errorf("source = %s, want MOBILE default", entry.Source)
	}
	if entry.EnqueuedAt.IsZero() {
		t.Error("enqueue time must be stamped")
	}
}

func TestJoinQueue_DuplicateRejected(t *testing.T) {
	ctx := context.Background()
	queue := NewMockQueueStore()
	svc := service.NewQueueService(queue, nil)

	if err := svc.JoinQueue(ctx, &domain.QueueEntry{DriverID: "d-1"}); err != nil {
		t.Fatalf("first join: %v", err)
	}
	err := svc.JoinQueue(ctx, &domain.QueueEntry{DriverID: "d-1"})
	if !errors.Is(err, repository.ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}
	if queue.Len() != 1 {
		t.Errorf("queue length = %d, want 1", queue.Len())
	}
}

func TestJoinQueue_HydratesFromRegistry(t *testing.T) {
	ctx := context.Background()
	queue := NewMockQueueStore()
	drivers := NewMockDriverRepository()
	drivers.AddDriver(registeredDriver("d-1", "T-7"))
	svc := service.NewQueueService(queue, drivers)

	entry := &domain.QueueEntry{DriverID: "d-1"}
	if err := svc.JoinQueue(ctx, entry); err != nil {
		t.Fatalf("join: %v", err)
	}

	if entry.DriverName != "Driver d-1" {
		t.Errorf("name = %q, want registry name", entry.DriverName)
	}
	if entry.TricycleID != "T-7" {
		t.Errorf("tricycle = %q, want T-7", entry.TricycleID)
	}
}

func TestJoinQueueByTricycle(t *testing.T) {
	ctx := context.Background()
	queue := NewMockQueueStore()
	drivers := NewMockDriverRepository()
	drivers.AddDriver(registeredDriver("d-1", "T-7"))
	svc := service.NewQueueService(queue, drivers)

	entry, err := svc.JoinQueueByTricycle(ctx, "T-7")
	if err != nil {
		t.Fatalf("join by tricycle: %v", err)
	}
	if entry.DriverID != "d-1" {
		t.Errorf("driver = %s, want d-1", entry.DriverID)
	}
	if entry.Source != domain.QueueSourceHardware {
		t.Errorf("source = %s, want HARDWARE", entry.Source)
	}

	if _, err := svc.JoinQueueByTricycle(ctx, "T-unknown"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown tricycle: expected ErrNotFound, got %v", err)
	}
}

func TestLeaveQueue(t *testing.T) {
	ctx := context.Background()
	queue := NewMockQueueStore()
	svc := service.NewQueueService(queue, nil)

	_ = svc.JoinQueue(ctx, &domain.QueueEntry{DriverID: "d-1"})

	removed, err := svc.LeaveQueue(ctx, "d-1")
	if err != nil || !removed {
		t.Fatalf("leave: removed=%v err=%v", removed, err)
	}

	// Leaving again is a quiet no-op.
	removed, err = svc.LeaveQueue(ctx, "d-1")
	if err != nil {
		t.Fatalf("second leave: %v", err)
	}
	if removed {
		t.Error("driver was no longer queued; removed must be false")
	}
}

func TestSnapshot_PositionsAreFIFO(t *testing.T) {
	ctx := context.Background()
	queue := NewMockQueueStore()
	svc := service.NewQueueService(queue, nil)

	for _, id := range []string{"d-1", "d-2", "d-3"} {
		if err := svc.JoinQueue(ctx, &domain.QueueEntry{DriverID: id}); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}

	snapshot, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snapshot) != 3 {
		t.Fatalf("snapshot length = %d, want 3", len(snapshot))
	}
	for i, want := range []string{"d-1", "d-2", "d-3"} {
		if snapshot[i].DriverID != want {
			t.Errorf("position %d = %s, want %s", i+1, snapshot[i].DriverID, want)
		}
		if snapshot[i].Position != i+1 {
			t.Errorf("entry %s position = %d, want %d", snapshot[i].DriverID, snapshot[i].Position, i+1)
		}
	}
}

func waitSnapshot(t *testing.T, updates <-chan []*domain.QueueEntry) []*domain.QueueEntry {
	t.Helper()
	select {
	case snapshot, ok := <-updates:
		if !ok {
			t.Fatal("watch channel closed early")
		}
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a queue snapshot")
	}
	return nil
}

func TestWatch_EmitsOnChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue := NewMockQueueStore()
	svc := service.NewQueueService(queue, nil)

	updates := svc.Watch(ctx, 5*time.Millisecond)

	if snapshot := waitSnapshot(t, updates); len(snapshot) != 0 {
		t.Fatalf("initial snapshot length = %d, want 0", len(snapshot))
	}

	if err := svc.JoinQueue(ctx, &domain.QueueEntry{DriverID: "d-1"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	snapshot := waitSnapshot(t, updates)
	if len(snapshot) != 1 || snapshot[0].DriverID != "d-1" {
		t.Fatalf("snapshot after join = %+v, want [d-1]", snapshot)
	}

	if _, err := svc.LeaveQueue(ctx, "d-1"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if snapshot := waitSnapshot(t, updates); len(snapshot) != 0 {
		t.Fatalf("snapshot after leave = %d entries, want 0", len(snapshot))
	}
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := service.NewQueueService(NewMockQueueStore(), nil)

	updates := svc.Watch(ctx, 5*time.Millisecond)
	waitSnapshot(t, updates)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("watch channel must close on cancel")
		}
	}
}

func TestInQueue(t *testing.T) {
	ctx := context.Background()
	queue := NewMockQueueStore()
	svc := service.NewQueueService(queue, nil)

	_ = svc.JoinQueue(ctx, &domain.QueueEntry{DriverID: "d-1"})

	in, err := svc.InQueue(ctx, "d-1")
	if err != nil || !in {
		t.Errorf("d-1 should be queued: in=%v err=%v", in, err)
	}
	in, err = svc.InQueue(ctx, "d-2")
	if err != nil || in {
		t.Errorf("d-2 should not be queued: in=%v err=%v", in, err)
	}
}

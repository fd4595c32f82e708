package queue

import (
	"context"
	"testing"
	"time"

	"github.com/NelliaS/junior.guru/internal/club"
)

func TestQueuePutTake(t *testing.T) {
	t.Parallel()

	q := New()
	q.Put(club.ChannelRef{ID: "1"})
	q.Put(club.ChannelRef{ID: "2"})

	first, err := q.Take(context.Background())
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	second, err := q.Take(context.Background())
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if first.ID != "1" || second.ID != "2" {
		t.Fatalf("expected FIFO order, got %q then %q", first.ID, second.ID)
	}
}

func TestQueueTakeBlocksUntilPut(t *testing.T) {
	t.Parallel()

	q := New()
	result := make(chan club.ChannelRef, 1)
	errCh := make(chan error, 1)

	go func() {
		item, err := q.Take(context.Background())
		if err != nil {
			errCh <- err
			return
		}
		result <- item
	}()

	time.Sleep(10 * time.Millisecond) // allow goroutine to start
	q.Put(club.ChannelRef{ID: "late"})

	select {
	case err := <-errCh:
		t.Fatalf("Take() error = %v", err)
	case got := <-result:
		if got.ID != "late" {
			t.Fatalf("expected late, got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("take did not return item")
	}
}

func TestQueueTakeCancelation(t *testing.T) {
	t.Parallel()

	q := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Take(ctx); err == nil ||
		err.Error() != "take canceled: context canceled" {
		t.Fatalf("expected take cancel error, got %v", err)
	}
}

func TestQueueJoinWaitsForAllTasks(t *testing.T) {
	t.Parallel()

	q := New()
	q.Put(club.ChannelRef{ID: "a"})
	q.Put(club.ChannelRef{ID: "b"})

	joined := make(chan error, 1)
	go func() { joined <- q.Join(context.Background()) }()

	if _, err := q.Take(context.Background()); err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	q.TaskDone()

	select {
	case <-joined:
		t.Fatal("join returned while a task was still pending")
	case <-time.After(50 * time.Millisecond):
	}

	if _, err := q.Take(context.Background()); err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	q.TaskDone()

	select {
	case err := <-joined:
		if err != nil {
			t.Fatalf("Join() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("join did not return after all tasks were done")
	}
}

func TestQueueJoinCountsLateDiscoveries(t *testing.T) {
	t.Parallel()

	q := New()
	q.Put(club.ChannelRef{ID: "parent"})

	joined := make(chan error, 1)
	go func() { joined <- q.Join(context.Background()) }()

	parent, err := q.Take(context.Background())
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}

	// A thread discovered mid-read is enqueued before the parent is marked
	// done; the queue must stay undrained until the thread finishes too.
	q.Put(club.ChannelRef{ID: "thread", ParentID: parent.ID})
	q.TaskDone()

	select {
	case <-joined:
		t.Fatal("join returned before the discovered thread was processed")
	case <-time.After(50 * time.Millisecond):
	}

	if _, err := q.Take(context.Background()); err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	q.TaskDone()

	select {
	case err := <-joined:
		if err != nil {
			t.Fatalf("Join() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("join did not return after the thread was done")
	}
}

func TestQueueJoinOnIdleQueue(t *testing.T) {
	t.Parallel()

	q := New()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Join(ctx); err != nil {
		t.Fatalf("Join() on idle queue error = %v", err)
	}
}

func TestQueueJoinCancelation(t *testing.T) {
	t.Parallel()

	q := New()
	q.Put(club.ChannelRef{ID: "never-done"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Join(ctx); err == nil ||
		err.Error() != "join canceled: context canceled" {
		t.Fatalf("expected join cancel error, got %v", err)
	}
}

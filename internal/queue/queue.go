// Package queue provides the self-feeding channel work queue.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/NelliaS/junior.guru/internal/club"
)

// Queue is a FIFO of pending channels that workers drain while also feeding
// it with threads they discover mid-read. Every Put raises the pending count
// and every TaskDone lowers it; Join unblocks only once the count hits zero,
// so a thread enqueued before its parent's TaskDone keeps the queue alive.
type Queue struct {
	mu      sync.Mutex
	items   []club.ChannelRef
	pending int
	wake    chan struct{}
	drained chan struct{}
	closed  bool
}

// New constructs an empty queue.
func New() *Queue {
	return &Queue{
		wake:    make(chan struct{}),
		drained: make(chan struct{}),
	}
}

// Put enqueues a channel without blocking and bumps the pending count.
func (q *Queue) Put(ch club.ChannelRef) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, ch)
	q.pending++
	close(q.wake)
	q.wake = make(chan struct{})
}

// Take blocks until an item is available or the context finishes.
func (q *Queue) Take(ctx context.Context) (club.ChannelRef, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, nil
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return club.ChannelRef{}, fmt.Errorf("take canceled: %w", ctx.Err())
		case <-wake:
		}
	}
}

// TaskDone marks one previously taken item as fully processed, including
// any threads it enqueued. It must be called exactly once per Take.
func (q *Queue) TaskDone() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending--
	if q.pending == 0 && !q.closed {
		q.closed = true
		close(q.drained)
	}
}

// Pending returns the number of items put but not yet marked done.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Join blocks until every enqueued item, including items enqueued while
// draining, has been marked done, or until the context finishes. A queue
// with no outstanding work is already drained.
func (q *Queue) Join(ctx context.Context) error {
	q.mu.Lock()
	if q.pending == 0 && !q.closed {
		q.closed = true
		close(q.drained)
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("join canceled: %w", ctx.Err())
	case <-q.drained:
		return nil
	}
}

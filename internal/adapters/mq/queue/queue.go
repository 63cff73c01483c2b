// Package queue holds serialized snapshot documents between the acquisition
// loop and the delivery workers.
//
// The queue is a bounded in-memory channel. Enqueue never blocks: when the
// queue is full the document is refused and the caller drops it.
package queue

import (
	"context"
	"sync"

	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/pkg/metrics"
)

const defaultCapacity = 64

// Delivery is the payload type flowing through the queue.
type Delivery = model.Delivery

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a delivery to the queue.
	// Returns an error wrapping ErrFull or ErrClosed if it was not enqueued.
	Enqueue(ctx context.Context, d Delivery) error

	// Dequeue returns a channel that receives deliveries as they become available.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Delivery

	// Len returns the current number of queued deliveries.
	Len() int

	// Cap returns the queue capacity.
	Cap() int

	// Close stops accepting deliveries.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan Delivery
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Delivery, q.capacity)
	metrics.UpdateQueue(0, q.capacity)
	return q
}

// Enqueue adds a delivery to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, d Delivery) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.items <- d:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueue(len(q.items), q.capacity)
		return nil
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that receives deliveries as they become available.
// Cancelling ctx closes the channel; a delivery already taken from the queue
// but not yet handed off is dropped and counted.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Delivery {
	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-q.items:
				if !ok {
					return
				}
				select {
				case out <- d:
					metrics.RecordQueueDequeue()
					metrics.UpdateQueue(len(q.items), q.capacity)
				case <-ctx.Done():
					metrics.RecordSnapshotDropped("shutdown")
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued deliveries.
func (q *InMemoryQueue) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close stops accepting deliveries. Queued deliveries remain readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

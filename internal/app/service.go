// Package service runs the station: the acquisition loop that turns tracked
// frames into snapshot documents, and the delivery service that ships them.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	deliveryqueue "github.com/okian/bodytrack/internal/adapters/mq/queue"
	workerpool "github.com/okian/bodytrack/internal/adapters/mq/worker"
	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

// Service accepts serialized documents from the acquisition loop and
// delivers them in the background.
type Service struct {
	mu sync.RWMutex

	transmitter workerpool.Transmitter
	queue       *deliveryqueue.InMemoryQueue
	pool        *workerpool.Pool

	workerCount      int
	queueSize        int
	maxSendsPerSec   float64
	queueFullDrops   int64
	queueClosedDrops int64

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of delivery workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of documents awaiting delivery.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxSendsPerSecond caps the delivery rate. Zero means unlimited.
func WithMaxSendsPerSecond(limit float64) Option {
	return func(s *Service) {
		if limit >= 0 {
			s.maxSendsPerSec = limit
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a delivery Service around transmitter.
func New(transmitter workerpool.Transmitter, opts ...Option) *Service {
	s := &Service{
		transmitter: transmitter,
		workerCount: 1,
		queueSize:   64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the queue and starts the delivery workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("delivery")
	}

	s.queue = deliveryqueue.NewInMemoryQueue(deliveryqueue.WithCapacity(s.queueSize))

	var wopts []workerpool.Option
	if s.maxSendsPerSec > 0 {
		wopts = append(wopts, workerpool.WithLimiter(rate.NewLimiter(rate.Limit(s.maxSendsPerSec), 1)))
	}
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.transmitter, wopts...)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "delivery service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Float64("maxSendsPerSec", s.maxSendsPerSec),
	)
	return nil
}

// Stop closes the queue and waits for the workers to deliver what is left,
// bounded by ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping delivery service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "delivery service stopped")
}

// Submit queues a document for delivery without blocking. A refused
// document is dropped and counted; the error says why.
func (s *Service) Submit(ctx context.Context, d model.Delivery) error { //nolint:gocritic // hugeParam: Delivery is passed by value into the queue
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}

	err := s.queue.Enqueue(ctx, d)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, deliveryqueue.ErrFull):
		s.queueFullDrops++
		metrics.RecordSnapshotDropped("queue_full")
	case errors.Is(err, deliveryqueue.ErrClosed):
		s.queueClosedDrops++
		metrics.RecordSnapshotDropped("queue_closed")
	default:
		metrics.RecordSnapshotDropped("cancelled")
	}
	return fmt.Errorf("submit: %w", err)
}

// GetStats returns delivery statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"maxSendsPerSec": s.maxSendsPerSec,
		"droppedFull":    s.queueFullDrops,
		"droppedClosed":  s.queueClosedDrops,
	}
	if s.pool != nil {
		stats["workers"] = s.pool.Size()
		stats["sent"] = s.pool.Counters().Sent()
		stats["failed"] = s.pool.Counters().Failed()
	}
	if s.queue != nil {
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		stats["queueClosed"] = s.queue.IsClosed()
		metrics.UpdateQueue(queueLen, s.queue.Cap())
	}
	return stats
}

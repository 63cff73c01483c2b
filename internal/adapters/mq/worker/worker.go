// Package worker drains the delivery queue and hands each document to the
// transmitter.
//
// Delivery is best effort: a failed send is logged and counted, and the
// document is dropped. Nothing is retried.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Delivery outcomes recorded in metrics.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// Transmitter sends one serialized document.
type Transmitter interface {
	Send(ctx context.Context, payload []byte) error
}

// Queue defines how workers receive deliveries.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Delivery
}

// Worker delivers queued documents.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// Counters tracks delivery results across workers.
type Counters struct {
	sent   atomic.Int64
	failed atomic.Int64
}

// Sent returns the number of documents accepted by the endpoint.
func (c *Counters) Sent() int64 { return c.sent.Load() }

// Failed returns the number of documents dropped after a failed send.
func (c *Counters) Failed() int64 { return c.failed.Load() }

// InMemoryWorker delivers documents from a Queue through a Transmitter.
type InMemoryWorker struct {
	queue       Queue
	transmitter Transmitter
	limiter     *rate.Limiter
	counters    *Counters
	name        string

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, transmitter Transmitter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       queue,
		transmitter: transmitter,
		counters:    &Counters{},
		name:        "worker",
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	// Stopping the worker also ends the dequeue feed.
	feedCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.shutdown:
			cancel()
		case <-feedCtx.Done():
		}
	}()

	ch := w.queue.Dequeue(feedCtx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case d, ok := <-ch:
			if !ok {
				return
			}
			if err := w.deliver(ctx, d); err != nil {
				w.logger.Warn(ctx, "delivery dropped",
					logger.Int64("timestamp", d.Timestamp),
					logger.Int("bodies", d.BodyCount),
					logger.Error(err),
				)
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown stops the worker and waits for Run to return.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

func (w *InMemoryWorker) deliver(ctx context.Context, d model.Delivery) error { //nolint:gocritic // hugeParam: Delivery is passed by value for channel semantics
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			metrics.RecordSnapshotDropped("rate_limited")
			w.counters.failed.Add(1)
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	metrics.RecordDeliveryAge(float64(start.Sub(d.EnqueuedAt).Milliseconds()))
	err := w.transmitter.Send(ctx, d.Payload)
	latency := float64(time.Since(start).Milliseconds())
	metrics.RecordWorkerProcessingLatency(latency)

	if err != nil {
		metrics.RecordDelivery(OutcomeFailed, latency)
		metrics.RecordSnapshotDropped("send_failed")
		metrics.RecordErrorByComponent("worker", "send_failed")
		w.counters.failed.Add(1)
		return err
	}

	metrics.RecordDelivery(OutcomeSent, latency)
	w.counters.sent.Add(1)
	w.logger.Debug(ctx, "document delivered",
		logger.Int64("timestamp", d.Timestamp),
		logger.Int("bodies", d.BodyCount),
	)
	return nil
}

// Pool manages the delivery workers.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	counters *Counters

	logger logger.Logger
}

// NewPool creates workerCount workers sharing queue and transmitter.
// A single worker preserves cycle order on the wire.
func NewPool(workerCount int, queue Queue, transmitter Transmitter, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}

	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		counters: &Counters{},
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{}, opts...)
		wopts = append(wopts, WithName("worker-"+strconv.Itoa(i)), withCounters(p.counters))
		p.workers[i] = NewInMemoryWorker(queue, transmitter, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Counters returns the pool-wide delivery counters.
func (p *Pool) Counters() *Counters {
	return p.counters
}

// Shutdown closes the queue, lets the workers drain what is left and waits
// for them. Workers still busy when ctx expires are told to stop and left
// to finish their current send.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			w.stop()
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}

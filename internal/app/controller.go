package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/bodytrack/internal/domain/document"
	"github.com/okian/bodytrack/internal/domain/extract"
	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/internal/domain/snapshot"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

const defaultThrottleInterval = time.Second

// FrameSource yields tracked body frames. It blocks until a frame is ready.
type FrameSource interface {
	Next(ctx context.Context) (model.BodyFrame, error)
}

// Sink accepts serialized documents for delivery.
type Sink interface {
	Submit(ctx context.Context, d model.Delivery) error
}

// Sleeper pauses between cycles. It returns early with ctx.Err() when ctx
// is cancelled.
type Sleeper func(ctx context.Context, d time.Duration) error

// ControllerOption applies a configuration option to the Controller.
type ControllerOption func(*Controller)

// WithThrottleInterval sets the pause after each cycle.
func WithThrottleInterval(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithClock sets the clock snapshots are stamped with.
func WithClock(clock snapshot.Clock) ControllerOption {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithSleeper replaces the throttle sleep.
func WithSleeper(sleep Sleeper) ControllerOption {
	return func(c *Controller) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithControllerLogger sets a custom logger for the controller.
func WithControllerLogger(l logger.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller runs the acquisition cycle: await a frame, extract each body,
// build a snapshot, hand non-empty snapshots to the sink, then throttle.
type Controller struct {
	source   FrameSource
	sink     Sink
	clock    snapshot.Clock
	interval time.Duration
	sleep    Sleeper
	logger   logger.Logger

	cycles        atomic.Int64
	skipped       atomic.Int64
	submitted     atomic.Int64
	gestures      atomic.Int64
	lastTimestamp atomic.Int64
}

// NewController wires a controller between a frame source and a sink.
func NewController(source FrameSource, sink Sink, opts ...ControllerOption) *Controller {
	c := &Controller{
		source:   source,
		sink:     sink,
		clock:    snapshot.SystemClock{},
		interval: defaultThrottleInterval,
		sleep:    sleepContext,
		logger:   logger.Get().Named("cycle"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run loops until the frame source fails or ctx is cancelled. A frame wait
// that times out or fails is fatal and returned wrapped in ErrAwaitFrame;
// cancellation returns nil.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info(ctx, "acquisition loop started", logger.Duration("throttle", c.interval))
	for {
		frame, err := c.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info(ctx, "acquisition loop stopped")
				return nil
			}
			c.logger.Error(ctx, "frame wait failed", logger.Error(err))
			return fmt.Errorf("%w: %w", ErrAwaitFrame, err)
		}

		c.Cycle(ctx, &frame)

		if err := c.sleep(ctx, c.interval); err != nil {
			c.logger.Info(ctx, "acquisition loop stopped")
			return nil
		}
	}
}

// Cycle processes one frame and returns the snapshot it built.
func (c *Controller) Cycle(ctx context.Context, frame *model.BodyFrame) model.Snapshot {
	results := extract.Frame(frame)
	for i := range results {
		if !results[i].HandsRaised {
			continue
		}
		p := results[i].Position
		c.gestures.Add(1)
		metrics.RecordGesture()
		c.logger.Info(ctx, "hands raised",
			logger.Uint32("body", p.ID),
			logger.Float64("x", float64(p.X)),
			logger.Float64("y", float64(p.Y)),
			logger.Float64("z", float64(p.Z)),
		)
	}

	b := snapshot.New(c.clock)
	for i := range results {
		b.Add(results[i].Position)
	}
	metrics.RecordCycle(b.Len())
	snap := b.Snapshot()

	c.cycles.Add(1)
	c.lastTimestamp.Store(snap.Timestamp)

	if snap.Empty() {
		c.skipped.Add(1)
		metrics.RecordSnapshotSkipped()
		return snap
	}

	payload := document.Encode(snap)
	d := model.Delivery{
		Payload:    payload,
		Timestamp:  snap.Timestamp,
		BodyCount:  len(snap.Bodies),
		EnqueuedAt: time.Now(),
	}
	if err := c.sink.Submit(ctx, d); err != nil {
		c.logger.Warn(ctx, "snapshot dropped",
			logger.Int64("timestamp", snap.Timestamp),
			logger.Int("bodies", len(snap.Bodies)),
			logger.Error(err),
		)
		return snap
	}
	c.submitted.Add(1)
	metrics.RecordSnapshotEnqueued(len(payload))
	return snap
}

// GetStats returns acquisition statistics, merged with the sink's own
// statistics when it reports any.
func (c *Controller) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"cycles":             c.cycles.Load(),
		"snapshotsSkipped":   c.skipped.Load(),
		"snapshotsQueued":    c.submitted.Load(),
		"gestures":           c.gestures.Load(),
		"lastTimestamp":      c.lastTimestamp.Load(),
		"throttleIntervalMs": c.interval.Milliseconds(),
	}
	if sp, ok := c.sink.(interface{ GetStats() map[string]interface{} }); ok {
		stats["delivery"] = sp.GetStats()
	}
	return stats
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/bodytrack/internal/adapters/sensor"
	service "github.com/okian/bodytrack/internal/app"
	"github.com/okian/bodytrack/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scriptedSource replays frames, then fails with err.
type scriptedSource struct {
	frames []model.BodyFrame
	err    error
	calls  int
}

func (s *scriptedSource) Next(context.Context) (model.BodyFrame, error) {
	s.calls++
	if len(s.frames) == 0 {
		return model.BodyFrame{}, s.err
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

type recordingSink struct {
	deliveries []model.Delivery
	err        error
}

func (s *recordingSink) Submit(_ context.Context, d model.Delivery) error {
	if s.err != nil {
		return s.err
	}
	s.deliveries = append(s.deliveries, d)
	return nil
}

func body(id uint32, pelvis model.Vec3, leftY, rightY float32) model.Body {
	b := model.Body{ID: id}
	b.Skeleton[model.JointPelvis] = pelvis
	b.Skeleton[model.JointHead] = model.Vec3{Y: 0}
	b.Skeleton[model.JointWristLeft] = model.Vec3{Y: leftY}
	b.Skeleton[model.JointWristRight] = model.Vec3{Y: rightY}
	return b
}

func noSleep(sleeps *[]time.Duration) service.Sleeper {
	return func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
}

func TestControllerCycle(t *testing.T) {
	Convey("Given a controller with a fixed clock", t, func() {
		clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
		sink := &recordingSink{}
		c := service.NewController(&scriptedSource{}, sink, service.WithClock(clock))
		ctx := context.Background()

		Convey("When a frame with two bodies is processed", func() {
			frame := model.BodyFrame{Bodies: []model.Body{
				body(3, model.Vec3{X: 0.1, Y: 0.2, Z: 0.3}, 1, 1),
				body(7, model.Vec3{X: -1, Y: 2, Z: 3}, -1, -1),
			}}
			snap := c.Cycle(ctx, &frame)

			Convey("Then the exact document should be handed to the sink", func() {
				So(len(sink.deliveries), ShouldEqual, 1)
				So(string(sink.deliveries[0].Payload), ShouldEqual,
					`{"timestamp": 1700000000, "bodies": [{"id":3,"x":0.1,"y":0.2,"z":0.3},{"id":7,"x":-1.0,"y":2.0,"z":3.0}]}`)
				So(sink.deliveries[0].Timestamp, ShouldEqual, int64(1_700_000_000))
				So(sink.deliveries[0].BodyCount, ShouldEqual, 2)
			})

			Convey("And the snapshot should keep extraction order", func() {
				So(snap.Bodies[0].ID, ShouldEqual, 3)
				So(snap.Bodies[1].ID, ShouldEqual, 7)
			})

			Convey("And the raised hands should be counted", func() {
				So(c.GetStats()["gestures"], ShouldEqual, int64(1))
			})
		})

		Convey("When a frame with no bodies is processed", func() {
			snap := c.Cycle(ctx, &model.BodyFrame{})

			Convey("Then nothing should be handed to the sink", func() {
				So(snap.Empty(), ShouldBeTrue)
				So(len(sink.deliveries), ShouldEqual, 0)
			})

			Convey("And the cycle should be counted as skipped", func() {
				stats := c.GetStats()
				So(stats["cycles"], ShouldEqual, int64(1))
				So(stats["snapshotsSkipped"], ShouldEqual, int64(1))
			})
		})

		Convey("When the sink refuses the document", func() {
			sink.err = errors.New("queue full")
			frame := model.BodyFrame{Bodies: []model.Body{body(1, model.Vec3{}, 1, 1)}}

			Convey("Then the cycle should still complete", func() {
				snap := c.Cycle(ctx, &frame)
				So(len(snap.Bodies), ShouldEqual, 1)
				So(c.GetStats()["snapshotsQueued"], ShouldEqual, int64(0))
			})
		})
	})
}

func TestControllerRun(t *testing.T) {
	Convey("Given a source that yields frames and then times out", t, func() {
		clock := &fixedClock{now: time.Unix(100, 0)}
		src := &scriptedSource{
			frames: []model.BodyFrame{
				{Bodies: []model.Body{body(1, model.Vec3{X: 1}, 1, 1)}},
				{},
				{Bodies: []model.Body{body(2, model.Vec3{X: 2}, 1, 1)}},
			},
			err: fmt.Errorf("%s: %w", sensor.StageGetCapture, sensor.ErrTimeout),
		}
		sink := &recordingSink{}
		var sleeps []time.Duration
		c := service.NewController(src, sink,
			service.WithClock(clock),
			service.WithThrottleInterval(250*time.Millisecond),
			service.WithSleeper(noSleep(&sleeps)),
		)

		Convey("When the loop runs", func() {
			err := c.Run(context.Background())

			Convey("Then it should stop with a fatal frame error", func() {
				So(errors.Is(err, service.ErrAwaitFrame), ShouldBeTrue)
				So(errors.Is(err, sensor.ErrTimeout), ShouldBeTrue)
			})

			Convey("And only non-empty cycles should be sent", func() {
				So(len(sink.deliveries), ShouldEqual, 2)
				So(sink.deliveries[0].BodyCount, ShouldEqual, 1)
			})

			Convey("And every cycle should be followed by the throttle", func() {
				So(sleeps, ShouldResemble, []time.Duration{
					250 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond,
				})
			})

			Convey("And the frame wait should not be retried", func() {
				So(src.calls, ShouldEqual, 4)
			})
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		src := &scriptedSource{err: context.Canceled}
		c := service.NewController(src, &recordingSink{})
		cancel()

		Convey("Then Run should return cleanly", func() {
			So(c.Run(ctx), ShouldBeNil)
		})
	})

	Convey("Given cancellation during the throttle", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		src := &scriptedSource{frames: []model.BodyFrame{{}}, err: sensor.ErrFailed}
		c := service.NewController(src, &recordingSink{}, service.WithThrottleInterval(time.Hour))

		done := make(chan error, 1)
		go func() { done <- c.Run(ctx) }()
		time.Sleep(20 * time.Millisecond)
		cancel()

		Convey("Then Run should return without waiting out the interval", func() {
			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(2 * time.Second):
				So("run still sleeping", ShouldBeEmpty)
			}
		})
	})

	Convey("Given a clock that advances between cycles", t, func() {
		clock := &fixedClock{now: time.Unix(10, 0)}
		src := &scriptedSource{
			frames: []model.BodyFrame{
				{Bodies: []model.Body{body(1, model.Vec3{}, 1, 1)}},
				{Bodies: []model.Body{body(1, model.Vec3{}, 1, 1)}},
			},
			err: sensor.ErrFailed,
		}
		sink := &recordingSink{}
		c := service.NewController(src, sink,
			service.WithClock(clock),
			service.WithSleeper(func(context.Context, time.Duration) error {
				clock.advance(time.Second)
				return nil
			}),
		)
		_ = c.Run(context.Background())

		Convey("Then timestamps should follow the clock per cycle", func() {
			So(sink.deliveries[0].Timestamp, ShouldEqual, int64(10))
			So(sink.deliveries[1].Timestamp, ShouldEqual, int64(11))
		})
	})
}

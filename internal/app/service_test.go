package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/bodytrack/internal/adapters/mq/queue"
	service "github.com/okian/bodytrack/internal/app"
	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type stubTransmitter struct {
	mu    sync.Mutex
	sent  [][]byte
	fail  bool
	block chan struct{}
}

func (s *stubTransmitter) Send(ctx context.Context, payload []byte) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("endpoint down")
	}
	s.sent = append(s.sent, payload)
	return nil
}

func (s *stubTransmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func doc(ts int64) model.Delivery {
	return model.Delivery{
		Payload:    []byte(`{"timestamp": 1, "bodies": [{"id":1,"x":0.0,"y":0.0,"z":0.0}]}`),
		Timestamp:  ts,
		BodyCount:  1,
		EnqueuedAt: time.Now(),
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New(&stubTransmitter{})

		Convey("Then it should report one worker and a small queue", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeFalse)
			So(stats["workerCount"], ShouldEqual, 1)
			So(stats["queueSize"], ShouldEqual, 64)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(&stubTransmitter{},
			service.WithWorkerCount(4),
			service.WithQueueSize(8),
			service.WithMaxSendsPerSecond(2),
			service.WithLogger(logger.Get()),
		)

		Convey("Then the options should be applied", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 4)
			So(stats["queueSize"], ShouldEqual, 8)
			So(stats["maxSendsPerSec"], ShouldEqual, 2.0)
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a service that has not started", t, func() {
		svc := service.New(&stubTransmitter{})

		Convey("Then Submit should refuse documents", func() {
			err := svc.Submit(context.Background(), doc(1))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a started service", t, func() {
		tx := &stubTransmitter{}
		svc := service.New(tx)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When documents are submitted", func() {
			So(svc.Submit(ctx, doc(1)), ShouldBeNil)
			So(svc.Submit(ctx, doc(2)), ShouldBeNil)

			Convey("Then the transmitter should receive them", func() {
				So(waitFor(func() bool { return tx.count() == 2 }), ShouldBeTrue)
				So(waitFor(func() bool { return svc.GetStats()["sent"] == int64(2) }), ShouldBeTrue)
				So(svc.GetStats()["queueClosed"], ShouldBeFalse)
			})
		})
	})

	Convey("Given a started service whose endpoint hangs", t, func() {
		tx := &stubTransmitter{block: make(chan struct{})}
		svc := service.New(tx, service.WithQueueSize(2))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When more documents arrive than the queue holds", func() {
			var (
				accepted int
				err      error
			)
			start := time.Now()
			for i := int64(0); i < 10 && err == nil; i++ {
				if err = svc.Submit(ctx, doc(i)); err == nil {
					accepted++
				}
			}

			Convey("Then the extra document should be dropped without blocking", func() {
				So(errors.Is(err, queue.ErrFull), ShouldBeTrue)
				So(accepted, ShouldBeBetweenOrEqual, 2, 4)
				So(time.Since(start), ShouldBeLessThan, 100*time.Millisecond)
				So(svc.GetStats()["droppedFull"], ShouldEqual, int64(1))
			})

			close(tx.block)
			svc.Stop(ctx)
		})
	})

	Convey("Given a stopped service", t, func() {
		tx := &stubTransmitter{}
		svc := service.New(tx)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Submit(ctx, doc(1)), ShouldBeNil)
		svc.Stop(ctx)

		Convey("Then queued documents should have been delivered", func() {
			So(tx.count(), ShouldEqual, 1)
		})

		Convey("Then Submit should refuse new documents", func() {
			So(errors.Is(svc.Submit(ctx, doc(2)), service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then stats should show the closed queue and its workers", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeFalse)
			So(stats["workers"], ShouldEqual, 1)
			So(stats["queueClosed"], ShouldBeTrue)
			So(stats["queueLength"], ShouldEqual, 0)
		})
	})
}

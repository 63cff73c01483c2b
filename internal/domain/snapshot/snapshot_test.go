package snapshot_test

import (
	"testing"
	"time"

	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/internal/domain/snapshot"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestBuilder(t *testing.T) {
	Convey("Given a controllable clock", t, func() {
		clock := &fakeClock{now: time.Unix(1_700_000_000, 900_000_000)}

		Convey("When a builder is created", func() {
			b := snapshot.New(clock)

			Convey("Then the timestamp should be the whole second at construction", func() {
				So(b.Snapshot().Timestamp, ShouldEqual, int64(1_700_000_000))
			})

			Convey("And advancing the clock afterwards should not change it", func() {
				clock.now = clock.now.Add(5 * time.Second)
				b.Add(model.BodyPosition{ID: 1})
				So(b.Snapshot().Timestamp, ShouldEqual, int64(1_700_000_000))
			})

			Convey("Then the body sequence should start empty", func() {
				So(b.Len(), ShouldEqual, 0)
				So(b.Snapshot().Empty(), ShouldBeTrue)
			})
		})

		Convey("When positions are added", func() {
			b := snapshot.New(clock)
			b.Add(model.BodyPosition{ID: 3, X: 0.1})
			b.Add(model.BodyPosition{ID: 7, X: -1})
			b.Add(model.BodyPosition{ID: 3, X: 0.1})

			Convey("Then they should be kept in order without dedupe", func() {
				s := b.Snapshot()
				So(len(s.Bodies), ShouldEqual, 3)
				So(s.Bodies[0].ID, ShouldEqual, 3)
				So(s.Bodies[1].ID, ShouldEqual, 7)
				So(s.Bodies[2].ID, ShouldEqual, 3)
			})
		})
	})

	Convey("Given no clock", t, func() {
		before := time.Now().Unix()
		b := snapshot.New(nil)
		after := time.Now().Unix()

		Convey("Then the system clock should be used", func() {
			ts := b.Snapshot().Timestamp
			So(ts, ShouldBeGreaterThanOrEqualTo, before)
			So(ts, ShouldBeLessThanOrEqualTo, after)
		})
	})
}

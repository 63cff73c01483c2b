// Package snapshot assembles the per-cycle aggregate of extracted bodies.
package snapshot

import (
	"time"

	"github.com/okian/bodytrack/internal/domain/model"
)

// Clock supplies wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time { return time.Now() }

// Builder accumulates body positions for a single cycle.
// The timestamp is fixed when the builder is created.
type Builder struct {
	timestamp int64
	bodies    []model.BodyPosition
}

// New starts an empty snapshot stamped with the clock's current second.
// A nil clock falls back to SystemClock.
func New(clock Clock) *Builder {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Builder{timestamp: clock.Now().Unix()}
}

// Add appends p after the positions already added.
func (b *Builder) Add(p model.BodyPosition) {
	b.bodies = append(b.bodies, p)
}

// Len returns the number of positions added so far.
func (b *Builder) Len() int { return len(b.bodies) }

// Snapshot returns the finished snapshot.
func (b *Builder) Snapshot() model.Snapshot {
	return model.Snapshot{Timestamp: b.timestamp, Bodies: b.bodies}
}

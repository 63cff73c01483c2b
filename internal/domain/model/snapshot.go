package model

import "time"

// Snapshot aggregates every body extracted in one cycle.
// Bodies keeps extraction order and may be empty.
type Snapshot struct {
	Timestamp int64 // unix seconds, sampled when the snapshot was built
	Bodies    []BodyPosition
}

// Empty reports whether the snapshot carries no bodies.
func (s Snapshot) Empty() bool { return len(s.Bodies) == 0 }

// Delivery is a serialized snapshot waiting for the transmitter.
type Delivery struct {
	Payload    []byte    // JSON document
	Timestamp  int64     // snapshot timestamp
	BodyCount  int       // number of bodies in the payload
	EnqueuedAt time.Time // when the acquisition loop handed it off
}

// Package model contains domain models passed between layers.
package model

import "time"

// Vec3 is a position in device space, in millimetres.
// The Y axis grows downward: a smaller Y is physically higher.
type Vec3 struct {
	X float32
	Y float32
	Z float32
}

// Skeleton holds one position per joint, indexed by Joint.
type Skeleton [JointCount]Vec3

// At returns the position of joint j.
func (s *Skeleton) At(j Joint) Vec3 { return s[j] }

// Body is one tracked body as reported by the frame source.
type Body struct {
	ID       uint32 // device-assigned, only unique within a frame
	Skeleton Skeleton
}

// BodyFrame is the tracking result of a single capture.
type BodyFrame struct {
	Bodies          []Body
	DeviceTimestamp time.Duration // device clock at capture
}

// BodyPosition is the compact per-body record carried in a Snapshot.
type BodyPosition struct {
	ID uint32
	X  float32
	Y  float32
	Z  float32
}

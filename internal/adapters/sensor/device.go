// Package sensor is the frame source: it owns the body tracking device and
// yields one tracked BodyFrame per call.
package sensor

import (
	"context"
	"time"

	"github.com/okian/bodytrack/internal/domain/model"
)

// Infinite makes a wait block until the device answers.
const Infinite time.Duration = -1

// WaitResult is the outcome of a blocking device call.
type WaitResult int

// Wait outcomes reported by a Device.
const (
	WaitSucceeded WaitResult = iota
	WaitTimeout
	WaitFailed
)

func (r WaitResult) String() string {
	switch r {
	case WaitSucceeded:
		return "succeeded"
	case WaitTimeout:
		return "timeout"
	case WaitFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Capture is one sensor capture. It must be released once handed to the tracker.
type Capture interface {
	Release()
}

// Device is an opened depth sensor with its body tracker.
//
// GetCapture waits for the next capture, EnqueueCapture hands it to the
// tracker and PopResult waits for the tracking result. Close stops the
// tracker and the cameras and releases the device.
type Device interface {
	GetCapture(ctx context.Context, timeout time.Duration) (Capture, WaitResult)
	EnqueueCapture(ctx context.Context, c Capture, timeout time.Duration) WaitResult
	PopResult(ctx context.Context, timeout time.Duration) (model.BodyFrame, WaitResult)
	Close() error
}

// Opener acquires a Device. Errors are fatal to the process.
type Opener func(ctx context.Context) (Device, error)

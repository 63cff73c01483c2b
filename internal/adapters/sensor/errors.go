package sensor

import "errors"

// Sentinel kinds for frame source errors.
var (
	// ErrOpen wraps device acquisition failures (open, start, tracker creation).
	ErrOpen = errors.New("open device failed")
	// ErrTimeout reports a wait that returned Timeout.
	ErrTimeout = errors.New("frame source wait timed out")
	// ErrFailed reports a wait that returned Failed.
	ErrFailed = errors.New("frame source wait failed")
	// ErrClosed is returned by a session after Close.
	ErrClosed = errors.New("session closed")
	// ErrMalformedFrame reports a wire frame that violates the body contract.
	ErrMalformedFrame = errors.New("malformed body frame")
)

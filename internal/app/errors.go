package service

import "errors"

// Service and controller errors.
var (
	ErrNotStarted = errors.New("service not started")
	ErrAwaitFrame = errors.New("await frame")
)

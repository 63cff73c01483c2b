package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

// Wait stages reported in errors and metrics.
const (
	StageGetCapture     = "get_capture"
	StageEnqueueCapture = "enqueue_capture"
	StagePopResult      = "pop_result"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithWaitTimeout bounds every device wait. The default is Infinite.
func WithWaitTimeout(timeout time.Duration) Option {
	return func(s *Session) {
		if timeout > 0 || timeout == Infinite {
			s.timeout = timeout
		}
	}
}

// WithLogger sets a custom logger for the session.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Session owns an opened Device for the lifetime of the acquisition loop.
// Close releases it exactly once, whichever path ends the loop.
type Session struct {
	device  Device
	timeout time.Duration
	logger  logger.Logger

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// Open acquires a device through open and wraps it in a Session.
func Open(ctx context.Context, open Opener, opts ...Option) (*Session, error) {
	s := &Session{
		timeout: Infinite,
		logger:  logger.Get().Named("sensor"),
	}
	for _, opt := range opts {
		opt(s)
	}

	device, err := open(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("sensor", "open")
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	s.device = device
	s.logger.Info(ctx, "device opened", logger.Duration("wait_timeout", s.timeout))
	return s, nil
}

// Next blocks until the tracker yields the next body frame.
//
// A Timeout or Failed wait is returned as an error wrapping ErrTimeout or
// ErrFailed; these are fatal to the cycle. If ctx is cancelled during a wait
// the context error is returned instead.
func (s *Session) Next(ctx context.Context) (model.BodyFrame, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return model.BodyFrame{}, ErrClosed
	}

	capture, res := s.device.GetCapture(ctx, s.timeout)
	if err := s.check(ctx, StageGetCapture, res); err != nil {
		return model.BodyFrame{}, err
	}

	res = s.device.EnqueueCapture(ctx, capture, s.timeout)
	capture.Release()
	if err := s.check(ctx, StageEnqueueCapture, res); err != nil {
		return model.BodyFrame{}, err
	}

	frame, res := s.device.PopResult(ctx, s.timeout)
	if err := s.check(ctx, StagePopResult, res); err != nil {
		return model.BodyFrame{}, err
	}

	metrics.RecordFrame()
	return frame, nil
}

func (s *Session) check(ctx context.Context, stage string, res WaitResult) error {
	if res == WaitSucceeded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	metrics.RecordFrameError(stage, res.String())
	if res == WaitTimeout {
		return fmt.Errorf("%s: %w", stage, ErrTimeout)
	}
	return fmt.Errorf("%s: %w", stage, ErrFailed)
}

// Close shuts the device down. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.closeErr = s.device.Close()
		if s.closeErr != nil {
			s.logger.Error(context.Background(), "device close failed", logger.Error(s.closeErr))
			return
		}
		s.logger.Info(context.Background(), "device closed")
	})
	return s.closeErr
}

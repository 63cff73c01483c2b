package sensor

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/pkg/logger"
)

const (
	defaultPollInterval = 250 * time.Millisecond
	defaultReceiveHWM   = 16
)

// ZMQOption configures the ZMQ bridge device.
type ZMQOption func(*ZMQDevice)

// WithPollInterval sets how often a blocked receive re-checks its context.
func WithPollInterval(d time.Duration) ZMQOption {
	return func(z *ZMQDevice) {
		if d > 0 {
			z.pollInterval = d
		}
	}
}

// WithReceiveHWM caps the number of frames buffered by the socket.
func WithReceiveHWM(n int) ZMQOption {
	return func(z *ZMQDevice) {
		if n > 0 {
			z.receiveHWM = n
		}
	}
}

// WithZMQLogger sets a custom logger for the device.
func WithZMQLogger(l logger.Logger) ZMQOption {
	return func(z *ZMQDevice) {
		if l != nil {
			z.logger = l
		}
	}
}

// ZMQDevice reads tracked frames published by a tracker bridge process.
// Each PULL message is one capture; the tracker step decodes it.
type ZMQDevice struct {
	endpoint     string
	pollInterval time.Duration
	receiveHWM   int
	logger       logger.Logger

	socket  *zmq4.Socket
	poller  *zmq4.Poller
	pending *model.BodyFrame
}

type zmqCapture struct {
	data []byte
}

func (c *zmqCapture) Release() { c.data = nil }

// OpenZMQ returns an Opener connecting a PULL socket to endpoint.
func OpenZMQ(endpoint string, opts ...ZMQOption) Opener {
	return func(ctx context.Context) (Device, error) {
		z := &ZMQDevice{
			endpoint:     endpoint,
			pollInterval: defaultPollInterval,
			receiveHWM:   defaultReceiveHWM,
			logger:       logger.Get().Named("zmq"),
		}
		for _, opt := range opts {
			opt(z)
		}

		socket, err := zmq4.NewSocket(zmq4.PULL)
		if err != nil {
			return nil, fmt.Errorf("create socket: %w", err)
		}
		if err := socket.SetRcvhwm(z.receiveHWM); err != nil {
			_ = socket.Close()
			return nil, fmt.Errorf("set receive hwm: %w", err)
		}
		if err := socket.SetLinger(0); err != nil {
			_ = socket.Close()
			return nil, fmt.Errorf("set linger: %w", err)
		}
		if err := socket.Connect(endpoint); err != nil {
			_ = socket.Close()
			return nil, fmt.Errorf("connect %s: %w", endpoint, err)
		}

		z.socket = socket
		z.poller = zmq4.NewPoller()
		z.poller.Add(socket, zmq4.POLLIN)
		z.logger.Info(ctx, "connected to tracker bridge", logger.String("endpoint", endpoint))
		return z, nil
	}
}

// GetCapture waits for the next message from the bridge.
func (z *ZMQDevice) GetCapture(ctx context.Context, timeout time.Duration) (Capture, WaitResult) {
	var deadline time.Time
	if timeout != Infinite {
		deadline = time.Now().Add(timeout)
	}

	for {
		if ctx.Err() != nil {
			return nil, WaitFailed
		}

		wait := z.pollInterval
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				return nil, WaitTimeout
			}
			wait = min(wait, left)
		}

		polled, err := z.poller.Poll(wait)
		if err != nil {
			if zmq4.AsErrno(err) == zmq4.Errno(syscall.EINTR) {
				continue
			}
			z.logger.Error(ctx, "poll failed", logger.Error(err))
			return nil, WaitFailed
		}
		if len(polled) == 0 {
			continue
		}

		data, err := z.socket.RecvBytes(zmq4.DONTWAIT)
		if err != nil {
			if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
				continue
			}
			z.logger.Error(ctx, "receive failed", logger.Error(err))
			return nil, WaitFailed
		}
		return &zmqCapture{data: data}, WaitSucceeded
	}
}

// EnqueueCapture decodes the capture into the pending tracking result.
// A message that breaks the body contract fails the wait.
func (z *ZMQDevice) EnqueueCapture(ctx context.Context, c Capture, _ time.Duration) WaitResult {
	zc, ok := c.(*zmqCapture)
	if !ok || zc.data == nil {
		return WaitFailed
	}
	frame, frameID, err := DecodeFrame(zc.data)
	if err != nil {
		z.logger.Error(ctx, "tracker bridge sent an invalid frame", logger.Error(err))
		return WaitFailed
	}
	z.logger.Debug(ctx, "frame received",
		logger.Any("frame_id", frameID),
		logger.Int("bodies", len(frame.Bodies)),
	)
	z.pending = &frame
	return WaitSucceeded
}

// PopResult returns the frame decoded by the last EnqueueCapture.
func (z *ZMQDevice) PopResult(_ context.Context, _ time.Duration) (model.BodyFrame, WaitResult) {
	if z.pending == nil {
		return model.BodyFrame{}, WaitFailed
	}
	frame := *z.pending
	z.pending = nil
	return frame, WaitSucceeded
}

// Close closes the socket.
func (z *ZMQDevice) Close() error {
	if err := z.socket.Close(); err != nil {
		return fmt.Errorf("close socket: %w", err)
	}
	return nil
}

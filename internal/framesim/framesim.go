// Package framesim publishes synthetic tracked frames in the bridge wire
// format, so a station can run end to end without a depth camera.
package framesim

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/okian/bodytrack/internal/adapters/sensor"
	"github.com/okian/bodytrack/pkg/logger"
)

// ErrSend wraps socket failures other than a full send queue.
var ErrSend = errors.New("publish frame failed")

// Sender is the subset of *zmq4.Socket the publisher needs.
type Sender interface {
	SendBytes(data []byte, flags zmq4.Flag) (int, error)
}

// Option applies a configuration option to the Publisher.
type Option func(*Publisher)

// WithFrameLimit stops the publisher after n frames. Zero publishes forever.
func WithFrameLimit(n uint64) Option {
	return func(p *Publisher) { p.limit = n }
}

// WithLogger sets a custom logger for the publisher.
func WithLogger(l logger.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// Publisher paces Synth frames onto a Sender.
type Publisher struct {
	sender Sender
	synth  sensor.Synth
	limit  uint64
	logger logger.Logger

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// New creates a Publisher for synth.
func New(sender Sender, synth sensor.Synth, opts ...Option) *Publisher {
	if synth.Interval <= 0 {
		synth.Interval = time.Second / 30
	}
	p := &Publisher{
		sender: sender,
		synth:  synth,
		logger: logger.Get().Named("framesim"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run publishes frames at the synth interval until ctx is cancelled or the
// frame limit is reached. Frames that find no connected peer are dropped.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.synth.Interval)
	defer ticker.Stop()

	p.logger.Info(ctx, "publishing frames",
		logger.Int("maxBodies", p.synth.MaxBodies),
		logger.Duration("interval", p.synth.Interval),
	)
	for n := uint64(0); p.limit == 0 || n < p.limit; n++ {
		if err := p.publish(n); err != nil {
			return err
		}
		if p.limit != 0 && n+1 == p.limit {
			break
		}
		select {
		case <-ctx.Done():
			p.logger.Info(ctx, "publisher stopped",
				logger.Int64("sent", int64(p.Sent())),
				logger.Int64("dropped", int64(p.Dropped())),
			)
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func (p *Publisher) publish(n uint64) error {
	frame := p.synth.Frame(n)
	data, err := sensor.EncodeFrame(n, &frame)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
	if _, err := p.sender.SendBytes(data, zmq4.DONTWAIT); err != nil {
		if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
			p.dropped.Add(1)
			return nil
		}
		return fmt.Errorf("%w: frame %d: %w", ErrSend, n, err)
	}
	p.sent.Add(1)
	return nil
}

// Sent returns the number of frames handed to the socket.
func (p *Publisher) Sent() uint64 { return p.sent.Load() }

// Dropped returns the number of frames discarded for lack of a peer.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

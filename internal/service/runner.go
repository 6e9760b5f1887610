// Package service runs the mainline side of a bridge: it feeds the
// transmit ring from the USB side, kicks DMA bursts and forwards the
// receive ring back to the USB side.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	bridge "github.com/allbin/uartbridge"
)

// usbChunk is the largest USB read staged at once, one full-speed CDC
// bulk transfer worth of packets.
const usbChunk = 4096

type options struct {
	logger        *log.Logger
	drainInterval time.Duration
	statsInterval time.Duration
	onStats       func(bridge.StatsSnapshot)
}

// Option is a functional option for configuring a Runner
type Option func(*options) error

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(o *options) error {
		if l == nil {
			return bridge.ErrInvalidConfig
		}
		o.logger = l
		return nil
	}
}

// WithDrainInterval sets how often the transmit ring is polled when no
// completion or new data wakes the drain loop.
func WithDrainInterval(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return fmt.Errorf("drain interval %v: %w", d, bridge.ErrInvalidConfig)
		}
		o.drainInterval = d
		return nil
	}
}

// WithStats reports a stats snapshot every interval
func WithStats(interval time.Duration, fn func(bridge.StatsSnapshot)) Option {
	return func(o *options) error {
		if interval <= 0 || fn == nil {
			return bridge.ErrInvalidConfig
		}
		o.statsInterval = interval
		o.onStats = fn
		return nil
	}
}

// Runner moves bytes between a USB serial endpoint and a bridge
type Runner struct {
	b      *bridge.Bridge
	usbIn  io.Reader
	usbOut io.Writer
	opts   options
	kick   chan struct{}
}

// New returns a runner for b. usbIn is closed when Run ends if it is an
// io.Closer, which unblocks a pending read.
func New(b *bridge.Bridge, usbIn io.Reader, usbOut io.Writer, opts ...Option) (*Runner, error) {
	if b == nil || usbIn == nil || usbOut == nil {
		return nil, bridge.ErrInvalidConfig
	}
	o := options{
		logger:        log.New(io.Discard),
		drainInterval: time.Millisecond,
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	return &Runner{
		b:      b,
		usbIn:  usbIn,
		usbOut: usbOut,
		opts:   o,
		kick:   make(chan struct{}, 1),
	}, nil
}

// Kick wakes the drain loop. It never blocks, so it can serve as a DMA
// completion hook.
func (r *Runner) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done or one side fails. Reaching EOF on the USB
// input stops the input pump only.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	space := make(chan struct{}, 1)
	g.Go(func() error { return r.pumpUSB(ctx, space) })
	g.Go(func() error { return r.drain(ctx, space) })
	g.Go(func() error { return r.forwardRx(ctx) })
	if r.opts.onStats != nil {
		g.Go(func() error { return r.reportStats(ctx) })
	}
	if c, ok := r.usbIn.(io.Closer); ok {
		g.Go(func() error {
			<-ctx.Done()
			c.Close()
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// pumpUSB stages USB input in the transmit ring, waiting for the drain
// loop to free space when the ring is full.
func (r *Runner) pumpUSB(ctx context.Context, space <-chan struct{}) error {
	buf := make([]byte, usbChunk)
	tx := r.b.TxBuffer()

	for {
		n, err := r.usbIn.Read(buf)
		for off := 0; off < n; {
			w := tx.Write(buf[off:n])
			off += w
			r.Kick()
			if off == n {
				break
			}
			select {
			case <-space:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		switch {
		case err == io.EOF:
			r.opts.logger.Info("usb input closed")
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("usb read: %w", err)
		}
	}
}

// drain starts a burst whenever it is woken or the interval elapses, and
// tells the pump after every burst that space was freed.
func (r *Runner) drain(ctx context.Context, space chan<- struct{}) error {
	ticker := time.NewTicker(r.opts.drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.kick:
		case <-ticker.C:
		}

		if _, res := r.b.SendFromRingBuffer(); res == bridge.ResultOK {
			select {
			case space <- struct{}{}:
			default:
			}
		}
	}
}

// forwardRx copies the receive ring to the USB side whenever the bridge
// reports new bytes.
func (r *Runner) forwardRx(ctx context.Context) error {
	buf := make([]byte, usbChunk)
	rx := r.b.RxBuffer()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.b.Readable():
		}

		for n := rx.Read(buf); n > 0; n = rx.Read(buf) {
			if _, err := r.usbOut.Write(buf[:n]); err != nil {
				return fmt.Errorf("usb write: %w", err)
			}
		}
	}
}

func (r *Runner) reportStats(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.opts.onStats(r.b.Stats())
		}
	}
}

// Package hostuart implements the bridge UART capability on top of a host
// tty. A reader goroutine plays the part of the receive interrupt.
package hostuart

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	bridge "github.com/allbin/uartbridge"
	"github.com/allbin/uartbridge/internal/tty"
)

var (
	ErrNotOpen     = errors.New("uart is not open")
	ErrAlreadyOpen = errors.New("uart is already open")
)

// Opener opens the tty backing a UART
type Opener func(path string, opts ...tty.Option) (tty.Port, error)

type options struct {
	logger       *log.Logger
	threshold    int
	timeout      int
	pollInterval time.Duration
	open         Opener
}

// Option is a functional option for configuring a UART
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

// WithFIFOThreshold sets how many bytes make up a full-threshold receive
// event (1-255). Shorter chunks are reported as receive timeouts.
func WithFIFOThreshold(n int) Option {
	return func(o *options) error {
		if n < 1 || n > 255 {
			return bridge.ErrInvalidConfig
		}
		o.threshold = n
		return nil
	}
}

// WithRxTimeout sets the idle time, in tenths of a second, after which a
// partially filled chunk is delivered (1-255).
func WithRxTimeout(tenths int) Option {
	return func(o *options) error {
		if tenths < 1 || tenths > 255 {
			return bridge.ErrInvalidConfig
		}
		o.timeout = tenths
		return nil
	}
}

// WithPollInterval bounds how long the reader waits for input before it
// checks for shutdown and overruns again.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return bridge.ErrInvalidConfig
		}
		o.pollInterval = d
		return nil
	}
}

// WithOpener replaces tty.Open
func WithOpener(fn Opener) Option {
	return func(o *options) error {
		if fn == nil {
			return bridge.ErrInvalidConfig
		}
		o.open = fn
		return nil
	}
}

// UART is a bridge.UART backed by a tty device
type UART struct {
	path string
	opts options

	mu        sync.Mutex
	port      tty.Port
	line      bridge.LineConfig
	callback  func(bridge.RxEvent)
	mask      bridge.IntMask
	suspended bool
	overruns  uint32
	counters  bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

var _ bridge.UART = (*UART)(nil)

// New returns a closed UART for the tty at path
func New(path string, opts ...Option) (*UART, error) {
	o := options{
		logger:       log.New(io.Discard),
		threshold:    32,
		timeout:      1,
		pollInterval: 50 * time.Millisecond,
		open:         tty.Open,
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	return &UART{
		path: path,
		opts: o,
		line: bridge.DefaultLineConfig(),
	}, nil
}

// Port returns the open tty, or nil
func (u *UART) Port() tty.Port {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.port
}

// Open opens the tty. With OpenRxInt the reader goroutine is started;
// nothing is delivered until interrupts are enabled.
func (u *UART) Open(flags bridge.OpenFlag) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.port != nil {
		return ErrAlreadyOpen
	}

	p, err := u.opts.open(u.path, u.ttyOptions(u.line)...)
	if err != nil {
		return err
	}
	u.port = p
	u.mask = 0
	u.suspended = false

	// start from empty queues, as a FIFO reset would
	if err := errors.Join(p.FlushInput(), p.FlushOutput()); err != nil {
		u.opts.logger.Warn("flushing stale data failed", "port", u.path, "err", err)
	}

	if c, err := p.Counters(); err != nil {
		u.opts.logger.Debug("overrun counters unavailable", "port", u.path, "err", err)
		u.counters = false
	} else {
		u.counters = true
		u.overruns = c.Overruns()
	}

	if flags&bridge.OpenRxInt != 0 {
		u.wake = make(chan struct{}, 1)
		u.done = make(chan struct{})
		u.wg.Add(1)
		go u.readLoop(p, u.wake, u.done)
	}
	u.opts.logger.Debug("uart open", "port", u.path, "line", u.line, "threshold", u.opts.threshold)
	return nil
}

func (u *UART) ttyOptions(cfg bridge.LineConfig) []tty.Option {
	return []tty.Option{
		tty.WithBaudRate(cfg.BaudRate),
		tty.WithDataBits(cfg.DataBits),
		tty.WithParity(ttyParity(cfg.Parity)),
		tty.WithStopBits(ttyStopBits(cfg.StopBits)),
		tty.WithReadMin(u.opts.threshold),
		tty.WithReadTimeout(u.opts.timeout),
	}
}

func ttyParity(p bridge.Parity) tty.Parity {
	switch p {
	case bridge.ParityOdd:
		return tty.ParityOdd
	case bridge.ParityEven:
		return tty.ParityEven
	case bridge.ParityMark:
		return tty.ParityMark
	case bridge.ParitySpace:
		return tty.ParitySpace
	default:
		return tty.ParityNone
	}
}

// termios has no 1.5 stop bits; CSTOPB gives 1.5 only with 5 data bits
func ttyStopBits(s bridge.StopBits) int {
	if s == bridge.StopBits1 {
		return 1
	}
	return 2
}

// Close stops the reader and closes the tty
func (u *UART) Close() error {
	u.mu.Lock()
	p := u.port
	done := u.done
	u.port = nil
	u.done = nil
	u.mu.Unlock()

	if p == nil {
		return nil
	}
	if done != nil {
		close(done)
	}
	u.wg.Wait()
	return p.Close()
}

// Configure reprograms the line. Settings given while closed are used by
// the next Open.
func (u *UART) Configure(cfg bridge.LineConfig) error {
	config := tty.DefaultConfig()
	for _, opt := range u.ttyOptions(cfg) {
		if err := opt(&config); err != nil {
			return fmt.Errorf("%s: %w", cfg, err)
		}
	}

	u.mu.Lock()
	p := u.port
	u.mu.Unlock()

	if p != nil {
		if err := p.Configure(config); err != nil {
			return err
		}
	}

	u.mu.Lock()
	u.line = cfg
	u.mu.Unlock()
	return nil
}

func (u *UART) SetCallback(fn func(bridge.RxEvent)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.callback = fn
}

// EnableInterrupts adds mask to the delivered causes and ends a suspend
func (u *UART) EnableInterrupts(mask bridge.IntMask) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.port == nil {
		return ErrNotOpen
	}
	u.mask |= mask
	u.suspended = false
	if u.wake != nil {
		select {
		case u.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// Suspend stops delivery. Input stays queued in the tty meanwhile.
func (u *UART) Suspend() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.port == nil {
		return ErrNotOpen
	}
	u.suspended = true
	return nil
}

// armed reports the enabled receive causes and callback, or ok=false when
// nothing would be delivered.
func (u *UART) armed() (mask bridge.IntMask, fn func(bridge.RxEvent), ok bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.suspended || u.callback == nil || u.mask == 0 {
		return 0, nil, false
	}
	return u.mask, u.callback, true
}

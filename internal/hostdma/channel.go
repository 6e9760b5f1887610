// Package hostdma emulates a memory-to-peripheral DMA channel. A started
// descriptor chain is copied to the io.Writer routed for each destination
// address on a goroutine; the channel reports busy until the chain is done.
package hostdma

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"go.uber.org/atomic"

	bridge "github.com/allbin/uartbridge"
)

var (
	ErrNoRoute     = errors.New("no writer routed for destination address")
	ErrNotOpen     = errors.New("dma channel is not open")
	ErrNoTransfer  = errors.New("no descriptor loaded")
	ErrShortWrite  = errors.New("destination accepted fewer bytes than transferred")
	ErrInvalidHook = errors.New("nil completion hook")
)

// Completion is called on the transfer goroutine after a chain finished.
// n counts the bytes that reached their destinations. It must not block.
type Completion func(n int, err error)

type options struct {
	logger *log.Logger
	routes map[uint32]io.Writer
	hooks  []Completion
}

// Option is a functional option for configuring a Channel
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

// WithRoute sends transfers addressed to addr into w
func WithRoute(addr uint32, w io.Writer) Option {
	return func(o *options) error {
		if w == nil {
			return fmt.Errorf("route %#x: %w", addr, bridge.ErrInvalidConfig)
		}
		o.routes[addr] = w
		return nil
	}
}

// WithCompletion registers a hook run after every finished chain
func WithCompletion(fn Completion) Option {
	return func(o *options) error {
		if fn == nil {
			return ErrInvalidHook
		}
		o.hooks = append(o.hooks, fn)
		return nil
	}
}

// Stats are the channel's cumulative counters
type Stats struct {
	Transfers uint64
	Bytes     uint64
	Errors    uint64
	Stops     uint64
}

// Channel is a bridge.DMAChannel backed by io.Writers
type Channel struct {
	id   int
	log  *log.Logger
	hook []Completion

	mu     sync.Mutex
	routes map[uint32]io.Writer
	opened bool
	loaded *bridge.Descriptor

	busy      atomic.Bool
	wg        sync.WaitGroup
	transfers atomic.Uint64
	bytes     atomic.Uint64
	errors    atomic.Uint64
	stops     atomic.Uint64
}

var _ bridge.DMAChannel = (*Channel)(nil)

// New returns a closed channel
func New(id int, opts ...Option) (*Channel, error) {
	o := options{logger: log.New(io.Discard), routes: map[uint32]io.Writer{}}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	return &Channel{id: id, log: o.logger, hook: o.hooks, routes: o.routes}, nil
}

// Open makes the channel ready to start transfers
func (c *Channel) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.routes) == 0 {
		return fmt.Errorf("channel %d: %w", c.id, ErrNoRoute)
	}
	c.opened = true
	return nil
}

// Busy reports whether a started chain is still being transferred
func (c *Channel) Busy() bool { return c.busy.Load() }

// Stop discards the loaded descriptor. A chain already handed to its
// writer runs to completion.
func (c *Channel) Stop() {
	c.mu.Lock()
	c.loaded = nil
	c.mu.Unlock()
	c.stops.Inc()
}

// Load programs the descriptor the next Start transfers. The source
// memory must stay untouched until the channel is idle again.
func (c *Channel) Load(d *bridge.Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = d
}

// Start begins transferring the loaded chain. Starting a closed, busy or
// unloaded channel is logged and ignored.
func (c *Channel) Start() {
	c.mu.Lock()
	d := c.loaded
	opened := c.opened
	c.mu.Unlock()

	switch {
	case !opened:
		c.fail(ErrNotOpen)
		return
	case d == nil:
		c.fail(ErrNoTransfer)
		return
	}
	if !c.busy.CompareAndSwap(false, true) {
		c.log.Warn("dma start while busy ignored", "channel", c.id)
		return
	}

	c.wg.Add(1)
	go c.run(d)
}

func (c *Channel) run(d *bridge.Descriptor) {
	defer c.wg.Done()

	var total int
	var err error
	for ; d != nil && err == nil; d = d.Next {
		var n int
		n, err = c.transfer(d)
		total += n
	}

	c.transfers.Inc()
	c.bytes.Add(uint64(total))
	if err != nil {
		c.errors.Inc()
		c.log.Warn("dma transfer failed", "channel", c.id, "sent", total, "err", err)
	}

	c.busy.Store(false)
	for _, fn := range c.hook {
		fn(total, err)
	}
}

func (c *Channel) transfer(d *bridge.Descriptor) (int, error) {
	c.mu.Lock()
	w, ok := c.routes[d.Dst]
	c.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%#x: %w", d.Dst, ErrNoRoute)
	}

	payload := d.Payload()
	n, err := w.Write(payload)
	if err == nil && n < len(payload) {
		err = ErrShortWrite
	}
	return n, err
}

func (c *Channel) fail(err error) {
	c.errors.Inc()
	c.log.Warn("dma start ignored", "channel", c.id, "err", err)
}

// Wait blocks until no chain is in flight
func (c *Channel) Wait() { c.wg.Wait() }

// Stats returns a snapshot of the channel counters
func (c *Channel) Stats() Stats {
	return Stats{
		Transfers: c.transfers.Load(),
		Bytes:     c.bytes.Load(),
		Errors:    c.errors.Load(),
		Stops:     c.stops.Load(),
	}
}

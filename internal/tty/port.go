package tty

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Port represents an open serial line
type Port interface {
	Close() error
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	Path() string

	// Configure reprograms the line settings of an open port
	Configure(cfg Config) error
	// WaitReadable blocks until input is pending or timeout elapses
	WaitReadable(timeout time.Duration) (bool, error)
	Drain() error
	FlushInput() error
	FlushOutput() error

	// Modem signal control and monitoring
	GetModemSignals() (ModemSignals, error)
	SetDTR(state bool) error
	SetRTS(state bool) error
	WaitForSignalChangeContext(ctx context.Context, mask SignalMask) (ModemSignals, SignalMask, error)

	// Counters returns the driver's line event counters
	Counters() (Counters, error)
}

type port struct {
	mu     sync.RWMutex
	path   string
	fd     int
	config Config
	closed bool
}

var _ Port = (*port)(nil)

// Open opens a serial port with the given device path and options
func Open(device string, opts ...Option) (Port, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		if err == unix.ENOENT {
			return nil, fmt.Errorf("%s: %w", device, ErrDeviceNotFound)
		}
		return nil, fmt.Errorf("failed to open %s: %w", device, err)
	}

	if err := applyConfig(fd, config); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if config.InitialDTR != nil {
		if err := setModemBit(fd, unix.TIOCM_DTR, *config.InitialDTR); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set initial DTR: %w", err)
		}
	}
	if config.InitialRTS != nil {
		if err := setModemBit(fd, unix.TIOCM_RTS, *config.InitialRTS); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set initial RTS: %w", err)
		}
	}

	return &port{path: device, fd: fd, config: config}, nil
}

func applyConfig(fd int, config Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}
	if err := rawTermios(termios, config); err != nil {
		return err
	}
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

// Close closes the serial port
func (p *port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	p.closed = true
	return unix.Close(p.fd)
}

func (p *port) Path() string { return p.path }

// Read reads data from the serial port
func (p *port) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	return unix.Read(p.fd, buf)
}

// Write writes data to the serial port
func (p *port) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	return unix.Write(p.fd, data)
}

func (p *port) Configure(cfg Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	if err := applyConfig(p.fd, cfg); err != nil {
		return err
	}
	p.config = cfg
	return nil
}

func (p *port) WaitReadable(timeout time.Duration) (bool, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return false, ErrPortClosed
	}
	fd := p.fd
	p.mu.RUnlock()

	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, int(timeout.Milliseconds()))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		if n > 0 && fds[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			return false, ErrPortClosed
		}
		return n > 0, nil
	}
}

// GetModemSignals returns current state of all modem control signals
func (p *port) GetModemSignals() (ModemSignals, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ModemSignals{}, ErrPortClosed
	}
	status, err := unix.IoctlGetInt(p.fd, unix.TIOCMGET)
	if err != nil {
		return ModemSignals{}, err
	}
	return decodeSignals(status), nil
}

// SetDTR asserts or deasserts Data Terminal Ready
func (p *port) SetDTR(state bool) error {
	return p.setBit(unix.TIOCM_DTR, state)
}

// SetRTS asserts or deasserts Request To Send
func (p *port) SetRTS(state bool) error {
	return p.setBit(unix.TIOCM_RTS, state)
}

func (p *port) setBit(bit int, state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	return setModemBit(p.fd, bit, state)
}

// WaitForSignalChangeContext blocks until one of the masked input lines
// changes state or ctx is done. TIOCMIWAIT cannot be interrupted, so the
// waiting goroutine lingers until the next line change or close.
func (p *port) WaitForSignalChangeContext(ctx context.Context, mask SignalMask) (ModemSignals, SignalMask, error) {
	if mask == 0 {
		return ModemSignals{}, 0, ErrInvalidSignalMask
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ModemSignals{}, 0, ErrPortClosed
	}
	fd := p.fd
	p.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return ModemSignals{}, 0, err
	}

	oldStatus, err := unix.IoctlGetInt(fd, unix.TIOCMGET)
	if err != nil {
		return ModemSignals{}, 0, err
	}

	type waitResult struct {
		status int
		err    error
	}
	resultCh := make(chan waitResult, 1)
	go func() {
		if err := unix.IoctlSetInt(fd, unix.TIOCMIWAIT, signalMaskToTIOCM(mask)); err != nil {
			resultCh <- waitResult{err: err}
			return
		}
		status, err := unix.IoctlGetInt(fd, unix.TIOCMGET)
		resultCh <- waitResult{status: status, err: err}
	}()

	select {
	case r := <-resultCh:
		if r.err != nil {
			return ModemSignals{}, 0, r.err
		}
		return decodeSignals(r.status), detectSignalChanges(oldStatus, r.status), nil
	case <-ctx.Done():
		return ModemSignals{}, 0, ctx.Err()
	}
}

func (p *port) Counters() (Counters, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return Counters{}, ErrPortClosed
	}
	return getCounters(p.fd)
}

// Drain waits until all output written to the port has been transmitted
func (p *port) Drain() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}
	return unix.IoctlSetInt(p.fd, unix.TCSBRK, 1)
}

// FlushInput discards any unread input data
func (p *port) FlushInput() error {
	return p.flush(unix.TCIFLUSH)
}

// FlushOutput discards any unwritten output data
func (p *port) FlushOutput() error {
	return p.flush(unix.TCOFLUSH)
}

func (p *port) flush(queue int) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}
	return unix.IoctlSetInt(p.fd, unix.TCFLSH, queue)
}

package hostuart

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"

	bridge "github.com/allbin/uartbridge"
	"github.com/allbin/uartbridge/internal/tty"
)

const rxCauses = bridge.IntRxFIFO | bridge.IntRxTimeout

// readLoop is the receive interrupt. A read returns either a full
// threshold chunk or, once the line went idle for the rx timeout, a
// shorter one; the chunk size picks the reported cause.
func (u *UART) readLoop(p tty.Port, wake, done chan struct{}) {
	defer u.wg.Done()

	buf := make([]byte, u.opts.threshold)
	var held []byte

	for {
		select {
		case <-done:
			return
		default:
		}

		mask, fn, ok := u.armed()
		if !ok {
			select {
			case <-wake:
			case <-done:
				return
			}
			continue
		}

		if mask&bridge.IntRxOverrun != 0 {
			u.checkOverrun(p, fn)
		}

		if mask&rxCauses == 0 {
			select {
			case <-wake:
			case <-done:
				return
			case <-time.After(u.opts.pollInterval):
			}
			continue
		}

		if len(held) > 0 {
			fn(bridge.RxEvent{Reason: reasonFor(len(held), len(buf), mask), Data: held})
			held = held[:0]
			continue
		}

		ready, err := p.WaitReadable(u.opts.pollInterval)
		if err != nil {
			u.readFailed(err)
			return
		}
		if !ready {
			continue
		}

		n, err := p.Read(buf)
		if err != nil {
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}
			u.readFailed(err)
			return
		}
		if n == 0 {
			continue
		}

		// suspended while the read was in flight: hold the chunk like a
		// FIFO would until delivery is enabled again
		if mask, fn, ok = u.armed(); !ok || mask&rxCauses == 0 {
			held = append(held[:0], buf[:n]...)
			continue
		}
		fn(bridge.RxEvent{Reason: reasonFor(n, len(buf), mask), Data: buf[:n]})
	}
}

// reasonFor reports a full chunk as a FIFO threshold event and a short
// one as a receive timeout. When that cause is masked the other enabled
// receive cause is used.
func reasonFor(n, threshold int, mask bridge.IntMask) bridge.RxReason {
	reason, bit := bridge.RxTimeout, bridge.IntRxTimeout
	if n >= threshold {
		reason, bit = bridge.RxFIFOThreshold, bridge.IntRxFIFO
	}
	if mask&bit != 0 {
		return reason
	}
	if reason == bridge.RxFIFOThreshold {
		return bridge.RxTimeout
	}
	return bridge.RxFIFOThreshold
}

func (u *UART) checkOverrun(p tty.Port, fn func(bridge.RxEvent)) {
	if !u.counters {
		return
	}
	c, err := p.Counters()
	if err != nil {
		u.opts.logger.Debug("overrun counters unavailable", "port", u.path, "err", err)
		u.counters = false
		return
	}
	if total := c.Overruns(); total != u.overruns {
		u.overruns = total
		fn(bridge.RxEvent{Reason: bridge.RxOverrun})
	}
}

func (u *UART) readFailed(err error) {
	if errors.Is(err, tty.ErrPortClosed) {
		return
	}
	u.opts.logger.Error("uart read failed, receive stopped", "port", u.path, "err", err)
}

package tty

import "golang.org/x/sys/unix"

// ModemSignals represents modem control signal states
type ModemSignals struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	RI  bool // Ring Indicator
	DCD bool // Data Carrier Detect
	RTS bool // Request To Send
	DTR bool // Data Terminal Ready
}

// SignalMask identifies which input signals to monitor
type SignalMask int

const (
	SignalCTS SignalMask = 1 << iota
	SignalDSR
	SignalRI
	SignalDCD
)

var maskBits = []struct {
	mask SignalMask
	bit  int
}{
	{SignalCTS, unix.TIOCM_CTS},
	{SignalDSR, unix.TIOCM_DSR},
	{SignalRI, unix.TIOCM_RI},
	{SignalDCD, unix.TIOCM_CAR},
}

func signalMaskToTIOCM(mask SignalMask) int {
	var bits int
	for _, m := range maskBits {
		if mask&m.mask != 0 {
			bits |= m.bit
		}
	}
	return bits
}

// detectSignalChanges reports which input lines differ between two TIOCMGET words
func detectSignalChanges(oldStatus, newStatus int) SignalMask {
	var changed SignalMask
	diff := oldStatus ^ newStatus
	for _, m := range maskBits {
		if diff&m.bit != 0 {
			changed |= m.mask
		}
	}
	return changed
}

func decodeSignals(status int) ModemSignals {
	return ModemSignals{
		CTS: status&unix.TIOCM_CTS != 0,
		DSR: status&unix.TIOCM_DSR != 0,
		RI:  status&unix.TIOCM_RI != 0,
		DCD: status&unix.TIOCM_CAR != 0,
		RTS: status&unix.TIOCM_RTS != 0,
		DTR: status&unix.TIOCM_DTR != 0,
	}
}

func setModemBit(fd, bit int, state bool) error {
	if state {
		return unix.IoctlSetPointerInt(fd, unix.TIOCMBIS, bit)
	}
	return unix.IoctlSetPointerInt(fd, unix.TIOCMBIC, bit)
}

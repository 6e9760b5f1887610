package tty

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// tiocgicount is TIOCGICOUNT on the asm-generic ioctl layout
// (x86, arm, arm64, riscv).
const tiocgicount = 0x545d

// serialIcounter mirrors struct serial_icounter_struct
type serialIcounter struct {
	cts, dsr, rng, dcd int32
	rx, tx             int32
	frame, overrun     int32
	parity, brk        int32
	bufOverrun         int32
	reserved           [9]int32
}

// Counters are the driver's cumulative line event counters
type Counters struct {
	Rx         uint32
	Tx         uint32
	Frame      uint32
	Overrun    uint32
	Parity     uint32
	Break      uint32
	BufOverrun uint32
}

// Overruns is the sum of hardware FIFO and tty buffer overruns
func (c Counters) Overruns() uint32 {
	return c.Overrun + c.BufOverrun
}

func getCounters(fd int) (Counters, error) {
	var ic serialIcounter
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), tiocgicount, uintptr(unsafe.Pointer(&ic)))
	if errno != 0 {
		return Counters{}, errno
	}
	return Counters{
		Rx:         uint32(ic.rx),
		Tx:         uint32(ic.tx),
		Frame:      uint32(ic.frame),
		Overrun:    uint32(ic.overrun),
		Parity:     uint32(ic.parity),
		Break:      uint32(ic.brk),
		BufOverrun: uint32(ic.bufOverrun),
	}, nil
}

// Package ttytest provides pseudo-terminal pairs for tests that need a real
// tty file descriptor without serial hardware.
package ttytest

import (
	"fmt"
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

// OpenPTY allocates a pseudo-terminal and returns its master side and the
// path of the slave device. Both are released when the test ends. The test
// is skipped when the system has no /dev/ptmx.
func OpenPTY(t testing.TB) (*os.File, string) {
	t.Helper()

	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		t.Skipf("pseudo-terminals unavailable: %v", err)
	}
	t.Cleanup(func() { master.Close() })

	fd := int(master.Fd())
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		t.Fatalf("unlockpt: %v", err)
	}
	n, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		t.Fatalf("ptsname: %v", err)
	}

	// raw master so bytes pass through unmodified
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err == nil {
		termios.Iflag = 0
		termios.Oflag = 0
		termios.Lflag = 0
		unix.IoctlSetTermios(fd, unix.TCSETS, termios)
	}

	return master, fmt.Sprintf("/dev/pts/%d", n)
}

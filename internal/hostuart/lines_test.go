package hostuart

import (
	"bytes"
	"io"
	"strings"
	"testing"

	bridge "github.com/allbin/uartbridge"
	"github.com/allbin/uartbridge/internal/tty"
)

// chunkPort accepts at most max bytes per write and records modem lines
type chunkPort struct {
	*fakePort
	max      int
	out      bytes.Buffer
	dtr, rts bool
}

func (p *chunkPort) Write(b []byte) (int, error) {
	if len(b) > p.max {
		b = b[:p.max]
	}
	return p.out.Write(b)
}

func (p *chunkPort) SetDTR(state bool) error { p.dtr = state; return nil }
func (p *chunkPort) SetRTS(state bool) error { p.rts = state; return nil }

func openChunk(t *testing.T, max int) (*UART, *chunkPort) {
	t.Helper()
	port := &chunkPort{fakePort: newFakePort(), max: max}
	u, err := New("/dev/fake", WithOpener(func(string, ...tty.Option) (tty.Port, error) { return port, nil }))
	if err != nil {
		t.Fatal(err)
	}
	if err := u.Open(bridge.OpenTxDMA); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { u.Close() })
	return u, port
}

func TestWriteRetriesShortWrites(t *testing.T) {
	u, port := openChunk(t, 7)

	src := bytes.Repeat([]byte("abc"), 30)
	n, err := u.Write(src)
	if err != nil || n != len(src) {
		t.Fatalf("Write = %d %v", n, err)
	}
	if !bytes.Equal(port.out.Bytes(), src) {
		t.Errorf("tty got %q", port.out.Bytes())
	}
}

func TestWriteStalledPort(t *testing.T) {
	u, _ := openChunk(t, 0)
	if _, err := u.Write([]byte("x")); err != io.ErrShortWrite {
		t.Errorf("Expected io.ErrShortWrite, got %v", err)
	}
}

func TestLinesNeedOpenPort(t *testing.T) {
	u, _ := New("/dev/fake")
	if _, err := u.Write([]byte("x")); err != ErrNotOpen {
		t.Errorf("Write on closed UART: %v", err)
	}
	if err := u.SetDTR(true); err != ErrNotOpen {
		t.Errorf("SetDTR on closed UART: %v", err)
	}
}

func TestModemLinesReachPort(t *testing.T) {
	u, port := openChunk(t, 1)
	u.SetDTR(true)
	u.SetRTS(true)
	u.SetRTS(false)
	if !port.dtr || port.rts {
		t.Errorf("dtr=%v rts=%v", port.dtr, port.rts)
	}
}

func TestOpenFlushesStaleData(t *testing.T) {
	port := newFakePort()
	openFake(t, port)

	got := strings.Join(port.callLog(), ",")
	if got != "flush-in,flush-out" {
		t.Errorf("calls after Open = %q, want flush-in,flush-out", got)
	}
}

func TestDrainWaitsOnPort(t *testing.T) {
	u, port := openChunk(t, 4)
	u.Write([]byte("tail"))

	if err := u.Drain(); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	calls := port.callLog()
	if len(calls) == 0 || calls[len(calls)-1] != "drain" {
		t.Errorf("calls = %v, want a trailing drain", calls)
	}

	closed, _ := New("/dev/fake")
	if err := closed.Drain(); err != ErrNotOpen {
		t.Errorf("Drain on closed UART: %v", err)
	}
}

package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	bridge "github.com/allbin/uartbridge"
	"github.com/allbin/uartbridge/internal/hostdma"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("usb gone") }

// slowWriter paces DMA completion so the transmit ring fills up
type slowWriter struct {
	syncBuffer
	delay time.Duration
}

func (w *slowWriter) Write(p []byte) (int, error) {
	time.Sleep(w.delay)
	return w.syncBuffer.Write(p)
}

type harness struct {
	b      *bridge.Bridge
	r      *Runner
	usbIn  *io.PipeWriter
	usbOut *syncBuffer
	wire   io.Writer
	errc   chan error
	cancel context.CancelFunc
}

func start(t *testing.T, wire io.Writer, usbOut io.Writer, opts ...Option) *harness {
	t.Helper()

	h := &harness{wire: wire, errc: make(chan error, 1)}
	if out, ok := usbOut.(*syncBuffer); ok {
		h.usbOut = out
	}

	b, err := bridge.New()
	if err != nil {
		t.Fatal(err)
	}
	h.b = b

	inR, inW := io.Pipe()
	h.usbIn = inW

	r, err := New(b, inR, usbOut, opts...)
	if err != nil {
		t.Fatal(err)
	}
	h.r = r

	dma, err := hostdma.New(bridge.DefaultDMAChannel,
		hostdma.WithRoute(bridge.AddrUART1TDR, wire),
		hostdma.WithCompletion(func(int, error) { r.Kick() }),
	)
	if err != nil {
		t.Fatal(err)
	}
	b.Init(bridge.Devices{DMA: map[int]bridge.DMAChannel{bridge.DefaultDMAChannel: dma}})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.errc <- r.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		inW.Close()
	})
	return h
}

func eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestUSBToUART(t *testing.T) {
	wire := &syncBuffer{}
	h := start(t, wire, &syncBuffer{})

	src := bytes.Repeat([]byte("usb->uart "), 100)
	if _, err := h.usbIn.Write(src); err != nil {
		t.Fatal(err)
	}

	eventually(t, func() bool { return wire.Len() == len(src) }, "bytes on the wire")
	if !bytes.Equal(wire.Bytes(), src) {
		t.Error("wire bytes differ from USB input")
	}
}

func TestUSBToUARTWaitsWhenRingFull(t *testing.T) {
	wire := &slowWriter{delay: 5 * time.Millisecond}
	h := start(t, wire, &syncBuffer{})

	src := make([]byte, 3*bridge.TxRingSize)
	for i := range src {
		src[i] = byte(i * 7)
	}
	go h.usbIn.Write(src)

	eventually(t, func() bool { return wire.Len() == len(src) }, "all bytes on the wire")
	if !bytes.Equal(wire.Bytes(), src) {
		t.Error("bytes lost or reordered while the ring was full")
	}

	s := h.b.Stats()
	if s.TxMaxBurst > bridge.MaxBurst {
		t.Errorf("burst of %d bytes", s.TxMaxBurst)
	}
	if s.TxBytes != uint64(len(src)) {
		t.Errorf("TxBytes = %d, want %d", s.TxBytes, len(src))
	}
}

func TestUARTToUSB(t *testing.T) {
	out := &syncBuffer{}
	h := start(t, &syncBuffer{}, out)

	var want []byte
	for i := 0; i < 10; i++ {
		chunk := bytes.Repeat([]byte{byte('a' + i)}, 50+i)
		want = append(want, chunk...)
		if res := h.b.HandleReceive(bridge.RxEvent{Reason: bridge.RxTimeout, Data: chunk}); res != bridge.ResultOK {
			t.Fatalf("HandleReceive = %v", res)
		}
	}

	eventually(t, func() bool { return out.Len() == len(want) }, "bytes on the USB side")
	if !bytes.Equal(out.Bytes(), want) {
		t.Error("USB output differs from received bytes")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := start(t, &syncBuffer{}, &syncBuffer{})
	h.cancel()

	select {
	case err := <-h.errc:
		if err != nil {
			t.Errorf("Run returned %v after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunFailsOnUSBWriteError(t *testing.T) {
	h := start(t, &syncBuffer{}, failingWriter{})
	h.b.HandleReceive(bridge.RxEvent{Reason: bridge.RxFIFOThreshold, Data: []byte("x")})

	select {
	case err := <-h.errc:
		if err == nil || !bytes.Contains([]byte(err.Error()), []byte("usb write")) {
			t.Errorf("Run error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not fail")
	}
}

func TestUSBEOFKeepsForwarding(t *testing.T) {
	out := &syncBuffer{}
	h := start(t, &syncBuffer{}, out)
	h.usbIn.Close()

	time.Sleep(10 * time.Millisecond)
	h.b.HandleReceive(bridge.RxEvent{Reason: bridge.RxTimeout, Data: []byte("late")})
	eventually(t, func() bool { return out.Len() == 4 }, "receive forwarding after USB EOF")
}

func TestStatsReported(t *testing.T) {
	got := make(chan bridge.StatsSnapshot, 1)
	start(t, &syncBuffer{}, &syncBuffer{}, WithStats(5*time.Millisecond, func(s bridge.StatsSnapshot) {
		select {
		case got <- s:
		default:
		}
	}))

	select {
	case s := <-got:
		if s.RxCap != bridge.RxRingSize || s.TxCap != bridge.TxRingSize {
			t.Errorf("snapshot capacities = %d/%d", s.RxCap, s.TxCap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no stats reported")
	}
}

func TestNewValidation(t *testing.T) {
	b, _ := bridge.New()
	if _, err := New(nil, bytes.NewReader(nil), io.Discard); !errors.Is(err, bridge.ErrInvalidConfig) {
		t.Errorf("nil bridge: %v", err)
	}
	if _, err := New(b, bytes.NewReader(nil), io.Discard, WithDrainInterval(0)); !errors.Is(err, bridge.ErrInvalidConfig) {
		t.Errorf("zero interval: %v", err)
	}
	if _, err := New(b, bytes.NewReader(nil), io.Discard, WithStats(time.Second, nil)); !errors.Is(err, bridge.ErrInvalidConfig) {
		t.Errorf("nil stats hook: %v", err)
	}
}

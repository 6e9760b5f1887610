package dashboard

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"periph.io/x/conn/v3/gpio"

	bridge "github.com/allbin/uartbridge"
)

type fakeSource struct {
	stats bridge.StatsSnapshot
	line  bridge.LineConfig
}

func (f *fakeSource) Stats() bridge.StatsSnapshot     { return f.stats }
func (f *fakeSource) LineConfig() bridge.LineConfig { return f.line }

type fakeLines struct {
	dtr, rts []gpio.Level
	err      error
}

func (f *fakeLines) SetDTR(l gpio.Level) error {
	if f.err != nil {
		return f.err
	}
	f.dtr = append(f.dtr, l)
	return nil
}

func (f *fakeLines) SetRTS(l gpio.Level) error {
	if f.err != nil {
		return f.err
	}
	f.rts = append(f.rts, l)
	return nil
}

func press(m tea.Model, k string) (tea.Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func newSource() *fakeSource {
	return &fakeSource{
		line:  bridge.DefaultLineConfig(),
		stats: bridge.StatsSnapshot{RxCap: bridge.RxRingSize, TxCap: bridge.TxRingSize},
	}
}

func TestTickSamplesStats(t *testing.T) {
	src := newSource()
	var m tea.Model = New(src, Config{Title: "/dev/ttyUSB0"})

	t0 := time.Unix(1000, 0)
	m, cmd := m.Update(tickMsg(t0))
	if cmd == nil {
		t.Error("tick did not schedule the next tick")
	}

	src.stats.RxBytes = 2048
	src.stats.TxBytes = 512
	src.stats.RxFIFODrops = 3
	src.stats.RxUsed = 100
	m, _ = m.Update(tickMsg(t0.Add(time.Second)))

	dm := m.(Model)
	if dm.rxRate != 2048 || dm.txRate != 512 {
		t.Errorf("rates = %v/%v, want 2048/512", dm.rxRate, dm.txRate)
	}

	view := m.View()
	for _, want := range []string{"/dev/ttyUSB0", "115200 8N1", "2048", "2.0 KiB/s", "fifo drops", "100/8192"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestPauseFreezesSamples(t *testing.T) {
	src := newSource()
	var m tea.Model = New(src, Config{})

	m, _ = press(m, "p")
	src.stats.RxBytes = 99
	m, _ = m.Update(tickMsg(time.Now()))

	if m.(Model).snap.RxBytes != 0 {
		t.Error("sampled while paused")
	}
	if !strings.Contains(m.View(), "PAUSED") {
		t.Error("paused state not shown")
	}
}

func TestToggleLines(t *testing.T) {
	lines := &fakeLines{}
	var m tea.Model = New(newSource(), Config{Lines: lines})

	m, _ = press(m, "d")
	m, _ = press(m, "d")
	m, _ = press(m, "r")

	if len(lines.dtr) != 2 || lines.dtr[0] != gpio.High || lines.dtr[1] != gpio.Low {
		t.Errorf("DTR levels = %v", lines.dtr)
	}
	if len(lines.rts) != 1 || lines.rts[0] != gpio.High {
		t.Errorf("RTS levels = %v", lines.rts)
	}
	if dm := m.(Model); dm.dtr || !dm.rts {
		t.Errorf("line state dtr=%v rts=%v", dm.dtr, dm.rts)
	}
}

func TestToggleStartsFromAssertedLines(t *testing.T) {
	lines := &fakeLines{}
	var m tea.Model = New(newSource(), Config{Lines: lines, DTR: true, RTS: true})

	if v := m.View(); !strings.Contains(v, "DTR") || !strings.Contains(v, "RTS") {
		t.Fatalf("line indicators missing:\n%s", v)
	}
	if dm := m.(Model); !dm.dtr || !dm.rts {
		t.Fatalf("initial state dtr=%v rts=%v, want both asserted", dm.dtr, dm.rts)
	}

	m, _ = press(m, "d")
	m, _ = press(m, "r")

	if len(lines.dtr) != 1 || lines.dtr[0] != gpio.Low {
		t.Errorf("first DTR toggle wrote %v, want [Low]", lines.dtr)
	}
	if len(lines.rts) != 1 || lines.rts[0] != gpio.Low {
		t.Errorf("first RTS toggle wrote %v, want [Low]", lines.rts)
	}
	if dm := m.(Model); dm.dtr || dm.rts {
		t.Errorf("line state dtr=%v rts=%v after toggling off", dm.dtr, dm.rts)
	}
}

func TestToggleErrorsShown(t *testing.T) {
	lines := &fakeLines{err: errors.New("pin busy")}
	var m tea.Model = New(newSource(), Config{Lines: lines})

	m, _ = press(m, "d")
	if m.(Model).dtr {
		t.Error("DTR state flipped although the write failed")
	}
	if !strings.Contains(m.View(), "pin busy") {
		t.Error("error not shown")
	}

	m = New(newSource(), Config{})
	m, _ = press(m, "r")
	if !errors.Is(m.(Model).err, bridge.ErrNoGPIO) {
		t.Errorf("err = %v, want ErrNoGPIO", m.(Model).err)
	}
}

func TestQuit(t *testing.T) {
	m := New(newSource(), Config{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("no command on ctrl+c")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c did not quit")
	}
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 B/s"},
		{512, "512 B/s"},
		{1536, "1.5 KiB/s"},
		{3 << 20, "3.0 MiB/s"},
	}
	for _, tt := range tests {
		if got := formatRate(tt.in); got != tt.want {
			t.Errorf("formatRate(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

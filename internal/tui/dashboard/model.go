// Package dashboard is a live bubbletea view of a running bridge: line
// settings, ring buffer fill, throughput and drop counters.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"periph.io/x/conn/v3/gpio"

	bridge "github.com/allbin/uartbridge"
	"github.com/allbin/uartbridge/internal/tui/keys"
	"github.com/allbin/uartbridge/internal/tui/styles"
)

// Source is what the dashboard samples
type Source interface {
	Stats() bridge.StatsSnapshot
	LineConfig() bridge.LineConfig
}

// Lines drives the flow-control outputs
type Lines interface {
	SetDTR(level gpio.Level) error
	SetRTS(level gpio.Level) error
}

// LEDs reports indicator state
type LEDs interface {
	State(idx int) (on bool, toggles uint64)
}

// Config selects what the dashboard shows. Lines and LED are optional.
// DTR and RTS are the levels the lines were left at before the dashboard
// took over.
type Config struct {
	Title    string
	Interval time.Duration
	Lines    Lines
	LED      LEDs
	DTR, RTS bool
}

type tickMsg time.Time

const (
	colMetric = "metric"
	colRx     = "rx"
	colTx     = "tx"

	gaugeWidth = 32
)

// Model is the dashboard bubbletea model
type Model struct {
	src    Source
	cfg    Config
	keys   keys.DashboardKeys
	help   help.Model
	counts table.Model

	snap   bridge.StatsSnapshot
	prevAt time.Time
	rxRate float64
	txRate float64

	dtr, rts bool
	paused   bool
	err      error
}

// New returns a dashboard sampling src every cfg.Interval (250ms if unset)
func New(src Source, cfg Config) Model {
	if cfg.Interval <= 0 {
		cfg.Interval = 250 * time.Millisecond
	}

	counts := table.New([]table.Column{
		table.NewColumn(colMetric, "", 16),
		table.NewColumn(colRx, "RX", 14).WithStyle(lipgloss.NewStyle().Align(lipgloss.Right)),
		table.NewColumn(colTx, "TX", 14).WithStyle(lipgloss.NewStyle().Align(lipgloss.Right)),
	}).
		BorderRounded().
		HeaderStyle(styles.HeaderStyle).
		WithBaseStyle(lipgloss.NewStyle().BorderForeground(styles.BorderColor).Foreground(styles.Text)).
		Focused(false)

	m := Model{
		src:    src,
		cfg:    cfg,
		keys:   keys.NewDashboardKeys(),
		help:   help.New(),
		counts: counts,
		dtr:    cfg.DTR,
		rts:    cfg.RTS,
	}
	m.counts = m.counts.WithRows(m.rows())
	return m
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick(m.cfg.Interval)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.ToggleDTR):
			m.toggle(&m.dtr, func(l Lines) func(gpio.Level) error { return l.SetDTR })
		case key.Matches(msg, m.keys.ToggleRTS):
			m.toggle(&m.rts, func(l Lines) func(gpio.Level) error { return l.SetRTS })
		}
		return m, nil

	case tickMsg:
		if !m.paused {
			m.sample(time.Time(msg))
		}
		return m, tick(m.cfg.Interval)
	}
	return m, nil
}

func (m *Model) toggle(state *bool, pick func(Lines) func(gpio.Level) error) {
	if m.cfg.Lines == nil {
		m.err = bridge.ErrNoGPIO
		return
	}
	next := !*state
	if err := pick(m.cfg.Lines)(gpio.Level(next)); err != nil {
		m.err = err
		return
	}
	*state = next
	m.err = nil
}

func (m *Model) sample(now time.Time) {
	s := m.src.Stats()
	if !m.prevAt.IsZero() {
		if dt := now.Sub(m.prevAt).Seconds(); dt > 0 {
			m.rxRate = float64(s.RxBytes-m.snap.RxBytes) / dt
			m.txRate = float64(s.TxBytes-m.snap.TxBytes) / dt
		}
	}
	m.snap = s
	m.prevAt = now
	m.counts = m.counts.WithRows(m.rows())
}

func (m Model) rows() []table.Row {
	s := m.snap
	none := "-"
	row := func(metric string, rx, tx any) table.Row {
		return table.NewRow(table.RowData{colMetric: metric, colRx: rx, colTx: tx})
	}
	drop := func(n uint64) any {
		if n == 0 {
			return "0"
		}
		return table.NewStyledCell(fmt.Sprint(n), styles.DropStyle)
	}

	return []table.Row{
		row("bytes", fmt.Sprint(s.RxBytes), fmt.Sprint(s.TxBytes)),
		row("rate", formatRate(m.rxRate), formatRate(m.txRate)),
		row("events/bursts", fmt.Sprint(s.RxEvents), fmt.Sprint(s.TxBursts)),
		row("fifo drops", drop(s.RxFIFODrops), none),
		row("timeout drops", drop(s.RxTimeoutDrops), none),
		row("dropped bytes", drop(s.RxDroppedBytes), none),
		row("overruns", drop(s.RxOverruns), none),
		row("busy skips", none, fmt.Sprint(s.TxBusySkips)),
		row("max burst", none, fmt.Sprint(s.TxMaxBurst)),
	}
}

func formatRate(bps float64) string {
	switch {
	case bps >= 1<<20:
		return fmt.Sprintf("%.1f MiB/s", bps/(1<<20))
	case bps >= 1<<10:
		return fmt.Sprintf("%.1f KiB/s", bps/(1<<10))
	default:
		return fmt.Sprintf("%.0f B/s", bps)
	}
}

func (m Model) View() string {
	var b strings.Builder

	header := styles.TitleStyle.Render(m.cfg.Title) + styles.LineStyle.Render(m.src.LineConfig().String())
	if m.paused {
		header += styles.PausedStyle.Render(" PAUSED")
	}
	b.WriteString(header + "\n\n")

	b.WriteString(m.gauge("RX", m.snap.RxUsed, m.snap.RxCap))
	b.WriteString(m.gauge("TX", m.snap.TxUsed, m.snap.TxCap))
	b.WriteString("\n")
	b.WriteString(m.counts.View() + "\n")
	b.WriteString(m.signals() + "\n")

	if m.err != nil {
		b.WriteString(styles.ErrorStyle.Render("error: "+m.err.Error()) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m Model) gauge(label string, used, total int) string {
	return fmt.Sprintf("%s %s %s\n",
		styles.LabelStyle.Render(label),
		styles.Gauge(gaugeWidth, used, total),
		styles.ValueStyle.Render(fmt.Sprintf("%5d/%d", used, total)))
}

func (m Model) signals() string {
	dot := func(name string, on bool) string {
		return styles.LevelStyle(on).Render("● " + name)
	}
	parts := []string{dot("DTR", m.dtr), dot("RTS", m.rts)}
	if m.cfg.LED != nil {
		on, n := m.cfg.LED.State(bridge.TxIndicator)
		parts = append(parts, dot(fmt.Sprintf("TX LED (%d)", n), on))
	}
	return strings.Join(parts, "  ")
}

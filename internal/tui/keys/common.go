package keys

import "github.com/charmbracelet/bubbles/key"

// DashboardKeys are the bindings of the bridge dashboard
type DashboardKeys struct {
	Quit      key.Binding
	Help      key.Binding
	Pause     key.Binding
	ToggleDTR key.Binding
	ToggleRTS key.Binding
}

func NewDashboardKeys() DashboardKeys {
	return DashboardKeys{
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p", "pause display"),
		),
		ToggleDTR: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "toggle DTR"),
		),
		ToggleRTS: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "toggle RTS"),
		),
	}
}

func (k DashboardKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Pause, k.Quit}
}

func (k DashboardKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.ToggleDTR, k.ToggleRTS},
		{k.Help, k.Quit},
	}
}

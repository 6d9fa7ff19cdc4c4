package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the colour scheme of plots and the live view.
type Theme struct {
	Name    string
	Title   lipgloss.Color
	Plot    lipgloss.Color
	Label   lipgloss.Color
	Value   lipgloss.Color
	Active  lipgloss.Color
	Muted   lipgloss.Color
	Warning lipgloss.Color
}

var Themes = []Theme{
	{
		Name:    "phosphor",
		Title:   lipgloss.Color("86"),
		Plot:    lipgloss.Color("49"),
		Label:   lipgloss.Color("245"),
		Value:   lipgloss.Color("252"),
		Active:  lipgloss.Color("205"),
		Muted:   lipgloss.Color("240"),
		Warning: lipgloss.Color("214"),
	},
	{
		Name:    "retro",
		Title:   lipgloss.Color("#88ff88"),
		Plot:    lipgloss.Color("#00ff00"),
		Label:   lipgloss.Color("#00cc00"),
		Value:   lipgloss.Color("#00ff00"),
		Active:  lipgloss.Color("#ffff00"),
		Muted:   lipgloss.Color("#005500"),
		Warning: lipgloss.Color("#ff8800"),
	},
	{
		Name:    "ocean",
		Title:   lipgloss.Color("#00a8cc"),
		Plot:    lipgloss.Color("#0077be"),
		Label:   lipgloss.Color("#4488aa"),
		Value:   lipgloss.Color("#e0f0ff"),
		Active:  lipgloss.Color("#ffd700"),
		Muted:   lipgloss.Color("#336688"),
		Warning: lipgloss.Color("#ffcc00"),
	},
}

// ThemeByName falls back to the first theme for unknown names.
func ThemeByName(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

// Styles are the lipgloss styles derived from a theme.
type Styles struct {
	Title, Plot, Label, Value, Active, Help, Warning lipgloss.Style
}

func (t Theme) Styles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Foreground(t.Title).Bold(true).MarginBottom(1),
		Plot:    lipgloss.NewStyle().Foreground(t.Plot),
		Label:   lipgloss.NewStyle().Foreground(t.Label).Width(12),
		Value:   lipgloss.NewStyle().Foreground(t.Value),
		Active:  lipgloss.NewStyle().Foreground(t.Active).Bold(true),
		Help:    lipgloss.NewStyle().Foreground(t.Muted).MarginTop(1),
		Warning: lipgloss.NewStyle().Foreground(t.Warning),
	}
}

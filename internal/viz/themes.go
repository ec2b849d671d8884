package viz

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	Name     string
	Primary  lipgloss.Color
	Target   lipgloss.Color
	Measured lipgloss.Color
	Text     lipgloss.Color
	Muted    lipgloss.Color
	Success  lipgloss.Color
	Warning  lipgloss.Color
	Error    lipgloss.Color
}

var (
	ThemeField = Theme{
		Name:     "field",
		Primary:  lipgloss.Color("#00ffff"),
		Target:   lipgloss.Color("#ffcc00"),
		Measured: lipgloss.Color("#00ff88"),
		Text:     lipgloss.Color("#ffffff"),
		Muted:    lipgloss.Color("#666688"),
		Success:  lipgloss.Color("#00ff88"),
		Warning:  lipgloss.Color("#ffaa00"),
		Error:    lipgloss.Color("#ff4444"),
	}

	ThemeRetroGreen = Theme{
		Name:     "retro",
		Primary:  lipgloss.Color("#00ff00"),
		Target:   lipgloss.Color("#88ff88"),
		Measured: lipgloss.Color("#00cc00"),
		Text:     lipgloss.Color("#00ff00"),
		Muted:    lipgloss.Color("#005500"),
		Success:  lipgloss.Color("#88ff88"),
		Warning:  lipgloss.Color("#ffff00"),
		Error:    lipgloss.Color("#ff0000"),
	}

	ThemeMinimal = Theme{
		Name:     "minimal",
		Primary:  lipgloss.Color("#ffffff"),
		Target:   lipgloss.Color("#888888"),
		Measured: lipgloss.Color("#0088ff"),
		Text:     lipgloss.Color("#ffffff"),
		Muted:    lipgloss.Color("#888888"),
		Success:  lipgloss.Color("#00ff00"),
		Warning:  lipgloss.Color("#ffaa00"),
		Error:    lipgloss.Color("#ff0000"),
	}

	Themes = []Theme{ThemeField, ThemeRetroGreen, ThemeMinimal}
)

// GetTheme returns the named theme, or the field theme.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeField
}

// NextTheme returns the theme after t, wrapping around.
func NextTheme(t Theme) Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

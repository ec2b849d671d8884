package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title    lipgloss.Style
	panel    lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	hint     lipgloss.Style
	settled  lipgloss.Style
	tracking lipgloss.Style
	high     lipgloss.Style
	mid      lipgloss.Style
	low      lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
		label:    lipgloss.NewStyle().Foreground(t.Muted),
		value:    lipgloss.NewStyle().Bold(true).Foreground(t.Text),
		hint:     lipgloss.NewStyle().Italic(true).Foreground(t.Muted),
		settled:  lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		tracking: lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		high:     lipgloss.NewStyle().Foreground(t.Error),
		mid:      lipgloss.NewStyle().Foreground(t.Warning),
		low:      lipgloss.NewStyle().Foreground(t.Success),
	}
}

// EffortBar draws |mv| as a share of full scale. Near saturation the bar
// turns to the error color.
func (s styles) EffortBar(mv, full float64, width int) string {
	frac := 0.0
	if full > 0 {
		frac = math.Min(1, math.Abs(mv)/full)
	}
	filled := int(math.Round(frac * float64(width)))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	switch {
	case frac > 0.95:
		return s.high.Render(bar)
	case frac > 0.6:
		return s.mid.Render(bar)
	}
	return s.low.Render(bar)
}

// Sparkline renders values scaled to their own range, sampled to width.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		idx := int(math.Round((values[i*step] - lo) / rng * float64(len(chars)-1)))
		idx = max(0, min(idx, len(chars)-1))
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}

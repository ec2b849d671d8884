package viz

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/trace"
)

const (
	chartWidth  = 72
	chartHeight = 8
	// one chart point per decimate samples of a subsystem
	decimate     = 10
	outputWindow = 60
)

// Panel is one subsystem chart with a fixed y range.
type Panel struct {
	Subsystem string
	Min, Max  float64
}

func DefaultPanels() []Panel {
	return []Panel{
		{Subsystem: trace.DriveLeft, Min: -1500, Max: 1500},
		{Subsystem: trace.DriveRight, Min: -1500, Max: 1500},
		{Subsystem: trace.Flywheel, Min: -100, Max: 700},
	}
}

type panelState struct {
	Panel
	chart   streamlinechart.Model
	seen    int
	latest  trace.Sample
	outputs []float64
}

type sampleMsg trace.Sample
type doneMsg struct{}

// Dashboard is a bubbletea model that charts live samples read from a
// channel, typically a trace.Channel attached to a robot.
type Dashboard struct {
	title  string
	src    <-chan trace.Sample
	panels []*panelState
	theme  Theme
	styles styles
	width  int
	frozen bool
	done   bool
}

func NewDashboard(title string, src <-chan trace.Sample, panels ...Panel) *Dashboard {
	if len(panels) == 0 {
		panels = DefaultPanels()
	}
	d := &Dashboard{title: title, src: src}
	for _, p := range panels {
		d.panels = append(d.panels, &panelState{
			Panel: p,
			chart: streamlinechart.New(chartWidth, chartHeight, streamlinechart.WithYRange(p.Min, p.Max)),
		})
	}
	d.setTheme(ThemeField)
	return d
}

func (d *Dashboard) setTheme(t Theme) {
	d.theme = t
	d.styles = newStyles(t)
	for _, p := range d.panels {
		p.chart.SetDataSetStyles("target", runes.ThinLineStyle, lipgloss.NewStyle().Foreground(t.Target))
		p.chart.SetDataSetStyles("measured", runes.ThinLineStyle, lipgloss.NewStyle().Foreground(t.Measured))
	}
}

func (d *Dashboard) panel(subsystem string) *panelState {
	for _, p := range d.panels {
		if p.Subsystem == subsystem {
			return p
		}
	}
	return nil
}

func waitForSample(src <-chan trace.Sample) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-src
		if !ok {
			return doneMsg{}
		}
		return sampleMsg(s)
	}
}

func (d *Dashboard) Init() tea.Cmd { return waitForSample(d.src) }

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		w := max(msg.Width-6, 20)
		for _, p := range d.panels {
			p.chart.Resize(w, chartHeight)
		}
		return d, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return d, tea.Quit
		case " ":
			d.frozen = !d.frozen
		case "t":
			d.setTheme(NextTheme(d.theme))
		}
		return d, nil

	case sampleMsg:
		d.observe(trace.Sample(msg))
		return d, waitForSample(d.src)

	case doneMsg:
		d.done = true
		return d, nil
	}
	return d, nil
}

func (d *Dashboard) observe(s trace.Sample) {
	p := d.panel(s.Subsystem)
	if p == nil {
		return
	}
	p.latest = s
	if d.frozen {
		return
	}
	p.seen++
	if p.seen%decimate != 0 {
		return
	}
	p.outputs = append(p.outputs, s.Output)
	if len(p.outputs) > outputWindow {
		p.outputs = p.outputs[len(p.outputs)-outputWindow:]
	}
	p.chart.PushDataSet("target", s.Target)
	p.chart.PushDataSet("measured", s.Measured)
	p.chart.DrawAll()
}

func (d *Dashboard) View() string {
	st := d.styles
	var sb strings.Builder

	status := st.settled.Render("live")
	switch {
	case d.done:
		status = st.label.Render("ended")
	case d.frozen:
		status = st.tracking.Render("frozen")
	}
	sb.WriteString(st.title.Render(d.title) + "  " + status + "\n")

	for _, p := range d.panels {
		sb.WriteString(st.panel.Render(d.viewPanel(p)))
		sb.WriteString("\n")
	}
	sb.WriteString(st.hint.Render("space freeze · t theme · q quit"))
	return sb.String()
}

func (d *Dashboard) viewPanel(p *panelState) string {
	st := d.styles
	s := p.latest

	state := st.tracking.Render("tracking")
	if s.Settled {
		state = st.settled.Render("settled")
	}
	stats := fmt.Sprintf("%s %s  %s %s  %s %s  %s",
		st.label.Render("target"), st.value.Render(fmt.Sprintf("%8.1f", s.Target)),
		st.label.Render("measured"), st.value.Render(fmt.Sprintf("%8.1f", s.Measured)),
		st.label.Render("error"), st.value.Render(fmt.Sprintf("%7.1f", s.Error())),
		state,
	)
	effort := fmt.Sprintf("%s %s %6.0f mV  %s",
		st.label.Render("output"),
		st.EffortBar(s.Output, device.MaxVoltage, 20),
		s.Output,
		st.label.Render(Sparkline(p.outputs, 30)),
	)
	return st.title.Render(p.Subsystem) + "\n" + p.chart.View() + "\n" + stats + "\n" + effort
}

// RunDashboard blocks until the user quits.
func RunDashboard(title string, src <-chan trace.Sample, panels ...Panel) error {
	_, err := tea.NewProgram(NewDashboard(title, src, panels...), tea.WithAltScreen()).Run()
	return err
}

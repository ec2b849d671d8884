package viz

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/motioncore/internal/trace"
)

func rampSamples(n int) []trace.Sample {
	var out []trace.Sample
	for i := 0; i < n; i++ {
		t := time.Duration(i) * 2 * time.Millisecond
		out = append(out,
			trace.Sample{Subsystem: trace.Flywheel, Time: t, Target: 600, Measured: float64(i * 6), Output: 12000 - float64(i*100)},
			trace.Sample{Subsystem: trace.DriveLeft, Time: t, Target: 846, Measured: float64(i * 8)},
		)
	}
	return out
}

func TestExtract(t *testing.T) {
	s := Extract(rampSamples(10), trace.Flywheel)
	if s.Len() != 10 {
		t.Fatalf("expected 10 points, got %d", s.Len())
	}
	if s.Time[1] != 0.002 || s.Measured[9] != 54 {
		t.Errorf("unexpected series %+v", s)
	}
	if Extract(rampSamples(10), "intake").Len() != 0 {
		t.Error("expected empty series for unknown subsystem")
	}
}

func TestPlotRun(t *testing.T) {
	out, err := PlotRun(rampSamples(100), trace.Flywheel, DefaultPlotOptions())
	if err != nil {
		t.Fatalf("plot failed: %v", err)
	}
	if !strings.Contains(out, "flywheel target / measured") {
		t.Error("missing caption")
	}
	if !strings.Contains(out, "output (mV)") {
		t.Error("missing output graph")
	}

	if _, err := PlotRun(rampSamples(1), trace.Flywheel, PlotOptions{Width: 20, Height: 5}); err != nil {
		t.Errorf("single sample plot failed: %v", err)
	}
	if _, err := PlotRun(nil, trace.Flywheel, DefaultPlotOptions()); !errors.Is(err, ErrNoSamples) {
		t.Errorf("expected ErrNoSamples, got %v", err)
	}
}

func TestSavePlot(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		file       string
		subsystems []string
	}{
		{"single.png", []string{trace.Flywheel}},
		{"stacked.png", []string{trace.DriveLeft, trace.Flywheel}},
		{"nested/stacked.svg", []string{trace.DriveLeft, trace.Flywheel}},
	}
	for _, tt := range tests {
		path := filepath.Join(dir, tt.file)
		if err := SavePlot(path, "run", rampSamples(50), tt.subsystems); err != nil {
			t.Errorf("%s: save failed: %v", tt.file, err)
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			t.Errorf("%s: expected a non-empty file", tt.file)
		}
	}

	err := SavePlot(filepath.Join(dir, "x.png"), "run", rampSamples(5), []string{"intake"})
	if !errors.Is(err, ErrNoSamples) {
		t.Errorf("expected ErrNoSamples, got %v", err)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 8); got != "▁▂▃▄▅▆▇█" {
		t.Errorf("unexpected sparkline %q", got)
	}
	if got := Sparkline(nil, 3); got != "───" {
		t.Errorf("unexpected empty sparkline %q", got)
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("retro").Name != "retro" || GetTheme("nope").Name != "field" {
		t.Error("unexpected theme lookup")
	}
	th := ThemeField
	for range ThemeNames() {
		th = NextTheme(th)
	}
	if th.Name != ThemeField.Name {
		t.Errorf("cycling all themes should wrap, got %s", th.Name)
	}
}

func TestDashboardUpdate(t *testing.T) {
	ch := make(chan trace.Sample)
	d := NewDashboard("spinup-2023", ch)

	for _, s := range rampSamples(decimate * 3) {
		d.Update(sampleMsg(s))
	}
	p := d.panel(trace.Flywheel)
	if p.latest.Measured != float64((decimate*3-1)*6) {
		t.Errorf("unexpected latest sample %+v", p.latest)
	}
	if len(p.outputs) != 3 {
		t.Errorf("expected 3 charted points, got %d", len(p.outputs))
	}

	d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{' '}})
	d.Update(sampleMsg(trace.Sample{Subsystem: trace.Flywheel, Target: 400}))
	if len(p.outputs) != 3 || p.latest.Target != 400 {
		t.Error("frozen dashboard should track the latest sample without charting")
	}

	d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	if d.theme.Name != "retro" {
		t.Errorf("expected retro theme, got %s", d.theme.Name)
	}

	d.Update(doneMsg{})
	view := d.View()
	for _, want := range []string{"spinup-2023", "drive.left", "flywheel", "ended"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestDashboardReadsChannel(t *testing.T) {
	ch := make(chan trace.Sample, 1)
	d := NewDashboard("x", ch)

	ch <- trace.Sample{Subsystem: trace.DriveRight, Target: 1}
	if msg, ok := d.Init()().(sampleMsg); !ok || msg.Target != 1 {
		t.Errorf("expected the queued sample, got %#v", msg)
	}
	close(ch)
	if _, ok := d.Init()().(doneMsg); !ok {
		t.Error("expected doneMsg on a closed channel")
	}
}

package viz

import (
	"errors"
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/motioncore/internal/trace"
)

var ErrNoSamples = errors.New("viz: no samples for subsystem")

type PlotOptions struct {
	Width  int
	Height int
	// Output adds a second graph of the motor command.
	Output bool
}

func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Width: 80, Height: 12, Output: true}
}

// PlotRun draws target (yellow) against measurement (green) for one
// subsystem, optionally followed by the output in millivolts.
func PlotRun(samples []trace.Sample, subsystem string, opts PlotOptions) (string, error) {
	s := Extract(samples, subsystem)
	if s.Len() == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoSamples, subsystem)
	}
	if s.Len() == 1 {
		// asciigraph needs two points to draw a line
		s.Target = append(s.Target, s.Target[0])
		s.Measured = append(s.Measured, s.Measured[0])
		s.Output = append(s.Output, s.Output[0])
	}

	graph := asciigraph.PlotMany([][]float64{s.Target, s.Measured},
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.SeriesColors(asciigraph.Yellow, asciigraph.Green),
		asciigraph.Caption(fmt.Sprintf("%s target / measured over %.2fs", subsystem, s.Time[len(s.Time)-1])),
	)
	if !opts.Output {
		return graph, nil
	}

	out := asciigraph.Plot(s.Output,
		asciigraph.Height(max(opts.Height/2, 3)),
		asciigraph.Width(opts.Width),
		asciigraph.Caption(subsystem+" output (mV)"),
	)
	return graph + "\n\n" + out, nil
}

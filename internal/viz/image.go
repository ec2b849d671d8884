package viz

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/san-kum/motioncore/internal/trace"
)

var (
	targetColor   = color.RGBA{R: 230, G: 160, A: 255}
	measuredColor = color.RGBA{G: 150, B: 80, A: 255}
)

// SavePlot writes one stacked panel per subsystem to path. The format
// follows the extension (png, svg, pdf and the others gonum/plot knows).
func SavePlot(path, title string, samples []trace.Sample, subsystems []string) error {
	if len(subsystems) == 0 {
		return fmt.Errorf("%w: none requested", ErrNoSamples)
	}
	plots := make([]*plot.Plot, 0, len(subsystems))
	for _, name := range subsystems {
		p, err := subsystemPlot(Extract(samples, name))
		if err != nil {
			return err
		}
		plots = append(plots, p)
	}
	plots[0].Title.Text = title

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	if len(plots) == 1 {
		return plots[0].Save(8*vg.Inch, 4*vg.Inch, path)
	}
	return saveStacked(plots, path)
}

func subsystemPlot(s Series) (*plot.Plot, error) {
	if s.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSamples, s.Subsystem)
	}
	p := plot.New()
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = s.Subsystem

	target, err := plotter.NewLine(xys(s.Time, s.Target))
	if err != nil {
		return nil, err
	}
	target.LineStyle.Color = targetColor
	target.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	measured, err := plotter.NewLine(xys(s.Time, s.Measured))
	if err != nil {
		return nil, err
	}
	measured.LineStyle.Color = measuredColor
	measured.LineStyle.Width = vg.Points(1.5)

	p.Add(plotter.NewGrid(), target, measured)
	p.Legend.Add("target", target)
	p.Legend.Add("measured", measured)
	p.Legend.Top = true
	return p, nil
}

func xys(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

// saveStacked draws plots one above the other on a single canvas.
func saveStacked(plots []*plot.Plot, path string) error {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	c, err := draw.NewFormattedCanvas(8*vg.Inch, vg.Length(len(plots))*3*vg.Inch, format)
	if err != nil {
		return err
	}

	tiles := draw.Tiles{
		Rows:   len(plots),
		Cols:   1,
		PadX:   vg.Millimeter,
		PadY:   2 * vg.Millimeter,
		PadTop: 2 * vg.Millimeter,
	}
	grid := make([][]*plot.Plot, len(plots))
	for i, p := range plots {
		grid[i] = []*plot.Plot{p}
	}
	canvases := plot.Align(grid, tiles, draw.New(c))
	for i, p := range plots {
		p.Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := c.WriteTo(f); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return f.Close()
}

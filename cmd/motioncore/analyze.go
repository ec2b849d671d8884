package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/motioncore/internal/analysis"
	"github.com/san-kum/motioncore/internal/trace"
	"github.com/san-kum/motioncore/internal/tune"
)

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, st, err := loadRun(args[0])
	if err != nil {
		return err
	}
	all, err := st.LoadSamples(meta.ID)
	if err != nil {
		return err
	}
	var samples []trace.Sample
	for _, s := range all {
		if s.Subsystem == analyzeSub {
			samples = append(samples, s)
		}
	}
	if len(samples) == 0 {
		return fmt.Errorf("no %s samples in %s", analyzeSub, meta.ID)
	}

	fmt.Printf("error analysis: %s (%s)\n", meta.ID, analyzeSub)
	fmt.Printf("robot: %s  law: %s\n\n", meta.Robot, meta.Law)

	spec, err := analysis.ErrorSpectrum(samples)
	if err != nil {
		return err
	}
	// the interesting part of a tracking error is well below Nyquist
	plotData := spec.Power[:max(len(spec.Power)/4, 1)]
	graph := asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(phaseWidth),
		asciigraph.Caption(fmt.Sprintf("error power spectrum, 0 to %.0f hz", spec.Freq[len(plotData)-1])),
	)
	fmt.Println(graph)
	fmt.Println()

	hz, _ := spec.Dominant()
	fmt.Printf("dominant frequency: %.3f hz\n", hz)
	if hz > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/hz)
	}

	fmt.Println("\nphase portrait (error against error rate):")
	fmt.Print(analysis.PhaseToASCII(analysis.ErrorPhase(samples), phaseWidth, phaseHeight))
	return nil
}

// parseGrid reads name=v1,v2,... pairs into grid axes, keeping the order
// given.
func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("%w: want name=v1,v2,... got %q", tune.ErrBadGrid, spec)
		}
		var values []float64
		for _, f := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %s: %v", tune.ErrBadGrid, name, err)
			}
			values = append(values, v)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(gridParams)
	if err != nil {
		return err
	}
	grid, err := tune.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	grid.Workers = workers

	ctx, cancel := interruptible(0)
	defer cancel()

	fmt.Printf("tuning %s on %s: %d points, %s each...\n",
		cfg.Flywheel.Control.Law, metric, grid.Size(), hold)
	res, err := grid.Search(ctx, tune.FlywheelObjective(cfg, metric, hold))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAM\tVALUE")
	keys := make([]string, 0, len(res.Params))
	for k := range res.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%g\n", k, res.Params[k])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%s: %.4f (%d tried, %d failed)\n", metric, res.Score, res.Tried, res.Failed)
	return nil
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/motioncore/internal/config"
	"github.com/san-kum/motioncore/internal/device/feetech"
	"github.com/san-kum/motioncore/internal/storage"
	"github.com/san-kum/motioncore/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROBOT\tROUTINE\tLAW\tBACKEND\tTIME\tDURATION\tSAMPLES\tERROR")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.2fs\t%d\t%s\n",
			run.ID,
			run.Robot,
			run.Routine,
			run.Law,
			run.Backend,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Samples,
			run.Error,
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, *storage.Store, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, st, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, st, err := loadRun(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(meta.ID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("robot: %s  routine: %s  law: %s\n", meta.Robot, meta.Routine, meta.Law)
	fmt.Printf("samples: %d\n\n", len(samples))

	opts := viz.PlotOptions{Width: plotWidth, Height: plotHeight, Output: !noOutput}
	subs := storage.Subsystems(samples)
	if subsystem != "" {
		subs = []string{subsystem}
	}
	for _, sub := range subs {
		graph, err := viz.PlotRun(samples, sub, opts)
		if err != nil {
			return err
		}
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	meta, st, err := loadRun(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(meta.ID)
	if err != nil {
		return err
	}
	return storage.ExportCSV(outFile, samples)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, st, err := loadRun(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(meta.ID)
	if err != nil {
		return err
	}
	return storage.ExportJSON(outFile, *meta, samples)
}

func exportPNG(cmd *cobra.Command, args []string) error {
	meta, st, err := loadRun(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(meta.ID)
	if err != nil {
		return err
	}

	path := outFile
	if path == "" {
		path = meta.ID + ".png"
	}
	subs := subsystems
	if len(subs) == 0 {
		subs = storage.Subsystems(samples)
	}
	title := fmt.Sprintf("%s %s (%s)", meta.Robot, meta.Routine, meta.Law)
	if err := viz.SavePlot(path, title, samples, subs); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tLAW\tENCODERS\tROLLER\tCONVEYOR")
	for _, name := range config.ListPresets() {
		c := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%v\t%v\t%v\n",
			name,
			c.Flywheel.Control.Law,
			c.Drive.Encoders != nil,
			!c.Roller.Empty(),
			!c.Conveyor.Empty(),
		)
	}
	return w.Flush()
}

func listPorts(cmd *cobra.Command, args []string) error {
	ports, err := feetech.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

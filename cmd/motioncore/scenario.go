package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/motioncore/internal/scenario"
	"github.com/san-kum/motioncore/internal/trace"
)

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := interruptible(0)
	defer cancel()

	fmt.Printf("scenario %s: %d steps\n", sc.Name, len(sc.Steps))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}
	fmt.Println()

	// report whatever finished even when a later step fails
	results, runErr := scenario.Run(ctx, sc, nil)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tROBOT\tROUTINE\tLAW\tSETTLE\tIAE\tERROR\tRUN")
	for i, r := range results {
		runID := "-"
		if !noSave {
			if runID, err = save(r); err != nil {
				return err
			}
		}
		errText := "-"
		if r.Err != nil {
			errText = r.Err.Error()
		}
		m := r.Metrics[trace.Flywheel]
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.3fs\t%.1f\t%s\t%s\n",
			i+1, r.Robot, r.Routine, r.Law, m["settle_time"], m["iae"], errText, runID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

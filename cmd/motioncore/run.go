package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/motioncore/internal/auton"
	"github.com/san-kum/motioncore/internal/config"
	"github.com/san-kum/motioncore/internal/robot"
	"github.com/san-kum/motioncore/internal/sim"
	"github.com/san-kum/motioncore/internal/storage"
	"github.com/san-kum/motioncore/internal/telemetry"
	"github.com/san-kum/motioncore/internal/trace"
	"github.com/san-kum/motioncore/internal/viz"
)

const defaultRoutine = "test"

func runSim(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Backend = config.BackendSim

	routine := defaultRoutine
	if len(args) > 0 {
		routine = args[0]
	}
	ctx, cancel := interruptible(0)
	defer cancel()

	if len(laws) > 0 {
		return compareLaws(ctx, cfg, routine)
	}

	fmt.Printf("running %s on %s (%s)...\n", routine, cfg.Name, cfg.Flywheel.Control.Law)
	result, err := sim.New(sim.Config{
		Robot:      cfg,
		Routine:    routine,
		Timeout:    timeout,
		MaxSamples: maxSamples,
	}).Run(ctx)
	if err != nil {
		return err
	}
	return report(result)
}

// compareLaws runs the routine once per flywheel law on separate worlds.
func compareLaws(ctx context.Context, base *config.Config, routine string) error {
	cfgs := make([]sim.Config, 0, len(laws))
	for _, l := range laws {
		rc := *base
		rc.Name = base.Name + "-" + l
		rc.Flywheel.Control.Law = l
		if err := rc.Validate(); err != nil {
			return err
		}
		cfgs = append(cfgs, sim.Config{
			Robot:      &rc,
			Routine:    routine,
			Timeout:    timeout,
			MaxSamples: maxSamples,
		})
	}

	fmt.Printf("comparing %d flywheel laws on %s...\n\n", len(cfgs), routine)
	results, err := sim.NewEnsemble(cfgs...).Run(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LAW\tSETTLE\tOVERSHOOT\tSS_ERROR\tIAE\tEFFORT\tRUN")
	for _, r := range results {
		m := r.Metrics[trace.Flywheel]
		runID := "-"
		if !noSave {
			if runID, err = save(r); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%s\t%.3fs\t%.1f%%\t%.2f\t%.1f\t%.0f\t%s\n",
			r.Law, m["settle_time"], m["overshoot_pct"], m["steady_state_error"],
			m["iae"], m["control_effort"], runID)
	}
	return w.Flush()
}

func save(r *sim.Result) (string, error) {
	st := storage.New(dataDir)
	return st.Save(r.Metadata(), r.Samples)
}

// report prints a finished run and stores it unless --no-save was given.
func report(r *sim.Result) error {
	fmt.Printf("completed in %v\n", r.Duration.Round(time.Millisecond))
	if r.Err != nil {
		fmt.Printf("routine ended early: %v\n", r.Err)
	}
	fmt.Printf("samples: %d", len(r.Samples))
	if r.Dropped > 0 {
		fmt.Printf(" (%d dropped)", r.Dropped)
	}
	fmt.Println()

	if !noSave {
		runID, err := save(r)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Println("\nmetrics:")
	subs := make([]string, 0, len(r.Metrics))
	for s := range r.Metrics {
		subs = append(subs, s)
	}
	sort.Strings(subs)
	for _, s := range subs {
		fmt.Printf("  %s\n", s)
		names := make([]string, 0, len(r.Metrics[s]))
		for n := range r.Metrics[s] {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Printf("    %s: %.6f\n", n, r.Metrics[s][n])
		}
	}
	return nil
}

func runAuton(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg := auton.Default()
	routine, err := pickRoutine(reg, args)
	if err != nil {
		return err
	}

	ctx, cancel := interruptible(timeout)
	defer cancel()

	if cfg.Backend == config.BackendSim {
		fmt.Printf("running %s on the simulator...\n", routine)
		result, err := sim.New(sim.Config{Robot: cfg, Routine: routine, Registry: reg}).Run(ctx)
		if err != nil {
			return err
		}
		return report(result)
	}

	run, _ := reg.Get(routine)
	dev, stop, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer stop()
	rb, err := robot.New(cfg, dev)
	if err != nil {
		dev.Close()
		return err
	}
	recording := sim.Record(rb, 0, 0)

	fmt.Printf("running %s on %s...\n", routine, cfg.Backend)
	start := time.Now()
	if err := rb.Init(ctx); err != nil {
		rb.Close()
		return err
	}
	runErr := rb.Autonomous(ctx, run)
	elapsed := time.Since(start)
	if err := rb.Close(); err != nil {
		log.WithError(err).Warn("closing backend")
	}
	return report(recording.Result(routine, elapsed, runErr))
}

func runDrive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := interruptible(driveTime)
	defer cancel()

	rb, stop, err := startRobot(ctx, cfg)
	if err != nil {
		return err
	}
	defer stop()

	pad, err := rb.Backend.Gamepad(0)
	if err != nil {
		return err
	}
	fmt.Printf("driver control on %s, ctrl-c to stop\n", cfg.Backend)
	return ignoreDone(rb.OpControl(ctx, pad))
}

// startRobot opens the backend, builds the robot and runs Init. The
// returned stop closes everything.
func startRobot(ctx context.Context, cfg *config.Config) (*robot.Robot, func(), error) {
	dev, stopDev, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	rb, err := robot.New(cfg, dev)
	if err != nil {
		stopDev()
		dev.Close()
		return nil, nil, err
	}
	if err := rb.Init(ctx); err != nil {
		stopDev()
		rb.Close()
		return nil, nil, err
	}
	return rb, func() {
		if err := rb.Close(); err != nil {
			log.WithError(err).Warn("closing backend")
		}
		stopDev()
	}, nil
}

// ignoreDone treats the end of a run by interrupt or time limit as success.
func ignoreDone(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Backend = config.BackendSim
	routine := defaultRoutine
	if len(args) > 0 {
		routine = args[0]
	}
	title := dashTitle
	if title == "" {
		title = fmt.Sprintf("%s · %s · %s", cfg.Name, routine, cfg.Flywheel.Control.Law)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the dashboard logs nothing itself; keep the run quiet under it
	log.SetLevel(log.ErrorLevel)

	ch := trace.NewChannel(4096)
	s := sim.New(sim.Config{Robot: cfg, Routine: routine, Timeout: timeout})
	s.AddObserver(ch)

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(ctx)
		// no samples arrive once Run has returned
		close(ch.C)
		done <- err
	}()

	if err := viz.RunDashboard(title, ch.C); err != nil {
		return err
	}
	cancel()
	return <-done
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tc := cfg.Telemetry
	if cmd.Flags().Changed("listen") {
		tc.Listen = listen
	}
	if cmd.Flags().Changed("mqtt") {
		tc.MQTTBroker = mqttBroker
	}
	if cmd.Flags().Changed("interval") {
		tc.Interval = interval
	}

	ctx, cancel := interruptible(driveTime)
	defer cancel()

	rb, stop, err := startRobot(ctx, cfg)
	if err != nil {
		return err
	}
	defer stop()

	var pubs []telemetry.Publisher
	hub := telemetry.NewHub()
	defer hub.Close()
	pubs = append(pubs, hub)

	if tc.MQTTBroker != "" {
		mp, err := telemetry.DialMQTT(tc.MQTTBroker, "motioncore-"+cfg.Name, tc.TopicPrefix, 5*time.Second)
		if err != nil {
			return err
		}
		defer mp.Close()
		pubs = append(pubs, mp)
	}

	latest := telemetry.NewLatest()
	rb.Trace.Attach(latest)
	rep := telemetry.NewReporter(tc.Interval, pubs, sources(rb)...).WithTrace(latest)
	if err := rep.Start(ctx); err != nil {
		return err
	}
	defer rep.Stop()

	var srv *http.Server
	if tc.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/telemetry", hub)
		srv = &http.Server{Addr: tc.Listen, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("telemetry server failed")
				cancel()
			}
		}()
		fmt.Printf("telemetry on ws://%s/telemetry\n", tc.Listen)
		defer srv.Close()
	}

	if withRoutine != "" {
		run, err := auton.Default().Get(withRoutine)
		if err != nil {
			return err
		}
		err = rb.Autonomous(ctx, run)
		fmt.Printf("sent %d snapshots (%d failed)\n", rep.Sent(), rep.Failures())
		return ignoreDone(err)
	}

	pad, err := rb.Backend.Gamepad(0)
	if err != nil {
		return err
	}
	err = rb.OpControl(ctx, pad)
	fmt.Printf("sent %d snapshots (%d failed)\n", rep.Sent(), rep.Failures())
	return ignoreDone(err)
}

// sources lists every motor group of the robot for telemetry.
func sources(rb *robot.Robot) []telemetry.Source {
	srcs := []telemetry.Source{
		{Name: "drive_left", Motors: rb.Drive.Left()},
		{Name: "drive_right", Motors: rb.Drive.Right()},
		{Name: "flywheel", Motors: rb.Flywheel.Motors()},
		{Name: "intake", Motors: rb.Intake.Motors()},
		{Name: "indexer", Motors: rb.Indexer.Motors()},
	}
	if rb.Roller != nil {
		srcs = append(srcs, telemetry.Source{Name: "roller", Motors: rb.Roller.Motors()})
	}
	if rb.Conveyor != nil {
		srcs = append(srcs, telemetry.Source{Name: "conveyor", Motors: rb.Conveyor.Motors()})
	}
	return srcs
}

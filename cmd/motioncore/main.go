package main

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/motioncore/internal/auton"
	"github.com/san-kum/motioncore/internal/trace"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string

	// overrides applied over the loaded config when set
	backend    string
	serialPort string
	law        string
	integrator string

	timeout    time.Duration
	maxSamples int
	noSave     bool
	laws       []string

	subsystem  string
	subsystems []string
	plotWidth  int
	plotHeight int
	noOutput   bool
	outFile    string

	listen      string
	mqttBroker  string
	interval    time.Duration
	driveTime   time.Duration
	dashTitle   string
	withRoutine string

	analyzeSub  string
	phaseWidth  int
	phaseHeight int

	gridParams []string
	metric     string
	hold       time.Duration
	workers    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "motioncore",
		Short:        "drivetrain and flywheel motion control for competition robots",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".motioncore", "data directory")
	pf.StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.StringVar(&configFile, "config", "", "robot config file (yaml)")
	pf.StringVar(&preset, "preset", "", "use a preset robot configuration")

	simCmd := &cobra.Command{
		Use:   "sim [routine]",
		Short: "run an autonomous routine on the simulated robot and record it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSim,
	}
	addRobotFlags(simCmd)
	simCmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "abort the routine after this long")
	simCmd.Flags().IntVar(&maxSamples, "max-samples", 0, "cap on recorded samples (0 keeps all)")
	simCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	simCmd.Flags().StringSliceVar(&laws, "laws", nil, "compare flywheel laws side by side (pid,feedforward,tbh)")

	autonCmd := &cobra.Command{
		Use:   "auton [routine]",
		Short: "run an autonomous routine on the configured backend",
		Long:  "Runs one autonomous routine on the configured backend. Without a routine name a picker lists the registered ones.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAuton,
	}
	addRobotFlags(autonCmd)
	autonCmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "abort the routine after this long")
	autonCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	driveCmd := &cobra.Command{
		Use:   "drive",
		Short: "run driver control on the configured backend until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runDrive,
	}
	addRobotFlags(driveCmd)
	driveCmd.Flags().DurationVar(&driveTime, "time", 0, "stop after this long (0 runs until interrupted)")

	liveCmd := &cobra.Command{
		Use:   "live [routine]",
		Short: "run a simulated routine with a live dashboard",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRobotFlags(liveCmd)
	liveCmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "abort the routine after this long")
	liveCmd.Flags().StringVar(&dashTitle, "title", "", "dashboard title")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "publish motor telemetry over websocket and mqtt while the robot runs",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addRobotFlags(serveCmd)
	serveCmd.Flags().StringVar(&listen, "listen", "", "websocket listen address (overrides config)")
	serveCmd.Flags().StringVar(&mqttBroker, "mqtt", "", "mqtt broker url (overrides config)")
	serveCmd.Flags().DurationVar(&interval, "interval", 0, "telemetry interval (overrides config)")
	serveCmd.Flags().StringVar(&withRoutine, "routine", "", "run this autonomous routine instead of driver control")
	serveCmd.Flags().DurationVar(&driveTime, "time", 0, "stop after this long (0 runs until interrupted)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot target against measurement for a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&subsystem, "subsystem", "", "plot only this subsystem")
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")
	plotCmd.Flags().BoolVar(&noOutput, "no-output", false, "omit the motor command graph")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "output", "o", "-", "output file")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and samples to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "-", "output file")

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "render a recorded run to an image (png, svg or pdf by extension)",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPNG,
	}
	exportPNGCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default <run_id>.png)")
	exportPNGCmd.Flags().StringSliceVar(&subsystems, "subsystem", nil, "subsystems to draw (default all)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and phase analysis of a subsystem's tracking error",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&analyzeSub, "subsystem", trace.Flywheel, "subsystem to analyze")
	analyzeCmd.Flags().IntVar(&phaseWidth, "width", 80, "plot width")
	analyzeCmd.Flags().IntVar(&phaseHeight, "height", 20, "phase portrait height")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search flywheel constants on the simulator",
		Long:  "Spins the simulated flywheel up once per grid point and reports the constants with the lowest metric.\nExample: motioncore tune --law tbh --param gain=0.0005,0.001,0.002 --param limit=12000",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	addRobotFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&gridParams, "param", nil, "grid axis as name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&metric, "metric", "iae", "flywheel metric to minimise")
	tuneCmd.Flags().DurationVar(&hold, "hold", auton.SpinupHold, "how long each point holds fast speed")
	tuneCmd.Flags().IntVar(&workers, "workers", 4, "points simulated at once")
	_ = tuneCmd.MarkFlagRequired("param")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the simulated steps listed in a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list robot presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	portsCmd := &cobra.Command{
		Use:   "ports",
		Short: "list serial ports a servo bus could be on",
		Args:  cobra.NoArgs,
		RunE:  listPorts,
	}

	rootCmd.AddCommand(simCmd, autonCmd, driveCmd, liveCmd, serveCmd,
		listCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportPNGCmd,
		analyzeCmd, tuneCmd, scenarioCmd, presetsCmd, portsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRobotFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&backend, "backend", "", "device backend (sim or feetech)")
	cmd.Flags().StringVar(&serialPort, "port", "", "serial port of the servo bus")
	cmd.Flags().StringVar(&law, "law", "", "flywheel control law (pid, feedforward, tbh)")
	cmd.Flags().StringVar(&integrator, "integrator", "", "simulation integrator")
}

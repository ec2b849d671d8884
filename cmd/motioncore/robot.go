package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/san-kum/motioncore/internal/auton"
	"github.com/san-kum/motioncore/internal/config"
	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/device/feetech"
	"github.com/san-kum/motioncore/internal/plant"
)

// loadConfig resolves the robot config: a preset, then a config file over
// it, then any flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = backend
	}
	if flags.Changed("port") {
		cfg.Serial.Port = serialPort
	}
	if flags.Changed("law") {
		cfg.Flywheel.Control.Law = law
	}
	if flags.Changed("integrator") {
		cfg.Sim.Integrator = integrator
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openBackend connects the devices the config names. For the simulator
// the world is advanced in real time until the returned stop is called;
// stop does not close the backend.
func openBackend(ctx context.Context, cfg *config.Config) (device.Backend, func(), error) {
	switch cfg.Backend {
	case config.BackendFeetech:
		b, err := feetech.Open(ctx, feetech.Config{
			Port:     cfg.Serial.Port,
			BaudRate: cfg.Serial.Baud,
			Timeout:  cfg.Serial.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return b, func() {}, nil
	default:
		world := plant.NewWorld(plant.WithIntegrator(cfg.Sim.Integrator))
		step := cfg.Sim.Step
		if step <= 0 {
			step = time.Millisecond
		}
		worldCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			world.Run(worldCtx, step)
		}()
		return world, func() { cancel(); <-done }, nil
	}
}

// pickRoutine returns the routine named on the command line, or asks for
// one.
func pickRoutine(reg *auton.Registry, args []string) (string, error) {
	if len(args) > 0 {
		if _, err := reg.Get(args[0]); err != nil {
			return "", fmt.Errorf("%w (available: %v)", err, reg.Names())
		}
		return args[0], nil
	}

	var options []huh.Option[string]
	for _, name := range reg.Names() {
		options = append(options, huh.NewOption(fmt.Sprintf("%s - %s", name, reg.Describe(name)), name))
	}
	var name string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which autonomous routine?").
				Options(options...).
				Value(&name),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return name, nil
}

// interruptible is cancelled on SIGINT or SIGTERM, and after d when d > 0.
func interruptible(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() { cancel(); stop() }
}

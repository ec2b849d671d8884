// Package robot assembles the subsystems of one robot from a config and
// runs the two competition phases against them. A Robot is built once
// at startup and handed to autonomous routines and the driver loop.
package robot

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/motioncore/internal/config"
	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/drivetrain"
	"github.com/san-kum/motioncore/internal/flywheel"
	"github.com/san-kum/motioncore/internal/mechanism"
	"github.com/san-kum/motioncore/internal/motorgroup"
	"github.com/san-kum/motioncore/internal/trace"
)

// DriverPeriod is the driver-control loop period.
const DriverPeriod = 2 * time.Millisecond

// Routine is an autonomous script.
type Routine func(ctx context.Context, r *Robot) error

// encoderLinker is implemented by backends that must be told which motor
// an encoder's wheel rides on, such as the simulator.
type encoderLinker interface {
	LinkEncoder(top byte, port int, ratio float64)
}

type Robot struct {
	Config  *config.Config
	Backend device.Backend

	Drive    *drivetrain.Drivetrain
	Flywheel *flywheel.Flywheel
	Intake   *mechanism.Intake
	Indexer  *mechanism.Indexer

	// nil when the config does not fit them
	Roller    *mechanism.Roller
	Conveyor  *mechanism.Conveyor
	Expansion *mechanism.Piston

	// Trace receives every drive and flywheel sample.
	Trace *trace.Hub

	log *log.Entry
}

func New(cfg *config.Config, backend device.Backend) (*Robot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Robot{
		Config:  cfg,
		Backend: backend,
		Trace:   &trace.Hub{},
		log:     log.WithField("robot", cfg.Name),
	}
	if err := r.buildDrive(); err != nil {
		return nil, err
	}

	group := func(name string, m config.Motors) (*motorgroup.Group, error) {
		g, err := motorgroup.FromPorts(backend, m.Ports, m.Reversed)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return g, nil
	}

	fw, err := group("flywheel", cfg.Flywheel.Motors)
	if err != nil {
		return nil, err
	}
	if r.Flywheel, err = flywheel.New(cfg.Flywheel.Control, fw); err != nil {
		return nil, err
	}
	r.Flywheel.SetObserver(r.Trace)

	in, err := group("intake", cfg.Intake)
	if err != nil {
		return nil, err
	}
	r.Intake = mechanism.NewIntake(in)

	idx, err := group("indexer", cfg.Indexer.Motors)
	if err != nil {
		return nil, err
	}
	r.Indexer = mechanism.NewIndexer(cfg.Indexer.Control, idx)

	if !cfg.Roller.Empty() {
		g, err := group("roller", cfg.Roller.Motors)
		if err != nil {
			return nil, err
		}
		r.Roller = mechanism.NewRoller(g, cfg.Roller.GearRatio)
	}
	if !cfg.Conveyor.Empty() {
		g, err := group("conveyor", cfg.Conveyor)
		if err != nil {
			return nil, err
		}
		r.Conveyor = mechanism.NewConveyor(g)
	}
	if cfg.Expansion != "" {
		pin, _ := config.Pin(cfg.Expansion)
		out, err := backend.DigitalOut(pin)
		if err != nil {
			return nil, fmt.Errorf("expansion: %w", err)
		}
		r.Expansion = mechanism.NewPiston("expansion", out)
	}
	return r, nil
}

func (r *Robot) buildDrive() error {
	cfg := r.Config.Drive
	left, err := motorgroup.FromPorts(r.Backend, cfg.Left.Ports, cfg.Left.Reversed)
	if err != nil {
		return fmt.Errorf("drive left: %w", err)
	}
	right, err := motorgroup.FromPorts(r.Backend, cfg.Right.Ports, cfg.Right.Reversed)
	if err != nil {
		return fmt.Errorf("drive right: %w", err)
	}
	gs, _ := device.ParseGearset(cfg.Gearset)
	bm, _ := device.ParseBrakeMode(cfg.BrakeMode)
	for _, g := range []*motorgroup.Group{left, right} {
		g.SetGearing(gs)
		g.SetBrakeMode(bm)
	}

	if r.Drive, err = drivetrain.New(cfg.Control, left, right); err != nil {
		return err
	}
	r.Drive.SetObserver(r.Trace)

	if e := cfg.Encoders; e != nil {
		lt, _ := config.Pin(e.LeftTop)
		lb, _ := config.Pin(e.LeftBottom)
		rt, _ := config.Pin(e.RightTop)
		rb, _ := config.Pin(e.RightBottom)
		if l, ok := r.Backend.(encoderLinker); ok {
			l.LinkEncoder(lt, cfg.Left.Ports[0], e.SimRatio)
			l.LinkEncoder(rt, cfg.Right.Ports[0], e.SimRatio)
		}
		ls, err := r.Backend.RotationSensor(lt, lb, e.LeftReversed)
		if err != nil {
			return fmt.Errorf("left encoder: %w", err)
		}
		rs, err := r.Backend.RotationSensor(rt, rb, e.RightReversed)
		if err != nil {
			return fmt.Errorf("right encoder: %w", err)
		}
		r.Drive.AddEncoders(ls, rs)
	}
	return nil
}

// Init starts the flywheel loop parked, ready for either phase.
func (r *Robot) Init(ctx context.Context) error {
	if err := r.Flywheel.InitTask(ctx); err != nil {
		return fmt.Errorf("flywheel: %w", err)
	}
	r.Flywheel.PauseTask()
	r.log.Info("initialized")
	return nil
}

// Autonomous spins the flywheel, starts the drive loop, runs the routine
// and parks both afterwards whatever the routine returned.
func (r *Robot) Autonomous(ctx context.Context, routine Routine) error {
	r.Flywheel.ResumeTask()
	if err := r.Drive.InitTask(ctx); err != nil {
		r.Flywheel.PauseTask()
		return fmt.Errorf("drive: %w", err)
	}
	defer func() {
		r.Drive.EndTask()
		r.Flywheel.PauseTask()
	}()

	start := time.Now()
	err := routine(ctx, r)
	entry := r.log.WithField("elapsed", time.Since(start).Round(time.Millisecond))
	if err != nil {
		entry.WithError(err).Warn("autonomous ended early")
		return err
	}
	entry.Info("autonomous finished")
	return nil
}

// OpControl runs the driver loop until ctx is done, then ends the
// flywheel loop.
func (r *Robot) OpControl(ctx context.Context, pad device.Gamepad) error {
	r.Flywheel.ResumeTask()
	defer r.Flywheel.EndTask()

	drv := drivetrain.Driver{Pad: pad, ReverseButton: device.ButtonX}
	ticker := time.NewTicker(DriverPeriod)
	defer ticker.Stop()
	for {
		r.DriverStep(drv)
		select {
		case <-ctx.Done():
			r.Drive.Brake()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DriverStep applies one cycle of the operator bindings.
func (r *Robot) DriverStep(drv drivetrain.Driver) {
	pad := drv.Pad
	r.Drive.TankDriverPoly(drv, r.Config.Drive.Control.PolyExponent)
	r.Flywheel.Driver(pad, device.ButtonL1, device.ButtonL2)
	if r.Conveyor != nil {
		r.Conveyor.Driver(pad, device.ButtonA, device.ButtonB)
	}
	r.Intake.Driver(pad, device.ButtonR1, device.ButtonR2)
	if r.Roller != nil {
		r.Roller.Driver(pad, device.ButtonUp, device.ButtonDown)
	}
	if r.Expansion != nil {
		r.Expansion.Driver(pad, device.ButtonUp)
	}
}

// Close stops both loops and releases the backend.
func (r *Robot) Close() error {
	r.Drive.EndTask()
	r.Flywheel.EndTask()
	return r.Backend.Close()
}

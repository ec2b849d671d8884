package sim

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/motioncore/internal/auton"
	"github.com/san-kum/motioncore/internal/config"
	"github.com/san-kum/motioncore/internal/plant"
	"github.com/san-kum/motioncore/internal/robot"
	"github.com/san-kum/motioncore/internal/trace"
)

type Simulator struct {
	cfg       Config
	observers []trace.Observer
}

func New(cfg Config) *Simulator {
	return &Simulator{cfg: cfg}
}

// AddObserver receives every sample while the run is in progress.
func (s *Simulator) AddObserver(o trace.Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) validateConfig() error {
	if s.cfg.Robot == nil {
		return ErrNoRobot
	}
	if s.cfg.Timeout < 0 {
		return fmt.Errorf("sim: timeout must not be negative, got %v", s.cfg.Timeout)
	}
	return s.cfg.Robot.Validate()
}

// Run builds a fresh simulated robot, runs Init and then the routine as
// the autonomous phase in real time. A routine failure is reported in
// Result.Err; the returned error covers setup only.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	if err := s.validateConfig(); err != nil {
		return nil, err
	}
	reg := s.cfg.Registry
	if reg == nil {
		reg = auton.Default()
	}
	routine, err := reg.Get(s.cfg.Routine)
	if err != nil {
		return nil, err
	}

	rc := s.cfg.Robot
	world := plant.NewWorld(plant.WithIntegrator(rc.Sim.Integrator))
	rb, err := robot.New(rc, world)
	if err != nil {
		return nil, err
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	worldCtx, stopWorld := context.WithCancel(ctx)
	worldDone := make(chan struct{})
	step := rc.Sim.Step
	if step <= 0 {
		step = time.Millisecond
	}
	go func() {
		defer close(worldDone)
		world.Run(worldCtx, step)
	}()
	defer func() {
		stopWorld()
		<-worldDone
	}()

	recording := Record(rb, s.cfg.FlywheelBand, s.cfg.MaxSamples)
	for _, o := range s.observers {
		rb.Trace.Attach(o)
	}

	entry := log.WithField("robot", rc.Name).WithField("routine", s.cfg.Routine)
	entry.Debug("simulation starting")

	start := time.Now()
	if err := rb.Init(ctx); err != nil {
		rb.Close()
		return nil, err
	}
	runErr := rb.Autonomous(ctx, routine)
	elapsed := time.Since(start)
	rb.Close()

	result := recording.Result(s.cfg.Routine, elapsed, runErr)
	result.Backend = config.BackendSim

	entry.WithField("elapsed", elapsed.Round(time.Millisecond)).
		WithField("samples", len(result.Samples)).
		Info("simulation finished")
	return result, nil
}

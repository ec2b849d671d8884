// Package flywheel holds a launcher wheel at a target velocity.
//
// Unlike the drivetrain there is no settled state: once resumed the loop
// emits a fresh command every cycle. Pausing brakes the wheel and keeps
// the law's internal state, so a resumed loop picks up where it stopped.
// Changing the target never resets the law; call ResetLaw for that.
package flywheel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/motioncore/internal/control"
	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/motorgroup"
	"github.com/san-kum/motioncore/internal/task"
	"github.com/san-kum/motioncore/internal/trace"
)

type Flywheel struct {
	cfg      Config
	motors   *motorgroup.Group
	log      *log.Entry
	observer trace.Observer

	target       task.Float64
	output       task.Float64
	manual       atomic.Bool
	reversed     atomic.Bool
	resetPending atomic.Bool

	mu    sync.Mutex
	loop  *task.Task
	start time.Time

	// swapped only while the loop is parked
	law     control.VelocityLaw
	lawName atomic.Value
}

// New configures the group for a direct-drive wheel: blue cartridge,
// degree units, coasting when idle.
func New(cfg Config, motors *motorgroup.Group) (*Flywheel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if motors == nil {
		return nil, device.ErrNoMotors
	}
	law, err := cfg.NewLaw()
	if err != nil {
		return nil, err
	}
	motors.SetEncoderUnits(device.UnitsDegrees)
	motors.SetGearing(device.GearsetBlue)
	motors.SetBrakeMode(device.BrakeCoast)

	f := &Flywheel{
		cfg:    cfg,
		motors: motors,
		law:    law,
		log:    log.WithField("subsystem", "flywheel"),
	}
	f.lawName.Store(law.Name())
	return f, nil
}

func (f *Flywheel) Config() Config               { return f.cfg }
func (f *Flywheel) Motors() *motorgroup.Group    { return f.motors }
func (f *Flywheel) SetObserver(o trace.Observer) { f.withLoopPaused(func() { f.observer = o }) }
func (f *Flywheel) Target() float64              { return f.target.Load() }
func (f *Flywheel) Output() float64              { return f.output.Load() }
func (f *Flywheel) Velocity() float64            { return f.motors.AvgVelocity() }
func (f *Flywheel) Manual() bool                 { return f.manual.Load() }

func (f *Flywheel) withLoopPaused(fn func()) {
	if loop := f.task(); loop != nil {
		loop.WithPaused(fn)
		return
	}
	fn()
}

// SetTargetVelocity changes the target in rpm. The law keeps its state.
func (f *Flywheel) SetTargetVelocity(rpm float64) {
	f.target.Store(rpm)
	f.manual.Store(false)
	f.log.WithField("rpm", rpm).Debug("target velocity")
}

func (f *Flywheel) SetSpeedFast() { f.SetTargetVelocity(float64(f.cfg.FastSpeed)) }
func (f *Flywheel) SetSpeedSlow() { f.SetTargetVelocity(float64(f.cfg.SlowSpeed)) }

// Law returns the name of the active law without touching the loop, so it
// is safe from an observer running inside a cycle.
func (f *Flywheel) Law() string { return f.lawName.Load().(string) }

// SetLaw swaps the control law. The new law starts from its own state.
func (f *Flywheel) SetLaw(law control.VelocityLaw) {
	f.withLoopPaused(func() {
		f.law = law
		f.lawName.Store(law.Name())
	})
	f.log.WithField("law", law.Name()).Info("control law changed")
}

// UseLaw switches to one of the configured laws by name.
func (f *Flywheel) UseLaw(name string) error {
	law, err := f.cfg.LawByName(name)
	if err != nil {
		return err
	}
	f.SetLaw(law)
	return nil
}

// ResetLaw clears the law's integral and estimates before the next cycle.
func (f *Flywheel) ResetLaw() {
	f.resetPending.Store(true)
}

// Tune sets one constant on the active law, if it exposes any.
func (f *Flywheel) Tune(name string, value float64) error {
	var err error
	f.withLoopPaused(func() {
		c, ok := f.law.(control.Configurable)
		if !ok {
			err = ErrNotTunable
			return
		}
		c.SetParam(name, value)
	})
	return err
}

// Params returns the active law's constants, or nil if it has none.
func (f *Flywheel) Params() map[string]float64 {
	var p map[string]float64
	f.withLoopPaused(func() {
		if c, ok := f.law.(control.Configurable); ok {
			p = c.GetParams()
		}
	})
	return p
}

// SetVelocity spins the wheel on the motors' own velocity controller,
// bypassing the law until the next SetTargetVelocity.
func (f *Flywheel) SetVelocity(rpm int) {
	f.manual.Store(true)
	f.motors.MoveVelocity(rpm)
}

// SetVoltage drives the wheel open loop, mostly for finding kV.
func (f *Flywheel) SetVoltage(mv int) {
	f.manual.Store(true)
	f.motors.MoveVoltage(device.ClampVoltage(mv))
}

func (f *Flywheel) Stop() {
	f.motors.Brake()
}

// InitTask starts the loop. Use PauseTask right away to keep the wheel
// idle until it is needed.
func (f *Flywheel) InitTask(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loop != nil && f.loop.State() != task.Stopped {
		return task.ErrAlreadyStarted
	}
	f.start = time.Now()
	f.loop = task.New("flywheel", f.cfg.Period, f.step)
	return f.loop.Start(ctx)
}

// PauseTask parks the loop and brakes the wheel.
func (f *Flywheel) PauseTask() {
	if loop := f.task(); loop != nil {
		loop.Pause()
	}
	f.Stop()
}

func (f *Flywheel) ResumeTask() {
	if loop := f.task(); loop != nil {
		loop.Resume()
	}
}

func (f *Flywheel) EndTask() {
	f.mu.Lock()
	loop := f.loop
	f.loop = nil
	f.mu.Unlock()
	if loop != nil {
		loop.Stop()
	}
	f.Stop()
}

func (f *Flywheel) TaskState() task.State {
	if loop := f.task(); loop != nil {
		return loop.State()
	}
	return task.Idle
}

func (f *Flywheel) task() *task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loop
}

func (f *Flywheel) step(context.Context) {
	if f.resetPending.CompareAndSwap(true, false) {
		f.law.Reset()
	}
	if f.manual.Load() {
		return
	}
	target := f.target.Load()
	measured := f.motors.AvgVelocity()
	out := control.Saturate(f.law.Output(target, measured), device.MaxVoltage)
	f.output.Store(out)
	f.motors.MoveVoltage(int(out))

	if f.observer != nil {
		f.observer.Observe(trace.Sample{
			Subsystem: trace.Flywheel,
			Time:      time.Since(f.start),
			Target:    target,
			Measured:  measured,
			Output:    out,
		})
	}
}

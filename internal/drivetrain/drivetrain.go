// Package drivetrain closes a position loop around the two sides of a
// tank-style drive.
//
// A background task compares each side's target with its feedback,
// either external rotation sensors or the averaged motor encoders, and
// drives the motors with the PID recurrence from package control. Both
// sides share one gain set and one settle verdict. Once settled, the loop
// parks the motors until a new target arrives.
package drivetrain

import (
	"context"
	"math"
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

type Drivetrain struct {
	cfg         Config
	left, right *motorgroup.Group
	leftSensor  device.RotationSensor
	rightSensor device.RotationSensor
	observer    trace.Observer
	log         *log.Entry

	leftTarget   task.Float64
	rightTarget  task.Float64
	leftError    task.Float64
	rightError   task.Float64
	settled      atomic.Bool
	turning      atomic.Bool
	manual       atomic.Bool
	reversed     atomic.Bool
	resetPending atomic.Bool

	mu    sync.Mutex
	loop  *task.Task
	start time.Time

	// owned by the loop goroutine
	state loopState
}

type loopState struct {
	leftIntegral, leftPrev   float64
	rightIntegral, rightPrev float64
	lastLeft, lastRight      float64
	hasLast                  bool
	stallCount               int
	parked                   bool
}

// New builds a drivetrain over two motor groups. The groups are switched
// to degree encoder units.
func New(cfg Config, left, right *motorgroup.Group) (*Drivetrain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if left == nil || right == nil {
		return nil, device.ErrNoMotors
	}
	left.SetEncoderUnits(device.UnitsDegrees)
	right.SetEncoderUnits(device.UnitsDegrees)

	d := &Drivetrain{
		cfg:   cfg,
		left:  left,
		right: right,
		log:   log.WithField("subsystem", "drivetrain"),
	}
	d.settled.Store(true)
	return d, nil
}

func (d *Drivetrain) Config() Config { return d.cfg }

func (d *Drivetrain) Left() *motorgroup.Group  { return d.left }
func (d *Drivetrain) Right() *motorgroup.Group { return d.right }

// AddEncoders switches feedback to external rotation sensors.
func (d *Drivetrain) AddEncoders(left, right device.RotationSensor) {
	d.withLoopPaused(func() {
		d.leftSensor, d.rightSensor = left, right
		d.resetSensors()
	})
}

// SetObserver receives one sample per side per loop cycle. Set it before
// InitTask.
func (d *Drivetrain) SetObserver(o trace.Observer) {
	d.withLoopPaused(func() { d.observer = o })
}

// SetGains replaces the straight and turn gain sets.
func (d *Drivetrain) SetGains(straight, turn control.Gains) {
	d.withLoopPaused(func() {
		d.cfg.Straight, d.cfg.Turn = straight, turn
	})
}

func (d *Drivetrain) Targets() (left, right float64) {
	return d.leftTarget.Load(), d.rightTarget.Load()
}

func (d *Drivetrain) Settled() bool { return d.settled.Load() }

// Turning reports whether the turn gains are active.
func (d *Drivetrain) Turning() bool { return d.turning.Load() }

// Manual reports whether an open-loop command is overriding the loop.
func (d *Drivetrain) Manual() bool { return d.manual.Load() }

type Mode int

const (
	ModeStraight Mode = iota
	ModeTurn
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeStraight:
		return "straight"
	case ModeTurn:
		return "turn"
	case ModeManual:
		return "manual"
	}
	return "unknown"
}

func (d *Drivetrain) Mode() Mode {
	switch {
	case d.manual.Load():
		return ModeManual
	case d.turning.Load():
		return ModeTurn
	}
	return ModeStraight
}

// Errors returns the position error each side saw on the last loop cycle.
func (d *Drivetrain) Errors() (left, right float64) {
	return d.leftError.Load(), d.rightError.Load()
}

// Feedback returns each side's position in sensor degrees.
func (d *Drivetrain) Feedback() (left, right float64) {
	if d.leftSensor != nil && d.rightSensor != nil {
		return float64(d.leftSensor.Get()), float64(d.rightSensor.Get())
	}
	return d.left.AvgPosition(), d.right.AvgPosition()
}

func (d *Drivetrain) resetSensors() {
	if d.leftSensor != nil && d.rightSensor != nil {
		d.leftSensor.Reset()
		d.rightSensor.Reset()
	}
	d.left.ResetPositions()
	d.right.ResetPositions()
}

func (d *Drivetrain) withLoopPaused(fn func()) {
	d.mu.Lock()
	loop := d.loop
	d.mu.Unlock()
	if loop == nil {
		fn()
		return
	}
	loop.WithPaused(fn)
}

// MoveStraight drives both sides the same distance in inches. Negative
// distances drive backwards.
func (d *Drivetrain) MoveStraight(inches float64) {
	deg := d.cfg.InchesToDegrees(inches)
	d.retarget(deg, deg, false)
	d.log.WithField("inches", inches).Debug("move straight")
}

// TurnAngle turns in place; positive degrees turn clockwise seen from
// above, driving the left side forward.
func (d *Drivetrain) TurnAngle(deg float64) {
	t := d.cfg.InchesToDegrees(d.cfg.TurnArc(deg))
	d.retarget(t, -t, true)
	d.log.WithField("degrees", deg).Debug("turn angle")
}

// retarget zeroes the feedback and installs new targets with the loop
// parked, so it never sees a new target against an old baseline.
func (d *Drivetrain) retarget(left, right float64, turn bool) {
	d.withLoopPaused(func() {
		d.resetSensors()
		d.leftTarget.Store(left)
		d.rightTarget.Store(right)
		d.turning.Store(turn)
		d.manual.Store(false)
		d.resetPending.Store(true)
		d.settled.Store(false)
		d.leftError.Store(left)
		d.rightError.Store(right)
	})
}

func (d *Drivetrain) override() {
	d.manual.Store(true)
	d.settled.Store(false)
}

// SetVelocity commands each side in rpm, bypassing the loop until the next
// MoveStraight or TurnAngle.
func (d *Drivetrain) SetVelocity(left, right int) {
	d.override()
	d.left.MoveVelocity(left)
	d.right.MoveVelocity(right)
}

// SetVoltage commands each side in millivolts, bypassing the loop.
func (d *Drivetrain) SetVoltage(left, right int) {
	d.override()
	d.left.MoveVoltage(device.ClampVoltage(left))
	d.right.MoveVoltage(device.ClampVoltage(right))
}

func (d *Drivetrain) Brake() {
	d.override()
	d.left.Brake()
	d.right.Brake()
}

// InitTask starts a fresh control loop. Loop memory (integrals, previous
// errors, stall count) starts from zero.
func (d *Drivetrain) InitTask(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loop != nil && d.loop.State() != task.Stopped {
		return task.ErrAlreadyStarted
	}
	d.state = loopState{}
	d.resetPending.Store(false)
	d.start = time.Now()
	d.loop = task.New("drivetrain", d.cfg.Period, d.step)
	return d.loop.Start(ctx)
}

func (d *Drivetrain) PauseTask() {
	if loop := d.task(); loop != nil {
		loop.Pause()
	}
}

func (d *Drivetrain) ResumeTask() {
	if loop := d.task(); loop != nil {
		loop.Resume()
	}
}

// EndTask stops the loop and brakes the drive.
func (d *Drivetrain) EndTask() {
	d.mu.Lock()
	loop := d.loop
	d.loop = nil
	d.mu.Unlock()
	if loop != nil {
		loop.Stop()
	}
	d.left.Brake()
	d.right.Brake()
}

func (d *Drivetrain) task() *task.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loop
}

func (d *Drivetrain) TaskState() task.State {
	if loop := d.task(); loop != nil {
		return loop.State()
	}
	return task.Idle
}

func (d *Drivetrain) same(a, b float64) bool {
	if d.cfg.StallTolerance == 0 {
		return a == b
	}
	return math.Abs(a-b) <= d.cfg.StallTolerance
}

func (d *Drivetrain) step(context.Context) {
	s := &d.state
	if d.resetPending.CompareAndSwap(true, false) {
		*s = loopState{}
	}
	if d.manual.Load() {
		return
	}

	lt, rt := d.Targets()
	lp, rp := d.Feedback()
	le, re := lt-lp, rt-rp
	d.leftError.Store(le)
	d.rightError.Store(re)

	if d.settled.Load() {
		d.park()
		d.emit(lt, rt, lp, rp, 0, 0, true)
		return
	}

	if s.hasLast && d.same(le, s.lastLeft) && d.same(re, s.lastRight) {
		s.stallCount++
	} else {
		s.stallCount = 0
	}
	s.lastLeft, s.lastRight, s.hasLast = le, re, true

	converged := math.Abs(le) < d.cfg.SettleThreshold && math.Abs(re) < d.cfg.SettleThreshold
	stalled := s.stallCount > d.cfg.StallCycles
	if converged || stalled {
		d.settled.Store(true)
		d.park()
		d.emit(lt, rt, lp, rp, 0, 0, true)
		d.log.WithFields(log.Fields{
			"left_error":  le,
			"right_error": re,
			"stalled":     stalled && !converged,
		}).Info("settled")
		return
	}
	s.parked = false

	g := d.cfg.Straight
	if d.turning.Load() {
		g = d.cfg.Turn
	}
	lv := control.Saturate(control.PID(g, le, &s.leftIntegral, &s.leftPrev), device.MaxVoltage)
	rv := control.Saturate(control.PID(g, re, &s.rightIntegral, &s.rightPrev), device.MaxVoltage)

	d.left.MoveVoltage(int(lv))
	d.right.MoveVoltage(int(rv))
	d.emit(lt, rt, lp, rp, lv, rv, false)
}

// park brakes once per settle rather than every cycle.
func (d *Drivetrain) park() {
	if d.state.parked {
		return
	}
	d.left.Brake()
	d.right.Brake()
	d.state.parked = true
}

func (d *Drivetrain) emit(lt, rt, lp, rp, lv, rv float64, settled bool) {
	if d.observer == nil {
		return
	}
	now := time.Since(d.start)
	d.observer.Observe(trace.Sample{Subsystem: trace.DriveLeft, Time: now, Target: lt, Measured: lp, Output: lv, Settled: settled})
	d.observer.Observe(trace.Sample{Subsystem: trace.DriveRight, Time: now, Target: rt, Measured: rp, Output: rv, Settled: settled})
}

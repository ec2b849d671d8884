package feetech

import (
	"context"
	"math"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/motioncore/internal/device"
)

const (
	// StepsPerRev is the resolution of the servo's magnetic encoder.
	StepsPerRev = 4096
	// FullSpeed is the wheel speed, in steps/s, a full-voltage command maps to.
	FullSpeed = 3400

	profileTolerance = 1.0 // degrees
	profileGain      = 0.5 // rpm per degree of error
	stoppedRPM       = 1.0
)

// Servo is the part of a bus servo the motor adapter drives.
type Servo interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Position(ctx context.Context) (int, error)
	SetVelocity(ctx context.Context, speed int) error
}

type mode int

const (
	modeIdle mode = iota
	modeVoltage
	modeVelocity
	modeProfile
	modeBrake
)

// Motor adapts a servo in wheel mode to device.Motor. Commands only change
// what the next update writes; reads reflect the last update.
type Motor struct {
	port  int
	servo Servo
	log   *log.Entry

	mu         sync.Mutex
	mode       mode
	voltage    int
	targetVel  int
	targetPos  float64
	profileRPM int

	reversed     bool
	gearset      device.Gearset
	units        device.EncoderUnits
	brakeMode    device.BrakeMode
	currentLimit int
	voltageLimit int
	offset       float64

	pos     float64 // unwrapped shaft degrees
	vel     float64 // shaft rpm
	lastDeg float64
	haveRaw bool

	speed     int // last written steps/s, physical direction
	written   bool
	torqueOff bool
	faults    device.Fault
}

func newMotor(port int, s Servo) *Motor {
	return &Motor{
		port:         port,
		servo:        s,
		log:          log.WithFields(log.Fields{"backend": "feetech", "servo": port}),
		gearset:      device.GearsetGreen,
		currentLimit: 2500,
		voltageLimit: device.MaxVoltage,
	}
}

func (m *Motor) Port() int { return m.port }

func (m *Motor) sign() float64 {
	if m.reversed {
		return -1
	}
	return 1
}

func (m *Motor) angle() float64 {
	return m.sign()*m.pos - m.offset
}

func (m *Motor) Move(power int) {
	m.MoveVoltage(device.ClampPower(power) * device.MaxVoltage / device.MaxPower)
}

func (m *Motor) MoveVoltage(mv int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = modeVoltage
	m.voltage = device.ClampVoltage(mv)
}

func (m *Motor) MoveVelocity(rpm int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = modeVelocity
	m.targetVel = rpm
}

func (m *Motor) MoveAbsolute(position float64, maxRPM int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = modeProfile
	m.targetPos = m.units.ToDegrees(position, m.gearset)
	m.profileRPM = absInt(maxRPM)
}

func (m *Motor) MoveRelative(delta float64, maxRPM int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = modeProfile
	m.targetPos = m.angle() + m.units.ToDegrees(delta, m.gearset)
	m.profileRPM = absInt(maxRPM)
}

func (m *Motor) ModifyProfiledVelocity(rpm int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == modeProfile {
		m.profileRPM = absInt(rpm)
	}
}

func (m *Motor) Brake() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = modeBrake
}

// demand returns the wheel speed to write in steps/s, in the servo's own
// direction, and whether torque should be released instead.
func (m *Motor) demand() (int, bool) {
	var rpm float64
	switch m.mode {
	case modeIdle:
		return 0, false
	case modeVoltage:
		limit := m.voltageLimit
		mv := math.Max(-float64(limit), math.Min(float64(limit), float64(m.voltage)))
		return int(math.Round(m.sign() * mv / device.MaxVoltage * FullSpeed)), false
	case modeVelocity:
		rpm = float64(m.targetVel)
	case modeProfile:
		err := m.targetPos - m.angle()
		if math.Abs(err) < profileTolerance {
			return 0, false
		}
		rpm = math.Copysign(math.Min(float64(m.profileRPM), profileGain*math.Abs(err)), err)
	case modeBrake:
		return 0, m.brakeMode == device.BrakeCoast
	}
	steps := rpm * StepsPerRev / 60
	steps = math.Max(-FullSpeed, math.Min(FullSpeed, steps))
	return int(math.Round(m.sign() * steps)), false
}

// track folds a raw single-turn reading into the unwrapped position. Reads
// are assumed to be less than half a turn apart.
func (m *Motor) track(raw int, dt float64) {
	deg := float64(raw) * 360 / StepsPerRev
	if !m.haveRaw {
		m.pos = deg
		m.lastDeg = deg
		m.haveRaw = true
		return
	}
	d := deg - m.lastDeg
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	m.pos += d
	m.lastDeg = deg
	if dt > 0 {
		m.vel = d / 360 / dt * 60
	}
}

// update runs one read-then-write cycle against the servo.
func (m *Motor) update(ctx context.Context, dt float64) {
	raw, err := m.servo.Position(ctx)

	m.mu.Lock()
	if err != nil {
		m.fail("read position", err)
		m.mu.Unlock()
		return
	}
	m.track(raw, dt)
	speed, release := m.demand()
	torqueOff := m.torqueOff
	skip := m.written && !m.faults.Has(device.FaultDriverFault) &&
		release == torqueOff && (release || speed == m.speed)
	m.mu.Unlock()

	if !skip {
		err = m.apply(ctx, speed, release, torqueOff)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.fail("write speed", err)
		return
	}
	if m.faults.Has(device.FaultDriverFault) {
		m.log.Info("servo recovered")
	}
	m.faults &^= device.FaultDriverFault
	m.written = true
	m.torqueOff = release
	if release {
		m.speed = 0
	} else {
		m.speed = speed
	}
}

func (m *Motor) apply(ctx context.Context, speed int, release, torqueOff bool) error {
	if release {
		return m.servo.Disable(ctx)
	}
	if torqueOff {
		if err := m.servo.Enable(ctx); err != nil {
			return err
		}
	}
	return m.servo.SetVelocity(ctx, speed)
}

// fail latches a driver fault, logging only the first failure in a run of them.
func (m *Motor) fail(op string, err error) {
	if !m.faults.Has(device.FaultDriverFault) {
		m.log.WithError(err).Warn(op + " failed")
	}
	m.faults |= device.FaultDriverFault
}

func (m *Motor) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.units.FromDegrees(m.angle(), m.gearset)
}

func (m *Motor) Velocity() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sign() * m.vel
}

// Voltage reports the last written speed as the equivalent command.
func (m *Motor) Voltage() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(math.Round(m.sign() * float64(m.speed) / FullSpeed * device.MaxVoltage))
}

// The servo bus does not expose current, temperature or torque through
// this adapter.
func (m *Motor) CurrentDraw() int     { return 0 }
func (m *Motor) Temperature() float64 { return 0 }
func (m *Motor) Torque() float64      { return 0 }

func (m *Motor) Faults() device.Fault {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.faults
}

func (m *Motor) IsStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return math.Abs(m.vel) < stoppedRPM
}

func (m *Motor) TargetPosition() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.units.FromDegrees(m.targetPos, m.gearset)
}

func (m *Motor) TargetVelocity() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.targetVel
}

func (m *Motor) SetReversed(r bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reversed = r
}

func (m *Motor) IsReversed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reversed
}

func (m *Motor) SetGearing(g device.Gearset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gearset = g
}

func (m *Motor) Gearing() device.Gearset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gearset
}

func (m *Motor) SetEncoderUnits(u device.EncoderUnits) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units = u
}

func (m *Motor) EncoderUnits() device.EncoderUnits {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.units
}

func (m *Motor) SetBrakeMode(b device.BrakeMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brakeMode = b
}

func (m *Motor) BrakeMode() device.BrakeMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.brakeMode
}

// SetCurrentLimit is recorded only; the servo enforces its own limit.
func (m *Motor) SetCurrentLimit(ma int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentLimit = ma
}

func (m *Motor) CurrentLimit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLimit
}

func (m *Motor) SetVoltageLimit(mv int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voltageLimit = device.ClampVoltage(absInt(mv))
}

func (m *Motor) VoltageLimit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voltageLimit
}

func (m *Motor) SetZeroPosition(x float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offset = m.sign()*m.pos - m.units.ToDegrees(x, m.gearset)
}

func (m *Motor) TarePosition() { m.SetZeroPosition(0) }

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

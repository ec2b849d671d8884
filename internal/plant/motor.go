package plant

import (
	"math"
	"sync"

	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/integrators"
)

// MotorParams describes the simulated electrical and thermal behaviour.
type MotorParams struct {
	TimeConstant  float64 // seconds for velocity to reach 63% of its target
	BrakeConstant float64 // time constant while braking
	CoastConstant float64 // time constant while coasting
	StallCurrent  float64 // mA at 12 V with the shaft locked
	Ambient       float64 // °C
	HeatRate      float64 // °C/s per A²
	CoolRate      float64 // 1/s
	OverTemp      float64 // °C at which FaultOverTemp latches
	HoldGain      float64 // rpm per degree of position error
	VelocityGain  float64 // mV per rpm of velocity error
}

func DefaultMotorParams() MotorParams {
	return MotorParams{
		TimeConstant:  0.08,
		BrakeConstant: 0.02,
		CoastConstant: 0.6,
		StallCurrent:  2500,
		Ambient:       25,
		HeatRate:      0.8,
		CoolRate:      0.01,
		OverTemp:      55,
		HoldGain:      4,
		VelocityGain:  40,
	}
}

type mode int

const (
	modeVoltage mode = iota
	modeVelocity
	modeProfile
	modeBrake
)

// profileTolerance is how close a profiled move must get, in degrees,
// before the motor switches to holding the target.
const profileTolerance = 1.0

type Motor struct {
	mu     sync.Mutex
	port   int
	params MotorParams
	integ  integrators.Integrator

	// physical shaft state: degrees and rpm, before reversal
	pos, vel float64
	temp     float64
	current  float64

	mode          mode
	voltage       int     // commanded, reported frame
	applied       int     // last applied, reported frame
	targetVel     int     // reported frame
	targetPos     float64 // degrees, reported frame
	profileMaxRPM int
	holdPos       float64 // degrees, reported frame

	reversed     bool
	gearset      device.Gearset
	units        device.EncoderUnits
	brakeMode    device.BrakeMode
	currentLimit int
	voltageLimit int
	offset       float64 // degrees subtracted from the reversed shaft angle
	jammed       bool
	faults       device.Fault
}

func newMotor(port int, params MotorParams, integ integrators.Integrator) *Motor {
	return &Motor{
		port:         port,
		params:       params,
		integ:        integ,
		temp:         params.Ambient,
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

// angle is the shaft position in degrees as seen through reversal and zero.
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
	m.profileMaxRPM = absInt(maxRPM)
}

func (m *Motor) MoveRelative(delta float64, maxRPM int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = modeProfile
	m.targetPos = m.angle() + m.units.ToDegrees(delta, m.gearset)
	m.profileMaxRPM = absInt(maxRPM)
}

func (m *Motor) ModifyProfiledVelocity(rpm int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == modeProfile {
		m.profileMaxRPM = absInt(rpm)
	}
}

func (m *Motor) Brake() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = modeBrake
	m.holdPos = m.angle()
}

// Jam locks the shaft, as if the mechanism were obstructed.
func (m *Motor) Jam(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jammed = on
	if on {
		m.vel = 0
	}
}

// demand returns the voltage the on-board controller applies this step, in
// the reported frame, and the time constant the shaft follows it with.
func (m *Motor) demand() (float64, float64) {
	p := m.params
	vel := m.sign() * m.vel
	free := m.gearset.MaxRPM()

	velocityVolts := func(target float64) float64 {
		return target/free*device.MaxVoltage + p.VelocityGain*(target-vel)
	}

	switch m.mode {
	case modeVelocity:
		return velocityVolts(float64(m.targetVel)), p.TimeConstant
	case modeProfile:
		err := m.targetPos - m.angle()
		if math.Abs(err) < profileTolerance {
			return velocityVolts(p.HoldGain * err), p.TimeConstant
		}
		want := math.Min(float64(m.profileMaxRPM), p.HoldGain*math.Abs(err))
		return velocityVolts(math.Copysign(want, err)), p.TimeConstant
	case modeBrake:
		switch m.brakeMode {
		case device.BrakeHold:
			return velocityVolts(p.HoldGain * (m.holdPos - m.angle())), p.TimeConstant
		case device.BrakeBrake:
			return 0, p.BrakeConstant
		}
		return 0, p.CoastConstant
	}
	if m.voltage == 0 {
		return 0, p.CoastConstant
	}
	return float64(m.voltage), p.TimeConstant
}

func (m *Motor) advance(dt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	volts, tau := m.demand()
	limit := float64(m.voltageLimit)
	volts = math.Max(-limit, math.Min(limit, volts))
	m.applied = int(math.Round(volts))

	free := m.gearset.MaxRPM()
	physVolts := m.sign() * volts

	backEMF := m.vel / free * device.MaxVoltage
	demanded := math.Abs(physVolts-backEMF) / device.MaxVoltage * m.params.StallCurrent
	if m.jammed {
		demanded = math.Abs(physVolts) / device.MaxVoltage * m.params.StallCurrent
	}
	m.current = math.Min(demanded, float64(m.currentLimit))
	if demanded > float64(m.currentLimit) && m.currentLimit > 0 {
		m.faults |= device.FaultOverCurrent
	} else {
		m.faults &^= device.FaultOverCurrent
	}

	amps := m.current / 1000
	m.temp += dt * (m.params.HeatRate*amps*amps - m.params.CoolRate*(m.temp-m.params.Ambient))
	if m.temp >= m.params.OverTemp {
		m.faults |= device.FaultOverTemp
	}

	if m.jammed {
		m.vel = 0
		return
	}

	// scale down the achievable speed when the current limit bites
	scale := 1.0
	if demanded > 0 && demanded > m.current {
		scale = m.current / demanded
	}
	target := physVolts / device.MaxVoltage * free * scale

	f := func(x integrators.State, _ float64) integrators.State {
		return integrators.State{x[1] * 6, (target - x[1]) / tau}
	}
	next := m.integ.Step(f, integrators.State{m.pos, m.vel}, 0, dt)
	m.pos, m.vel = next[0], next[1]
}

func (m *Motor) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.units.FromDegrees(m.angle(), m.gearset)
}

// shaftDegrees ignores the zero offset and encoder units.
func (m *Motor) shaftDegrees() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sign() * m.pos
}

func (m *Motor) Velocity() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sign() * m.vel
}

func (m *Motor) Voltage() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applied
}

func (m *Motor) CurrentDraw() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(math.Round(m.current))
}

func (m *Motor) Temperature() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.temp
}

// Torque in Nm, proportional to current at the output shaft.
func (m *Motor) Torque() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	stallTorque := 2.1 * 100 / m.gearset.MaxRPM()
	return m.current / m.params.StallCurrent * stallTorque
}

func (m *Motor) Faults() device.Fault {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.faults
}

func (m *Motor) IsStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return math.Abs(m.vel) < 0.5
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

func (m *Motor) TarePosition() {
	m.SetZeroPosition(0)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

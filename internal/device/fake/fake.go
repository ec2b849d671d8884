// Package fake provides recording devices for tests.
package fake

import (
	"sync"

	"github.com/san-kum/motioncore/internal/device"
)

var (
	_ device.Motor          = (*Motor)(nil)
	_ device.RotationSensor = (*Sensor)(nil)
)

// Call is one command received by a Motor.
type Call struct {
	Op    string
	Value float64
	Limit int
}

// Motor records commands and reports whatever position and velocity the
// test sets. It does not move on its own.
type Motor struct {
	mu sync.Mutex

	port     int
	calls    []Call
	position float64
	velocity float64
	voltage  int
	faults   device.Fault
	temp     float64

	targetPos float64
	targetVel int

	reversed     bool
	gearset      device.Gearset
	units        device.EncoderUnits
	brake        device.BrakeMode
	currentLimit int
	voltageLimit int
}

func NewMotor(port int) *Motor {
	return &Motor{port: port, currentLimit: 2500, voltageLimit: device.MaxVoltage, temp: 25}
}

func (m *Motor) record(op string, v float64, limit int) {
	m.calls = append(m.calls, Call{Op: op, Value: v, Limit: limit})
}

func (m *Motor) Port() int { return m.port }

func (m *Motor) Move(power int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("move", float64(power), 0)
	m.voltage = device.ClampPower(power) * device.MaxVoltage / device.MaxPower
}

func (m *Motor) MoveVoltage(mv int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("move_voltage", float64(mv), 0)
	m.voltage = mv
}

func (m *Motor) MoveVelocity(rpm int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("move_velocity", float64(rpm), 0)
	m.targetVel = rpm
}

func (m *Motor) MoveAbsolute(pos float64, maxRPM int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("move_absolute", pos, maxRPM)
	m.targetPos = pos
}

func (m *Motor) MoveRelative(delta float64, maxRPM int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("move_relative", delta, maxRPM)
	m.targetPos = m.position + delta
}

func (m *Motor) ModifyProfiledVelocity(rpm int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("modify_profiled_velocity", float64(rpm), 0)
}

func (m *Motor) Brake() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("brake", 0, 0)
	m.voltage = 0
}

// SetState fixes the position and velocity the motor reports.
func (m *Motor) SetState(position, velocity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = position
	m.velocity = velocity
}

func (m *Motor) SetFaults(f device.Fault) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = f
}

// Calls returns a copy of every command received so far.
func (m *Motor) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Last returns the most recent command, or a zero Call.
func (m *Motor) Last() Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return Call{}
	}
	return m.calls[len(m.calls)-1]
}

func (m *Motor) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Motor) Velocity() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.velocity
}

func (m *Motor) Voltage() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voltage
}

func (m *Motor) CurrentDraw() int     { return 0 }
func (m *Motor) Torque() float64      { return 0 }
func (m *Motor) Temperature() float64 { return m.temp }
func (m *Motor) IsStopped() bool      { return m.Velocity() == 0 }

func (m *Motor) TargetVelocity() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.targetVel
}

func (m *Motor) TargetPosition() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.targetPos
}

func (m *Motor) Faults() device.Fault {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.faults
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
	m.brake = b
}

func (m *Motor) BrakeMode() device.BrakeMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.brake
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
	m.voltageLimit = mv
}

func (m *Motor) VoltageLimit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voltageLimit
}

func (m *Motor) SetZeroPosition(x float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("set_zero_position", x, 0)
	m.position = x
}

func (m *Motor) TarePosition() { m.SetZeroPosition(0) }

// Sensor is a RotationSensor whose reading is set by the test.
type Sensor struct {
	mu     sync.Mutex
	ticks  int
	resets int
}

func (s *Sensor) Set(ticks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = ticks
}

func (s *Sensor) Get() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

func (s *Sensor) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = 0
	s.resets++
}

func (s *Sensor) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

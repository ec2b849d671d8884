package device

// Motor is a smart motor on a numbered port. Positions are reported in the
// configured encoder units, velocities in rpm of the output shaft.
type Motor interface {
	Port() int

	// Move drives at a fraction of full voltage, -127..127.
	Move(power int)
	// MoveVoltage drives at a fixed voltage, -12000..12000 mV.
	MoveVoltage(millivolts int)
	// MoveVelocity holds a velocity in rpm using the on-board controller.
	MoveVelocity(rpm int)
	// MoveAbsolute starts a profiled move and returns immediately.
	MoveAbsolute(position float64, maxRPM int)
	MoveRelative(delta float64, maxRPM int)
	ModifyProfiledVelocity(rpm int)
	Brake()

	Position() float64
	Velocity() float64
	Voltage() int
	CurrentDraw() int
	Temperature() float64
	Torque() float64
	Faults() Fault
	IsStopped() bool
	TargetPosition() float64
	TargetVelocity() int

	SetReversed(bool)
	IsReversed() bool
	SetGearing(Gearset)
	Gearing() Gearset
	SetEncoderUnits(EncoderUnits)
	EncoderUnits() EncoderUnits
	SetBrakeMode(BrakeMode)
	BrakeMode() BrakeMode
	SetCurrentLimit(milliamps int)
	CurrentLimit() int
	SetVoltageLimit(millivolts int)
	VoltageLimit() int
	// SetZeroPosition redefines the current position as x.
	SetZeroPosition(x float64)
	TarePosition()
}

// RotationSensor is an external quadrature encoder. Readings after Reset
// may lag by one sample period.
type RotationSensor interface {
	Get() int
	Reset()
}

type DigitalOut interface {
	Set(on bool)
	Value() bool
}

type Axis int

const (
	AxisLeftX Axis = iota
	AxisLeftY
	AxisRightX
	AxisRightY
)

type Button int

const (
	ButtonL1 Button = iota
	ButtonL2
	ButtonR1
	ButtonR2
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonX
	ButtonB
	ButtonY
	ButtonA
)

// Gamepad reports analog axes in -127..127. DigitalNewPress is true only on
// the first read after a button goes down.
type Gamepad interface {
	Analog(Axis) int
	Digital(Button) bool
	DigitalNewPress(Button) bool
}

// Backend creates devices by port. Implementations may return the same
// Motor for repeated calls with one port.
type Backend interface {
	Motor(port int) (Motor, error)
	RotationSensor(top, bottom byte, reversed bool) (RotationSensor, error)
	DigitalOut(pin byte) (DigitalOut, error)
	Gamepad(id int) (Gamepad, error)
	Close() error
}

// Telemetry is a point-in-time view of one motor.
type Telemetry struct {
	Port        int     `json:"port"`
	Position    float64 `json:"position"`
	Velocity    float64 `json:"velocity"`
	Voltage     int     `json:"voltage"`
	CurrentDraw int     `json:"current_draw"`
	Temperature float64 `json:"temperature"`
	Torque      float64 `json:"torque"`
	Faults      Fault   `json:"faults"`
	Stopped     bool    `json:"stopped"`
}

func Snapshot(m Motor) Telemetry {
	return Telemetry{
		Port:        m.Port(),
		Position:    m.Position(),
		Velocity:    m.Velocity(),
		Voltage:     m.Voltage(),
		CurrentDraw: m.CurrentDraw(),
		Temperature: m.Temperature(),
		Torque:      m.Torque(),
		Faults:      m.Faults(),
		Stopped:     m.IsStopped(),
	}
}

package mechanism

import (
	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/motorgroup"
)

// Roller spins a field roller through a gear reduction. Degree arguments
// are roller degrees; GearRatio is roller teeth over motor teeth.
type Roller struct {
	motors    *motorgroup.Group
	gearRatio float64
}

func NewRoller(motors *motorgroup.Group, gearRatio float64) *Roller {
	if gearRatio <= 0 {
		gearRatio = 1
	}
	motors.SetBrakeMode(device.BrakeBrake)
	motors.SetEncoderUnits(device.UnitsDegrees)
	return &Roller{motors: motors, gearRatio: gearRatio}
}

func (r *Roller) Motors() *motorgroup.Group { return r.motors }

func (r *Roller) Clockwise()        { r.motors.Move(device.MaxPower) }
func (r *Roller) CounterClockwise() { r.motors.Move(-device.MaxPower) }
func (r *Roller) Stop()             { r.motors.Move(0) }

func (r *Roller) ClockwiseBy(deg float64) {
	r.motors.MoveRelative(deg/r.gearRatio, ProfileVelocity)
}

func (r *Roller) CounterClockwiseBy(deg float64) {
	r.motors.MoveRelative(-deg/r.gearRatio, ProfileVelocity)
}

func (r *Roller) Driver(pad device.Gamepad, cw, ccw device.Button) {
	twoWay(pad, cw, ccw, r.Clockwise, r.CounterClockwise, r.Stop)
}

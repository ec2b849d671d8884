package mechanism

import (
	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/motorgroup"
)

type Conveyor struct {
	motors *motorgroup.Group
}

func NewConveyor(motors *motorgroup.Group) *Conveyor {
	motors.SetEncoderUnits(device.UnitsDegrees)
	motors.SetBrakeMode(device.BrakeCoast)
	return &Conveyor{motors: motors}
}

func (c *Conveyor) Motors() *motorgroup.Group { return c.motors }

func (c *Conveyor) Forward() { c.motors.Move(device.MaxPower) }
func (c *Conveyor) Reverse() { c.motors.Move(-device.MaxPower) }
func (c *Conveyor) Stop()    { c.motors.Move(0) }

// Rotate starts a profiled move of deg degrees and returns immediately.
func (c *Conveyor) Rotate(deg float64) {
	c.motors.MoveRelative(deg, ProfileVelocity)
}

func (c *Conveyor) Driver(pad device.Gamepad, fwd, rev device.Button) {
	twoWay(pad, fwd, rev, c.Forward, c.Reverse, c.Stop)
}

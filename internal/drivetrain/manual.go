package drivetrain

import (
	"math"

	"github.com/san-kum/motioncore/internal/device"
)

// Driver binds the manual entry points to a gamepad. ReverseButton
// toggles driving backwards on each new press.
type Driver struct {
	Pad           device.Gamepad
	ReverseButton device.Button
}

func (d *Drivetrain) pollReverse(drv Driver) bool {
	if drv.Pad.DigitalNewPress(drv.ReverseButton) {
		rev := !d.reversed.Load()
		d.reversed.Store(rev)
		d.log.WithField("reversed", rev).Debug("drive direction toggled")
	}
	return d.reversed.Load()
}

// Reversed reports whether manual driving is inverted.
func (d *Drivetrain) Reversed() bool { return d.reversed.Load() }

func (d *Drivetrain) drive(left, right int) {
	d.override()
	d.left.Move(device.ClampPower(left))
	d.right.Move(device.ClampPower(right))
}

// tank maps the stick axes to side powers, swapping and negating them
// when driving backwards.
func tank(l, r int, reversed bool) (int, int) {
	if reversed {
		return -r, -l
	}
	return l, r
}

// TankDriver drives each side from its own vertical stick.
func (d *Drivetrain) TankDriver(drv Driver) {
	rev := d.pollReverse(drv)
	l, r := tank(drv.Pad.Analog(device.AxisLeftY), drv.Pad.Analog(device.AxisRightY), rev)
	d.drive(l, r)
}

// TankDriverPoly is TankDriver with a sign-preserving power curve, which
// gives finer control near the stick centre.
func (d *Drivetrain) TankDriverPoly(drv Driver, exponent float64) {
	rev := d.pollReverse(drv)
	l := Poly(drv.Pad.Analog(device.AxisLeftY), exponent)
	r := Poly(drv.Pad.Analog(device.AxisRightY), exponent)
	l, r = tank(l, r, rev)
	d.drive(l, r)
}

// ArcadeDriver takes throttle from the left stick's vertical axis and
// turn from its horizontal axis.
func (d *Drivetrain) ArcadeDriver(drv Driver) {
	rev := d.pollReverse(drv)
	power := drv.Pad.Analog(device.AxisLeftY)
	turn := drv.Pad.Analog(device.AxisLeftX)
	if rev {
		power = -power
	}
	d.drive(power+turn, power-turn)
}

// Poly maps v in -127..127 to sign(v)*|v/127|^exponent*127.
func Poly(v int, exponent float64) int {
	x := float64(device.ClampPower(v)) / device.MaxPower
	return int(math.Round(math.Copysign(math.Pow(math.Abs(x), exponent), x) * device.MaxPower))
}

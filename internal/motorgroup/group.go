// Package motorgroup drives several motors as one logical actuator.
//
// Every command fans out to each motor in port order; getters return
// per-motor slices in the same order. Averages are arithmetic means over
// all motors, so a group is never empty.
package motorgroup

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/motioncore/internal/device"
)

type Group struct {
	motors []device.Motor
}

// New groups the given motors. At least one motor is required.
func New(motors ...device.Motor) (*Group, error) {
	if len(motors) == 0 {
		return nil, device.ErrNoMotors
	}
	return &Group{motors: append([]device.Motor(nil), motors...)}, nil
}

// FromPorts opens one motor per port. reversed may be nil; otherwise it
// must have one entry per port.
func FromPorts(b device.Backend, ports []int, reversed []bool) (*Group, error) {
	if len(ports) == 0 {
		return nil, device.ErrNoMotors
	}
	if reversed != nil && len(reversed) != len(ports) {
		return nil, fmt.Errorf("%w: %d ports, %d reversal flags", device.ErrLengthMismatch, len(ports), len(reversed))
	}
	motors := make([]device.Motor, len(ports))
	for i, p := range ports {
		m, err := b.Motor(p)
		if err != nil {
			return nil, fmt.Errorf("motor on port %d: %w", p, err)
		}
		if reversed != nil {
			m.SetReversed(reversed[i])
		}
		motors[i] = m
	}
	return New(motors...)
}

func (g *Group) Len() int { return len(g.motors) }

func (g *Group) Ports() []int {
	out := make([]int, len(g.motors))
	for i, m := range g.motors {
		out[i] = m.Port()
	}
	return out
}

// Motors returns the underlying motors in port order.
func (g *Group) Motors() []device.Motor {
	return append([]device.Motor(nil), g.motors...)
}

func (g *Group) each(fn func(device.Motor)) {
	for _, m := range g.motors {
		fn(m)
	}
}

func (g *Group) checkLen(n int) error {
	if n != len(g.motors) {
		log.WithFields(log.Fields{"values": n, "motors": len(g.motors)}).
			Debug("motorgroup: per-motor setter rejected")
		return fmt.Errorf("%w: got %d values for %d motors", device.ErrLengthMismatch, n, len(g.motors))
	}
	return nil
}

func (g *Group) Move(power int) {
	g.each(func(m device.Motor) { m.Move(power) })
}

func (g *Group) MoveVelocity(rpm int) {
	g.each(func(m device.Motor) { m.MoveVelocity(rpm) })
}

func (g *Group) MoveVoltage(mv int) {
	g.each(func(m device.Motor) { m.MoveVoltage(mv) })
}

// MoveRelative starts a profiled move on each motor and returns
// immediately; callers poll positions for completion.
func (g *Group) MoveRelative(delta float64, maxRPM int) {
	g.each(func(m device.Motor) { m.MoveRelative(delta, maxRPM) })
}

func (g *Group) MoveAbsolute(target float64, maxRPM int) {
	g.each(func(m device.Motor) { m.MoveAbsolute(target, maxRPM) })
}

func (g *Group) ModifyProfiledVelocity(rpm int) {
	g.each(func(m device.Motor) { m.ModifyProfiledVelocity(rpm) })
}

func (g *Group) Brake() {
	g.each(func(m device.Motor) { m.Brake() })
}

func (g *Group) AvgPosition() float64 {
	var sum float64
	for _, m := range g.motors {
		sum += m.Position()
	}
	return sum / float64(len(g.motors))
}

func (g *Group) AvgVelocity() float64 {
	var sum float64
	for _, m := range g.motors {
		sum += m.Velocity()
	}
	return sum / float64(len(g.motors))
}

func (g *Group) ResetPositions() {
	g.each(func(m device.Motor) { m.TarePosition() })
}

func (g *Group) SetZeroPosition(x float64) {
	g.each(func(m device.Motor) { m.SetZeroPosition(x) })
}

func (g *Group) SetBrakeMode(b device.BrakeMode) {
	g.each(func(m device.Motor) { m.SetBrakeMode(b) })
}

func (g *Group) SetGearing(gs device.Gearset) {
	g.each(func(m device.Motor) { m.SetGearing(gs) })
}

func (g *Group) SetEncoderUnits(u device.EncoderUnits) {
	g.each(func(m device.Motor) { m.SetEncoderUnits(u) })
}

func (g *Group) SetCurrentLimit(ma int) {
	g.each(func(m device.Motor) { m.SetCurrentLimit(ma) })
}

func (g *Group) SetVoltageLimit(mv int) {
	g.each(func(m device.Motor) { m.SetVoltageLimit(mv) })
}

// SetReversed applies one flag per motor. Nothing changes on a length
// mismatch.
func (g *Group) SetReversed(flags []bool) error {
	if err := g.checkLen(len(flags)); err != nil {
		return err
	}
	for i, m := range g.motors {
		m.SetReversed(flags[i])
	}
	return nil
}

func (g *Group) SetCurrentLimits(ma []int) error {
	if err := g.checkLen(len(ma)); err != nil {
		return err
	}
	for i, m := range g.motors {
		m.SetCurrentLimit(ma[i])
	}
	return nil
}

func (g *Group) SetVoltageLimits(mv []int) error {
	if err := g.checkLen(len(mv)); err != nil {
		return err
	}
	for i, m := range g.motors {
		m.SetVoltageLimit(mv[i])
	}
	return nil
}

func (g *Group) SetBrakeModes(modes []device.BrakeMode) error {
	if err := g.checkLen(len(modes)); err != nil {
		return err
	}
	for i, m := range g.motors {
		m.SetBrakeMode(modes[i])
	}
	return nil
}

func (g *Group) SetGearings(gs []device.Gearset) error {
	if err := g.checkLen(len(gs)); err != nil {
		return err
	}
	for i, m := range g.motors {
		m.SetGearing(gs[i])
	}
	return nil
}

// SetEncoderUnitsEach sets one unit per motor, in port order.
func (g *Group) SetEncoderUnitsEach(us []device.EncoderUnits) error {
	if err := g.checkLen(len(us)); err != nil {
		return err
	}
	for i, m := range g.motors {
		m.SetEncoderUnits(us[i])
	}
	return nil
}

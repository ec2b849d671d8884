package motorgroup

import "github.com/san-kum/motioncore/internal/device"

func collect[T any](g *Group, get func(device.Motor) T) []T {
	out := make([]T, len(g.motors))
	for i, m := range g.motors {
		out[i] = get(m)
	}
	return out
}

func (g *Group) Positions() []float64 {
	return collect(g, device.Motor.Position)
}

func (g *Group) Velocities() []float64 {
	return collect(g, device.Motor.Velocity)
}

func (g *Group) Voltages() []int {
	return collect(g, device.Motor.Voltage)
}

func (g *Group) CurrentDraws() []int {
	return collect(g, device.Motor.CurrentDraw)
}

func (g *Group) Temperatures() []float64 {
	return collect(g, device.Motor.Temperature)
}

func (g *Group) Torques() []float64 {
	return collect(g, device.Motor.Torque)
}

func (g *Group) Faults() []device.Fault {
	return collect(g, device.Motor.Faults)
}

func (g *Group) TargetPositions() []float64 {
	return collect(g, device.Motor.TargetPosition)
}

func (g *Group) TargetVelocities() []int {
	return collect(g, device.Motor.TargetVelocity)
}

func (g *Group) AreReversed() []bool {
	return collect(g, device.Motor.IsReversed)
}

func (g *Group) AreStopped() []bool {
	return collect(g, device.Motor.IsStopped)
}

func (g *Group) AreOverTemp() []bool {
	return collect(g, func(m device.Motor) bool { return m.Faults().Has(device.FaultOverTemp) })
}

func (g *Group) AreOverCurrent() []bool {
	return collect(g, func(m device.Motor) bool { return m.Faults().Has(device.FaultOverCurrent) })
}

func (g *Group) Gearings() []device.Gearset {
	return collect(g, device.Motor.Gearing)
}

func (g *Group) BrakeModes() []device.BrakeMode {
	return collect(g, device.Motor.BrakeMode)
}

func (g *Group) CurrentLimits() []int {
	return collect(g, device.Motor.CurrentLimit)
}

func (g *Group) VoltageLimits() []int {
	return collect(g, device.Motor.VoltageLimit)
}

// Telemetry snapshots every motor.
func (g *Group) Telemetry() []device.Telemetry {
	return collect(g, device.Snapshot)
}

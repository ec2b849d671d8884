package motorgroup

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
)

// Field selects columns for Report.
type Field uint8

const (
	FieldPosition Field = 1 << iota
	FieldVelocity
	FieldVoltage
	FieldCurrent
	FieldTemperature
	FieldTorque
	FieldFaults

	FieldAll = FieldPosition | FieldVelocity | FieldVoltage | FieldCurrent |
		FieldTemperature | FieldTorque | FieldFaults
)

// Directions is the sign of each motor's velocity: 1, -1, or 0 at rest.
func (g *Group) Directions() []int {
	vs := g.Velocities()
	out := make([]int, len(vs))
	for i, v := range vs {
		switch {
		case v > 0:
			out[i] = 1
		case v < 0:
			out[i] = -1
		}
	}
	return out
}

// Powers is the electrical power drawn by each motor in watts.
func (g *Group) Powers() []float64 {
	volts, amps := g.Voltages(), g.CurrentDraws()
	out := make([]float64, len(volts))
	for i := range volts {
		out[i] = math.Abs(float64(volts[i])/1000) * float64(amps[i]) / 1000
	}
	return out
}

// Report writes one row per motor with the selected fields.
func (g *Group) Report(w io.Writer, fields Field) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	cols := []struct {
		f    Field
		name string
	}{
		{FieldPosition, "POSITION"},
		{FieldVelocity, "VELOCITY"},
		{FieldVoltage, "VOLTAGE"},
		{FieldCurrent, "CURRENT"},
		{FieldTemperature, "TEMP"},
		{FieldTorque, "TORQUE"},
		{FieldFaults, "FAULTS"},
	}

	fmt.Fprint(tw, "PORT")
	for _, c := range cols {
		if fields&c.f != 0 {
			fmt.Fprintf(tw, "\t%s", c.name)
		}
	}
	fmt.Fprintln(tw)

	for _, s := range g.Telemetry() {
		fmt.Fprintf(tw, "%d", s.Port)
		for _, c := range cols {
			if fields&c.f == 0 {
				continue
			}
			switch c.f {
			case FieldPosition:
				fmt.Fprintf(tw, "\t%.1f", s.Position)
			case FieldVelocity:
				fmt.Fprintf(tw, "\t%.1f", s.Velocity)
			case FieldVoltage:
				fmt.Fprintf(tw, "\t%d", s.Voltage)
			case FieldCurrent:
				fmt.Fprintf(tw, "\t%d", s.CurrentDraw)
			case FieldTemperature:
				fmt.Fprintf(tw, "\t%.0f", s.Temperature)
			case FieldTorque:
				fmt.Fprintf(tw, "\t%.2f", s.Torque)
			case FieldFaults:
				fmt.Fprintf(tw, "\t%s", s.Faults)
			}
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

package drivetrain

import "math"

// InchesToDegrees converts travel into sensor degrees.
func (c Config) InchesToDegrees(in float64) float64 {
	return in / c.TrackingRadius * (180 / math.Pi) * c.GearRatio
}

func (c Config) DegreesToInches(deg float64) float64 {
	return deg / c.GearRatio * (math.Pi / 180) * c.TrackingRadius
}

// TurnArc is the distance each side travels for a point turn of deg
// degrees.
func (c Config) TurnArc(deg float64) float64 {
	return c.TrackWidth / 2 * deg * (math.Pi / 180)
}

package control

import (
	"fmt"
	"math"
)

type Gains struct {
	KP float64 `yaml:"kp" json:"kp"`
	KI float64 `yaml:"ki" json:"ki"`
	KD float64 `yaml:"kd" json:"kd"`
}

func (g Gains) String() string {
	return fmt.Sprintf("kP=%g kI=%g kD=%g", g.KP, g.KI, g.KD)
}

// PID computes kP*e + kI*(integral+e) + kD*(e-prev) and then stores
// integral += e and prev = e. The integral is a plain sum of errors, so
// kI and kD are expressed per sample period. There is no clamping and no
// anti-windup; saturate the result at the actuator.
func PID(g Gains, err float64, integral, prev *float64) float64 {
	out := g.KP*err + g.KI*(*integral+err) + g.KD*(err-*prev)
	*integral += err
	*prev = err
	return out
}

// Saturate clamps v to ±limit and keeps its sign.
func Saturate(v, limit float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if math.Abs(v) > limit {
		return math.Copysign(limit, v)
	}
	return v
}

// Sign returns -1, 0 or 1.
func Sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

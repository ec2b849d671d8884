package control

import "math"

// VelocityLaw turns a target and a measured velocity into a voltage
// command. Output is not clamped.
type VelocityLaw interface {
	Name() string
	Output(target, measured float64) float64
	Reset()
}

// Configurable laws expose their constants for live tuning.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64)
}

// PIDLaw runs the PID recurrence on velocity error.
type PIDLaw struct {
	Gains    Gains
	integral float64
	prevErr  float64
}

func NewPIDLaw(g Gains) *PIDLaw {
	return &PIDLaw{Gains: g}
}

func (p *PIDLaw) Name() string { return "pid" }

func (p *PIDLaw) Output(target, measured float64) float64 {
	return PID(p.Gains, target-measured, &p.integral, &p.prevErr)
}

func (p *PIDLaw) Reset() {
	p.integral = 0
	p.prevErr = 0
}

func (p *PIDLaw) GetParams() map[string]float64 {
	return map[string]float64{"kP": p.Gains.KP, "kI": p.Gains.KI, "kD": p.Gains.KD}
}

func (p *PIDLaw) SetParam(name string, value float64) {
	switch name {
	case "kP":
		p.Gains.KP = value
	case "kI":
		p.Gains.KI = value
	case "kD":
		p.Gains.KD = value
	}
}

// FeedforwardLaw is kS*sign(t) + kV*t + kP*e + kD*de/dt. Dt is the sample
// period in seconds used for the derivative.
type FeedforwardLaw struct {
	KS, KV, KP, KD float64
	Dt             float64

	prevErr float64
	primed  bool
}

func NewFeedforwardLaw(ks, kv, kp, kd, dt float64) *FeedforwardLaw {
	return &FeedforwardLaw{KS: ks, KV: kv, KP: kp, KD: kd, Dt: dt}
}

func (f *FeedforwardLaw) Name() string { return "feedforward" }

func (f *FeedforwardLaw) Output(target, measured float64) float64 {
	err := target - measured
	var deriv float64
	if f.primed && f.Dt > 0 {
		deriv = (err - f.prevErr) / f.Dt
	}
	f.prevErr = err
	f.primed = true
	return f.KS*Sign(target) + f.KV*target + f.KP*err + f.KD*deriv
}

func (f *FeedforwardLaw) Reset() {
	f.prevErr = 0
	f.primed = false
}

func (f *FeedforwardLaw) GetParams() map[string]float64 {
	return map[string]float64{"kS": f.KS, "kV": f.KV, "kP": f.KP, "kD": f.KD}
}

func (f *FeedforwardLaw) SetParam(name string, value float64) {
	switch name {
	case "kS":
		f.KS = value
	case "kV":
		f.KV = value
	case "kP":
		f.KP = value
	case "kD":
		f.KD = value
	}
}

// TBHLaw is take-back-half: the output integrates gain*error, and each
// time the error changes sign the output drops to the midpoint between
// itself and the value held at the previous crossing. Limit bounds the
// integrator; zero means unbounded.
type TBHLaw struct {
	Gain  float64
	Limit float64

	output  float64
	tbh     float64
	prevErr float64
}

func NewTBHLaw(gain, limit float64) *TBHLaw {
	return &TBHLaw{Gain: gain, Limit: limit}
}

func (t *TBHLaw) Name() string { return "tbh" }

func (t *TBHLaw) Output(target, measured float64) float64 {
	err := target - measured
	t.output += t.Gain * err
	if t.Limit > 0 {
		t.output = Saturate(t.output, t.Limit)
	}
	if Sign(err) != Sign(t.prevErr) && t.prevErr != 0 {
		t.output = 0.5 * (t.output + t.tbh)
		t.tbh = t.output
	}
	t.prevErr = err
	return t.output
}

// Seed sets the take-back value, typically an estimate of the steady-state
// output for a new target.
func (t *TBHLaw) Seed(v float64) {
	t.tbh = v
}

func (t *TBHLaw) Reset() {
	t.output = 0
	t.tbh = 0
	t.prevErr = 0
}

func (t *TBHLaw) GetParams() map[string]float64 {
	return map[string]float64{"gain": t.Gain, "limit": t.Limit}
}

func (t *TBHLaw) SetParam(name string, value float64) {
	switch name {
	case "gain":
		t.Gain = value
	case "limit":
		t.Limit = math.Abs(value)
	}
}

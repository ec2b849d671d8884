package metrics

import (
	"math"
	"time"

	"github.com/san-kum/motioncore/internal/trace"
)

// step tracks the current target so per-move metrics restart when the
// target changes.
type step struct {
	primed bool
	target float64
	start  float64
	begin  time.Duration
}

// next reports whether s starts a new move.
func (st *step) next(s trace.Sample) bool {
	if st.primed && s.Target == st.target {
		return false
	}
	st.primed = true
	st.target = s.Target
	st.start = s.Measured
	st.begin = s.Time
	return true
}

// SettleTime is the seconds from the start of the latest move until the
// error entered the band for good. A sample flagged settled counts as
// inside. -1 means the run ended outside the band.
type SettleTime struct {
	name      string
	band      float64
	move      step
	inside    bool
	enteredAt time.Duration
}

func NewSettleTime(band float64) *SettleTime {
	return &SettleTime{name: "settle_time", band: band}
}

func (m *SettleTime) Name() string { return m.name }

func (m *SettleTime) Observe(s trace.Sample) {
	if m.move.next(s) {
		m.inside = false
	}
	in := s.Settled || math.Abs(s.Error()) <= m.band
	switch {
	case in && !m.inside:
		m.inside = true
		m.enteredAt = s.Time
	case !in:
		m.inside = false
	}
}

func (m *SettleTime) Value() float64 {
	if !m.move.primed || !m.inside {
		return -1
	}
	return (m.enteredAt - m.move.begin).Seconds()
}

func (m *SettleTime) Reset() {
	*m = SettleTime{name: m.name, band: m.band}
}

// Overshoot is how far the latest move went past its target, as a
// percentage of the step size.
type Overshoot struct {
	name string
	move step
	peak float64
}

func NewOvershoot() *Overshoot {
	return &Overshoot{name: "overshoot_pct"}
}

func (m *Overshoot) Name() string { return m.name }

func (m *Overshoot) Observe(s trace.Sample) {
	if m.move.next(s) {
		m.peak = 0
	}
	dir := math.Copysign(1, m.move.target-m.move.start)
	if past := (s.Measured - m.move.target) * dir; past > m.peak {
		m.peak = past
	}
}

func (m *Overshoot) Value() float64 {
	size := math.Abs(m.move.target - m.move.start)
	if size == 0 {
		return 0
	}
	return 100 * m.peak / size
}

func (m *Overshoot) Reset() {
	*m = Overshoot{name: m.name}
}

// SteadyStateError is the mean absolute error over the last n samples.
type SteadyStateError struct {
	name   string
	window []float64
	next   int
	filled bool
}

func NewSteadyStateError(n int) *SteadyStateError {
	if n < 1 {
		n = 1
	}
	return &SteadyStateError{name: "steady_state_error", window: make([]float64, n)}
}

func (m *SteadyStateError) Name() string { return m.name }

func (m *SteadyStateError) Observe(s trace.Sample) {
	m.window[m.next] = math.Abs(s.Error())
	m.next++
	if m.next == len(m.window) {
		m.next = 0
		m.filled = true
	}
}

func (m *SteadyStateError) Value() float64 {
	n := m.next
	if m.filled {
		n = len(m.window)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range m.window[:n] {
		sum += v
	}
	return sum / float64(n)
}

func (m *SteadyStateError) Reset() {
	clear(m.window)
	m.next = 0
	m.filled = false
}

// IntegratedError is the integral of absolute error over time.
type IntegratedError struct {
	name   string
	sum    float64
	last   time.Duration
	primed bool
}

func NewIntegratedError() *IntegratedError {
	return &IntegratedError{name: "iae"}
}

func (m *IntegratedError) Name() string { return m.name }

func (m *IntegratedError) Observe(s trace.Sample) {
	if m.primed {
		m.sum += math.Abs(s.Error()) * (s.Time - m.last).Seconds()
	}
	m.last = s.Time
	m.primed = true
}

func (m *IntegratedError) Value() float64 { return m.sum }

func (m *IntegratedError) Reset() {
	m.sum = 0
	m.last = 0
	m.primed = false
}

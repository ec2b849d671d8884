// Package metrics scores a controller run from its trace samples.
package metrics

import (
	"sort"
	"sync"

	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/trace"
)

type Metric interface {
	Name() string
	Observe(s trace.Sample)
	Value() float64
	Reset()
}

// Set feeds one subsystem's samples to a group of metrics. It is safe to
// read while a control loop is observing into it.
type Set struct {
	mu        sync.Mutex
	subsystem string
	metrics   []Metric
}

func NewSet(subsystem string, ms ...Metric) *Set {
	return &Set{subsystem: subsystem, metrics: ms}
}

// Standard is the metric set reported for every run. band is the error,
// in the subsystem's units, within which it counts as settled.
func Standard(subsystem string, band float64) *Set {
	return NewSet(subsystem,
		NewSettleTime(band),
		NewOvershoot(),
		NewSteadyStateError(250),
		NewIntegratedError(),
		NewControlEffort(),
		NewHeadroom(device.MaxVoltage),
	)
}

func (s *Set) Subsystem() string { return s.subsystem }

func (s *Set) Observe(sample trace.Sample) {
	if sample.Subsystem != s.subsystem {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.metrics {
		m.Observe(sample)
	}
}

func (s *Set) Values() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s *Set) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.metrics))
	for i, m := range s.metrics {
		names[i] = m.Name()
	}
	sort.Strings(names)
	return names
}

func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.metrics {
		m.Reset()
	}
}

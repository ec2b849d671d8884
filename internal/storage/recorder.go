package storage

import (
	"sync"

	"github.com/san-kum/motioncore/internal/trace"
)

// Recorder buffers samples in memory. It is safe to attach to several
// control loops at once. A positive limit caps the buffer; samples past
// it are counted and dropped.
type Recorder struct {
	mu      sync.Mutex
	limit   int
	samples []trace.Sample
	dropped int
}

func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) Observe(s trace.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limit > 0 && len(r.samples) >= r.limit {
		r.dropped++
		return
	}
	r.samples = append(r.samples, s)
}

// Samples returns a copy of everything recorded so far.
func (r *Recorder) Samples() []trace.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]trace.Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = r.samples[:0]
	r.dropped = 0
}

// Subsystem returns the recorded samples of one subsystem in order.
func Subsystem(samples []trace.Sample, name string) []trace.Sample {
	var out []trace.Sample
	for _, s := range samples {
		if s.Subsystem == name {
			out = append(out, s)
		}
	}
	return out
}

// Subsystems lists the distinct subsystem names in first-seen order.
func Subsystems(samples []trace.Sample) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range samples {
		if !seen[s.Subsystem] {
			seen[s.Subsystem] = true
			names = append(names, s.Subsystem)
		}
	}
	return names
}

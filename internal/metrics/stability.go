package metrics

import (
	"math"

	"github.com/san-kum/motioncore/internal/trace"
)

// Headroom is the fraction of samples whose command stayed below the
// saturation limit. A loop that lives on the rail scores near zero.
type Headroom struct {
	name       string
	limit      float64
	violations int
	samples    int
}

func NewHeadroom(limit float64) *Headroom {
	return &Headroom{
		name:  "headroom",
		limit: limit,
	}
}

func (h *Headroom) Name() string {
	return h.name
}

func (h *Headroom) Observe(s trace.Sample) {
	h.samples++
	if math.Abs(s.Output) >= h.limit {
		h.violations++
	}
}

func (h *Headroom) Value() float64 {
	if h.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(h.violations)/float64(h.samples)
}

func (h *Headroom) Reset() {
	h.violations = 0
	h.samples = 0
}

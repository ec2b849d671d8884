package task

import (
	"math"
	"sync/atomic"
)

// Float64 is a float64 that can be read and written from different
// goroutines without a lock.
type Float64 struct {
	bits atomic.Uint64
}

func (f *Float64) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *Float64) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

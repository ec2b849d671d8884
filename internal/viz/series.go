package viz

import "github.com/san-kum/motioncore/internal/trace"

// Series is one subsystem's trace split into columns. Time is seconds.
type Series struct {
	Subsystem string
	Time      []float64
	Target    []float64
	Measured  []float64
	Output    []float64
}

func (s Series) Len() int { return len(s.Time) }

func Extract(samples []trace.Sample, subsystem string) Series {
	out := Series{Subsystem: subsystem}
	for _, smp := range samples {
		if smp.Subsystem != subsystem {
			continue
		}
		out.Time = append(out.Time, smp.Time.Seconds())
		out.Target = append(out.Target, smp.Target)
		out.Measured = append(out.Measured, smp.Measured)
		out.Output = append(out.Output, smp.Output)
	}
	return out
}

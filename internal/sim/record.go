package sim

import (
	"time"

	"github.com/san-kum/motioncore/internal/metrics"
	"github.com/san-kum/motioncore/internal/robot"
	"github.com/san-kum/motioncore/internal/storage"
	"github.com/san-kum/motioncore/internal/trace"
)

// Recording collects the samples and standard metrics of one robot run,
// simulated or not.
type Recording struct {
	robot *robot.Robot
	rec   *storage.Recorder
	sets  []*metrics.Set
}

// Record attaches a recorder and the drive and flywheel metric sets to
// rb's trace. A non-positive band uses DefaultFlywheelBand.
func Record(rb *robot.Robot, band float64, maxSamples int) *Recording {
	if band <= 0 {
		band = DefaultFlywheelBand
	}
	settle := rb.Config.Drive.Control.SettleThreshold
	r := &Recording{
		robot: rb,
		rec:   storage.NewRecorder(maxSamples),
		sets: []*metrics.Set{
			metrics.Standard(trace.DriveLeft, settle),
			metrics.Standard(trace.DriveRight, settle),
			metrics.Standard(trace.Flywheel, band),
		},
	}
	rb.Trace.Attach(r.rec)
	for _, set := range r.sets {
		rb.Trace.Attach(set)
	}
	return r
}

// Result snapshots what has been recorded so far. Backend is taken from
// the robot config.
func (r *Recording) Result(routine string, elapsed time.Duration, runErr error) *Result {
	result := &Result{
		Robot:    r.robot.Config.Name,
		Routine:  routine,
		Law:      r.robot.Flywheel.Law(),
		Backend:  r.robot.Config.Backend,
		Samples:  r.rec.Samples(),
		Dropped:  r.rec.Dropped(),
		Metrics:  make(map[string]map[string]float64, len(r.sets)),
		Duration: elapsed,
		Err:      runErr,
	}
	for _, set := range r.sets {
		result.Metrics[set.Subsystem()] = set.Values()
	}
	return result
}

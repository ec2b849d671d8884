// Package sim runs autonomous routines against the simulated robot and
// collects the resulting traces and metrics.
package sim

import (
	"errors"
	"time"

	"github.com/san-kum/motioncore/internal/auton"
	"github.com/san-kum/motioncore/internal/config"
	"github.com/san-kum/motioncore/internal/storage"
	"github.com/san-kum/motioncore/internal/trace"
)

var ErrNoRobot = errors.New("sim: no robot config")

// DefaultFlywheelBand is the rpm error within which the flywheel counts
// as settled for metrics.
const DefaultFlywheelBand = 10

type Config struct {
	Robot   *config.Config
	Routine string
	// Registry resolves Routine. Nil uses auton.Default.
	Registry *auton.Registry

	// Timeout bounds the whole run. Zero means no bound beyond ctx.
	Timeout time.Duration
	// MaxSamples caps the recorder. Zero keeps everything.
	MaxSamples   int
	FlywheelBand float64
}

type Result struct {
	Robot    string
	Routine  string
	Law      string
	Backend  string
	Samples  []trace.Sample
	Dropped  int
	Metrics  map[string]map[string]float64
	Duration time.Duration
	// Err is what the routine returned.
	Err error
}

// Metadata describes the run for storage.
func (r *Result) Metadata() storage.RunMetadata {
	meta := storage.RunMetadata{
		Robot:    r.Robot,
		Routine:  r.Routine,
		Law:      r.Law,
		Backend:  r.Backend,
		Duration: r.Duration.Seconds(),
		Metrics:  r.Metrics,
	}
	if r.Err != nil {
		meta.Error = r.Err.Error()
	}
	return meta
}

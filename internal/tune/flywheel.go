package tune

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/motioncore/internal/auton"
	"github.com/san-kum/motioncore/internal/config"
	"github.com/san-kum/motioncore/internal/robot"
	"github.com/san-kum/motioncore/internal/sim"
	"github.com/san-kum/motioncore/internal/trace"
)

const routineName = "tune"

// FlywheelObjective spins the simulated flywheel to fast speed with the
// candidate constants applied to the configured law, holds it for hold and
// scores the run by the named flywheel metric. A settle time of -1 means
// the wheel never settled and fails the point.
func FlywheelObjective(cfg *config.Config, metric string, hold time.Duration) Objective {
	return func(ctx context.Context, params map[string]float64) (float64, error) {
		reg := auton.NewRegistry()
		reg.Register(routineName, "apply constants and spin up", WithConstants(params, auton.Spinup(hold)))

		rc := *cfg
		rc.Backend = config.BackendSim
		result, err := sim.New(sim.Config{
			Robot:    &rc,
			Routine:  routineName,
			Registry: reg,
		}).Run(ctx)
		if err != nil {
			return 0, err
		}
		if result.Err != nil {
			return 0, result.Err
		}

		score, ok := result.Metrics[trace.Flywheel][metric]
		if !ok {
			return 0, fmt.Errorf("tune: no flywheel metric %q", metric)
		}
		if metric == "settle_time" && score < 0 {
			return math.NaN(), nil
		}
		log.WithFields(log.Fields{"params": params, metric: score}).Debug("grid point scored")
		return score, nil
	}
}

// WithConstants wraps run so the flywheel law takes params before it
// starts.
func WithConstants(params map[string]float64, run robot.Routine) robot.Routine {
	return func(ctx context.Context, r *robot.Robot) error {
		if err := apply(r, params); err != nil {
			return err
		}
		return run(ctx, r)
	}
}

// apply sets each constant on the running law, rejecting names the law
// does not have.
func apply(r *robot.Robot, params map[string]float64) error {
	known := r.Flywheel.Params()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("%w: %s has no constant %q", ErrBadGrid, r.Config.Flywheel.Control.Law, name)
		}
		if err := r.Flywheel.Tune(name, params[name]); err != nil {
			return err
		}
	}
	return nil
}

// Package scenario runs a scripted list of simulated runs described in a
// yaml file, each step picking a robot, a law and a routine.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/motioncore/internal/auton"
	"github.com/san-kum/motioncore/internal/config"
	"github.com/san-kum/motioncore/internal/sim"
	"github.com/san-kum/motioncore/internal/tune"
)

var ErrEmpty = errors.New("scenario: no steps")

type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is one simulated run. Config, when set, is a robot file and wins
// over Preset. Params are flywheel law constants applied before the
// routine starts.
type Step struct {
	Preset  string             `yaml:"preset"`
	Config  string             `yaml:"config"`
	Law     string             `yaml:"law"`
	Routine string             `yaml:"routine"`
	Timeout time.Duration      `yaml:"timeout"`
	Params  map[string]float64 `yaml:"params"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	return &sc, nil
}

func (s Step) robot() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		c, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = c
	case s.Preset != "":
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %q", config.ErrInvalid, s.Preset)
		}
	default:
		cfg = config.DefaultConfig()
	}
	cfg.Backend = config.BackendSim
	if s.Law != "" {
		cfg.Flywheel.Control.Law = s.Law
		cfg.Name += "-" + s.Law
	}
	return cfg, cfg.Validate()
}

// Run executes every step in order on a fresh simulated robot. It stops
// at the first step that cannot be set up and returns the results so
// far; a routine that fails is recorded in its Result instead.
func Run(ctx context.Context, sc *Scenario, reg *auton.Registry) ([]*sim.Result, error) {
	if reg == nil {
		reg = auton.Default()
	}
	results := make([]*sim.Result, 0, len(sc.Steps))

	for i, step := range sc.Steps {
		logger := log.WithFields(log.Fields{"scenario": sc.Name, "step": i + 1, "routine": step.Routine})

		cfg, err := step.robot()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		run, err := reg.Get(step.Routine)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		if len(step.Params) > 0 {
			run = tune.WithConstants(step.Params, run)
		}
		single := auton.NewRegistry()
		single.Register(step.Routine, reg.Describe(step.Routine), run)

		logger.WithField("robot", cfg.Name).Info("running step")
		result, err := sim.New(sim.Config{
			Robot:    cfg,
			Routine:  step.Routine,
			Registry: single,
			Timeout:  step.Timeout,
		}).Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		if result.Err != nil {
			logger.WithError(result.Err).Warn("routine ended early")
		}
		results = append(results, result)
	}
	return results, nil
}

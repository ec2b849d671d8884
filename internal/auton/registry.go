// Package auton holds the named autonomous routines a robot can run.
package auton

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/san-kum/motioncore/internal/robot"
)

var ErrUnknownRoutine = errors.New("auton: unknown routine")

type entry struct {
	desc string
	run  robot.Routine
}

type Registry struct {
	routines map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{routines: make(map[string]entry)}
}

// Register adds or replaces a routine.
func (r *Registry) Register(name, desc string, run robot.Routine) {
	r.routines[name] = entry{desc: desc, run: run}
}

func (r *Registry) Get(name string) (robot.Routine, error) {
	e, ok := r.routines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoutine, name)
	}
	return e.run, nil
}

func (r *Registry) Describe(name string) string {
	return r.routines[name].desc
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.routines))
	for name := range r.routines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the routines shipped with the 2023 robot.
func Default() *Registry {
	r := NewRegistry()
	r.Register("none", "do nothing", None)
	r.Register("test", "drive 24 inches and turn 90 degrees", Test)
	r.Register("skills", "roller, low-goal preloads and two volleys of three", Skills)
	r.Register("spinup", "spin the flywheel to fast speed and hold it", Spinup(SpinupHold))
	return r
}

func None(context.Context, *robot.Robot) error { return nil }

// SpinupHold is how long the spinup routine holds fast speed.
const SpinupHold = 3 * time.Second

// Spinup spins the flywheel up to its fast speed and holds it for hold,
// leaving the drive alone. Used to judge the flywheel law on its own.
func Spinup(hold time.Duration) robot.Routine {
	return func(ctx context.Context, r *robot.Robot) error {
		s := script{ctx: ctx, r: r}
		s.then(r.Flywheel.SetSpeedFast)
		s.wait(hold)
		return s.err
	}
}

func Test(ctx context.Context, r *robot.Robot) error {
	s := script{ctx: ctx, r: r}
	s.straight(24)
	s.turn(90)
	return s.err
}

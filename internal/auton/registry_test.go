package auton

import (
	"context"
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/motioncore/internal/config"
	"github.com/san-kum/motioncore/internal/plant"
	"github.com/san-kum/motioncore/internal/robot"
)

func init() {
	log.SetLevel(log.WarnLevel)
}

func TestDefaultRegistry(t *testing.T) {
	r := Default()

	names := r.Names()
	want := []string{"none", "skills", "spinup", "test"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("name %d: expected %s, got %s", i, want[i], names[i])
		}
	}

	for _, name := range names {
		if _, err := r.Get(name); err != nil {
			t.Errorf("get %s: %v", name, err)
		}
		if r.Describe(name) == "" {
			t.Errorf("%s has no description", name)
		}
	}
}

func TestUnknownRoutine(t *testing.T) {
	_, err := Default().Get("match")
	if !errors.Is(err, ErrUnknownRoutine) {
		t.Errorf("expected ErrUnknownRoutine, got %v", err)
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	calls := 0
	r.Register("x", "first", None)
	r.Register("x", "second", func(context.Context, *robot.Robot) error {
		calls++
		return nil
	})

	if len(r.Names()) != 1 || r.Describe("x") != "second" {
		t.Fatalf("expected a single replaced routine, got %v", r.Names())
	}
	run, _ := r.Get("x")
	if err := run(context.Background(), nil); err != nil || calls != 1 {
		t.Errorf("expected replacement to run once, got calls=%d err=%v", calls, err)
	}
}

func newSimRobot(t *testing.T) (*robot.Robot, *plant.World) {
	t.Helper()
	world := plant.NewWorld()
	r, err := robot.New(config.DefaultConfig(), world)
	if err != nil {
		t.Fatalf("robot: %v", err)
	}
	return r, world
}

func TestSkillsStopsOnCancel(t *testing.T) {
	r, _ := newSimRobot(t)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Skills(ctx, r)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("cancelled skills took %v", time.Since(start))
	}

	// nothing after the first punch ran
	if l, rt := r.Drive.Targets(); l != 0 || rt != 0 {
		t.Errorf("expected no drive targets, got %f %f", l, rt)
	}
}

func TestTestRoutineOnSimulator(t *testing.T) {
	if testing.Short() {
		t.Skip("runs in real time")
	}
	r, world := newSimRobot(t)
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	go world.Run(ctx, time.Millisecond)

	if err := r.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := r.Autonomous(ctx, Test); err != nil {
		t.Fatalf("autonomous: %v", err)
	}

	l, rt := r.Drive.Feedback()
	target := r.Drive.Config().TurnArc(90)
	if l < target-30 || rt > -target+30 {
		t.Errorf("expected a 90 degree turn, feedback %f %f, arc %f", l, rt, target)
	}
}

func TestSpinupSetsFastSpeed(t *testing.T) {
	r, _ := newSimRobot(t)
	defer r.Close()

	if err := Spinup(10*time.Millisecond)(context.Background(), r); err != nil {
		t.Fatalf("spinup: %v", err)
	}
	if got := r.Flywheel.Target(); got != float64(r.Config.Flywheel.Control.FastSpeed) {
		t.Errorf("expected fast speed target, got %f", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Spinup(time.Hour)(ctx, r); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

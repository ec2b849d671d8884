package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/motioncore/internal/auton"
	"github.com/san-kum/motioncore/internal/config"
	"github.com/san-kum/motioncore/internal/flywheel"
	"github.com/san-kum/motioncore/internal/tune"
)

func init() {
	log.SetLevel(log.WarnLevel)
}

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	sc, err := Load(write(t, `
name: shootout
steps:
  - preset: spinup-tbh
    routine: spinup
    timeout: 2s
    params:
      gain: 0.001
  - law: feedforward
    routine: none
`))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "shootout" || len(sc.Steps) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	if sc.Steps[0].Timeout != 2*time.Second || sc.Steps[0].Params["gain"] != 0.001 {
		t.Errorf("unexpected first step %+v", sc.Steps[0])
	}

	if _, err := Load(write(t, "name: empty\n")); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestStepRobot(t *testing.T) {
	cfg, err := Step{Preset: "spinup-tbh", Law: flywheel.LawPID}.robot()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "spinup-tbh-pid" || cfg.Flywheel.Control.Law != flywheel.LawPID || cfg.Backend != config.BackendSim {
		t.Errorf("unexpected robot %s/%s/%s", cfg.Name, cfg.Flywheel.Control.Law, cfg.Backend)
	}

	if _, err := (Step{Preset: "nope"}).robot(); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid for an unknown preset, got %v", err)
	}
}

func TestRun(t *testing.T) {
	sc := &Scenario{Name: "quick", Steps: []Step{
		{Routine: "none"},
		{Law: flywheel.LawTBH, Routine: "none"},
	}}
	results, err := Run(context.Background(), sc, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Law != flywheel.LawTBH {
		t.Errorf("expected the second step on tbh, got %s", results[1].Law)
	}
}

func TestRunStopsAtBadStep(t *testing.T) {
	sc := &Scenario{Steps: []Step{
		{Routine: "none"},
		{Routine: "missing"},
		{Routine: "none"},
	}}
	results, err := Run(context.Background(), sc, auton.Default())
	if !errors.Is(err, auton.ErrUnknownRoutine) {
		t.Fatalf("expected ErrUnknownRoutine, got %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected the first result only, got %d", len(results))
	}
}

func TestRunRejectsUnknownConstant(t *testing.T) {
	sc := &Scenario{Steps: []Step{{Routine: "none", Params: map[string]float64{"gain": 1}}}}
	results, err := Run(context.Background(), sc, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(results[0].Err, tune.ErrBadGrid) {
		t.Errorf("expected the routine to fail on a TBH constant under pid, got %v", results[0].Err)
	}
}

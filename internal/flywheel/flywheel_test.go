package flywheel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/device/fake"
	"github.com/san-kum/motioncore/internal/motorgroup"
	"github.com/san-kum/motioncore/internal/plant"
	"github.com/san-kum/motioncore/internal/task"
	"github.com/san-kum/motioncore/internal/trace"
)

func newWheel(t *testing.T, cfg Config) (*Flywheel, *fake.Motor) {
	t.Helper()
	m := fake.NewMotor(20)
	g, err := motorgroup.New(m)
	if err != nil {
		t.Fatal(err)
	}
	f, err := New(cfg, g)
	if err != nil {
		t.Fatal(err)
	}
	return f, m
}

func lastVoltage(t *testing.T, m *fake.Motor) int {
	t.Helper()
	c := m.Last()
	if c.Op != "move_voltage" {
		t.Fatalf("last command %+v, want move_voltage", c)
	}
	return int(c.Value)
}

func TestNewConfiguresMotors(t *testing.T) {
	_, m := newWheel(t, DefaultConfig())
	if m.Gearing() != device.GearsetBlue {
		t.Errorf("gearing %v, want blue", m.Gearing())
	}
	if m.BrakeMode() != device.BrakeCoast {
		t.Errorf("brake mode %v, want coast", m.BrakeMode())
	}
}

func TestPIDStepAndSaturation(t *testing.T) {
	f, m := newWheel(t, DefaultConfig())
	f.SetSpeedSlow()

	f.step(context.Background())
	if v := lastVoltage(t, m); v != 10040 {
		t.Errorf("first output %d, want 10040", v)
	}
	// 12000 + 5*(400+600) + 0.1*200 is well past the envelope
	f.SetSpeedFast()
	f.step(context.Background())
	if v := lastVoltage(t, m); v != 12000 {
		t.Errorf("second output %d, want saturation at 12000", v)
	}
	if f.Output() != 12000 {
		t.Errorf("Output() = %f", f.Output())
	}
}

func TestRetargetKeepsLawState(t *testing.T) {
	f, m := newWheel(t, DefaultConfig())
	f.SetSpeedSlow()
	f.step(context.Background())
	f.step(context.Background())

	m.SetState(0, 400)
	f.SetSpeedFast()
	f.step(context.Background())
	// integral carries 800 from the slow target
	if v := lastVoltage(t, m); v != 8980 {
		t.Errorf("output after retarget %d, want 8980", v)
	}
}

func TestResetLaw(t *testing.T) {
	f, m := newWheel(t, DefaultConfig())
	f.SetSpeedSlow()
	f.step(context.Background())
	f.step(context.Background())

	m.SetState(0, 400)
	f.SetSpeedFast()
	f.ResetLaw()
	f.step(context.Background())
	// a fresh law sees only the 200 rpm error: 20*200 + 5*200 + 0.1*200.
	// Kept state would give 8980 as in TestRetargetKeepsLawState.
	v := lastVoltage(t, m)
	if v == 8980 {
		t.Fatal("reset did not clear the integral and previous error")
	}
	if v != 5020 {
		t.Errorf("output after reset %d, want 5020", v)
	}

	// the reset applies once; the next cycle accumulates from the fresh state
	f.step(context.Background())
	if v := lastVoltage(t, m); v != 6000 {
		t.Errorf("second output after reset %d, want 6000", v)
	}
}

func TestOverrides(t *testing.T) {
	f, m := newWheel(t, DefaultConfig())
	f.SetSpeedFast()
	f.SetVoltage(20000)
	if v := lastVoltage(t, m); v != 12000 {
		t.Errorf("voltage override %d, want 12000", v)
	}
	n := len(m.Calls())
	f.step(context.Background())
	if len(m.Calls()) != n {
		t.Error("loop must stay quiet during an override")
	}

	f.SetVelocity(300)
	if c := m.Last(); c.Op != "move_velocity" || c.Value != 300 {
		t.Errorf("velocity override %+v", c)
	}

	f.SetTargetVelocity(500)
	if f.Manual() {
		t.Error("a new target hands control back to the law")
	}
	f.step(context.Background())
	lastVoltage(t, m)
}

func TestPauseBrakes(t *testing.T) {
	f, m := newWheel(t, DefaultConfig())
	f.PauseTask()
	if m.Last().Op != "brake" {
		t.Errorf("pause should brake, last %+v", m.Last())
	}
}

func TestLawSelection(t *testing.T) {
	f, _ := newWheel(t, DefaultConfig())
	if f.Law() != LawPID {
		t.Errorf("default law %q", f.Law())
	}
	for _, name := range []string{LawTBH, LawFeedforward, LawPID} {
		if err := f.UseLaw(name); err != nil {
			t.Fatalf("UseLaw(%q): %v", name, err)
		}
		if f.Law() != name {
			t.Errorf("law %q after UseLaw(%q)", f.Law(), name)
		}
	}
	if err := f.UseLaw("bang-bang"); !errors.Is(err, ErrUnknownLaw) {
		t.Errorf("expected ErrUnknownLaw, got %v", err)
	}
}

func TestLawFromInsideLoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Period = time.Millisecond
	f, _ := newWheel(t, cfg)
	names := make(chan string, 1)
	f.SetObserver(trace.ObserverFunc(func(trace.Sample) {
		select {
		case names <- f.Law():
		default:
		}
	}))
	f.SetSpeedSlow()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.InitTask(ctx); err != nil {
		t.Fatal(err)
	}
	defer f.EndTask()

	select {
	case name := <-names:
		if name != LawPID {
			t.Errorf("law %q from observer, want %q", name, LawPID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Law() from an observer blocked the loop")
	}
	if f.Law() != LawPID || f.TaskState() != task.Running {
		t.Errorf("law %q state %v while running", f.Law(), f.TaskState())
	}
}

type fixedLaw struct{ out float64 }

func (l fixedLaw) Name() string                    { return "fixed" }
func (l fixedLaw) Output(float64, float64) float64 { return l.out }
func (l fixedLaw) Reset()                          {}

func TestTune(t *testing.T) {
	f, m := newWheel(t, DefaultConfig())
	if err := f.Tune("kP", 30); err != nil {
		t.Fatal(err)
	}
	if got := f.Params()["kP"]; got != 30 {
		t.Errorf("kP = %f, want 30", got)
	}

	f.SetLaw(fixedLaw{out: -50000})
	if f.Law() != "fixed" {
		t.Errorf("law %q after SetLaw", f.Law())
	}
	if err := f.Tune("kP", 1); !errors.Is(err, ErrNotTunable) {
		t.Errorf("expected ErrNotTunable, got %v", err)
	}
	if f.Params() != nil {
		t.Error("untunable law should report no params")
	}
	f.step(context.Background())
	if v := lastVoltage(t, m); v != -12000 {
		t.Errorf("custom law output %d, want -12000", v)
	}
}

func TestObserver(t *testing.T) {
	f, m := newWheel(t, DefaultConfig())
	m.SetState(0, 123)
	var got []trace.Sample
	f.SetObserver(trace.ObserverFunc(func(s trace.Sample) { got = append(got, s) }))
	f.SetTargetVelocity(200)
	f.step(context.Background())
	if len(got) != 1 {
		t.Fatalf("got %d samples", len(got))
	}
	s := got[0]
	if s.Subsystem != trace.Flywheel || s.Target != 200 || s.Measured != 123 {
		t.Errorf("sample %+v", s)
	}
}

func TestDriverToggles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Period = time.Hour
	f, m := newWheel(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.InitTask(ctx); err != nil {
		t.Fatal(err)
	}
	defer f.EndTask()

	pad := plant.NewGamepad()
	pad.Press(device.ButtonL1)
	f.Driver(pad, device.ButtonL1, device.ButtonL2)
	if f.TaskState() != task.Paused {
		t.Fatalf("state %v after power press, want paused", f.TaskState())
	}
	if m.Last().Op != "brake" {
		t.Error("pausing from the driver should brake")
	}

	f.Driver(pad, device.ButtonL1, device.ButtonL2)
	if f.TaskState() != task.Paused {
		t.Error("holding power must not toggle again")
	}
	pad.Release(device.ButtonL1)
	pad.Press(device.ButtonL1)
	f.Driver(pad, device.ButtonL1, device.ButtonL2)
	if f.TaskState() != task.Running {
		t.Errorf("state %v after second press, want running", f.TaskState())
	}

	pad.Press(device.ButtonL2)
	f.Driver(pad, device.ButtonL1, device.ButtonL2)
	if f.Target() != -400 || !f.Reversed() {
		t.Errorf("target %f after reverse press, want -400", f.Target())
	}
	pad.Release(device.ButtonL2)
	pad.Press(device.ButtonL2)
	f.Driver(pad, device.ButtonL1, device.ButtonL2)
	if f.Target() != 600 || f.Reversed() {
		t.Errorf("target %f after second reverse press, want 600", f.Target())
	}
}

func TestInitTwice(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Period = time.Hour
	f, _ := newWheel(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.InitTask(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.InitTask(ctx); !errors.Is(err, task.ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	f.EndTask()
	if err := f.InitTask(ctx); err != nil {
		t.Errorf("restart after EndTask: %v", err)
	}
	f.EndTask()
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"defaults", func(*Config) {}, nil},
		{"unknown law", func(c *Config) { c.Law = "bang-bang" }, ErrUnknownLaw},
		{"empty law means pid", func(c *Config) { c.Law = "" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.SlowSpeed = -1
	if cfg.Validate() == nil {
		t.Error("negative preset should be rejected")
	}
}

package feetech

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/motioncore/internal/device"
)

func init() {
	log.SetLevel(log.WarnLevel)
}

// fakeServo spins at whatever speed was last written when advanced.
type fakeServo struct {
	mu       sync.Mutex
	fpos     float64
	speed    int
	enabled  bool
	disables int
	writes   int
	readErr  error
	writeErr error
}

func newFakeServo() *fakeServo { return &fakeServo{enabled: true} }

func (f *fakeServo) Enable(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.enabled = true
	return nil
}

func (f *fakeServo) Disable(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.enabled = false
	f.speed = 0
	f.disables++
	return nil
}

func (f *fakeServo) Position(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return 0, f.readErr
	}
	raw := int(math.Round(f.fpos)) % StepsPerRev
	if raw < 0 {
		raw += StepsPerRev
	}
	return raw, nil
}

func (f *fakeServo) SetVelocity(ctx context.Context, speed int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.speed = speed
	f.writes++
	return nil
}

func (f *fakeServo) advance(dt float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enabled {
		f.fpos += float64(f.speed) * dt
	}
}

func (f *fakeServo) set(raw float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fpos = raw
}

func (f *fakeServo) state() (speed int, enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.speed, f.enabled
}

func single(t *testing.T) (*Backend, *Motor, *fakeServo) {
	t.Helper()
	fs := newFakeServo()
	b := New(map[int]Servo{1: fs}, 20*time.Millisecond)
	dm, err := b.Motor(1)
	if err != nil {
		t.Fatalf("motor: %v", err)
	}
	return b, dm.(*Motor), fs
}

func TestVelocityCommand(t *testing.T) {
	tests := []struct {
		name     string
		rpm      int
		reversed bool
		want     int
	}{
		{"forward", 30, false, 2048},
		{"reversed", 30, true, -2048},
		{"clamped", 1000, false, FullSpeed},
		{"stop", 0, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, m, fs := single(t)
			m.SetReversed(tt.reversed)
			m.MoveVelocity(tt.rpm)
			b.Step(context.Background())

			if speed, _ := fs.state(); speed != tt.want {
				t.Errorf("expected wheel speed %d, got %d", tt.want, speed)
			}
			if m.TargetVelocity() != tt.rpm {
				t.Errorf("expected target %d, got %d", tt.rpm, m.TargetVelocity())
			}
		})
	}
}

func TestVoltageCommand(t *testing.T) {
	b, m, fs := single(t)
	m.MoveVoltage(6000)
	b.Step(context.Background())

	if speed, _ := fs.state(); speed != 1700 {
		t.Errorf("expected wheel speed 1700, got %d", speed)
	}
	if m.Voltage() != 6000 {
		t.Errorf("expected 6000 mV reported, got %d", m.Voltage())
	}

	m.SetVoltageLimit(3000)
	b.Step(context.Background())
	if speed, _ := fs.state(); speed != 850 {
		t.Errorf("expected limited wheel speed 850, got %d", speed)
	}

	m.Move(-127)
	b.Step(context.Background())
	if speed, _ := fs.state(); speed != -850 {
		t.Errorf("expected -850 at full reverse power under the limit, got %d", speed)
	}
}

func TestPositionUnwrapsAcrossTurns(t *testing.T) {
	b, m, fs := single(t)
	ctx := context.Background()

	fs.set(4000)
	b.Step(ctx)
	fs.set(4096 + 100)
	b.Step(ctx)

	wantPos := 4196.0 * 360 / StepsPerRev
	if got := m.Position(); math.Abs(got-wantPos) > 1e-9 {
		t.Errorf("expected position %.4f, got %.4f", wantPos, got)
	}
	wantVel := 196.0 / StepsPerRev / 0.02 * 60
	if got := m.Velocity(); math.Abs(got-wantVel) > 1e-9 {
		t.Errorf("expected velocity %.4f, got %.4f", wantVel, got)
	}

	m.SetReversed(true)
	if got := m.Velocity(); math.Abs(got+wantVel) > 1e-9 {
		t.Errorf("expected reversed velocity %.4f, got %.4f", -wantVel, got)
	}
}

func TestTareAndUnits(t *testing.T) {
	b, m, fs := single(t)
	fs.set(1024)
	b.Step(context.Background())

	m.TarePosition()
	if m.Position() != 0 {
		t.Errorf("expected 0 after tare, got %f", m.Position())
	}
	m.SetEncoderUnits(device.UnitsRotations)
	m.SetZeroPosition(10)
	if got := m.Position(); math.Abs(got-10) > 1e-9 {
		t.Errorf("expected 10 rotations, got %f", got)
	}
}

func TestProfiledMoveSettles(t *testing.T) {
	b, m, fs := single(t)
	ctx := context.Background()

	m.MoveAbsolute(90, 60)
	for i := 0; i < 300; i++ {
		b.Step(ctx)
		fs.advance(0.02)
	}

	if got := m.Position(); math.Abs(got-90) > 1.5 {
		t.Errorf("expected to settle near 90, got %.2f", got)
	}
	if speed, _ := fs.state(); speed != 0 {
		t.Errorf("expected wheel stopped, got %d", speed)
	}
	if !m.IsStopped() {
		t.Error("expected motor to report stopped")
	}
	if m.TargetPosition() != 90 {
		t.Errorf("expected target 90, got %f", m.TargetPosition())
	}
}

func TestProfiledMoveLimitsSpeed(t *testing.T) {
	b, m, fs := single(t)
	m.MoveRelative(3600, 20)
	b.Step(context.Background())

	want := int(math.Round(20.0 * StepsPerRev / 60))
	if speed, _ := fs.state(); speed != want {
		t.Errorf("expected profile speed %d, got %d", want, speed)
	}

	m.ModifyProfiledVelocity(10)
	b.Step(context.Background())
	want = int(math.Round(10.0 * StepsPerRev / 60))
	if speed, _ := fs.state(); speed != want {
		t.Errorf("expected modified profile speed %d, got %d", want, speed)
	}
}

func TestBrakeModes(t *testing.T) {
	b, m, fs := single(t)
	ctx := context.Background()

	m.MoveVelocity(30)
	b.Step(ctx)

	m.SetBrakeMode(device.BrakeHold)
	m.Brake()
	b.Step(ctx)
	if speed, enabled := fs.state(); speed != 0 || !enabled {
		t.Errorf("hold: expected stopped with torque, got speed %d enabled %v", speed, enabled)
	}

	m.SetBrakeMode(device.BrakeCoast)
	m.Brake()
	b.Step(ctx)
	b.Step(ctx)
	if _, enabled := fs.state(); enabled {
		t.Error("coast: expected torque released")
	}
	if fs.disables != 1 {
		t.Errorf("coast: expected one disable, got %d", fs.disables)
	}

	m.MoveVelocity(10)
	b.Step(ctx)
	if speed, enabled := fs.state(); speed != 683 || !enabled {
		t.Errorf("expected torque back at 683 steps/s, got speed %d enabled %v", speed, enabled)
	}
}

func TestUnchangedSpeedIsNotRewritten(t *testing.T) {
	b, m, fs := single(t)
	m.MoveVelocity(30)
	for i := 0; i < 5; i++ {
		b.Step(context.Background())
	}
	if fs.writes != 1 {
		t.Errorf("expected one write, got %d", fs.writes)
	}
}

func TestBusErrorsLatchDriverFault(t *testing.T) {
	b, m, fs := single(t)
	ctx := context.Background()
	m.MoveVelocity(30)

	fs.readErr = errors.New("timeout")
	b.Step(ctx)
	if !m.Faults().Has(device.FaultDriverFault) {
		t.Error("expected driver fault after read error")
	}
	if fs.writes != 0 {
		t.Errorf("expected no write after a failed read, got %d", fs.writes)
	}

	fs.readErr = nil
	b.Step(ctx)
	if m.Faults() != 0 {
		t.Errorf("expected fault cleared, got %v", m.Faults())
	}

	fs.writeErr = errors.New("no status packet")
	m.MoveVelocity(60)
	b.Step(ctx)
	if !m.Faults().Has(device.FaultDriverFault) {
		t.Error("expected driver fault after write error")
	}
	if m.Voltage() != int(math.Round(2048.0/FullSpeed*device.MaxVoltage)) {
		t.Errorf("expected last good speed reported, got %d mV", m.Voltage())
	}

	fs.writeErr = nil
	b.Step(ctx)
	if speed, _ := fs.state(); speed != FullSpeed {
		t.Errorf("expected retry to write %d, got %d", FullSpeed, speed)
	}
}

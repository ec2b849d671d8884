package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/san-kum/motioncore/internal/trace"
)

func sineError(n int, hz, dt float64) []trace.Sample {
	samples := make([]trace.Sample, n)
	for i := range samples {
		t := float64(i) * dt
		samples[i] = trace.Sample{
			Subsystem: trace.Flywheel,
			Time:      time.Duration(math.Round(t * float64(time.Second))),
			Target:    600 + 10*math.Sin(2*math.Pi*hz*t),
			Measured:  600,
		}
	}
	return samples
}

func TestErrorSpectrumFindsOscillation(t *testing.T) {
	spec, err := ErrorSpectrum(sineError(1024, 5, 0.002))
	if err != nil {
		t.Fatalf("spectrum: %v", err)
	}
	if len(spec.Freq) != 512 {
		t.Errorf("expected 512 bins, got %d", len(spec.Freq))
	}
	hz, power := spec.Dominant()
	if math.Abs(hz-5) > 0.5 {
		t.Errorf("expected a peak near 5 Hz, got %.3f", hz)
	}
	if power <= 0 {
		t.Errorf("expected positive peak power, got %f", power)
	}
	if top := spec.Freq[len(spec.Freq)-1]; top >= 250 {
		t.Errorf("expected bins below Nyquist, top bin %.1f", top)
	}
}

func TestErrorSpectrumIgnoresOffset(t *testing.T) {
	samples := make([]trace.Sample, 64)
	for i := range samples {
		samples[i] = trace.Sample{Time: time.Duration(i) * 2 * time.Millisecond, Target: 100, Measured: 90}
	}
	spec, err := ErrorSpectrum(samples)
	if err != nil {
		t.Fatal(err)
	}
	if _, power := spec.Dominant(); power > 1e-9 {
		t.Errorf("expected a flat spectrum for a constant error, got peak %g", power)
	}
}

func TestErrorSpectrumTooShort(t *testing.T) {
	if _, err := ErrorSpectrum(sineError(3, 5, 0.002)); !errors.Is(err, ErrTooShort) {
		t.Errorf("expected ErrTooShort, got %v", err)
	}
	same := []trace.Sample{{}, {}, {}, {}}
	if _, err := ErrorSpectrum(same); !errors.Is(err, ErrTooShort) {
		t.Errorf("expected ErrTooShort for zero span, got %v", err)
	}
}

func TestErrorPhase(t *testing.T) {
	samples := []trace.Sample{
		{Time: 0, Target: 10},
		{Time: 100 * time.Millisecond, Target: 8},
		{Time: 100 * time.Millisecond, Target: 7},
		{Time: 300 * time.Millisecond, Target: 5},
	}
	points := ErrorPhase(samples)
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].X != 8 || math.Abs(points[0].Y+20) > 1e-9 {
		t.Errorf("unexpected first point %+v", points[0])
	}
	if points[1].X != 5 || math.Abs(points[1].Y+10) > 1e-9 {
		t.Errorf("unexpected second point %+v", points[1])
	}
	if ErrorPhase(samples[:1]) != nil {
		t.Error("expected nil for a single sample")
	}
}

func TestPhaseToASCII(t *testing.T) {
	points := ErrorPhase(sineError(200, 2, 0.002))
	out := PhaseToASCII(points, 40, 10)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(lines))
	}
	for i, l := range lines {
		if n := utf8.RuneCountInString(l); n != 40 {
			t.Errorf("row %d: expected 40 columns, got %d", i, n)
		}
	}
	if !strings.Contains(out, "•") {
		t.Error("expected plotted points")
	}
	if !strings.Contains(out, "│") || !strings.Contains(out, "─") {
		t.Error("expected both axes through the origin")
	}
	if PhaseToASCII(nil, 40, 10) != "" {
		t.Error("expected empty output without points")
	}
}

package analysis

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/motioncore/internal/trace"
)

var ErrTooShort = errors.New("analysis: need at least 4 samples spanning some time")

type Spectrum struct {
	// Freq is in Hz, one entry per bin up to the Nyquist frequency.
	Freq  []float64
	Power []float64
}

// ErrorSpectrum returns the power spectrum of target minus measured for
// samples of one subsystem. The mean is removed first so a steady offset
// does not swamp the low bins. Samples are assumed evenly spaced.
func ErrorSpectrum(samples []trace.Sample) (Spectrum, error) {
	n := len(samples)
	if n < 4 {
		return Spectrum{}, ErrTooShort
	}
	span := (samples[n-1].Time - samples[0].Time).Seconds()
	if span <= 0 {
		return Spectrum{}, ErrTooShort
	}
	rate := float64(n-1) / span

	data := make([]float64, n)
	mean := 0.0
	for i, s := range samples {
		data[i] = s.Error()
		mean += data[i]
	}
	mean /= float64(n)
	for i := range data {
		data[i] -= mean
	}

	bins := fft.FFTReal(data)
	half := n / 2
	spec := Spectrum{Freq: make([]float64, half), Power: make([]float64, half)}
	for k := 0; k < half; k++ {
		spec.Freq[k] = float64(k) * rate / float64(n)
		spec.Power[k] = cmplx.Abs(bins[k])
	}
	return spec, nil
}

// Dominant returns the strongest bin above DC, or zero when there is none.
func (s Spectrum) Dominant() (hz, power float64) {
	for k := 1; k < len(s.Power); k++ {
		if s.Power[k] > power {
			power = s.Power[k]
			hz = s.Freq[k]
		}
	}
	return hz, power
}

package filters

import (
	"errors"
	"math"
)

var (
	// ErrInvalidFrequency indicates the target frequency is not in (0, Nyquist)
	ErrInvalidFrequency = errors.New("target frequency must be positive and below Nyquist")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidHalfLife indicates the decay half-life must be positive and finite
	ErrInvalidHalfLife = errors.New("decay half-life must be positive and finite")
)

// NormalizerMode selects how a resonator scales its raw peak energy.
//
// The choice changes the absolute scale of every energy reading, so the
// note detector's minimum-energy floor has to be tuned for the mode in use.
type NormalizerMode int

const (
	// NormalizerCalibrated scales by calibratedGain*(1-decay). A unit
	// amplitude tone at the tuned frequency settles to a reading of about
	// calibratedGain/(4*(1-decay)), and the default floor of 1e9 is tuned
	// against 16-bit sample magnitudes under this mode.
	NormalizerCalibrated NormalizerMode = iota
	// NormalizerPeriod scales by 1/period, compensating for low notes
	// accumulating over longer cycles. Readings are several orders of
	// magnitude larger than NormalizerCalibrated for the same input.
	NormalizerPeriod
)

// calibratedGain keeps calibrated normalizers close to 1.0 for typical decays.
const calibratedGain = 1000.0

// DefaultHalfLifePeriods is the default decay half-life in periods of the tuned note.
const DefaultHalfLifePeriods = 16.0

func (m NormalizerMode) String() string {
	switch m {
	case NormalizerCalibrated:
		return "calibrated"
	case NormalizerPeriod:
		return "period"
	default:
		return "unknown"
	}
}

// ParseNormalizerMode maps "calibrated" or "period" to a NormalizerMode.
func ParseNormalizerMode(name string) (NormalizerMode, bool) {
	switch name {
	case "calibrated", "":
		return NormalizerCalibrated, true
	case "period":
		return NormalizerPeriod, true
	default:
		return NormalizerCalibrated, false
	}
}

// Resonator tracks the energy of a signal near one frequency.
//
// Each sample is projected onto a sine and cosine of the tuned period and
// added to exponentially decaying in-phase and quadrature accumulators. It is
// a one-bin Goertzel transform with exponential forgetting instead of a fixed
// window, so energy can be read at any time without buffering samples.
type Resonator struct {
	label      string
	sampleRate float64

	period     int     // Wavelength of the tuned note in samples
	phase      int     // Position within the period, always in [0, period)
	decay      float64 // Per-sample multiplier applied to both accumulators
	normalizer float64 // Scale applied to the peak when it is read

	// sin and cos of 2*pi*p/period for every phase p
	sinTable []float64
	cosTable []float64

	xsin float64
	xcos float64
	peak float64 // Largest xsin^2+xcos^2 since the last read
}

// NewResonator creates a resonator tuned to targetFreq.
//
// Parameters:
//   - label: display name, e.g. "2C" for C in the third octave of the bank
//   - targetFreq: frequency in Hz, below Nyquist
//   - sampleRate: sample rate in Hz
//   - halfLifePeriods: how many periods it takes for the accumulators to decay to half
//   - mode: energy normalization (see NormalizerMode)
//
// The period is rounded to whole samples, so the effective tuned frequency is
// sampleRate/period (see Frequency).
func NewResonator(label string, targetFreq, sampleRate, halfLifePeriods float64, mode NormalizerMode) (*Resonator, error) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, ErrInvalidSampleRate
	}
	if !(targetFreq > 0) || targetFreq >= sampleRate/2 {
		return nil, ErrInvalidFrequency
	}
	if !(halfLifePeriods > 0) || math.IsInf(halfLifePeriods, 0) {
		return nil, ErrInvalidHalfLife
	}

	// below Nyquist, so at least 2 samples
	period := int(math.Round(sampleRate / targetFreq))

	// x_n = a*x_(n-1) decays to half after h samples when a^h = 1/2
	halfLifeSamples := halfLifePeriods * float64(period)
	decay := math.Exp(-math.Ln2 / halfLifeSamples)
	if decay >= 1 {
		return nil, ErrInvalidHalfLife
	}

	r := &Resonator{
		label:      label,
		sampleRate: sampleRate,
		period:     period,
		decay:      decay,
		sinTable:   make([]float64, period),
		cosTable:   make([]float64, period),
	}

	switch mode {
	case NormalizerPeriod:
		r.normalizer = 1 / float64(period)
	default:
		// Steady state of x_n = a*x_(n-1) + v is v/(1-a)
		r.normalizer = calibratedGain * (1 - decay)
	}

	for p := 0; p < period; p++ {
		rad := 2 * math.Pi * float64(p) / float64(period)
		r.sinTable[p] = math.Sin(rad)
		r.cosTable[p] = math.Cos(rad)
	}

	return r, nil
}

// Touch feeds one sample into the resonator.
func (r *Resonator) Touch(sample float64) {
	r.xsin = r.xsin*r.decay + sample*r.sinTable[r.phase]
	r.xcos = r.xcos*r.decay + sample*r.cosTable[r.phase]

	r.phase++
	if r.phase == r.period {
		r.phase = 0
	}

	if e := r.xsin*r.xsin + r.xcos*r.xcos; e > r.peak {
		r.peak = e
	}
}

// ReadAndReset returns the normalized peak energy since the previous call and
// starts a new peak. Call it exactly once per frame; reading more or less
// often changes what a single reading covers.
func (r *Resonator) ReadAndReset() float64 {
	e := r.peak * r.normalizer
	r.peak = 0
	return e
}

// Reset clears the accumulators, peak and phase.
// Call this when processing discontinuous audio segments.
func (r *Resonator) Reset() {
	r.xsin, r.xcos, r.peak = 0, 0, 0
	r.phase = 0
}

// Label returns the display name given at construction.
func (r *Resonator) Label() string { return r.label }

// Period returns the tuned wavelength in samples.
func (r *Resonator) Period() int { return r.period }

// Phase returns the current position within the period.
func (r *Resonator) Phase() int { return r.phase }

// Decay returns the per-sample decay factor.
func (r *Resonator) Decay() float64 { return r.decay }

// Normalizer returns the scale applied to readings.
func (r *Resonator) Normalizer() float64 { return r.normalizer }

// Frequency returns the effective tuned frequency, sampleRate/period.
func (r *Resonator) Frequency() float64 {
	return r.sampleRate / float64(r.period)
}

package filters

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/RyanBlaney/sonido-scale/internal/testutil"
)

const testSampleRate = 44100.0

func newTestResonator(t *testing.T, freq float64) *Resonator {
	t.Helper()
	r, err := NewResonator("A", freq, testSampleRate, DefaultHalfLifePeriods, NormalizerCalibrated)
	if err != nil {
		t.Fatalf("NewResonator(%v) failed: %v", freq, err)
	}
	return r
}

func TestNewResonator_Period(t *testing.T) {
	tests := []struct {
		freq   float64
		period int
	}{
		{440.0, 100},  // 100.23
		{261.63, 169}, // 168.56 rounds up
		{65.41, 674},  // 674.21
		{1975.5, 22},  // 22.32
		{22049, 2},    // just below Nyquist
	}
	for _, tt := range tests {
		r := newTestResonator(t, tt.freq)
		if r.Period() != tt.period {
			t.Errorf("freq %.2f: period = %d, want %d", tt.freq, r.Period(), tt.period)
		}
		if r.Phase() != 0 {
			t.Errorf("freq %.2f: initial phase = %d, want 0", tt.freq, r.Phase())
		}
	}
}

func TestNewResonator_InvalidParameters(t *testing.T) {
	tests := []struct {
		name       string
		freq       float64
		sampleRate float64
		halfLife   float64
		want       error
	}{
		{"zero frequency", 0, testSampleRate, 16, ErrInvalidFrequency},
		{"negative frequency", -440, testSampleRate, 16, ErrInvalidFrequency},
		{"NaN frequency", math.NaN(), testSampleRate, 16, ErrInvalidFrequency},
		{"above Nyquist", 30000, testSampleRate, 16, ErrInvalidFrequency},
		{"at Nyquist", testSampleRate / 2, testSampleRate, 16, ErrInvalidFrequency},
		{"zero sample rate", 440, 0, 16, ErrInvalidSampleRate},
		{"negative sample rate", 440, -44100, 16, ErrInvalidSampleRate},
		{"zero half-life", 440, testSampleRate, 0, ErrInvalidHalfLife},
		{"infinite half-life", 440, testSampleRate, math.Inf(1), ErrInvalidHalfLife},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResonator("x", tt.freq, tt.sampleRate, tt.halfLife, NormalizerCalibrated)
			if !errors.Is(err, tt.want) {
				t.Errorf("got error %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResonator_DecayIsStable(t *testing.T) {
	for _, freq := range []float64{65.41, 261.63, 1975.5} {
		r := newTestResonator(t, freq)
		if r.Decay() <= 0 || r.Decay() >= 1 {
			t.Errorf("freq %.2f: decay = %v, want in (0, 1)", freq, r.Decay())
		}
	}
}

func TestResonator_HalfLife(t *testing.T) {
	r := newTestResonator(t, 440)

	// At phase 0 an impulse lands entirely in the cosine accumulator.
	r.Touch(1)
	halfLife := int(DefaultHalfLifePeriods) * r.Period()
	for i := 0; i < halfLife; i++ {
		r.Touch(0)
	}

	testutil.RequireNear(t, "xcos after one half-life", r.xcos, 0.5, 1e-9)
	testutil.RequireNear(t, "xsin after one half-life", r.xsin, 0, 1e-12)
}

func TestResonator_NormalizerModes(t *testing.T) {
	cal, err := NewResonator("c", 440, testSampleRate, 16, NormalizerCalibrated)
	if err != nil {
		t.Fatal(err)
	}
	per, err := NewResonator("p", 440, testSampleRate, 16, NormalizerPeriod)
	if err != nil {
		t.Fatal(err)
	}

	testutil.RequireNear(t, "calibrated", cal.Normalizer(), 1000*(1-cal.Decay()), 1e-15)
	testutil.RequireNear(t, "period", per.Normalizer(), 1.0/100, 1e-15)
}

func TestResonator_PhaseStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, freq := range []float64{65.41, 98.0, 440, 1975.5} {
		r := newTestResonator(t, freq)
		for i := 0; i < 5*r.Period()+13; i++ {
			r.Touch(rng.Float64()*65536 - 32768)
			if p := r.Phase(); p < 0 || p >= r.Period() {
				t.Fatalf("freq %.2f after %d touches: phase %d outside [0, %d)", freq, i+1, p, r.Period())
			}
		}
	}
}

func TestResonator_PhaseWrapsAfterOnePeriod(t *testing.T) {
	r := newTestResonator(t, 440)
	for i := 0; i < r.Period(); i++ {
		r.Touch(1)
	}
	if r.Phase() != 0 {
		t.Errorf("phase after one period = %d, want 0", r.Phase())
	}
}

// steadyStateEnergy drives r with a sine long enough for the transient to
// settle, discards that reading, then returns the reading of one more
// half-life.
func steadyStateEnergy(r *Resonator, freq float64) float64 {
	halfLife := int(DefaultHalfLifePeriods) * r.Period()
	signal := testutil.Sine(freq, testSampleRate, 1000, 21*halfLife)
	for _, s := range signal[:20*halfLife] {
		r.Touch(s)
	}
	r.ReadAndReset()
	for _, s := range signal[20*halfLife:] {
		r.Touch(s)
	}
	return r.ReadAndReset()
}

func TestResonator_Selectivity(t *testing.T) {
	semitone := math.Pow(2, 1.0/12)
	for _, freq := range []float64{110, 261.63, 440, 880} {
		tuned := newTestResonator(t, freq)
		above := newTestResonator(t, freq)
		below := newTestResonator(t, freq)

		onPitch := steadyStateEnergy(tuned, tuned.Frequency())
		sharp := steadyStateEnergy(above, tuned.Frequency()*semitone)
		flat := steadyStateEnergy(below, tuned.Frequency()/semitone)

		if onPitch <= 10*sharp || onPitch <= 10*flat {
			t.Errorf("freq %.2f: on-pitch %.3g not 10x above semitone neighbours (sharp %.3g, flat %.3g)",
				freq, onPitch, sharp, flat)
		}
	}
}

func TestResonator_SteadyStateMatchesCalibration(t *testing.T) {
	r := newTestResonator(t, 440)
	got := steadyStateEnergy(r, r.Frequency())

	// |x| settles at (A/2)/(1-decay), so the reading is gain*(A/2)^2/(1-decay).
	amp := 1000.0
	want := calibratedGain * (amp / 2) * (amp / 2) / (1 - r.Decay())
	if math.Abs(got-want)/want > 0.05 {
		t.Errorf("steady-state energy = %.4g, want %.4g within 5%%", got, want)
	}
}

func TestResonator_ReadAndResetIsIdempotent(t *testing.T) {
	r := newTestResonator(t, 261.63)
	for _, s := range testutil.Sine(261.63, testSampleRate, 8000, 4410) {
		r.Touch(s)
	}

	first := r.ReadAndReset()
	second := r.ReadAndReset()

	if first <= 0 {
		t.Errorf("first read = %v, want > 0", first)
	}
	if second != 0 {
		t.Errorf("second read = %v, want exactly 0", second)
	}
}

func TestResonator_Reset(t *testing.T) {
	r := newTestResonator(t, 440)
	for i := 0; i < 37; i++ {
		r.Touch(float64(i))
	}
	r.Reset()

	if r.Phase() != 0 || r.xsin != 0 || r.xcos != 0 || r.ReadAndReset() != 0 {
		t.Errorf("state after Reset: phase %d xsin %v xcos %v", r.Phase(), r.xsin, r.xcos)
	}
}

func TestParseNormalizerMode(t *testing.T) {
	tests := []struct {
		name string
		want NormalizerMode
		ok   bool
	}{
		{"calibrated", NormalizerCalibrated, true},
		{"", NormalizerCalibrated, true},
		{"period", NormalizerPeriod, true},
		{"fancy", NormalizerCalibrated, false},
	}
	for _, tt := range tests {
		got, ok := ParseNormalizerMode(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseNormalizerMode(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
		if ok && got.String() != tt.name && tt.name != "" {
			t.Errorf("%v.String() = %q, want %q", got, got.String(), tt.name)
		}
	}
}

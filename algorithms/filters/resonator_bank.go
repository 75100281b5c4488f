package filters

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptyNoteTable indicates the bank was given no note frequencies
	ErrEmptyNoteTable = errors.New("note table must not be empty")
	// ErrInvalidOctaves indicates the octave count must be positive
	ErrInvalidOctaves = errors.New("octave count must be positive")
	// ErrLabelCount indicates WithLabels did not name every note
	ErrLabelCount = errors.New("need one label per note")
)

type bankConfig struct {
	halfLife float64
	mode     NormalizerMode
	labels   []string
}

func defaultBankConfig() bankConfig {
	return bankConfig{
		halfLife: DefaultHalfLifePeriods,
		mode:     NormalizerCalibrated,
	}
}

// BankOption configures a ResonatorBank.
type BankOption func(*bankConfig)

// WithHalfLife sets the decay half-life of every resonator, in periods of its
// own note. Longer half-lives are more selective but slower to react.
func WithHalfLife(periods float64) BankOption {
	return func(cfg *bankConfig) {
		cfg.halfLife = periods
	}
}

// WithNormalizer selects the energy normalization of every resonator.
func WithNormalizer(mode NormalizerMode) BankOption {
	return func(cfg *bankConfig) {
		cfg.mode = mode
	}
}

// WithLabels names the notes of the table; resonator labels become
// "<octave><name>". There must be exactly one name per note.
func WithLabels(names []string) BankOption {
	return func(cfg *bankConfig) {
		cfg.labels = names
	}
}

// ResonatorBank is a note × octave grid of resonators updated in lock-step.
//
// Resonator i covers note i%notes in octave i/notes, so the energy vector can
// be reshaped into an [octave][note] grid without an index table.
type ResonatorBank struct {
	resonators []*Resonator
	notes      int
	octaves    int
	sampleRate float64
}

// NewResonatorBank builds one resonator per note and octave. Octave o of note
// n is tuned to noteFreqs[n]*2^o.
//
// Returns an error before anything is allocated for a bad table, octave count
// or sample rate, or when a note lands at or above Nyquist.
func NewResonatorBank(noteFreqs []float64, octaves int, sampleRate float64, opts ...BankOption) (*ResonatorBank, error) {
	if len(noteFreqs) == 0 {
		return nil, ErrEmptyNoteTable
	}
	if octaves <= 0 {
		return nil, ErrInvalidOctaves
	}
	if !(sampleRate > 0) {
		return nil, ErrInvalidSampleRate
	}

	cfg := defaultBankConfig()
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	if cfg.labels != nil && len(cfg.labels) != len(noteFreqs) {
		return nil, fmt.Errorf("%w: got %d for %d notes", ErrLabelCount, len(cfg.labels), len(noteFreqs))
	}

	notes := len(noteFreqs)
	bank := &ResonatorBank{
		resonators: make([]*Resonator, notes*octaves),
		notes:      notes,
		octaves:    octaves,
		sampleRate: sampleRate,
	}

	mult := 1.0
	for o := 0; o < octaves; o++ {
		for n, base := range noteFreqs {
			label := fmt.Sprintf("%d:%d", o, n)
			if cfg.labels != nil {
				label = fmt.Sprintf("%d%s", o, cfg.labels[n])
			}

			r, err := NewResonator(label, base*mult, sampleRate, cfg.halfLife, cfg.mode)
			if err != nil {
				return nil, fmt.Errorf("resonator %s (%.2f Hz): %w", label, base*mult, err)
			}
			bank.resonators[n+notes*o] = r
		}
		mult *= 2
	}

	return bank, nil
}

// Update feeds one sample to every resonator. It does not allocate.
func (b *ResonatorBank) Update(sample float64) {
	for _, r := range b.resonators {
		r.Touch(sample)
	}
}

// UpdateBuffer feeds each sample of samples in order.
func (b *ResonatorBank) UpdateBuffer(samples []float64) {
	for _, s := range samples {
		b.Update(s)
	}
}

// ReadFrameEnergies reads and resets every resonator, returning the energies
// in bank order.
func (b *ResonatorBank) ReadFrameEnergies() []float64 {
	return b.ReadFrameEnergiesInto(nil)
}

// ReadFrameEnergiesInto is ReadFrameEnergies reusing dst when it has enough
// capacity.
func (b *ResonatorBank) ReadFrameEnergiesInto(dst []float64) []float64 {
	if cap(dst) < len(b.resonators) {
		dst = make([]float64, len(b.resonators))
	}
	dst = dst[:len(b.resonators)]
	for i, r := range b.resonators {
		dst[i] = r.ReadAndReset()
	}
	return dst
}

// Reset clears every resonator.
func (b *ResonatorBank) Reset() {
	for _, r := range b.resonators {
		r.Reset()
	}
}

// Len returns the number of resonators.
func (b *ResonatorBank) Len() int { return len(b.resonators) }

// Notes returns the number of notes per octave.
func (b *ResonatorBank) Notes() int { return b.notes }

// Octaves returns the number of octaves.
func (b *ResonatorBank) Octaves() int { return b.octaves }

// SampleRate returns the sample rate the bank was tuned for.
func (b *ResonatorBank) SampleRate() float64 { return b.sampleRate }

// Resonator returns the resonator at bank index i (note + notes*octave).
func (b *ResonatorBank) Resonator(i int) *Resonator {
	return b.resonators[i]
}

// Index returns the bank index of note n in octave o, or -1 if out of range.
func (b *ResonatorBank) Index(note, octave int) int {
	if note < 0 || note >= b.notes || octave < 0 || octave >= b.octaves {
		return -1
	}
	return note + b.notes*octave
}

// MaxTunedFrequency returns the highest effective frequency in the bank.
func (b *ResonatorBank) MaxTunedFrequency() float64 {
	maxFreq := 0.0
	for _, r := range b.resonators {
		maxFreq = math.Max(maxFreq, r.Frequency())
	}
	return maxFreq
}

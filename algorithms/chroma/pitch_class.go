package chroma

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NumPitchClasses is the size of the chromatic octave.
const NumPitchClasses = 12

// PitchClass is a chromatic note independent of octave (0=C, 1=C#, ..., 11=B)
type PitchClass int

const (
	C PitchClass = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

var pitchClassNames = [NumPitchClasses]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// baseFrequencies is the equal-tempered octave starting at C2, in Hz.
// The resonator bank multiplies these by powers of two for higher octaves.
var baseFrequencies = [NumPitchClasses]float64{
	65.41, 69.30, 73.42, 77.78, 82.41, 87.31, 92.50, 98.00, 103.83, 110.00, 116.54, 123.47,
}

func (pc PitchClass) String() string {
	if !pc.Valid() {
		return "?"
	}
	return pitchClassNames[pc]
}

// Valid reports whether pc is in [0, 12).
func (pc PitchClass) Valid() bool {
	return pc >= 0 && pc < NumPitchClasses
}

// Transpose moves pc by the given number of semitones, wrapping around the octave.
func (pc PitchClass) Transpose(semitones int) PitchClass {
	v := (int(pc) + semitones) % NumPitchClasses
	if v < 0 {
		v += NumPitchClasses
	}
	return PitchClass(v)
}

// Names returns the 12 pitch-class names in chromatic order.
func Names() []string {
	out := make([]string, NumPitchClasses)
	copy(out, pitchClassNames[:])
	return out
}

// BaseFrequencies returns a copy of the lowest-octave note table.
func BaseFrequencies() []float64 {
	out := make([]float64, NumPitchClasses)
	copy(out, baseFrequencies[:])
	return out
}

// Frequency returns the frequency of pc in the given octave of the note
// table (octave 0 is the table itself).
func Frequency(pc PitchClass, octave int) float64 {
	if !pc.Valid() {
		return 0
	}
	return baseFrequencies[pc] * math.Pow(2, float64(octave))
}

// Profile is a pitch class distribution built from per-class counts
type Profile struct {
	Counts       [NumPitchClasses]int     // Raw counts
	Distribution [NumPitchClasses]float64 // Counts normalized to sum = 1
	Total        int                      // Sum of counts
	Dominant     PitchClass               // Most frequent class
	Entropy      float64                  // Normalized entropy, 0 (one class) to 1 (uniform)
}

// NewProfile normalizes counts into a distribution. An all-zero input yields
// a zero distribution with zero entropy.
func NewProfile(counts [NumPitchClasses]int) Profile {
	p := Profile{Counts: counts}

	dist := make([]float64, NumPitchClasses)
	for i, c := range counts {
		dist[i] = float64(c)
		p.Total += c
	}
	if p.Total <= 0 {
		return p
	}

	floats.Scale(1/floats.Sum(dist), dist)
	p.Dominant = PitchClass(floats.MaxIdx(dist))
	p.Entropy = stat.Entropy(dist) / math.Log(NumPitchClasses)
	copy(p.Distribution[:], dist)

	return p
}

package tonal

import (
	"strings"

	"github.com/RyanBlaney/sonido-scale/algorithms/chroma"
	"github.com/RyanBlaney/sonido-scale/algorithms/filters"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultEnergyRatio is the share of the frame's total energy (1/ratio)
	// a cell must exceed for its pitch class to count as present
	DefaultEnergyRatio = 10.0
	// DefaultMinimumEnergy is the absolute floor that rejects silence and hiss
	DefaultMinimumEnergy = 1e9
)

// NotePresence flags which pitch classes sounded during one frame.
type NotePresence [chroma.NumPitchClasses]bool

// Count returns how many pitch classes are present.
func (np NotePresence) Count() int {
	n := 0
	for _, present := range np {
		if present {
			n++
		}
	}
	return n
}

// Classes lists the present pitch classes in ascending order.
func (np NotePresence) Classes() []chroma.PitchClass {
	var out []chroma.PitchClass
	for i, present := range np {
		if present {
			out = append(out, chroma.PitchClass(i))
		}
	}
	return out
}

func (np NotePresence) String() string {
	names := make([]string, 0, chroma.NumPitchClasses)
	for _, pc := range np.Classes() {
		names = append(names, pc.String())
	}
	return strings.Join(names, " ")
}

// NoteDetector decides which pitch classes are present in a frame of
// resonator energies laid out note-major within each octave.
type NoteDetector struct {
	Ratio         float64
	MinimumEnergy float64
}

// NewNoteDetector creates a detector with the default thresholds.
func NewNoteDetector() *NoteDetector {
	return &NoteDetector{
		Ratio:         DefaultEnergyRatio,
		MinimumEnergy: DefaultMinimumEnergy,
	}
}

// Detect marks pitch class n present when any octave cell of note n holds
// more than total/Ratio of the frame energy and more than MinimumEnergy.
// The frame total is returned alongside. Notes beyond the twelfth are summed
// into the total but never flagged.
func (nd *NoteDetector) Detect(energies []float64, notes, octaves int) (NotePresence, float64) {
	var presence NotePresence
	cells := notes * octaves
	if notes <= 0 || octaves <= 0 || cells > len(energies) {
		return presence, 0
	}

	total := floats.Sum(energies[:cells])
	if total <= 0 {
		return presence, total
	}

	ratio := nd.Ratio
	if ratio <= 0 {
		ratio = DefaultEnergyRatio
	}
	threshold := total / ratio

	for octave := 0; octave < octaves; octave++ {
		row := energies[octave*notes : (octave+1)*notes]
		for note, e := range row {
			if note >= chroma.NumPitchClasses {
				break
			}
			if e > threshold && e > nd.MinimumEnergy {
				presence[note] = true
			}
		}
	}

	return presence, total
}

// EnergyGrid reshapes a flat energy vector into [octave][note] rows that
// share storage with the input.
func EnergyGrid(energies []float64, notes, octaves int) [][]float64 {
	if notes <= 0 || octaves <= 0 || notes*octaves > len(energies) {
		return nil
	}
	grid := make([][]float64, octaves)
	for octave := range grid {
		grid[octave] = energies[octave*notes : (octave+1)*notes : (octave+1)*notes]
	}
	return grid
}

// FrameResult is the outcome of one analysis frame. Energies is a fresh slice
// owned by the receiver.
type FrameResult struct {
	Energies    []float64
	Presence    NotePresence
	TotalEnergy float64
}

// PitchDetector consumes mono samples and summarises them frame by frame.
type PitchDetector interface {
	// Push feeds one sample.
	Push(sample float64)
	// Frame closes the current frame and returns its result.
	Frame() FrameResult
	// Reset clears all internal state.
	Reset()
}

// ResonatorPitchDetector is a PitchDetector backed by a resonator bank.
type ResonatorPitchDetector struct {
	bank     *filters.ResonatorBank
	detector *NoteDetector
}

// NewResonatorPitchDetector wraps bank. A nil detector uses the defaults.
func NewResonatorPitchDetector(bank *filters.ResonatorBank, detector *NoteDetector) *ResonatorPitchDetector {
	if detector == nil {
		detector = NewNoteDetector()
	}
	return &ResonatorPitchDetector{
		bank:     bank,
		detector: detector,
	}
}

func (rpd *ResonatorPitchDetector) Push(sample float64) {
	rpd.bank.Update(sample)
}

func (rpd *ResonatorPitchDetector) Frame() FrameResult {
	energies := rpd.bank.ReadFrameEnergies()
	presence, total := rpd.detector.Detect(energies, rpd.bank.Notes(), rpd.bank.Octaves())
	return FrameResult{
		Energies:    energies,
		Presence:    presence,
		TotalEnergy: total,
	}
}

func (rpd *ResonatorPitchDetector) Reset() {
	rpd.bank.Reset()
}

// Bank exposes the underlying resonator bank.
func (rpd *ResonatorPitchDetector) Bank() *filters.ResonatorBank {
	return rpd.bank
}

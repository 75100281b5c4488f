package tonal

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-scale/algorithms/chroma"
)

// ErrInvalidProgression indicates an interval progression that does not walk
// exactly one octave in positive steps
var ErrInvalidProgression = errors.New("interval progression must be positive steps summing to 12")

// majorProgression is the whole/half step pattern of the major scale.
var majorProgression = []int{2, 2, 1, 2, 2, 2, 1}

// MajorProgression returns the major scale's semitone steps.
func MajorProgression() []int {
	return append([]int(nil), majorProgression...)
}

// Scale is a named set of legal pitch classes rooted at one of them.
type Scale struct {
	Name  string
	Root  chroma.PitchClass
	Legal [chroma.NumPitchClasses]bool
}

// Contains reports whether pc belongs to the scale.
func (s Scale) Contains(pc chroma.PitchClass) bool {
	return pc.Valid() && s.Legal[pc]
}

// Size returns the number of legal pitch classes.
func (s Scale) Size() int {
	n := 0
	for _, legal := range s.Legal {
		if legal {
			n++
		}
	}
	return n
}

// Notes lists the legal pitch classes starting at the root.
func (s Scale) Notes() []chroma.PitchClass {
	out := make([]chroma.PitchClass, 0, chroma.NumPitchClasses)
	for i := 0; i < chroma.NumPitchClasses; i++ {
		pc := s.Root.Transpose(i)
		if s.Legal[pc] {
			out = append(out, pc)
		}
	}
	return out
}

func (s Scale) String() string {
	return s.Name
}

// BuildScales rotates progression onto each of the twelve roots, C first.
// Each scale is named "<baseName> <root>".
func BuildScales(progression []int, baseName string) ([]Scale, error) {
	if len(progression) == 0 {
		return nil, fmt.Errorf("%w: empty progression", ErrInvalidProgression)
	}
	sum := 0
	for i, step := range progression {
		if step <= 0 {
			return nil, fmt.Errorf("%w: step %d is %d", ErrInvalidProgression, i, step)
		}
		sum += step
	}
	if sum != chroma.NumPitchClasses {
		return nil, fmt.Errorf("%w: steps sum to %d", ErrInvalidProgression, sum)
	}

	scales := make([]Scale, chroma.NumPitchClasses)
	for root := range scales {
		s := Scale{
			Name: fmt.Sprintf("%s %s", baseName, chroma.PitchClass(root)),
			Root: chroma.PitchClass(root),
		}
		index := root
		for _, step := range progression {
			s.Legal[index] = true
			index = (index + step) % chroma.NumPitchClasses
		}
		scales[root] = s
	}
	return scales, nil
}

// ScaleModel is an immutable list of candidate scales. It is safe to share
// between trackers.
type ScaleModel struct {
	scales []Scale
	byName map[string]int
}

// NewScaleModel builds the twelve rotations of progression.
func NewScaleModel(progression []int, baseName string) (*ScaleModel, error) {
	scales, err := BuildScales(progression, baseName)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int, len(scales))
	for i, s := range scales {
		byName[s.Name] = i
	}
	return &ScaleModel{scales: scales, byName: byName}, nil
}

// NewMajorScaleModel returns the twelve major scales.
func NewMajorScaleModel() *ScaleModel {
	model, err := NewScaleModel(majorProgression, "major")
	if err != nil {
		panic(err)
	}
	return model
}

// Scales returns a copy of the candidate list.
func (m *ScaleModel) Scales() []Scale {
	return append([]Scale(nil), m.scales...)
}

func (m *ScaleModel) Len() int {
	return len(m.scales)
}

// Lookup finds a scale by its full name, e.g. "major D".
func (m *ScaleModel) Lookup(name string) (Scale, bool) {
	i, ok := m.byName[name]
	if !ok {
		return Scale{}, false
	}
	return m.scales[i], true
}

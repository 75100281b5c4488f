package tonal

import "github.com/RyanBlaney/sonido-scale/algorithms/chroma"

// NoteAccumulator counts, per pitch class, the frames in which it was present.
type NoteAccumulator struct {
	counts [chroma.NumPitchClasses]int
	frames int
}

func NewNoteAccumulator() *NoteAccumulator {
	return &NoteAccumulator{}
}

// AddFrame increments every present pitch class by one.
func (na *NoteAccumulator) AddFrame(presence NotePresence) {
	for i, present := range presence {
		if present {
			na.counts[i]++
		}
	}
	na.frames++
}

// Counts returns a copy of the current histogram.
func (na *NoteAccumulator) Counts() [chroma.NumPitchClasses]int {
	return na.counts
}

// Frames returns how many frames were added since the last drain.
func (na *NoteAccumulator) Frames() int {
	return na.frames
}

// Drain returns the histogram and zeroes it.
func (na *NoteAccumulator) Drain() [chroma.NumPitchClasses]int {
	counts := na.counts
	na.Reset()
	return counts
}

func (na *NoteAccumulator) Reset() {
	na.counts = [chroma.NumPitchClasses]int{}
	na.frames = 0
}

package filters

import (
	"math"
)

// DCRemoval is a one-pole DC blocking filter.
//
// Capture devices often add a constant offset to 16-bit PCM. The resonators
// are insensitive to DC over whole periods, but a large offset still leaks
// into their peaks during the decay transient, so the tracker can run the
// channel through this filter before the bank.
//
// References:
//   - Julius O. Smith III, "Introduction to Digital Filters with Audio Applications"
//     https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html
type DCRemoval struct {
	poleLocation float64 // R parameter (0 < R < 1)

	x1 float64 // Previous input sample x[n-1]
	y1 float64 // Previous output sample y[n-1]
}

// NewDCRemoval creates a DC blocker with pole 0.995 (about 35 Hz at 44.1 kHz).
func NewDCRemoval() *DCRemoval {
	return &DCRemoval{poleLocation: 0.995}
}

// NewDCRemovalWithCutoff creates a DC blocker with the given -3dB cutoff.
//
// The pole location R is calculated as R = 1 - 2*pi*fc/fs, valid for
// fc << fs/2, and clamped into (0, 1).
func NewDCRemovalWithCutoff(sampleRate, cutoffFreq float64) *DCRemoval {
	if sampleRate <= 0 || cutoffFreq <= 0 {
		return NewDCRemoval()
	}

	r := 1.0 - (2.0 * math.Pi * cutoffFreq / sampleRate)
	if r >= 1.0 {
		r = 0.999
	} else if r <= 0.0 {
		r = 0.001
	}

	return &DCRemoval{poleLocation: r}
}

// Process applies y[n] = x[n] - x[n-1] + R * y[n-1] to one sample.
func (dc *DCRemoval) Process(input float64) float64 {
	output := input - dc.x1 + dc.poleLocation*dc.y1

	dc.x1 = input
	dc.y1 = output

	return output
}

// Reset clears the filter's internal state.
func (dc *DCRemoval) Reset() {
	dc.x1 = 0.0
	dc.y1 = 0.0
}

// PoleLocation returns R.
func (dc *DCRemoval) PoleLocation() float64 {
	return dc.poleLocation
}

// CutoffFrequency returns the approximate -3dB cutoff, (1-R)*fs/(2*pi).
func (dc *DCRemoval) CutoffFrequency(sampleRate float64) float64 {
	if sampleRate <= 0 {
		return 0.0
	}
	return (1.0 - dc.poleLocation) * sampleRate / (2.0 * math.Pi)
}

// Magnitude returns the linear gain at frequency, |(1 - e^-jw) / (1 - R*e^-jw)|.
func (dc *DCRemoval) Magnitude(frequency, sampleRate float64) float64 {
	w := 2.0 * math.Pi * frequency / sampleRate

	cosW := math.Cos(w)
	sinW := math.Sin(w)

	numReal := 1.0 - cosW
	numImag := sinW
	denReal := 1.0 - dc.poleLocation*cosW
	denImag := dc.poleLocation * sinW

	return math.Sqrt((numReal*numReal + numImag*numImag) / (denReal*denReal + denImag*denImag))
}

// Package testutil holds deterministic signal generators and tolerance
// helpers shared by package tests.
package testutil

import (
	"math"
	"testing"
)

// Sine generates amplitude*sin(2*pi*freq*t) sampled at sampleRate.
func Sine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// Chord sums equal-amplitude sines at each frequency.
func Chord(freqs []float64, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	for _, f := range freqs {
		for i, v := range Sine(f, sampleRate, amplitude, length) {
			out[i] += v
		}
	}
	return out
}

// PCM16 rounds and clamps a float signal into signed 16-bit samples.
func PCM16(signal []float64) []int16 {
	out := make([]int16, len(signal))
	for i, v := range signal {
		v = math.Round(v)
		switch {
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		out[i] = int16(v)
	}
	return out
}

// Interleave builds frames of channels samples where channel ch carries
// signal and every other channel carries filler.
func Interleave(signal []int16, channels, ch int, filler int16) []int16 {
	out := make([]int16, len(signal)*channels)
	for i, v := range signal {
		for c := 0; c < channels; c++ {
			if c == ch {
				out[i*channels+c] = v
			} else {
				out[i*channels+c] = filler
			}
		}
	}
	return out
}

// RequireNear fails t when got and want differ by more than eps.
func RequireNear(t *testing.T, name string, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("%s: got %v, want %v (eps %v)", name, got, want, eps)
	}
}

package testutil

import (
	"math"
	"testing"
)

func TestSine_PeakAndZeroCrossing(t *testing.T) {
	s := Sine(100, 400, 2, 8)
	RequireNear(t, "s[0]", s[0], 0, 1e-12)
	RequireNear(t, "s[1]", s[1], 2, 1e-12)
	RequireNear(t, "s[3]", s[3], -2, 1e-12)
}

func TestPCM16_Clamps(t *testing.T) {
	got := PCM16([]float64{1e6, -1e6, 1.6, -1.4})
	want := []int16{math.MaxInt16, math.MinInt16, 2, -1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestInterleave(t *testing.T) {
	got := Interleave([]int16{1, 2, 3}, 2, 1, -9)
	want := []int16{-9, 1, -9, 2, -9, 3}
	if len(got) != len(want) {
		t.Fatalf("length: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

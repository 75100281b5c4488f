package filters

import (
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-scale/internal/testutil"
)

func TestDCRemoval_RemovesOffset(t *testing.T) {
	dc := NewDCRemovalWithCutoff(testSampleRate, 10)
	var last float64
	for i := 0; i < 44100; i++ {
		last = dc.Process(1000)
	}
	if math.Abs(last) > 1e-3 {
		t.Errorf("output after 1 s of constant input = %v, want ~0", last)
	}
}

func TestDCRemoval_PassesNotes(t *testing.T) {
	dc := NewDCRemovalWithCutoff(testSampleRate, 10)
	if g := dc.Magnitude(65.41, testSampleRate); g < 0.95 {
		t.Errorf("gain at lowest bank note = %.3f, want >= 0.95", g)
	}
	if g := dc.Magnitude(0.01, testSampleRate); g > 0.01 {
		t.Errorf("gain near DC = %.4f, want < 0.01", g)
	}
}

func TestDCRemoval_CutoffRoundTrip(t *testing.T) {
	dc := NewDCRemovalWithCutoff(testSampleRate, 20)
	testutil.RequireNear(t, "cutoff", dc.CutoffFrequency(testSampleRate), 20, 1e-9)

	if got := NewDCRemovalWithCutoff(0, 20).PoleLocation(); got != 0.995 {
		t.Errorf("pole with invalid sample rate = %v, want default 0.995", got)
	}
}

func TestDCRemoval_Reset(t *testing.T) {
	dc := NewDCRemoval()
	dc.Process(5)
	dc.Reset()
	if out := dc.Process(0); out != 0 {
		t.Errorf("first output after Reset = %v, want 0", out)
	}
}

package tonal

import (
	"errors"
	"testing"

	"github.com/RyanBlaney/sonido-scale/algorithms/chroma"
)

func TestBuildScales_Major(t *testing.T) {
	scales, err := BuildScales(MajorProgression(), "major")
	if err != nil {
		t.Fatalf("BuildScales: %v", err)
	}
	if len(scales) != 12 {
		t.Fatalf("len(scales) = %d, want 12", len(scales))
	}

	for i, s := range scales {
		if s.Root != chroma.PitchClass(i) {
			t.Errorf("scales[%d].Root = %v, want %v", i, s.Root, chroma.PitchClass(i))
		}
		if s.Size() != 7 {
			t.Errorf("%s has %d notes, want 7", s.Name, s.Size())
		}
		if !s.Contains(s.Root) {
			t.Errorf("%s does not contain its root", s.Name)
		}
	}

	cMajor := scales[chroma.C]
	if cMajor.Name != "major C" {
		t.Errorf("Name = %q, want %q", cMajor.Name, "major C")
	}
	want := []chroma.PitchClass{chroma.C, chroma.D, chroma.E, chroma.F, chroma.G, chroma.A, chroma.B}
	got := cMajor.Notes()
	if len(got) != len(want) {
		t.Fatalf("major C notes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("major C notes = %v, want %v", got, want)
		}
	}

	// F# major is the first scale to use E# instead of F.
	fSharp := scales[chroma.FSharp]
	if !fSharp.Contains(chroma.F) || fSharp.Contains(chroma.G) {
		t.Errorf("major F# legal set = %v", fSharp.Notes())
	}
}

func TestBuildScales_OtherProgressions(t *testing.T) {
	whole, err := BuildScales([]int{2, 2, 2, 2, 2, 2}, "whole")
	if err != nil {
		t.Fatalf("BuildScales: %v", err)
	}
	if whole[chroma.C].Size() != 6 || whole[chroma.C].Contains(chroma.CSharp) {
		t.Errorf("whole tone C = %v", whole[chroma.C].Notes())
	}
	if whole[chroma.D].Name != "whole D" {
		t.Errorf("Name = %q, want %q", whole[chroma.D].Name, "whole D")
	}
}

func TestBuildScales_InvalidProgression(t *testing.T) {
	tests := []struct {
		name        string
		progression []int
	}{
		{"empty", nil},
		{"short of an octave", []int{2, 2, 1, 2, 2, 2}},
		{"past an octave", []int{2, 2, 1, 2, 2, 2, 2}},
		{"zero step", []int{0, 2, 2, 1, 2, 2, 2, 1}},
		{"negative step", []int{-1, 3, 2, 1, 2, 2, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildScales(tt.progression, "x"); !errors.Is(err, ErrInvalidProgression) {
				t.Errorf("err = %v, want ErrInvalidProgression", err)
			}
		})
	}
}

func TestMajorProgression_ReturnsCopy(t *testing.T) {
	p := MajorProgression()
	p[0] = 5
	if MajorProgression()[0] != 2 {
		t.Fatal("MajorProgression exposed the package slice")
	}
}

func TestScaleModel(t *testing.T) {
	model := NewMajorScaleModel()
	if model.Len() != 12 {
		t.Fatalf("Len() = %d, want 12", model.Len())
	}

	d, ok := model.Lookup("major D")
	if !ok || d.Root != chroma.D {
		t.Errorf("Lookup(major D) = %v, %v", d, ok)
	}
	if _, ok := model.Lookup("minor A"); ok {
		t.Error("Lookup found a scale that does not exist")
	}

	scales := model.Scales()
	scales[0].Name = "changed"
	if model.Scales()[0].Name != "major C" {
		t.Error("Scales exposed the model's slice")
	}
}

func TestNoteAccumulator(t *testing.T) {
	acc := NewNoteAccumulator()
	var cg NotePresence
	cg[chroma.C] = true
	cg[chroma.G] = true
	var c NotePresence
	c[chroma.C] = true

	acc.AddFrame(cg)
	acc.AddFrame(c)
	acc.AddFrame(NotePresence{})

	if acc.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", acc.Frames())
	}
	counts := acc.Counts()
	if counts[chroma.C] != 2 || counts[chroma.G] != 1 || counts[chroma.D] != 0 {
		t.Errorf("Counts() = %v", counts)
	}

	drained := acc.Drain()
	if drained != counts {
		t.Errorf("Drain() = %v, want %v", drained, counts)
	}
	if acc.Counts() != ([chroma.NumPitchClasses]int{}) || acc.Frames() != 0 {
		t.Error("Drain did not zero the accumulator")
	}
}

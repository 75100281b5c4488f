// Package display renders tracker reports for a terminal.
package display

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/RyanBlaney/sonido-scale/algorithms/chroma"
	"github.com/RyanBlaney/sonido-scale/logging"
	"github.com/RyanBlaney/sonido-scale/tracker"
	"gonum.org/v1/gonum/floats"
)

const clearScreen = "\033c"

// Shares of the frame's total energy above which a cell changes colour.
const (
	shareVisible  = 1.0 / 100
	shareStrong   = 1.0 / 10
	shareDominant = 1.0 / 2
)

// Screen redraws the whole energy grid on every frame.
type Screen struct {
	w      io.Writer
	colors bool
	sb     strings.Builder
}

// NewScreen draws to w, with ANSI colours when colors is set.
func NewScreen(w io.Writer, colors bool) *Screen {
	return &Screen{w: w, colors: colors}
}

func (s *Screen) OnFrame(f tracker.FrameReport) {
	s.sb.Reset()
	s.render(f)
	io.WriteString(s.w, s.sb.String())
}

// OnWindow is a no-op; frames carry the latest verdict.
func (s *Screen) OnWindow(tracker.WindowReport) {}

func (s *Screen) color(code string) {
	if s.colors {
		s.sb.WriteString(code)
	}
}

func (s *Screen) render(f tracker.FrameReport) {
	s.sb.WriteString(clearScreen)
	s.sb.WriteByte('\n')
	for _, name := range chroma.Names()[:min(f.Notes, chroma.NumPitchClasses)] {
		s.sb.WriteString("\t" + name)
	}
	s.sb.WriteByte('\n')

	loudest := -1
	if len(f.Energies) > 0 {
		loudest = floats.MaxIdx(f.Energies)
	}

	for octave := 0; octave < f.Octaves; octave++ {
		s.color(logging.ColorWhite)
		fmt.Fprintf(&s.sb, "%d:\t", octave)
		for note := 0; note < f.Notes; note++ {
			i := octave*f.Notes + note
			if i >= len(f.Energies) {
				break
			}
			e := f.Energies[i]
			s.color(cellColor(e, f.TotalEnergy))
			if i == loudest && e > 0 {
				s.color(logging.ColorBold)
			}
			s.sb.WriteString(formatLog(e))
			if i == loudest && e > 0 {
				s.color(logging.ColorReset)
			}
			s.sb.WriteByte('\t')
		}
		s.sb.WriteByte('\n')
	}

	s.color(logging.ColorWhite)
	fmt.Fprintf(&s.sb, "FILTER ENERGY: %f\t %s\n", f.TotalEnergy, formatLog(f.TotalEnergy))
	for _, c := range f.Counts {
		fmt.Fprintf(&s.sb, "\t%d", c)
	}
	s.sb.WriteByte('\n')
	if f.Scale != "" {
		fmt.Fprintf(&s.sb, "SCALE: %s\t", f.Scale)
	}
	s.sb.WriteString(presenceRow(f))
	s.sb.WriteByte('\n')
	s.color(logging.ColorReset)
}

// cellColor grades a cell by its share of the frame energy.
func cellColor(e, total float64) string {
	switch {
	case e > total*shareDominant:
		return logging.ColorRed
	case e > total*shareStrong:
		return logging.ColorYellow
	case e > total*shareVisible:
		return logging.ColorGreen
	default:
		return logging.ColorWhite
	}
}

func formatLog(e float64) string {
	if e <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", math.Log10(e))
}

// presenceRow prints each present note name in a fixed-width column.
func presenceRow(f tracker.FrameReport) string {
	var sb strings.Builder
	for pc, present := range f.Presence {
		if present {
			fmt.Fprintf(&sb, "%-3s", chroma.PitchClass(pc))
		} else {
			sb.WriteString("   ")
		}
	}
	return strings.TrimRight(sb.String(), " ")
}

// ScaleLog prints one "SCALE:" line per window, for runs without a screen.
type ScaleLog struct {
	w       io.Writer
	verbose bool
}

// NewScaleLog writes to w. Verbose lines add the score, clarity and the
// runner-up candidates.
func NewScaleLog(w io.Writer, verbose bool) *ScaleLog {
	return &ScaleLog{w: w, verbose: verbose}
}

func (l *ScaleLog) OnFrame(tracker.FrameReport) {}

func (l *ScaleLog) OnWindow(r tracker.WindowReport) {
	if !r.Found {
		return
	}
	if !l.verbose {
		fmt.Fprintf(l.w, "SCALE: %s\n", r.Scale.Name)
		return
	}

	var alts []string
	for _, c := range r.Candidates {
		if c.Scale.Name != r.Scale.Name {
			alts = append(alts, fmt.Sprintf("%s=%d", c.Scale.Name, c.Score))
		}
	}
	fmt.Fprintf(l.w, "SCALE: %s (score %d, clarity %.2f, frames %d", r.Scale.Name, r.Score, r.Clarity, r.Frames)
	if len(alts) > 0 {
		fmt.Fprintf(l.w, ", next %s", strings.Join(alts, " "))
	}
	if r.Final {
		io.WriteString(l.w, ", final")
	}
	io.WriteString(l.w, ")\n")
}

// Package tracker runs the streaming scale estimation pipeline: one channel of
// interleaved PCM drives a resonator bank, each frame's note presence feeds a
// histogram, and every window of frames is scored against the major scales.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/RyanBlaney/sonido-scale/algorithms/chroma"
	"github.com/RyanBlaney/sonido-scale/algorithms/filters"
	"github.com/RyanBlaney/sonido-scale/algorithms/tonal"
	"github.com/RyanBlaney/sonido-scale/logging"
	"github.com/RyanBlaney/sonido-scale/tracker/config"
	"github.com/RyanBlaney/sonido-scale/transcode"
)

// ErrFrameLimit is returned by ProcessInterleaved once MaxFrames frames have
// been analysed
var ErrFrameLimit = errors.New("frame limit reached")

// FrameReport describes one analysis frame. Handlers receive their own copy;
// Snapshot readers get a separate one, so mutating Energies in a handler is
// safe.
type FrameReport struct {
	Index       int                         `json:"index"`
	Energies    []float64                   `json:"energies"` // note-major within each octave
	Notes       int                         `json:"notes"`
	Octaves     int                         `json:"octaves"`
	Presence    tonal.NotePresence          `json:"presence"`
	TotalEnergy float64                     `json:"total_energy"`
	Counts      [chroma.NumPitchClasses]int `json:"counts"` // window histogram including this frame
	Scale       string                      `json:"scale"`  // latest window verdict, empty before the first
}

// WindowReport is the scale verdict for one window of frames.
type WindowReport struct {
	Index      int                         `json:"index"`
	Frames     int                         `json:"frames"`
	Counts     [chroma.NumPitchClasses]int `json:"counts"`
	Scale      tonal.Scale                 `json:"scale"`
	Found      bool                        `json:"found"`
	Score      int                         `json:"score"`
	Clarity    float64                     `json:"clarity"`
	Candidates []tonal.ScaleCandidate      `json:"candidates"`
	Profile    chroma.Profile              `json:"profile"`
	Final      bool                        `json:"final"` // emitted at end of stream over a partial window
}

// Handler receives reports on the tracker's goroutine.
type Handler interface {
	OnFrame(FrameReport)
	OnWindow(WindowReport)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Frame  func(FrameReport)
	Window func(WindowReport)
}

func (h HandlerFuncs) OnFrame(r FrameReport) {
	if h.Frame != nil {
		h.Frame(r)
	}
}

func (h HandlerFuncs) OnWindow(r WindowReport) {
	if h.Window != nil {
		h.Window(r)
	}
}

// MultiHandler fans reports out to every handler in order.
func MultiHandler(handlers ...Handler) Handler {
	return multiHandler(handlers)
}

type multiHandler []Handler

func (m multiHandler) OnFrame(r FrameReport) {
	for _, h := range m {
		h.OnFrame(r)
	}
}

func (m multiHandler) OnWindow(r WindowReport) {
	for _, h := range m {
		h.OnWindow(r)
	}
}

// Tracker owns the whole pipeline for one stream. It is not safe for
// concurrent use except for Snapshot.
type Tracker struct {
	config   *config.TrackerConfig
	bank     *filters.ResonatorBank
	detector tonal.PitchDetector
	acc      *tonal.NoteAccumulator
	scales   *tonal.ScaleModel
	scorer   *tonal.ScaleScorer
	dc       *filters.DCRemoval
	handler  Handler
	logger   logging.Logger

	frameSamples int
	pending      int // samples of the current frame pushed so far
	slot         int // position inside the current interleaved sample frame
	frames       int
	windows      int
	lastScale    string

	snapshot atomic.Pointer[FrameReport]
}

// New builds a tracker from cfg. A nil handler discards reports.
func New(cfg *config.TrackerConfig, handler Handler) (*Tracker, error) {
	if cfg == nil {
		cfg = config.DefaultTrackerConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		handler = HandlerFuncs{}
	}

	bank, err := filters.NewResonatorBank(chroma.BaseFrequencies(), cfg.Octaves, float64(cfg.SampleRate),
		filters.WithHalfLife(cfg.HalfLifePeriods),
		filters.WithNormalizer(cfg.NormalizerMode()),
		filters.WithLabels(chroma.Names()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build resonator bank: %w", err)
	}

	t := &Tracker{
		config: cfg,
		bank:   bank,
		detector: tonal.NewResonatorPitchDetector(bank, &tonal.NoteDetector{
			Ratio:         cfg.EnergyRatio,
			MinimumEnergy: cfg.MinimumEnergy,
		}),
		acc:          tonal.NewNoteAccumulator(),
		scales:       tonal.NewMajorScaleModel(),
		scorer:       tonal.NewScaleScorer(cfg.PenaltyWeight),
		handler:      handler,
		frameSamples: cfg.FrameSamples(),
		logger: logging.WithFields(logging.Fields{
			"component": "scale_tracker",
		}),
	}
	if cfg.RemoveDC {
		t.dc = filters.NewDCRemovalWithCutoff(float64(cfg.SampleRate), cfg.DCCutoffHz)
	}

	t.logger.Debug("Tracker configured", logging.Fields(cfg.GetConfig()))
	return t, nil
}

// ProcessInterleaved feeds interleaved samples of Channels channels and
// analyses the configured channel. Input may stop anywhere, including in the
// middle of a sample frame. Returns ErrFrameLimit once MaxFrames is reached;
// the remaining samples are ignored.
func (t *Tracker) ProcessInterleaved(samples []int16) error {
	channels, channel := t.config.Channels, t.config.Channel
	for _, s := range samples {
		slot := t.slot
		t.slot++
		if t.slot == channels {
			t.slot = 0
		}
		if slot != channel {
			continue
		}

		if t.limitReached() {
			return ErrFrameLimit
		}

		x := float64(s)
		if t.dc != nil {
			x = t.dc.Process(x)
		}
		t.detector.Push(x)
		t.pending++
		if t.pending == t.frameSamples {
			t.endFrame()
		}
	}
	if t.limitReached() {
		return ErrFrameLimit
	}
	return nil
}

func (t *Tracker) limitReached() bool {
	return t.config.MaxFrames > 0 && t.frames >= t.config.MaxFrames
}

func (t *Tracker) endFrame() {
	t.pending = 0
	result := t.detector.Frame()
	t.acc.AddFrame(result.Presence)

	report := FrameReport{
		Index:       t.frames,
		Energies:    result.Energies,
		Notes:       t.bank.Notes(),
		Octaves:     t.bank.Octaves(),
		Presence:    result.Presence,
		TotalEnergy: result.TotalEnergy,
		Counts:      t.acc.Counts(),
		Scale:       t.lastScale,
	}
	t.frames++

	snap := report
	snap.Energies = append([]float64(nil), report.Energies...)
	t.snapshot.Store(&snap)
	t.handler.OnFrame(report)

	if t.acc.Frames() >= t.config.ScaleWindowFrames {
		t.emitWindow(false)
	}
}

func (t *Tracker) emitWindow(final bool) WindowReport {
	frames := t.acc.Frames()
	counts := t.acc.Drain()
	est := t.scorer.Estimate(counts, t.scales.Scales(), t.config.MaxCandidates)

	report := WindowReport{
		Index:      t.windows,
		Frames:     frames,
		Counts:     counts,
		Scale:      est.Best,
		Found:      est.Found,
		Score:      est.Score,
		Clarity:    est.Clarity,
		Candidates: est.Candidates,
		Profile:    est.Profile,
		Final:      final,
	}
	t.windows++
	if est.Found {
		t.lastScale = est.Best.Name
	}

	t.logger.Debug("Scale window scored", logging.Fields{
		"window":  report.Index,
		"frames":  frames,
		"scale":   est.Best.Name,
		"score":   est.Score,
		"clarity": est.Clarity,
		"final":   final,
	})
	t.handler.OnWindow(report)
	return report
}

// Finish scores whatever the current window holds and resets it.
func (t *Tracker) Finish() WindowReport {
	return t.emitWindow(true)
}

func (t *Tracker) finishPartial() {
	if t.acc.Frames() > 0 {
		t.Finish()
	}
}

// Run reads src until it ends, the frame limit is hit or ctx is cancelled.
// Any frames left in the current window are scored in every case. End of
// stream and the frame limit return nil, cancellation returns ctx.Err().
//
// ctx is only checked between reads. A source blocked inside FillBuffer, such
// as a stalled stdin producer, delays cancellation until the read returns;
// ffmpeg streams are started with the context and end with it.
func (t *Tracker) Run(ctx context.Context, src transcode.Source) error {
	logger := t.logger.WithContext(ctx)
	buf := make([]int16, t.frameSamples*t.config.Channels)

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Cancelled", logging.Fields{"frames": t.frames})
			t.finishPartial()
			return ctx.Err()
		default:
		}

		n, readErr := src.FillBuffer(buf)
		if err := t.ProcessInterleaved(buf[:n]); errors.Is(err, ErrFrameLimit) {
			logger.Debug("Frame limit reached", logging.Fields{"frames": t.frames})
			t.finishPartial()
			return nil
		}

		switch {
		case readErr == nil:
		case errors.Is(readErr, io.EOF):
			logger.Debug("End of stream", logging.Fields{
				"frames":          t.frames,
				"dropped_samples": t.pending,
			})
			t.finishPartial()
			return nil
		default:
			logger.Error(readErr, "Failed to read audio")
			return fmt.Errorf("failed to read audio: %w", readErr)
		}
	}
}

// Snapshot returns the most recent frame report, or false before the first
// frame. It may be called from any goroutine.
func (t *Tracker) Snapshot() (FrameReport, bool) {
	r := t.snapshot.Load()
	if r == nil {
		return FrameReport{}, false
	}
	return *r, true
}

// Reset clears the filters, histogram and counters.
func (t *Tracker) Reset() {
	t.detector.Reset()
	t.acc.Reset()
	if t.dc != nil {
		t.dc.Reset()
	}
	t.pending, t.slot, t.frames, t.windows = 0, 0, 0, 0
	t.lastScale = ""
	t.snapshot.Store(nil)
}

// Frames is the number of completed frames.
func (t *Tracker) Frames() int { return t.frames }

// Bank exposes the resonator bank for labelling and layout.
func (t *Tracker) Bank() *filters.ResonatorBank { return t.bank }

// Config returns the tracker configuration.
func (t *Tracker) Config() *config.TrackerConfig { return t.config }

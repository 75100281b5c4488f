package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/RyanBlaney/sonido-scale/algorithms/filters"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid tracker configuration")

// TrackerConfig holds every tunable of the scale tracker.
type TrackerConfig struct {
	// Input stream
	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
	Channel    int `json:"channel"` // analysed channel, 0 = left

	// Analysis
	FramesPerSecond int     `json:"frames_per_second"`
	Octaves         int     `json:"octaves"`
	HalfLifePeriods float64 `json:"half_life_periods"`
	Normalizer      string  `json:"normalizer"` // "calibrated", "period"
	MinimumEnergy   float64 `json:"minimum_energy"`
	EnergyRatio     float64 `json:"energy_ratio"`
	RemoveDC        bool    `json:"remove_dc"`
	DCCutoffHz      float64 `json:"dc_cutoff_hz"`

	// Scale estimation
	ScaleWindowFrames int `json:"scale_window_frames"`
	PenaltyWeight     int `json:"penalty_weight"`
	MaxCandidates     int `json:"max_candidates"` // candidates kept in window reports

	MaxFrames int `json:"max_frames"` // 0 = until end of stream
}

// DefaultTrackerConfig returns the configuration of a stereo CD-rate stream
// analysed ten times a second over five octaves from C2.
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		SampleRate:        44100,
		Channels:          2,
		Channel:           0,
		FramesPerSecond:   10,
		Octaves:           5,
		HalfLifePeriods:   filters.DefaultHalfLifePeriods,
		Normalizer:        filters.NormalizerCalibrated.String(),
		MinimumEnergy:     1e9,
		EnergyRatio:       10,
		RemoveDC:          false,
		DCCutoffHz:        10,
		ScaleWindowFrames: 1000,
		PenaltyWeight:     1,
		MaxCandidates:     3,
		MaxFrames:         0,
	}
}

// LoadFile reads a JSON file over the defaults and validates the result.
// Keys missing from the file keep their default values.
func LoadFile(path string) (*TrackerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := DefaultTrackerConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration before any sample is processed.
func (c *TrackerConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate must be positive: %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.Channels <= 0 || c.Channels > 8 {
		return fmt.Errorf("%w: channels must be between 1 and 8: %d", ErrInvalidConfig, c.Channels)
	}
	if c.Channel < 0 || c.Channel >= c.Channels {
		return fmt.Errorf("%w: channel %d out of range for %d channels", ErrInvalidConfig, c.Channel, c.Channels)
	}
	if c.FramesPerSecond <= 0 || c.FramesPerSecond > c.SampleRate {
		return fmt.Errorf("%w: frames_per_second must be between 1 and sample_rate: %d", ErrInvalidConfig, c.FramesPerSecond)
	}
	if c.Octaves <= 0 {
		return fmt.Errorf("%w: octaves must be positive: %d", ErrInvalidConfig, c.Octaves)
	}
	if c.HalfLifePeriods <= 0 {
		return fmt.Errorf("%w: half_life_periods must be positive: %g", ErrInvalidConfig, c.HalfLifePeriods)
	}
	if _, ok := filters.ParseNormalizerMode(c.Normalizer); !ok {
		return fmt.Errorf("%w: unknown normalizer %q", ErrInvalidConfig, c.Normalizer)
	}
	if c.MinimumEnergy < 0 {
		return fmt.Errorf("%w: minimum_energy must not be negative: %g", ErrInvalidConfig, c.MinimumEnergy)
	}
	if c.EnergyRatio < 1 {
		return fmt.Errorf("%w: energy_ratio must be at least 1: %g", ErrInvalidConfig, c.EnergyRatio)
	}
	if c.RemoveDC && (c.DCCutoffHz <= 0 || c.DCCutoffHz >= float64(c.SampleRate)/2) {
		return fmt.Errorf("%w: dc_cutoff_hz must be between 0 and Nyquist: %g", ErrInvalidConfig, c.DCCutoffHz)
	}
	if c.ScaleWindowFrames <= 0 {
		return fmt.Errorf("%w: scale_window_frames must be positive: %d", ErrInvalidConfig, c.ScaleWindowFrames)
	}
	if c.PenaltyWeight <= 0 {
		return fmt.Errorf("%w: penalty_weight must be positive: %d", ErrInvalidConfig, c.PenaltyWeight)
	}
	if c.MaxCandidates < 0 {
		return fmt.Errorf("%w: max_candidates must not be negative: %d", ErrInvalidConfig, c.MaxCandidates)
	}
	if c.MaxFrames < 0 {
		return fmt.Errorf("%w: max_frames must not be negative: %d", ErrInvalidConfig, c.MaxFrames)
	}
	return nil
}

// FrameSamples is the number of samples per channel in one analysis frame.
func (c *TrackerConfig) FrameSamples() int {
	return c.SampleRate / c.FramesPerSecond
}

// NormalizerMode resolves the normalizer name; unknown names fall back to
// the calibrated mode.
func (c *TrackerConfig) NormalizerMode() filters.NormalizerMode {
	mode, _ := filters.ParseNormalizerMode(c.Normalizer)
	return mode
}

// GetConfig returns the configuration as a flat map for logging.
func (c *TrackerConfig) GetConfig() map[string]any {
	return map[string]any{
		"sample_rate":         c.SampleRate,
		"channels":            c.Channels,
		"channel":             c.Channel,
		"frames_per_second":   c.FramesPerSecond,
		"octaves":             c.Octaves,
		"half_life_periods":   c.HalfLifePeriods,
		"normalizer":          c.Normalizer,
		"minimum_energy":      c.MinimumEnergy,
		"energy_ratio":        c.EnergyRatio,
		"remove_dc":           c.RemoveDC,
		"scale_window_frames": c.ScaleWindowFrames,
		"penalty_weight":      c.PenaltyWeight,
		"max_frames":          c.MaxFrames,
	}
}

package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-scale/logging"
	"github.com/go-audio/audio"
)

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate"`
	TargetChannels   int           `json:"target_channels"`
	FFmpegPath       string        `json:"ffmpeg_path"`   // Path to ffmpeg binary
	FFprobePath      string        `json:"ffprobe_path"`  // Path to ffprobe binary
	ProbeTimeout     time.Duration `json:"probe_timeout"` // Timeout for ffprobe; decoding runs until the stream ends
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 44100,
		TargetChannels:   2,
		FFmpegPath:       "ffmpeg",  // Assume in PATH
		FFprobePath:      "ffprobe", // Assume in PATH
		ProbeTimeout:     10 * time.Second,
	}
}

// Decoder streams any ffmpeg-readable input as s16le PCM.
type Decoder struct {
	config *DecoderConfig
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// Open starts ffmpeg on filename and returns its output as a stream. The
// process is killed when ctx is cancelled or the stream is closed.
func (d *Decoder) Open(ctx context.Context, filename string) (*PipeStream, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "Open",
		"filename":  filename,
	})

	if err := d.ValidateConfig(); err != nil {
		return nil, err
	}

	args := d.buildFFmpegArgs(filename)
	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg pipe: %w", err)
	}
	stream := &PipeStream{cmd: cmd}
	cmd.Stderr = &stream.stderr

	logger.Debug("Starting FFmpeg", logging.Fields{
		"command": fmt.Sprintf("%s %s", d.config.FFmpegPath, strings.Join(args, " ")),
	})

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	stream.pcm = NewPCMReader(stdout, &audio.Format{
		NumChannels: d.config.TargetChannels,
		SampleRate:  d.config.TargetSampleRate,
	})
	return stream, nil
}

// Probe uses ffprobe to get input audio information from a file
func (d *Decoder) Probe(ctx context.Context, filename string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json", // JSON output
		"-show_streams",          // Show stream info
		"-select_streams", "a:0", // First audio stream only
		filename,
	}

	if d.config.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.ProbeTimeout)
		defer cancel()
	}

	output, err := exec.CommandContext(ctx, d.config.FFprobePath, args...).Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

// maxProbeChannels bounds the channel count accepted from ffprobe.
const maxProbeChannels = 8

// probeStream is the subset of an ffprobe stream entry the decoder reads.
// Numeric fields arrive as strings, except channels.
type probeStream struct {
	CodecType     string `json:"codec_type"`
	CodecName     string `json:"codec_name"`
	CodecLongName string `json:"codec_long_name"`
	SampleRate    string `json:"sample_rate"`
	Channels      int    `json:"channels"`
	Duration      string `json:"duration"`
	BitRate       string `json:"bit_rate"`
}

func (ps probeStream) metadata() (*AudioMetadata, error) {
	sampleRate, err := strconv.Atoi(ps.SampleRate)
	if err != nil || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %q", ErrInvalidProbe, ps.SampleRate)
	}
	if ps.Channels <= 0 || ps.Channels > maxProbeChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidProbe, ps.Channels)
	}

	// duration and bitrate are absent for live inputs
	duration, _ := strconv.ParseFloat(ps.Duration, 64)
	bitrate, _ := strconv.Atoi(ps.BitRate)

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   ps.Channels,
		Codec:      ps.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     ps.CodecLongName,
	}, nil
}

// parseFFprobeOutput reads the first audio stream of ffprobe's JSON report.
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var report struct {
		Streams []probeStream `json:"streams"`
	}
	if err := json.Unmarshal(jsonData, &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProbe, err)
	}

	for _, ps := range report.Streams {
		if ps.CodecType == "audio" {
			return ps.metadata()
		}
	}
	return nil, ErrNoAudioStream
}

// buildFFmpegArgs resamples the first audio stream to the target layout and
// writes raw s16le to stdout.
func (d *Decoder) buildFFmpegArgs(filename string) []string {
	return []string{
		"-v", "error",
		"-i", filename,
		"-map", "0:a:0?",
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", strconv.Itoa(d.config.TargetChannels),
		"-ar", strconv.Itoa(d.config.TargetSampleRate),
		"pipe:1",
	}
}

// ValidateConfig validates the decoder configuration
func (d *Decoder) ValidateConfig() error {
	if d.config.TargetSampleRate <= 0 {
		return fmt.Errorf("target sample rate must be positive: %d", d.config.TargetSampleRate)
	}

	if d.config.TargetChannels <= 0 || d.config.TargetChannels > 8 {
		return fmt.Errorf("target channels must be between 1 and 8: %d", d.config.TargetChannels)
	}

	if err := d.checkFFmpegAvailability(); err != nil {
		return fmt.Errorf("ffmpeg not available: %w", err)
	}

	return nil
}

// checkFFmpegAvailability checks if ffmpeg is on the path
func (d *Decoder) checkFFmpegAvailability() error {
	if _, err := exec.LookPath(d.config.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found at %s: %w", d.config.FFmpegPath, err)
	}
	return nil
}

// PipeStream is the PCM output of a running ffmpeg process.
type PipeStream struct {
	cmd    *exec.Cmd
	pcm    *PCMReader
	stderr bytes.Buffer
	waited bool
}

// FillBuffer reads decoded samples. At end of output it reaps ffmpeg and
// reports a failed decode instead of io.EOF.
func (ps *PipeStream) FillBuffer(buf []int16) (int, error) {
	n, err := ps.pcm.FillBuffer(buf)
	if !errors.Is(err, io.EOF) {
		return n, err
	}
	if werr := ps.wait(); werr != nil {
		return n, fmt.Errorf("ffmpeg decode failed: %w, stderr: %s", werr, strings.TrimSpace(ps.stderr.String()))
	}
	return n, io.EOF
}

func (ps *PipeStream) Format() *audio.Format {
	return ps.pcm.Format()
}

// Close stops ffmpeg if it is still running.
func (ps *PipeStream) Close() error {
	if ps.waited {
		return nil
	}
	if ps.cmd.Process != nil {
		_ = ps.cmd.Process.Kill()
	}
	_ = ps.wait()
	return nil
}

func (ps *PipeStream) wait() error {
	if ps.waited {
		return nil
	}
	ps.waited = true
	return ps.cmd.Wait()
}

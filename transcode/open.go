package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/sonido-scale/logging"
	"github.com/go-audio/audio"
)

// StdinPath selects raw s16le PCM on standard input.
const StdinPath = "-"

// Open picks a stream for path. StdinPath reads raw PCM in the configured
// layout, .wav files are parsed in-process in their own layout, and any
// other input is decoded by ffmpeg into the configured layout.
func Open(ctx context.Context, path string, config *DecoderConfig) (Stream, error) {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	logger := logging.WithFields(logging.Fields{
		"component": "audio_source",
		"function":  "Open",
		"path":      path,
	})

	if path == StdinPath {
		logger.Debug("Reading raw PCM from stdin", logging.Fields{
			"sample_rate": config.TargetSampleRate,
			"channels":    config.TargetChannels,
		})
		// hide os.Stdin's Close from the reader
		stdin := struct{ io.Reader }{os.Stdin}
		return NewPCMReader(stdin, &audio.Format{
			NumChannels: config.TargetChannels,
			SampleRate:  config.TargetSampleRate,
		}), nil
	}

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		stream, err := openWAV(path)
		switch {
		case err == nil:
			format := stream.Format()
			logger.Debug("Opened WAV file", logging.Fields{
				"sample_rate": format.SampleRate,
				"channels":    format.NumChannels,
				"bit_depth":   stream.BitDepth(),
			})
			return stream, nil
		case errors.Is(err, ErrUnsupportedFormat):
			logger.Warn("WAV encoding not supported natively, decoding with FFmpeg", logging.Fields{
				"error": err.Error(),
			})
		default:
			return nil, err
		}
	}

	decoder := NewDecoder(config)
	if metadata, err := decoder.Probe(ctx, path); err != nil {
		logger.Debug("Probe failed, decoding anyway", logging.Fields{"error": err.Error()})
	} else {
		logger.Debug("Audio metadata detected", logging.Fields{
			"input_sample_rate": metadata.SampleRate,
			"input_channels":    metadata.Channels,
			"input_codec":       metadata.Codec,
			"input_duration":    metadata.Duration,
			"input_bitrate":     metadata.Bitrate,
		})
	}

	return decoder.Open(ctx, path)
}

func openWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	stream, err := NewWAVSource(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stream, nil
}

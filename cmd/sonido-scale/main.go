// Command sonido-scale listens to a stream of music and prints the major
// scale it is most likely played in.
//
// Usage:
//
//	sonido-scale [flags]
//
// By default it reads 44.1 kHz stereo s16le PCM from stdin and draws the
// resonator energies on every frame.
//
// Examples:
//
//	arecord -f cd -t raw | sonido-scale
//	sonido-scale -input song.wav -nodisplay
//	sonido-scale -input song.mp3 -nodisplay -verbose -penalty 2
//	sonido-scale -config tracker.json -max 600
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/RyanBlaney/sonido-scale/display"
	"github.com/RyanBlaney/sonido-scale/logging"
	"github.com/RyanBlaney/sonido-scale/tracker"
	"github.com/RyanBlaney/sonido-scale/tracker/config"
	"github.com/RyanBlaney/sonido-scale/transcode"
)

type options struct {
	configPath string
	input      string
	noDisplay  bool
	verbose    bool
	debug      bool
	ffmpeg     string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sonido-scale", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	defaults := config.DefaultTrackerConfig()
	fs.StringVar(&opts.configPath, "config", "", "JSON tracker configuration file")
	fs.StringVar(&opts.input, "input", transcode.StdinPath, "audio input: - for raw s16le on stdin, a .wav file, or anything ffmpeg can decode")
	fs.BoolVar(&opts.noDisplay, "nodisplay", false, "print scale guesses only instead of drawing the energy grid")
	fs.BoolVar(&opts.verbose, "verbose", false, "add scores and runner-up scales to printed guesses")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging on stderr")
	fs.StringVar(&opts.ffmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary for non-wav files")

	maxFrames := fs.Int("max", defaults.MaxFrames, "stop after this many frames (0 = end of stream)")
	rate := fs.Int("rate", defaults.SampleRate, "sample rate of raw input in Hz")
	channels := fs.Int("channels", defaults.Channels, "interleaved channels of raw input")
	channel := fs.Int("channel", defaults.Channel, "channel to analyse (0 = left)")
	fps := fs.Int("fps", defaults.FramesPerSecond, "analysis frames per second")
	octaves := fs.Int("octaves", defaults.Octaves, "octaves above C2 covered by the resonator bank")
	halfLife := fs.Float64("halflife", defaults.HalfLifePeriods, "resonator half-life in periods of its note")
	floor := fs.Float64("floor", defaults.MinimumEnergy, "minimum cell energy for a note to count as present")
	ratio := fs.Float64("ratio", defaults.EnergyRatio, "a note must hold more than 1/ratio of the frame energy")
	window := fs.Int("window", defaults.ScaleWindowFrames, "frames per scale guess")
	penalty := fs.Int("penalty", defaults.PenaltyWeight, "cost of an out-of-scale note count")
	normalizer := fs.String("normalizer", defaults.Normalizer, "resonator energy normalizer: calibrated or period")
	removeDC := fs.Bool("remove-dc", defaults.RemoveDC, "high-pass the input before the resonators")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	base := logging.NewDefaultLoggerWithWriters(stderr, stderr)
	if opts.debug {
		base.SetLevel(logging.DebugLevel)
	}
	logging.SetGlobalLogger(base)
	logger := base.WithFields(logging.Fields{"component": "cli"})

	cfg := config.DefaultTrackerConfig()
	if opts.configPath != "" {
		loaded, err := config.LoadFile(opts.configPath)
		if err != nil {
			logger.Error(err, "Failed to load configuration")
			return 1
		}
		cfg = loaded
	}

	// explicit flags win over the file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max":
			cfg.MaxFrames = *maxFrames
		case "rate":
			cfg.SampleRate = *rate
		case "channels":
			cfg.Channels = *channels
		case "channel":
			cfg.Channel = *channel
		case "fps":
			cfg.FramesPerSecond = *fps
		case "octaves":
			cfg.Octaves = *octaves
		case "halflife":
			cfg.HalfLifePeriods = *halfLife
		case "floor":
			cfg.MinimumEnergy = *floor
		case "ratio":
			cfg.EnergyRatio = *ratio
		case "window":
			cfg.ScaleWindowFrames = *window
		case "penalty":
			cfg.PenaltyWeight = *penalty
		case "normalizer":
			cfg.Normalizer = *normalizer
		case "remove-dc":
			cfg.RemoveDC = *removeDC
		}
	})
	if err := cfg.Validate(); err != nil {
		logger.Error(err, "Invalid configuration")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decoderConfig := transcode.DefaultDecoderConfig()
	decoderConfig.TargetSampleRate = cfg.SampleRate
	decoderConfig.TargetChannels = cfg.Channels
	decoderConfig.FFmpegPath = opts.ffmpeg

	stream, err := transcode.Open(ctx, opts.input, decoderConfig)
	if err != nil {
		logger.Error(err, "Failed to open input", logging.Fields{"input": opts.input})
		return 1
	}
	defer stream.Close()

	if err := adoptFormat(cfg, stream, logger); err != nil {
		logger.Error(err, "Input does not fit the configuration", logging.Fields{"input": opts.input})
		return 1
	}

	var last tracker.WindowReport
	remember := tracker.HandlerFuncs{Window: func(r tracker.WindowReport) { last = r }}

	var handler tracker.Handler
	if opts.noDisplay {
		handler = tracker.MultiHandler(display.NewScaleLog(stdout, opts.verbose), remember)
	} else {
		handler = tracker.MultiHandler(display.NewScreen(stdout, true), remember)
	}

	tr, err := tracker.New(cfg, handler)
	if err != nil {
		logger.Error(err, "Failed to create tracker")
		return 1
	}

	err = tr.Run(ctx, stream)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		logger.Info("Interrupted", logging.Fields{"frames": tr.Frames()})
	default:
		logger.Error(err, "Analysis stopped", logging.Fields{"frames": tr.Frames()})
		return 1
	}

	// the screen hides per-window lines, so repeat the final verdict
	if !opts.noDisplay && last.Found {
		fmt.Fprintf(stdout, "SCALE: %s\n", last.Scale.Name)
	}
	logger.Debug("Done", logging.Fields{"frames": tr.Frames()})
	return 0
}

// adoptFormat takes the sample layout of self-describing inputs such as wav
// files.
func adoptFormat(cfg *config.TrackerConfig, stream transcode.Stream, logger logging.Logger) error {
	format := stream.Format()
	if format == nil {
		return nil
	}
	if format.SampleRate != cfg.SampleRate || format.NumChannels != cfg.Channels {
		logger.Info("Using the input's sample layout", logging.Fields{
			"sample_rate": format.SampleRate,
			"channels":    format.NumChannels,
		})
	}
	cfg.SampleRate = format.SampleRate
	cfg.Channels = format.NumChannels
	if cfg.Channel >= cfg.Channels {
		logger.Warn("Selected channel missing, using channel 0", logging.Fields{"channel": cfg.Channel})
		cfg.Channel = 0
	}
	return cfg.Validate()
}

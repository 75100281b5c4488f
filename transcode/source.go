package transcode

import (
	"errors"
	"io"

	"github.com/go-audio/audio"
)

var (
	// ErrInvalidWAV indicates the input is not a readable RIFF/WAVE file
	ErrInvalidWAV = errors.New("invalid wav file")
	// ErrUnsupportedFormat indicates a sample encoding the sources cannot convert
	ErrUnsupportedFormat = errors.New("unsupported sample format")
	// ErrNoAudioStream indicates ffprobe found no audio stream in the input
	ErrNoAudioStream = errors.New("no audio stream found")
	// ErrInvalidProbe indicates ffprobe output that could not be understood
	ErrInvalidProbe = errors.New("invalid ffprobe output")
)

// Source delivers interleaved signed 16-bit samples.
//
// FillBuffer writes up to len(buf) samples and returns how many it wrote.
// io.EOF marks the end of the stream; a short count may precede it.
type Source interface {
	FillBuffer(buf []int16) (int, error)
}

// Stream is a Source that knows its sample layout and owns resources.
type Stream interface {
	Source
	io.Closer
	Format() *audio.Format
}

package transcode

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// WAVSource reads integer PCM WAV files and scales every sample to 16 bits.
type WAVSource struct {
	dec    *wav.Decoder
	buf    *audio.IntBuffer
	closer io.Closer
	shift  uint
}

// NewWAVSource parses the WAV header of r. 16, 24 and 32-bit integer PCM is
// accepted. If r is also an io.Closer, Close closes it.
func NewWAVSource(r io.ReadSeeker) (*WAVSource, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return nil, ErrInvalidWAV
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: wav audio format %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	var shift uint
	switch dec.BitDepth {
	case 16:
	case 24:
		shift = 8
	case 32:
		shift = 16
	default:
		return nil, fmt.Errorf("%w: %d-bit wav", ErrUnsupportedFormat, dec.BitDepth)
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}

	ws := &WAVSource{
		dec:   dec,
		buf:   &audio.IntBuffer{Format: dec.Format()},
		shift: shift,
	}
	if c, ok := r.(io.Closer); ok {
		ws.closer = c
	}
	return ws, nil
}

func (ws *WAVSource) FillBuffer(buf []int16) (int, error) {
	if cap(ws.buf.Data) < len(buf) {
		ws.buf.Data = make([]int, len(buf))
	}
	ws.buf.Data = ws.buf.Data[:len(buf)]

	n, err := ws.dec.PCMBuffer(ws.buf)
	if err != nil {
		return 0, fmt.Errorf("failed to decode wav: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	for i := 0; i < n; i++ {
		buf[i] = int16(ws.buf.Data[i] >> ws.shift)
	}
	return n, nil
}

// Format reports the file's sample rate and channel count.
func (ws *WAVSource) Format() *audio.Format {
	return ws.dec.Format()
}

// BitDepth is the bit depth stored in the file.
func (ws *WAVSource) BitDepth() int {
	return int(ws.dec.BitDepth)
}

func (ws *WAVSource) Close() error {
	if ws.closer == nil {
		return nil
	}
	return ws.closer.Close()
}

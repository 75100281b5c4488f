package transcode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
)

// PCMReader decodes raw interleaved s16le samples from any reader, such as
// stdin or an ffmpeg pipe.
type PCMReader struct {
	r      io.Reader
	closer io.Closer
	format *audio.Format
	raw    []byte
	eof    bool
}

// NewPCMReader reads r as raw PCM in the given layout. If r is also an
// io.Closer, Close closes it.
func NewPCMReader(r io.Reader, format *audio.Format) *PCMReader {
	p := &PCMReader{r: r, format: format}
	if c, ok := r.(io.Closer); ok {
		p.closer = c
	}
	return p
}

// FillBuffer blocks until buf is full or the stream ends. A trailing odd
// byte is discarded.
func (p *PCMReader) FillBuffer(buf []int16) (int, error) {
	if p.eof {
		return 0, io.EOF
	}

	need := len(buf) * 2
	if cap(p.raw) < need {
		p.raw = make([]byte, need)
	}
	raw := p.raw[:need]

	n, err := io.ReadFull(p.r, raw)
	samples := n / 2
	for i := 0; i < samples; i++ {
		buf[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}

	switch {
	case err == nil:
		return samples, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		p.eof = true
		if samples == 0 {
			return 0, io.EOF
		}
		return samples, nil
	default:
		return samples, fmt.Errorf("failed to read pcm: %w", err)
	}
}

func (p *PCMReader) Format() *audio.Format {
	return p.format
}

func (p *PCMReader) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

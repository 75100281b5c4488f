package transcode

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, name string, sampleRate, bitDepth, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

func readAll(t *testing.T, src Source, chunk int) []int16 {
	t.Helper()
	var out []int16
	buf := make([]int16, chunk)
	for {
		n, err := src.FillBuffer(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("FillBuffer: %v", err)
		}
	}
}

func TestWAVSource_16Bit(t *testing.T) {
	data := []int{100, -100, 2000, -2000, 32767, -32768, 0, 1}
	path := writeWAV(t, "stereo.wav", 22050, 16, 2, data)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	ws, err := NewWAVSource(f)
	if err != nil {
		t.Fatalf("NewWAVSource: %v", err)
	}
	defer ws.Close()

	format := ws.Format()
	if format.SampleRate != 22050 || format.NumChannels != 2 || ws.BitDepth() != 16 {
		t.Errorf("format = %+v / %d bits", format, ws.BitDepth())
	}

	got := readAll(t, ws, 3)
	if len(got) != len(data) {
		t.Fatalf("read %d samples, want %d", len(got), len(data))
	}
	for i := range data {
		if int(got[i]) != data[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], data[i])
		}
	}
}

func TestWAVSource_24BitScaledTo16(t *testing.T) {
	data := []int{256 * 1000, -256 * 1000, 8388607, -8388608}
	path := writeWAV(t, "deep.wav", 44100, 24, 1, data)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	ws, err := NewWAVSource(f)
	if err != nil {
		t.Fatalf("NewWAVSource: %v", err)
	}
	defer ws.Close()

	got := readAll(t, ws, 16)
	want := []int16{1000, -1000, 32767, -32768}
	if len(got) != len(want) {
		t.Fatalf("read %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestWAVSource_Rejects(t *testing.T) {
	t.Run("not a wav", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "noise.wav")
		if err := os.WriteFile(path, []byte("definitely not RIFF data"), 0o644); err != nil {
			t.Fatal(err)
		}
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		if _, err := NewWAVSource(f); !errors.Is(err, ErrInvalidWAV) {
			t.Errorf("err = %v, want ErrInvalidWAV", err)
		}
	})

	t.Run("8-bit", func(t *testing.T) {
		path := writeWAV(t, "small.wav", 8000, 8, 1, []int{128, 200, 50, 128})
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		if _, err := NewWAVSource(f); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("err = %v, want ErrUnsupportedFormat", err)
		}
	})
}

func TestOpen_WAV(t *testing.T) {
	path := writeWAV(t, "clip.WAV", 48000, 16, 1, []int{1, 2, 3, 4})

	stream, err := Open(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()

	if _, ok := stream.(*WAVSource); !ok {
		t.Fatalf("Open returned %T, want *WAVSource", stream)
	}
	if got := stream.Format().SampleRate; got != 48000 {
		t.Errorf("SampleRate = %d, want 48000", got)
	}
	if got := readAll(t, stream, 8); len(got) != 4 || got[3] != 4 {
		t.Errorf("samples = %v, want [1 2 3 4]", got)
	}
}

func TestOpen_MissingWAV(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "gone.wav"), nil)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned for audio the context cannot play as is.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format describes the PCM layout of the shared context.
type Format struct {
	SampleRate int
	Channels   int
	// BufferSize is the output buffer length; zero picks a platform default.
	BufferSize time.Duration
}

// DefaultFormat returns 16-bit stereo at 44.1kHz.
func DefaultFormat() Format {
	return Format{
		SampleRate: 44100,
		Channels:   2,
	}
}

func (f Format) bufferSize() time.Duration {
	if f.BufferSize > 0 {
		return f.BufferSize
	}
	switch runtime.GOOS {
	case "darwin":
		// macOS benefits from larger buffers
		return 100 * time.Millisecond
	case "windows":
		return 80 * time.Millisecond
	default:
		return 50 * time.Millisecond
	}
}

func (f Format) frameBytes() int {
	return f.Channels * 2
}

// Silence returns d worth of silent signed 16-bit little-endian PCM, at least
// one frame long.
func (f Format) Silence(d time.Duration) []byte {
	frames := int(d * time.Duration(f.SampleRate) / time.Second)
	if frames < 1 {
		frames = 1
	}
	return make([]byte, frames*f.frameBytes())
}

// PCM is decoded audio laid out for the shared context.
type PCM struct {
	Data     []byte
	Duration time.Duration
}

// DecodeWAV reads a 16-bit WAV file. Mono input is duplicated across channels
// when the context is stereo; any other mismatch is rejected because the
// context does not resample.
func DecodeWAV(r io.ReadSeeker, f Format) (*PCM, error) {
	dec := wav.NewDecoder(r)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil {
		return nil, fmt.Errorf("%w: missing format chunk", ErrUnsupportedFormat)
	}

	rate, channels := buf.Format.SampleRate, buf.Format.NumChannels
	switch {
	case buf.SourceBitDepth != 16:
		return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedFormat, buf.SourceBitDepth)
	case rate != f.SampleRate:
		return nil, fmt.Errorf("%w: %d Hz, context runs at %d Hz", ErrUnsupportedFormat, rate, f.SampleRate)
	case channels != f.Channels && !(channels == 1 && f.Channels == 2):
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
	}

	repeat := f.Channels / channels
	data := make([]byte, 0, len(buf.Data)*2*repeat)
	var sample [2]byte
	for _, v := range buf.Data {
		binary.LittleEndian.PutUint16(sample[:], uint16(int16(v)))
		for i := 0; i < repeat; i++ {
			data = append(data, sample[:]...)
		}
	}

	frames := len(data) / f.frameBytes()
	return &PCM{
		Data:     data,
		Duration: time.Duration(frames) * time.Second / time.Duration(f.SampleRate),
	}, nil
}

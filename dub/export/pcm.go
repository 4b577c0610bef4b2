package export

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Export audio format: 16-bit signed little-endian mono PCM.
const (
	DefaultSampleRate = 22050
	Channels          = 1
	BitDepth          = 16
	BytesPerSample    = BitDepth / 8
)

// ErrUnsupportedAudio is returned for audio that cannot be converted to
// the export format.
var ErrUnsupportedAudio = errors.New("unsupported audio format")

// Format describes a PCM stream.
type Format struct {
	SampleRate int
	Channels   int
}

// BytesPerFrame returns the size of one frame across all channels.
func (f Format) BytesPerFrame() int {
	return BytesPerSample * f.Channels
}

// ByteRate returns the number of bytes per second.
func (f Format) ByteRate() int {
	return f.SampleRate * f.BytesPerFrame()
}

// Duration returns the playback time of size bytes.
func (f Format) Duration(size int64) time.Duration {
	if f.ByteRate() <= 0 {
		return 0
	}
	frames := size / int64(f.BytesPerFrame())
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Frames returns the number of whole frames that fit in d.
func (f Format) Frames(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(d) * int64(f.SampleRate) / int64(time.Second)
}

// Convert brings PCM in format from to mono at rate. Channels are averaged
// and the sample rate is changed by linear interpolation.
func Convert(data []byte, from Format, rate int) ([]byte, error) {
	if from.SampleRate <= 0 || from.Channels <= 0 || rate <= 0 {
		return nil, fmt.Errorf("%w: %d Hz, %d channels", ErrUnsupportedAudio, from.SampleRate, from.Channels)
	}
	if len(data)%from.BytesPerFrame() != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not aligned to %d byte frames", ErrUnsupportedAudio, len(data), from.BytesPerFrame())
	}
	if from.Channels == Channels && from.SampleRate == rate {
		return data, nil
	}

	mono := downmix(data, from.Channels)
	if from.SampleRate != rate {
		mono = resample(mono, from.SampleRate, rate)
	}

	out := make([]byte, len(mono)*BytesPerSample)
	for i, s := range mono {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out, nil
}

func downmix(data []byte, channels int) []int16 {
	frames := len(data) / (BytesPerSample * channels)
	out := make([]int16, frames)
	for i := range out {
		var sum int
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * BytesPerSample
			sum += int(int16(binary.LittleEndian.Uint16(data[off:])))
		}
		out[i] = int16(sum / channels)
	}
	return out
}

func resample(in []int16, from, to int) []int16 {
	if len(in) == 0 {
		return in
	}
	ratio := float64(to) / float64(from)
	out := make([]int16, int(float64(len(in))*ratio))
	for i := range out {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int16(float64(in[idx])*(1-frac) + float64(in[idx+1])*frac)
	}
	return out
}

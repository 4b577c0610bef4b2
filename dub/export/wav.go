package export

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// HeaderSize is the size of the canonical WAV header.
const HeaderSize = 44

// silenceChunk bounds the buffer used to write silence.
const silenceChunk = 32 << 10

// ErrWriterClosed is returned when writing to a finished WAV file.
var ErrWriterClosed = errors.New("wav writer is closed")

// Header returns the 44 byte RIFF header of a PCM WAV file holding
// dataSize bytes of 16-bit audio.
func Header(dataSize uint32, f Format) []byte {
	h := make([]byte, HeaderSize)
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], 36+dataSize)
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16) // PCM chunk size
	binary.LittleEndian.PutUint16(h[20:], 1)  // PCM
	binary.LittleEndian.PutUint16(h[22:], uint16(f.Channels))
	binary.LittleEndian.PutUint32(h[24:], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(h[28:], uint32(f.ByteRate()))
	binary.LittleEndian.PutUint16(h[32:], uint16(f.BytesPerFrame()))
	binary.LittleEndian.PutUint16(h[34:], BitDepth)
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], dataSize)
	return h
}

// WAVWriter streams PCM into a WAV file and fixes up the header sizes on
// Close.
type WAVWriter struct {
	w      io.WriteSeeker
	format Format
	size   int64
	closed bool
}

// NewWAVWriter writes a placeholder header to w.
func NewWAVWriter(w io.WriteSeeker, f Format) (*WAVWriter, error) {
	if _, err := w.Write(Header(0, f)); err != nil {
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	return &WAVWriter{w: w, format: f}, nil
}

// Write appends PCM data.
func (ww *WAVWriter) Write(p []byte) (int, error) {
	if ww.closed {
		return 0, ErrWriterClosed
	}
	n, err := ww.w.Write(p)
	ww.size += int64(n)
	return n, err
}

// WriteSilence appends d of silence.
func (ww *WAVWriter) WriteSilence(d time.Duration) error {
	remaining := ww.format.Frames(d) * int64(ww.format.BytesPerFrame())
	buf := make([]byte, min(remaining, silenceChunk))
	for remaining > 0 {
		n := min(remaining, int64(len(buf)))
		if _, err := ww.Write(buf[:n]); err != nil {
			return fmt.Errorf("write silence: %w", err)
		}
		remaining -= n
	}
	return nil
}

// Size returns the number of PCM bytes written.
func (ww *WAVWriter) Size() int64 {
	return ww.size
}

// Duration returns the playback time written so far.
func (ww *WAVWriter) Duration() time.Duration {
	return ww.format.Duration(ww.size)
}

// Close rewrites the header with the final sizes. It does not close the
// underlying writer.
func (ww *WAVWriter) Close() error {
	if ww.closed {
		return nil
	}
	ww.closed = true

	if ww.size > int64(^uint32(0))-36 {
		return fmt.Errorf("wav data of %d bytes exceeds the format limit", ww.size)
	}
	if _, err := ww.w.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek wav header: %w", err)
	}
	if _, err := ww.w.Write(Header(uint32(ww.size), ww.format)); err != nil {
		return fmt.Errorf("rewrite wav header: %w", err)
	}
	_, err := ww.w.Seek(0, io.SeekEnd)
	return err
}

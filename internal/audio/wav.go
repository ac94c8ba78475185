package audio

import (
	"encoding/binary"
	"fmt"
	"os"
)

// wavHeader is the 44-byte RIFF/PCM header written at the start of each file
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

const wavHeaderSize = 44

// WavWriter streams 16-bit mono PCM frames to a WAV file. The RIFF size
// fields are unknown until the utterance closes, so the header is written
// with zero sizes up front and patched on Close.
type WavWriter struct {
	f          *os.File
	sampleRate int
	dataBytes  uint32
	closed     bool
}

// NewWavWriter creates the container file and writes the provisional header
func NewWavWriter(path string, sampleRate int) (*WavWriter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create wav file: %w", err)
	}

	w := &WavWriter{f: f, sampleRate: sampleRate}
	if err := binary.Write(f, binary.LittleEndian, w.header()); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write wav header: %w", err)
	}
	return w, nil
}

func (w *WavWriter) header() wavHeader {
	const (
		numChannels   = uint16(1)
		bitsPerSample = uint16(16)
	)
	return wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + w.dataBytes,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   numChannels,
		SampleRate:    uint32(w.sampleRate),
		ByteRate:      uint32(w.sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: w.dataBytes,
	}
}

// Write appends raw PCM bytes to the data chunk
func (w *WavWriter) Write(pcm []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("wav writer is closed")
	}
	n, err := w.f.Write(pcm)
	w.dataBytes += uint32(n)
	if err != nil {
		return n, fmt.Errorf("failed to write wav data: %w", err)
	}
	return n, nil
}

// Close patches the header size fields and closes the file. Safe to call once.
func (w *WavWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if _, err := w.f.Seek(0, 0); err != nil {
		w.f.Close()
		return fmt.Errorf("failed to seek to wav header: %w", err)
	}
	if err := binary.Write(w.f, binary.LittleEndian, w.header()); err != nil {
		w.f.Close()
		return fmt.Errorf("failed to patch wav header: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("failed to close wav file: %w", err)
	}
	return nil
}

// DataBytes returns the number of PCM bytes written so far
func (w *WavWriter) DataBytes() int {
	return int(w.dataBytes)
}

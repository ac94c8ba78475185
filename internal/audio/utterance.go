package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// UtteranceBuffer accumulates the audio of one utterance into a WAV file.
// A session owns at most one at a time; every buffer is either finalized
// (handed to the dispatch pipeline) or discarded before another may open.
type UtteranceBuffer struct {
	path string
	wav  *WavWriter

	// BeganAt is the correlation timestamp clients use to match transcript
	// and verdict events to the utterance
	BeganAt time.Time
}

// NewUtteranceBuffer opens the container file for a new utterance. The path
// is derived from the session id and creation time so concurrent sessions
// never collide and close-path cleanup can glob by session id prefix.
func NewUtteranceBuffer(dir, sessionID string, sampleRate int) (*UtteranceBuffer, error) {
	began := time.Now()
	path := filepath.Join(dir, fmt.Sprintf("%s-%d.wav", sessionID, began.UnixMilli()))

	wav, err := NewWavWriter(path, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to open utterance buffer: %w", err)
	}

	return &UtteranceBuffer{
		path:    path,
		wav:     wav,
		BeganAt: began,
	}, nil
}

// WriteFrame appends one PCM frame to the buffer
func (u *UtteranceBuffer) WriteFrame(pcm []byte) error {
	_, err := u.wav.Write(pcm)
	return err
}

// Finalize closes the container and returns its path for dispatch
func (u *UtteranceBuffer) Finalize() (string, error) {
	if err := u.wav.Close(); err != nil {
		return "", err
	}
	return u.path, nil
}

// Discard closes the container and deletes the file. Used for
// silence-dominated utterances and for buffers abandoned at session close.
func (u *UtteranceBuffer) Discard() error {
	closeErr := u.wav.Close()
	if err := os.Remove(u.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove discarded utterance: %w", err)
	}
	return closeErr
}

// Path returns the container file path
func (u *UtteranceBuffer) Path() string {
	return u.path
}

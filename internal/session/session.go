package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/presentio/coverage-gateway/internal/audio"
)

// State tracks where a session is in its lifecycle.
type State int

const (
	// StateAwaitingTopics means the connection is open but the client has
	// not yet sent its topic list. Audio frames are dropped in this state.
	StateAwaitingTopics State = iota
	// StateReady means topics are set and audio frames are processed.
	StateReady
	// StateClosed means the session has been torn down.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingTopics:
		return "awaiting_topics"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session holds the per-connection state: lifecycle, topic list, the
// segmenter tracking speech/silence runs, and the utterance currently being
// buffered (if any).
type Session struct {
	ID        string
	StartedAt time.Time

	mu        sync.Mutex
	state     State
	topics    []string
	segmenter *audio.Segmenter
	buffer    *audio.UtteranceBuffer
}

// NewSession creates a session in the awaiting-topics state
func NewSession(id string, segCfg *audio.SegmenterConfig) *Session {
	return &Session{
		ID:        id,
		StartedAt: time.Now(),
		state:     StateAwaitingTopics,
		segmenter: audio.NewSegmenter(segCfg),
	}
}

// SetTopics transitions the session to ready. It may only be called once, and
// the topic list must be non-empty.
func (s *Session) SetTopics(topics []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingTopics {
		return fmt.Errorf("session %s: topics already set", s.ID)
	}
	if len(topics) == 0 {
		return fmt.Errorf("session %s: topic list must not be empty", s.ID)
	}

	s.topics = make([]string, len(topics))
	copy(s.topics, topics)
	s.state = StateReady
	return nil
}

// Topics returns a copy of the session's topic list.
func (s *Session) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics := make([]string, len(s.topics))
	copy(topics, s.topics)
	return topics
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Segmenter returns the session's segmenter. It is only touched from the
// connection's read loop, so it needs no locking of its own.
func (s *Session) Segmenter() *audio.Segmenter {
	return s.segmenter
}

// SetBuffer records the utterance currently being captured.
func (s *Session) SetBuffer(buf *audio.UtteranceBuffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = buf
}

// Buffer returns the in-progress utterance, or nil.
func (s *Session) Buffer() *audio.UtteranceBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// ClearBuffer detaches and returns the in-progress utterance.
func (s *Session) ClearBuffer() *audio.UtteranceBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.buffer
	s.buffer = nil
	return buf
}

// Duration returns how long the session has been alive.
func (s *Session) Duration() time.Duration {
	return time.Since(s.StartedAt)
}

// Close marks the session closed and discards any in-progress utterance.
// Closing an already closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed

	if s.buffer != nil {
		buf := s.buffer
		s.buffer = nil
		return buf.Discard()
	}
	return nil
}

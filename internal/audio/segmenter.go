package audio

// Action is the segmenter's per-frame decision for the caller to carry out
type Action int

const (
	// ActionNone means nothing to do (silence with no open utterance)
	ActionNone Action = iota
	// ActionOpen means open a new utterance buffer and write the frame to it
	ActionOpen
	// ActionExtend means write the frame to the already-open buffer
	ActionExtend
	// ActionAccumulate means keep the buffer open but do not write the frame
	ActionAccumulate
	// ActionFinalize means write the frame as trailing context, close the
	// buffer and hand it to the dispatch pipeline
	ActionFinalize
	// ActionDiscard means the utterance is silence-dominated; delete the
	// buffer without dispatching
	ActionDiscard
)

// SegmenterConfig holds the segmentation policy thresholds
type SegmenterConfig struct {
	AmplitudeThreshold       float64 // Normalized peak above which a frame is speech (exact threshold is silence)
	MinSpeechFrames          int     // Utterances with fewer speech frames are "short"
	ShortSilenceFrames       int     // Consecutive silence needed to close a short utterance
	EstablishedSilenceFrames int     // Consecutive silence needed to close an established utterance
	DiscardRatio             int     // Discard instead of finalize when silence >= speech * ratio
}

// DefaultSegmenterConfig returns the default segmentation policy
func DefaultSegmenterConfig() *SegmenterConfig {
	return &SegmenterConfig{
		AmplitudeThreshold:       0.1,
		MinSpeechFrames:          2,
		ShortSilenceFrames:       10,
		EstablishedSilenceFrames: 1,
		DiscardRatio:             10,
	}
}

// Segmenter classifies PCM frames as speech or silence and tracks the
// speech/silence run lengths that decide utterance boundaries. It is owned by
// a single session and is not safe for concurrent use; frames must be
// processed in arrival order.
type Segmenter struct {
	cfg *SegmenterConfig

	open          bool
	speechFrames  int // speech frames written since the buffer opened
	silenceFrames int // consecutive silence frames since the last speech frame
}

// NewSegmenter creates a segmenter with the given policy (nil for defaults)
func NewSegmenter(cfg *SegmenterConfig) *Segmenter {
	if cfg == nil {
		cfg = DefaultSegmenterConfig()
	}
	return &Segmenter{cfg: cfg}
}

// Classify reports whether a frame counts as speech. A peak of exactly the
// threshold is silence.
func (s *Segmenter) Classify(samples []int16) bool {
	return PeakAmplitude(samples) > s.cfg.AmplitudeThreshold
}

// Process consumes one frame and returns the action the caller must take.
// ActionFinalize and ActionDiscard reset the utterance state, so a new buffer
// may open on the next speech frame.
func (s *Segmenter) Process(samples []int16) Action {
	if s.Classify(samples) {
		action := ActionExtend
		if !s.open {
			s.open = true
			s.speechFrames = 0
			action = ActionOpen
		}
		s.speechFrames++
		s.silenceFrames = 0
		return action
	}

	if !s.open {
		return ActionNone
	}

	s.silenceFrames++

	// Short utterances need a longer silence run before closing, so a brief
	// pause after a single word does not split the sentence.
	required := s.cfg.EstablishedSilenceFrames
	if s.speechFrames < s.cfg.MinSpeechFrames {
		required = s.cfg.ShortSilenceFrames
	}
	if s.silenceFrames < required {
		return ActionAccumulate
	}

	speech, silence := s.speechFrames, s.silenceFrames
	s.Reset()

	if silence >= speech*s.cfg.DiscardRatio {
		return ActionDiscard
	}
	return ActionFinalize
}

// Reset clears the utterance state. Called internally when a buffer closes,
// and by the session when a buffer is abandoned.
func (s *Segmenter) Reset() {
	s.open = false
	s.speechFrames = 0
	s.silenceFrames = 0
}

// Open reports whether an utterance buffer is currently open
func (s *Segmenter) Open() bool {
	return s.open
}

// SpeechFrames returns the speech frame count of the open utterance
func (s *Segmenter) SpeechFrames() int {
	return s.speechFrames
}

// SilenceFrames returns the consecutive silence count since the last speech frame
func (s *Segmenter) SilenceFrames() int {
	return s.silenceFrames
}

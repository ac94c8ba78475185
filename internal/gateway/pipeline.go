package gateway

import (
	"context"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/presentio/coverage-gateway/internal/inference"
	"github.com/presentio/coverage-gateway/internal/observability"
	"github.com/presentio/coverage-gateway/internal/session"
	"github.com/presentio/coverage-gateway/internal/stt"
)

// letterPattern detects whether a transcript contains any actual words.
// Whisper emits punctuation-only or annotation-only lines for non-speech
// audio; those never reach inference.
var letterPattern = regexp.MustCompile(`[a-zA-Z]`)

// Emitter delivers an event tuple to a client. Implementations must be safe
// for concurrent use; dispatches for one session can overlap.
type Emitter interface {
	Emit(kind int, payload string, beganAt int64) error
}

// Job describes one finalized utterance handed to the pipeline.
type Job struct {
	SessionID string
	AudioPath string
	BeganAt   int64
	Topics    []string
	Emitter   Emitter
}

// Pipeline runs the async transcribe-filter-evaluate chain for finalized
// utterances. Each dispatch runs in its own goroutine; results are delivered
// through the job's emitter only while the owning session is still
// registered.
type Pipeline struct {
	transcriber stt.Transcriber
	judge       inference.TopicJudge
	registry    *session.Registry
	callTimeout time.Duration
	marker      string
	maxInflight int64
	logger      zerolog.Logger

	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

// PipelineConfig holds the knobs for constructing a Pipeline.
type PipelineConfig struct {
	// CallTimeout bounds each external call (transcription, inference).
	// Zero means no deadline.
	CallTimeout time.Duration
	// HallucinationMarker rejects transcripts containing this substring.
	HallucinationMarker string
	// MaxInflight caps concurrent dispatches per session. Zero means
	// unlimited.
	MaxInflight int
}

// NewPipeline creates a dispatch pipeline
func NewPipeline(transcriber stt.Transcriber, judge inference.TopicJudge, registry *session.Registry, cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		judge:       judge,
		registry:    registry,
		callTimeout: cfg.CallTimeout,
		marker:      cfg.HallucinationMarker,
		maxInflight: int64(cfg.MaxInflight),
		logger:      observability.GetLogger().With().Str("component", "pipeline").Logger(),
		sems:        make(map[string]*semaphore.Weighted),
	}
}

// Dispatch starts the async processing chain for one utterance and returns
// immediately.
func (p *Pipeline) Dispatch(job Job) {
	go p.run(job)
}

// ReleaseSession drops per-session dispatch state. Called when a session is
// removed; in-flight dispatches keep their semaphore reference and finish
// normally.
func (p *Pipeline) ReleaseSession(sessionID string) {
	p.mu.Lock()
	delete(p.sems, sessionID)
	p.mu.Unlock()
}

func (p *Pipeline) run(job Job) {
	logger := p.logger.With().Str("session_id", job.SessionID).Logger()

	if sem := p.sessionSemaphore(job.SessionID); sem != nil {
		if err := sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer sem.Release(1)
	}

	transcript, ok := p.transcribe(job, logger)
	if !ok {
		return
	}

	if reason := p.rejectReason(transcript); reason != "" {
		observability.RecordTranscriptRejected(reason)
		logger.Debug().Str("reason", reason).Msg("Transcript rejected")
		return
	}

	logger.Info().Str("transcript", transcript).Msg("Utterance transcribed")

	if !p.emit(job, EventTranscript, transcript, logger) {
		return
	}

	p.evaluate(job, transcript, logger)
}

func (p *Pipeline) transcribe(job Job, logger zerolog.Logger) (string, bool) {
	ctx, cancel := p.callContext()
	defer cancel()

	start := time.Now()
	transcript, err := p.transcriber.Transcribe(ctx, job.AudioPath)
	observability.RecordTranscription(err == nil, time.Since(start))

	// The utterance file is single-use; remove it as soon as the
	// transcriber is done with it.
	if rmErr := os.Remove(job.AudioPath); rmErr != nil && !os.IsNotExist(rmErr) {
		logger.Warn().Err(rmErr).Str("path", job.AudioPath).Msg("Failed to remove utterance file")
	}

	if err != nil {
		observability.RecordError("transcription", "pipeline")
		logger.Error().Err(err).Msg("Transcription failed")
		return "", false
	}

	return strings.TrimSpace(transcript), true
}

func (p *Pipeline) evaluate(job Job, transcript string, logger zerolog.Logger) {
	ctx, cancel := p.callContext()
	defer cancel()

	verdict, err := p.judge.Evaluate(ctx, transcript, job.Topics)
	if err != nil {
		observability.RecordError("inference", "pipeline")
		// The client still gets a verdict event so its timeline stays
		// aligned with the transcript events.
		verdict = inference.NoTopics
	}

	p.emit(job, EventVerdict, verdict, logger)
}

// emit delivers an event if the owning session is still registered. Returns
// false when the session is gone and the chain should stop.
func (p *Pipeline) emit(job Job, kind int, payload string, logger zerolog.Logger) bool {
	if p.registry.Get(job.SessionID) == nil {
		logger.Debug().Int("kind", kind).Msg("Session gone, dropping event")
		return false
	}
	if err := job.Emitter.Emit(kind, payload, job.BeganAt); err != nil {
		logger.Warn().Err(err).Int("kind", kind).Msg("Failed to emit event")
		return false
	}
	return true
}

// rejectReason classifies transcripts that should never reach inference.
// Returns the empty string for transcripts worth evaluating.
func (p *Pipeline) rejectReason(transcript string) string {
	switch {
	case transcript == "":
		return "empty"
	case !letterPattern.MatchString(transcript):
		return "no_letters"
	case p.marker != "" && strings.Contains(transcript, p.marker):
		return "hallucination"
	default:
		return ""
	}
}

func (p *Pipeline) sessionSemaphore(sessionID string) *semaphore.Weighted {
	if p.maxInflight <= 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	sem, ok := p.sems[sessionID]
	if !ok {
		sem = semaphore.NewWeighted(p.maxInflight)
		p.sems[sessionID] = sem
	}
	return sem
}

func (p *Pipeline) callContext() (context.Context, context.CancelFunc) {
	if p.callTimeout > 0 {
		return context.WithTimeout(context.Background(), p.callTimeout)
	}
	return context.WithCancel(context.Background())
}

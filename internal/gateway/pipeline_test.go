package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/presentio/coverage-gateway/internal/audio"
	"github.com/presentio/coverage-gateway/internal/session"
)

type fakeTranscriber struct {
	transcript string
	err        error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return f.transcript, f.err
}

type fakeJudge struct {
	verdict string
	err     error
}

func (f *fakeJudge) Evaluate(ctx context.Context, transcript string, topics []string) (string, error) {
	return f.verdict, f.err
}

type event struct {
	kind    int
	payload string
	beganAt int64
}

// recordingEmitter captures emitted events and signals each one on a channel
// so tests can wait for the async pipeline.
type recordingEmitter struct {
	mu     sync.Mutex
	events []event
	seen   chan event
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{seen: make(chan event, 16)}
}

func (r *recordingEmitter) Emit(kind int, payload string, beganAt int64) error {
	ev := event{kind: kind, payload: payload, beganAt: beganAt}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.seen <- ev
	return nil
}

func (r *recordingEmitter) wait(t *testing.T) event {
	t.Helper()
	select {
	case ev := <-r.seen:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for event")
		return event{}
	}
}

func (r *recordingEmitter) expectNone(t *testing.T) {
	t.Helper()
	select {
	case ev := <-r.seen:
		t.Fatalf("Expected no event, got %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func testRegistry(t *testing.T) (*session.Registry, *session.Session) {
	t.Helper()
	r, err := session.NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	s := session.NewSession("test-session", audio.DefaultSegmenterConfig())
	r.Add(s)
	return r, s
}

func writeUtterance(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "test-session-1700000000000.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func testJob(sessionID, path string, emitter Emitter) Job {
	return Job{
		SessionID: sessionID,
		AudioPath: path,
		BeganAt:   1700000000000,
		Topics:    []string{"one", "two"},
		Emitter:   emitter,
	}
}

func TestPipeline_TranscriptThenVerdict(t *testing.T) {
	registry, _ := testRegistry(t)
	path := writeUtterance(t, registry.TempDir())
	emitter := newRecordingEmitter()

	p := NewPipeline(
		&fakeTranscriber{transcript: "we discussed renewable energy"},
		&fakeJudge{verdict: "2"},
		registry,
		PipelineConfig{HallucinationMarker: "*"},
	)

	p.Dispatch(testJob("test-session", path, emitter))

	first := emitter.wait(t)
	if first.kind != EventTranscript || first.payload != "we discussed renewable energy" {
		t.Errorf("Unexpected transcript event: %+v", first)
	}
	if first.beganAt != 1700000000000 {
		t.Errorf("Unexpected beganAt: %d", first.beganAt)
	}

	second := emitter.wait(t)
	if second.kind != EventVerdict || second.payload != "2" {
		t.Errorf("Unexpected verdict event: %+v", second)
	}
}

func TestPipeline_RemovesUtteranceFile(t *testing.T) {
	registry, _ := testRegistry(t)
	path := writeUtterance(t, registry.TempDir())
	emitter := newRecordingEmitter()

	p := NewPipeline(
		&fakeTranscriber{transcript: "hello"},
		&fakeJudge{verdict: "!"},
		registry,
		PipelineConfig{},
	)

	p.Dispatch(testJob("test-session", path, emitter))
	emitter.wait(t)
	emitter.wait(t)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected utterance file to be removed after transcription")
	}
}

func TestPipeline_RejectsTranscripts(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"no letters", "... 123 ..."},
		{"hallucination marker", "thanks for *watching*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, _ := testRegistry(t)
			path := writeUtterance(t, registry.TempDir())
			emitter := newRecordingEmitter()

			p := NewPipeline(
				&fakeTranscriber{transcript: tt.transcript},
				&fakeJudge{verdict: "1"},
				registry,
				PipelineConfig{HallucinationMarker: "*"},
			)

			p.Dispatch(testJob("test-session", path, emitter))
			emitter.expectNone(t)
		})
	}
}

func TestPipeline_TranscriptionFailure(t *testing.T) {
	registry, _ := testRegistry(t)
	path := writeUtterance(t, registry.TempDir())
	emitter := newRecordingEmitter()

	p := NewPipeline(
		&fakeTranscriber{err: errors.New("whisper exploded")},
		&fakeJudge{verdict: "1"},
		registry,
		PipelineConfig{},
	)

	p.Dispatch(testJob("test-session", path, emitter))
	emitter.expectNone(t)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected utterance file to be removed even when transcription fails")
	}
}

func TestPipeline_InferenceFailureEmitsNoTopics(t *testing.T) {
	registry, _ := testRegistry(t)
	path := writeUtterance(t, registry.TempDir())
	emitter := newRecordingEmitter()

	p := NewPipeline(
		&fakeTranscriber{transcript: "some words"},
		&fakeJudge{err: errors.New("api down")},
		registry,
		PipelineConfig{},
	)

	p.Dispatch(testJob("test-session", path, emitter))

	first := emitter.wait(t)
	if first.kind != EventTranscript {
		t.Errorf("Expected transcript event first, got %+v", first)
	}
	second := emitter.wait(t)
	if second.kind != EventVerdict || second.payload != "!" {
		t.Errorf("Expected no-topics verdict on inference failure, got %+v", second)
	}
}

func TestPipeline_SessionGoneDropsEvents(t *testing.T) {
	registry, _ := testRegistry(t)
	path := writeUtterance(t, registry.TempDir())
	emitter := newRecordingEmitter()

	transcribed := make(chan struct{})
	p := NewPipeline(
		&blockingTranscriber{transcript: "hello there", release: transcribed},
		&fakeJudge{verdict: "1"},
		registry,
		PipelineConfig{},
	)

	p.Dispatch(testJob("test-session", path, emitter))

	// Tear the session down while transcription is in flight.
	registry.Remove("test-session")
	close(transcribed)

	emitter.expectNone(t)
}

type blockingTranscriber struct {
	transcript string
	release    chan struct{}
}

func (b *blockingTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	<-b.release
	return b.transcript, nil
}

func TestPipeline_MaxInflightSerializesDispatches(t *testing.T) {
	registry, _ := testRegistry(t)
	emitter := newRecordingEmitter()

	var mu sync.Mutex
	inflight, maxSeen := 0, 0
	tr := &countingTranscriber{
		onCall: func() {
			mu.Lock()
			inflight++
			if inflight > maxSeen {
				maxSeen = inflight
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			inflight--
			mu.Unlock()
		},
	}

	p := NewPipeline(tr, &fakeJudge{verdict: "1"}, registry, PipelineConfig{MaxInflight: 1})

	const jobs = 4
	for i := 0; i < jobs; i++ {
		path := filepath.Join(registry.TempDir(), fmt.Sprintf("test-session-%d.wav", i))
		if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		p.Dispatch(testJob("test-session", path, emitter))
	}

	for i := 0; i < jobs*2; i++ {
		emitter.wait(t)
	}

	mu.Lock()
	defer mu.Unlock()
	if maxSeen != 1 {
		t.Errorf("Expected at most 1 concurrent transcription, saw %d", maxSeen)
	}
}

type countingTranscriber struct {
	onCall func()
}

func (c *countingTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	c.onCall()
	return "some words", nil
}

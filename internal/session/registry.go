package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/presentio/coverage-gateway/internal/observability"
)

// Registry tracks live sessions and owns the temp directory where utterance
// files are staged. Removal deletes a session's leftover audio artifacts.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	tempDir  string
	logger   zerolog.Logger
}

// NewRegistry creates a registry and ensures the temp directory exists
func NewRegistry(tempDir string) (*Registry, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("registry: create temp dir: %w", err)
	}
	return &Registry{
		sessions: make(map[string]*Session),
		tempDir:  tempDir,
		logger:   observability.GetLogger().With().Str("component", "registry").Logger(),
	}, nil
}

// TempDir returns the staging directory for utterance files.
func (r *Registry) TempDir() string {
	return r.tempDir
}

// Sweep deletes every file in the temp directory. Called once at startup so
// artifacts orphaned by a previous crash do not accumulate.
func (r *Registry) Sweep() error {
	entries, err := os.ReadDir(r.tempDir)
	if err != nil {
		return fmt.Errorf("registry: sweep temp dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(r.tempDir, entry.Name())
		if err := os.Remove(path); err != nil {
			r.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove stale artifact")
			continue
		}
		removed++
	}

	if removed > 0 {
		r.logger.Info().Int("removed", removed).Msg("Swept stale utterance artifacts")
	}
	return nil
}

// Add registers a session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	observability.RecordSessionStart()
	r.logger.Info().Str("session_id", s.ID).Msg("Session registered")
}

// Get returns the session with the given id, or nil if it is gone. Dispatch
// goroutines use this to check liveness before emitting events.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Remove tears down a session: unregisters it, closes it (discarding any
// in-progress utterance), and deletes the session's remaining audio files.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return
	}

	if err := s.Close(); err != nil {
		r.logger.Warn().Err(err).Str("session_id", id).Msg("Error closing session")
	}

	r.removeArtifacts(id)
	observability.RecordSessionEnd(s.Duration())
	r.logger.Info().
		Str("session_id", id).
		Dur("duration", s.Duration()).
		Msg("Session removed")
}

// removeArtifacts deletes every temp file belonging to the session. Utterance
// paths are prefixed with the session id, so a glob catches files whose
// dispatch never got far enough to unlink them.
func (r *Registry) removeArtifacts(id string) {
	matches, err := filepath.Glob(filepath.Join(r.tempDir, id+"-*"))
	if err != nil {
		r.logger.Warn().Err(err).Str("session_id", id).Msg("Artifact glob failed")
		return
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove artifact")
		}
	}
}

package gateway

import (
	"encoding/base64"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/presentio/coverage-gateway/internal/audio"
	"github.com/presentio/coverage-gateway/internal/config"
	"github.com/presentio/coverage-gateway/internal/observability"
	"github.com/presentio/coverage-gateway/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Clients are native capture apps, not browsers; origin checks
		// do not apply.
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Handler accepts WebSocket connections on the audio-stream endpoint and runs
// the per-connection ingest loop.
type Handler struct {
	cfg      *config.Config
	registry *session.Registry
	pipeline *Pipeline
	segCfg   *audio.SegmenterConfig
}

// NewHandler creates the stream endpoint handler
func NewHandler(cfg *config.Config, registry *session.Registry, pipeline *Pipeline) *Handler {
	return &Handler{
		cfg:      cfg,
		registry: registry,
		pipeline: pipeline,
		segCfg: &audio.SegmenterConfig{
			AmplitudeThreshold:       cfg.AmplitudeThreshold,
			MinSpeechFrames:          cfg.MinSpeechFrames,
			ShortSilenceFrames:       cfg.ShortSilenceFrames,
			EstablishedSilenceFrames: cfg.EstablishedSilenceFrames,
			DiscardRatio:             cfg.SilenceDiscardRatio,
		},
	}
}

// connEmitter serializes writes to one WebSocket connection. gorilla/websocket
// allows at most one concurrent writer, and dispatch goroutines emit
// concurrently with the read loop's READY acknowledgement.
type connEmitter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (e *connEmitter) Emit(kind int, payload string, beganAt int64) error {
	data, err := encodeEvent(kind, payload, beganAt)
	if err != nil {
		return err
	}
	return e.write(websocket.TextMessage, data)
}

func (e *connEmitter) write(messageType int, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn.WriteMessage(messageType, data)
}

// ServeWS is the HTTP entry point for audio stream connections.
func (h *Handler) ServeWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log := observability.GetLogger()
			log.Error().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		id := uuid.New().String()
		logger := observability.WithSession(id)
		sess := session.NewSession(id, h.segCfg)
		h.registry.Add(sess)

		logger.Info().Str("remote", r.RemoteAddr).Msg("Connection established")

		defer func() {
			h.registry.Remove(id)
			h.pipeline.ReleaseSession(id)
			conn.Close()
			logger.Info().Dur("duration", sess.Duration()).Msg("Connection closed")
		}()

		h.readLoop(conn, sess, &connEmitter{conn: conn}, logger)
	}
}

// readLoop consumes client messages until the connection drops.
func (h *Handler) readLoop(conn *websocket.Conn, sess *session.Session, emitter *connEmitter, logger zerolog.Logger) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		if sess.State() == session.StateAwaitingTopics {
			h.handleTopics(messageType, data, sess, emitter, logger)
			continue
		}

		frame, ok := h.frameBytes(messageType, data, logger)
		if !ok {
			continue
		}
		h.handleFrame(frame, sess, emitter, logger)
	}
}

// handleTopics processes the client's opening message. Anything but a valid
// JSON topic array is dropped; the client can retry.
func (h *Handler) handleTopics(messageType int, data []byte, sess *session.Session, emitter *connEmitter, logger zerolog.Logger) {
	if messageType != websocket.TextMessage {
		logger.Debug().Msg("Dropping audio frame received before topics")
		return
	}

	topics, err := decodeTopics(data)
	if err != nil {
		logger.Warn().Err(err).Msg("Malformed topic list")
		return
	}
	if err := sess.SetTopics(topics); err != nil {
		logger.Warn().Err(err).Msg("Rejected topic list")
		return
	}

	if err := emitter.write(websocket.TextMessage, []byte(readyMessage)); err != nil {
		logger.Warn().Err(err).Msg("Failed to send ready acknowledgement")
		return
	}

	logger.Info().Int("topics", len(topics)).Msg("Session ready")
}

// frameBytes extracts raw PCM from an audio message. Binary messages carry
// PCM directly; text messages carry it base64-encoded.
func (h *Handler) frameBytes(messageType int, data []byte, logger zerolog.Logger) ([]byte, bool) {
	if messageType == websocket.BinaryMessage {
		return data, true
	}

	decoded, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to decode base64 audio frame")
		return nil, false
	}
	return decoded, true
}

// handleFrame runs one PCM frame through the segmenter and carries out its
// decision.
func (h *Handler) handleFrame(frame []byte, sess *session.Session, emitter *connEmitter, logger zerolog.Logger) {
	samples, err := audio.DecodePCM16(frame)
	if err != nil {
		logger.Warn().Err(err).Int("bytes", len(frame)).Msg("Dropping malformed audio frame")
		return
	}
	observability.RecordAudioBytes(len(frame))

	segmenter := sess.Segmenter()
	switch segmenter.Process(samples) {
	case audio.ActionOpen:
		buf, err := audio.NewUtteranceBuffer(h.registry.TempDir(), sess.ID, h.cfg.SampleRate)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to open utterance buffer")
			segmenter.Reset()
			return
		}
		sess.SetBuffer(buf)
		h.writeFrame(buf, frame, sess, segmenter, logger)

	case audio.ActionExtend:
		if buf := sess.Buffer(); buf != nil {
			h.writeFrame(buf, frame, sess, segmenter, logger)
		}

	case audio.ActionFinalize:
		h.finalize(frame, sess, emitter, logger)

	case audio.ActionDiscard:
		h.discard(sess, logger)
	}
}

// finalize writes the closing silence frame as trailing context, seals the
// WAV file, and hands it to the dispatch pipeline.
func (h *Handler) finalize(frame []byte, sess *session.Session, emitter *connEmitter, logger zerolog.Logger) {
	buf := sess.ClearBuffer()
	if buf == nil {
		return
	}

	if err := buf.WriteFrame(frame); err != nil {
		logger.Error().Err(err).Msg("Failed to write trailing frame")
	}

	path, err := buf.Finalize()
	if err != nil {
		observability.RecordUtterance("failed")
		logger.Error().Err(err).Msg("Failed to finalize utterance")
		return
	}

	observability.RecordUtterance("finalized")
	logger.Debug().Str("path", path).Msg("Utterance finalized")

	h.pipeline.Dispatch(Job{
		SessionID: sess.ID,
		AudioPath: path,
		BeganAt:   buf.BeganAt.UnixMilli(),
		Topics:    sess.Topics(),
		Emitter:   emitter,
	})
}

// discard drops a silence-dominated utterance without dispatching.
func (h *Handler) discard(sess *session.Session, logger zerolog.Logger) {
	buf := sess.ClearBuffer()
	if buf == nil {
		return
	}

	if err := buf.Discard(); err != nil {
		logger.Warn().Err(err).Msg("Failed to discard utterance")
	}
	observability.RecordUtterance("discarded")
	logger.Debug().Msg("Utterance discarded")
}

func (h *Handler) writeFrame(buf *audio.UtteranceBuffer, frame []byte, sess *session.Session, segmenter *audio.Segmenter, logger zerolog.Logger) {
	if err := buf.WriteFrame(frame); err != nil {
		logger.Error().Err(err).Msg("Failed to write audio frame")
		sess.ClearBuffer()
		buf.Discard()
		segmenter.Reset()
	}
}

package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the coverage gateway service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Directory for in-progress utterance recordings. Swept clean at startup;
	// files are namespaced by session id so concurrent sessions never collide.
	TempDir string `envconfig:"TEMP_DIR" default:"temp"`

	// Audio format expected from clients (16-bit signed PCM, mono, little-endian)
	SampleRate int `envconfig:"SAMPLE_RATE" default:"16000"`

	// Segmentation policy. A frame is speech when its normalized peak amplitude
	// strictly exceeds AmplitudeThreshold; a peak of exactly the threshold is silence.
	AmplitudeThreshold       float64 `envconfig:"AMPLITUDE_THRESHOLD" default:"0.1"`
	MinSpeechFrames          int     `envconfig:"MIN_SPEECH_FRAMES" default:"2"`          // Utterances with fewer speech frames are "short"
	ShortSilenceFrames       int     `envconfig:"SHORT_SILENCE_FRAMES" default:"10"`      // Silence frames needed to close a short utterance
	EstablishedSilenceFrames int     `envconfig:"ESTABLISHED_SILENCE_FRAMES" default:"1"` // Silence frames needed to close an established utterance
	SilenceDiscardRatio      int     `envconfig:"SILENCE_DISCARD_RATIO" default:"10"`     // Discard when silence >= speech * ratio at close time

	// Transcription backend: "whisper-cli" (local subprocess) or "openai" (hosted API)
	TranscriberBackend string `envconfig:"TRANSCRIBER_BACKEND" default:"whisper-cli"`
	WhisperBin         string `envconfig:"WHISPER_BIN" default:"whisper/build/bin/whisper-cli"`
	WhisperModel       string `envconfig:"WHISPER_MODEL" default:"whisper/models/ggml-base.en.bin"`
	TranscriptionModel string `envconfig:"TRANSCRIPTION_MODEL" default:"whisper-1"` // OpenAI model for the "openai" backend

	// Topic-completion inference configuration
	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY" required:"true"`
	InferenceModel string `envconfig:"INFERENCE_MODEL" default:"gpt-4o-mini"`

	// Character the speech engine is known to emit on noise input; transcripts
	// containing it are dropped
	HallucinationMarker string `envconfig:"HALLUCINATION_MARKER" default:"*"`

	// Bounds on external calls. Zero disables the bound.
	ExternalCallTimeout   time.Duration `envconfig:"EXTERNAL_CALL_TIMEOUT" default:"0"`
	MaxInflightDispatches int           `envconfig:"MAX_INFLIGHT_DISPATCHES" default:"0"` // Per-session cap on concurrent dispatch pipelines

	// Resilience configuration for the inference service
	RetryMaxAttempts           int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialBackoff        time.Duration `envconfig:"RETRY_INITIAL_BACKOFF" default:"100ms"`
	CircuitBreakerMaxFailures  int           `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`
	CircuitBreakerResetTimeout time.Duration `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30s"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from environment variables.
// It first attempts to load from a .env file if one exists, then from environment.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	switch c.TranscriberBackend {
	case "whisper-cli":
		if c.WhisperBin == "" || c.WhisperModel == "" {
			return fmt.Errorf("WHISPER_BIN and WHISPER_MODEL are required for the whisper-cli backend")
		}
	case "openai":
		if c.TranscriptionModel == "" {
			return fmt.Errorf("TRANSCRIPTION_MODEL is required for the openai backend")
		}
	default:
		return fmt.Errorf("unknown TRANSCRIBER_BACKEND %q (want whisper-cli or openai)", c.TranscriberBackend)
	}
	if c.AmplitudeThreshold < 0 || c.AmplitudeThreshold > 1 {
		return fmt.Errorf("AMPLITUDE_THRESHOLD must be within [0, 1], got %f", c.AmplitudeThreshold)
	}
	if c.MinSpeechFrames < 1 {
		return fmt.Errorf("MIN_SPEECH_FRAMES must be at least 1, got %d", c.MinSpeechFrames)
	}
	if c.ShortSilenceFrames <= 0 || c.EstablishedSilenceFrames <= 0 {
		return fmt.Errorf("silence frame thresholds must be positive")
	}
	if c.SilenceDiscardRatio <= 0 {
		return fmt.Errorf("SILENCE_DISCARD_RATIO must be positive, got %d", c.SilenceDiscardRatio)
	}
	return nil
}

package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	defer os.Unsetenv("OPENAI_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.OpenAIAPIKey != "test-openai-key" {
		t.Errorf("Expected OpenAIAPIKey 'test-openai-key', got '%s'", cfg.OpenAIAPIKey)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("OPENAI_API_KEY")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when OPENAI_API_KEY is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	defer os.Unsetenv("OPENAI_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}

	if cfg.TempDir != "temp" {
		t.Errorf("Expected default TempDir 'temp', got '%s'", cfg.TempDir)
	}

	if cfg.SampleRate != 16000 {
		t.Errorf("Expected default SampleRate 16000, got %d", cfg.SampleRate)
	}

	if cfg.AmplitudeThreshold != 0.1 {
		t.Errorf("Expected default AmplitudeThreshold 0.1, got %f", cfg.AmplitudeThreshold)
	}

	if cfg.MinSpeechFrames != 2 {
		t.Errorf("Expected default MinSpeechFrames 2, got %d", cfg.MinSpeechFrames)
	}

	if cfg.ShortSilenceFrames != 10 {
		t.Errorf("Expected default ShortSilenceFrames 10, got %d", cfg.ShortSilenceFrames)
	}

	if cfg.EstablishedSilenceFrames != 1 {
		t.Errorf("Expected default EstablishedSilenceFrames 1, got %d", cfg.EstablishedSilenceFrames)
	}

	if cfg.SilenceDiscardRatio != 10 {
		t.Errorf("Expected default SilenceDiscardRatio 10, got %d", cfg.SilenceDiscardRatio)
	}

	if cfg.TranscriberBackend != "whisper-cli" {
		t.Errorf("Expected default TranscriberBackend 'whisper-cli', got '%s'", cfg.TranscriberBackend)
	}

	if cfg.InferenceModel != "gpt-4o-mini" {
		t.Errorf("Expected default InferenceModel 'gpt-4o-mini', got '%s'", cfg.InferenceModel)
	}

	if cfg.HallucinationMarker != "*" {
		t.Errorf("Expected default HallucinationMarker '*', got '%s'", cfg.HallucinationMarker)
	}

	if cfg.ExternalCallTimeout != 0 {
		t.Errorf("Expected default ExternalCallTimeout 0, got %v", cfg.ExternalCallTimeout)
	}

	if cfg.MaxInflightDispatches != 0 {
		t.Errorf("Expected default MaxInflightDispatches 0, got %d", cfg.MaxInflightDispatches)
	}

	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("Expected default RetryMaxAttempts 3, got %d", cfg.RetryMaxAttempts)
	}

	if cfg.RetryInitialBackoff != 100*time.Millisecond {
		t.Errorf("Expected default RetryInitialBackoff 100ms, got %v", cfg.RetryInitialBackoff)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	os.Setenv("TRANSCRIBER_BACKEND", "vosk")
	defer os.Unsetenv("OPENAI_API_KEY")
	defer os.Unsetenv("TRANSCRIBER_BACKEND")

	_, err := Load()
	if err == nil {
		t.Error("Expected error for unknown transcriber backend")
	}
}

func TestLoad_InvalidThreshold(t *testing.T) {
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	os.Setenv("AMPLITUDE_THRESHOLD", "1.5")
	defer os.Unsetenv("OPENAI_API_KEY")
	defer os.Unsetenv("AMPLITUDE_THRESHOLD")

	_, err := Load()
	if err == nil {
		t.Error("Expected error for amplitude threshold outside [0, 1]")
	}
}

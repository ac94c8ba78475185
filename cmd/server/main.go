package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/presentio/coverage-gateway/internal/config"
	"github.com/presentio/coverage-gateway/internal/gateway"
	"github.com/presentio/coverage-gateway/internal/inference"
	"github.com/presentio/coverage-gateway/internal/observability"
	"github.com/presentio/coverage-gateway/internal/session"
	"github.com/presentio/coverage-gateway/internal/stt"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("transcriber", cfg.TranscriberBackend).
		Str("inference_model", cfg.InferenceModel).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Coverage Gateway Service starting")

	// Session registry owns the utterance staging directory; clear out
	// anything a previous run left behind.
	registry, err := session.NewRegistry(cfg.TempDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create session registry")
	}
	if err := registry.Sweep(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to sweep temp directory")
	}

	transcriber, err := buildTranscriber(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create transcriber")
	}

	judge, err := inference.NewJudge(inference.JudgeConfig{
		APIKey:              cfg.OpenAIAPIKey,
		Model:               cfg.InferenceModel,
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: cfg.RetryInitialBackoff,
		BreakerMaxFailures:  cfg.CircuitBreakerMaxFailures,
		BreakerResetTimeout: cfg.CircuitBreakerResetTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create inference client")
	}

	pipeline := gateway.NewPipeline(transcriber, judge, registry, gateway.PipelineConfig{
		CallTimeout:         cfg.ExternalCallTimeout,
		HallucinationMarker: cfg.HallucinationMarker,
		MaxInflight:         cfg.MaxInflightDispatches,
	})
	handler := gateway.NewHandler(cfg, registry, pipeline)

	mux := http.NewServeMux()

	// Audio stream WebSocket endpoint
	mux.HandleFunc("/streams/audio", handler.ServeWS())

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness endpoint
	checks := map[string]observability.HealthCheckFunc{
		"inference": func(ctx context.Context) (bool, error) {
			// Config-level check only; no API call to avoid costs
			if cfg.OpenAIAPIKey == "" {
				return false, fmt.Errorf("OpenAI API key not configured")
			}
			return true, nil
		},
	}
	if cfg.TranscriberBackend == "whisper-cli" {
		checks["transcriber"] = func(ctx context.Context) (bool, error) {
			if _, err := exec.LookPath(cfg.WhisperBin); err != nil {
				return false, fmt.Errorf("whisper binary not found: %w", err)
			}
			if _, err := os.Stat(cfg.WhisperModel); err != nil {
				return false, fmt.Errorf("whisper model not found: %w", err)
			}
			return true, nil
		}
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts. WriteTimeout is left unset because
	// WebSocket connections outlive any fixed response deadline.
	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     mux,
		ReadTimeout: 0,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/streams/audio", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}

// buildTranscriber selects the transcription backend from configuration.
func buildTranscriber(cfg *config.Config) (stt.Transcriber, error) {
	switch cfg.TranscriberBackend {
	case "whisper-cli":
		return stt.NewWhisperCLI(cfg.WhisperBin, cfg.WhisperModel)
	case "openai":
		return stt.NewOpenAITranscriber(cfg.OpenAIAPIKey, cfg.TranscriptionModel)
	default:
		return nil, fmt.Errorf("unknown transcriber backend %q", cfg.TranscriberBackend)
	}
}

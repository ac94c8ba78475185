package inference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"

	"github.com/presentio/coverage-gateway/internal/observability"
	"github.com/presentio/coverage-gateway/internal/resilience"
)

// TopicJudge decides which topics a transcript fragment fully covers.
// Evaluate returns a verdict string: space-separated topic numbers, or
// NoTopics when nothing is covered.
type TopicJudge interface {
	Evaluate(ctx context.Context, transcript string, topics []string) (string, error)
}

// Judge is the OpenAI-backed TopicJudge.
type Judge struct {
	client  openai.Client
	model   string
	breaker *resilience.CircuitBreaker
	retry   *resilience.RetryConfig
	logger  zerolog.Logger
}

// JudgeConfig holds the knobs for constructing a Judge.
type JudgeConfig struct {
	APIKey              string
	Model               string
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration
}

// NewJudge creates an OpenAI-backed topic judge
func NewJudge(cfg JudgeConfig) (*Judge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("inference: API key must not be empty")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("inference: model must not be empty")
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.RetryMaxAttempts > 0 {
		retry.MaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryInitialBackoff > 0 {
		retry.InitialBackoff = cfg.RetryInitialBackoff
	}

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	resetTimeout := cfg.BreakerResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}

	return &Judge{
		client:  openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:   cfg.Model,
		breaker: resilience.NewCircuitBreaker("inference", maxFailures, resetTimeout),
		retry:   retry,
		logger:  observability.GetLogger().With().Str("component", "inference").Logger(),
	}, nil
}

// Evaluate implements TopicJudge. The raw model response is sanitized before
// being returned, so callers always receive a well-formed verdict on success.
func (j *Judge) Evaluate(ctx context.Context, transcript string, topics []string) (string, error) {
	start := time.Now()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(j.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(BuildPrompt(topics)),
			openai.UserMessage(transcript),
		},
		MaxCompletionTokens: param.NewOpt(int64(len(topics) * 2)),
	}

	var raw string
	err := j.breaker.Do(func() error {
		return resilience.Retry(ctx, j.retry, func(ctx context.Context) error {
			resp, err := j.client.Chat.Completions.New(ctx, params)
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("inference: empty completion response")
			}
			raw = resp.Choices[0].Message.Content
			return nil
		})
	})

	observability.RecordInference(err == nil, time.Since(start))
	if err != nil {
		j.logger.Error().Err(err).Msg("Topic evaluation failed")
		return "", fmt.Errorf("inference: %w", err)
	}

	verdict := SanitizeVerdict(strings.TrimSpace(raw))
	j.logger.Debug().
		Str("verdict", verdict).
		Dur("latency", time.Since(start)).
		Msg("Topic evaluation complete")

	return verdict, nil
}

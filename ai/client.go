package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cppla/qabbs/config"
)

var (
	ErrDisabled      = errors.New("ai suggestions are disabled")
	ErrRateLimited   = errors.New("ai request budget exhausted")
	ErrEmptyResponse = errors.New("ai returned an empty completion")
)

const suggestionPrompt = `Suggest a well-formed question based on: "%s". If it's incomplete, predict the full question.`

// Client completes partial questions through an OpenAI compatible chat API.
type Client struct {
	client  *openai.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a Client from configuration. It returns ErrDisabled when
// suggestions are switched off or no API key is configured.
func NewClient(cfg config.AppConfig, logger *zap.Logger) (*Client, error) {
	if !cfg.AIEnabled || cfg.AIAPIKey == "" {
		return nil, ErrDisabled
	}
	logger = logger.Named("ai_client")

	timeout := time.Duration(cfg.AITimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.AIAPIKey),
		option.WithBaseURL(cfg.AIBaseURL),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0),
	)

	settings := gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	rpm := cfg.AIRequestsPerMin
	if rpm <= 0 {
		rpm = 30
	}

	return &Client{
		client:  &client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		model:   cfg.AIModel,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// SuggestQuestion asks the model for a complete, well-formed question.
func (c *Client) SuggestQuestion(ctx context.Context, header string) (string, error) {
	if !c.limiter.Allow() {
		return "", ErrRateLimited
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf(suggestionPrompt, header)),
		},
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		if !errors.Is(err, gobreaker.ErrOpenState) {
			c.logger.Warn("Failed to make request", zap.Error(err), zap.String("model", c.model))
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	resp, ok := result.(*openai.ChatCompletion)
	if !ok || resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

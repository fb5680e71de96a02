// Package generate calls the text-generation API that writes practice
// content.
package generate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/conorfennell/spreadcard/internal/domain"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4-turbo"
	// DefaultBaseURL is the OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout bounds one generation round-trip.
	DefaultTimeout = 60 * time.Second
)

// Options configures an OpenAI generator.
type Options struct {
	APIKey            string
	Model             string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	Logger            *zap.Logger
}

// OpenAI generates practice content with the chat completions API.
// Each call is a single blocking request; failures are not retried.
type OpenAI struct {
	client  openai.Client
	model   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewOpenAI creates a generator. It fails with ErrMissingCredential when
// no API key is set.
func NewOpenAI(opts Options) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, domain.ErrMissingCredential
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RequestsPerMinute))
	}

	client := openai.NewClient(
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(opts.BaseURL),
		option.WithHTTPClient(&http.Client{Timeout: opts.Timeout}),
		option.WithMaxRetries(0),
	)

	return &OpenAI{
		client:  client,
		model:   opts.Model,
		limiter: rate.NewLimiter(limit, 1),
		logger:  opts.Logger,
	}, nil
}

// Generate sends prompt as a single user message and returns the first
// choice's text. Every failure is wrapped in ErrTransport.
func (g *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: wait for rate limit: %v", domain.ErrTransport, err)
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	latency := time.Since(start)
	if err != nil {
		g.logger.Warn("generation_request_failed",
			zap.String("model", g.model),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", domain.ErrTransport)
	}

	content := resp.Choices[0].Message.Content
	g.logger.Debug("generation_response",
		zap.String("model", g.model),
		zap.Int("prompt_length", len(prompt)),
		zap.Int("response_length", len(content)),
		zap.Duration("latency", latency),
	)
	return content, nil
}

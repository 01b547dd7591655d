// Package openai implements ports.Provider on any OpenAI-compatible chat
// completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/pkg/ports"
	openaigo "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when neither the request nor the provider names one.
const DefaultModel = openaigo.GPT4oMini

// ErrEmptyResponse is returned when the API answers without content.
var ErrEmptyResponse = errors.New("openai: empty response")

// Provider calls the chat completions endpoint.
type Provider struct {
	client *openaigo.Client
	model  string
	logger *slog.Logger
}

type options struct {
	baseURL    string
	httpClient *http.Client
	model      string
	logger     *slog.Logger
}

// Option configures the Provider.
type Option func(*options)

// WithBaseURL points the client at a compatible server (e.g. ".../v1").
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(o *options) {
		o.model = model
	}
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a provider authenticated with apiKey.
func New(apiKey string, opts ...Option) *Provider {
	o := options{model: DefaultModel, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := openaigo.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	}

	return &Provider{
		client: openaigo.NewClientWithConfig(cfg),
		model:  o.model,
		logger: o.logger,
	}
}

// Generate implements ports.Provider.
func (p *Provider) Generate(ctx context.Context, req ports.GenerationRequest) (ports.GenerationResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	var messages []openaigo.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{
			Role:    openaigo.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	if req.Input != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{
			Role:    openaigo.ChatMessageRoleUser,
			Content: req.Input,
		})
	}

	p.logger.Debug("sending chat completion", "model", model, "system_bytes", len(req.System), "input_bytes", len(req.Input))
	resp, err := p.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return ports.GenerationResponse{}, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return ports.GenerationResponse{}, ErrEmptyResponse
	}

	return ports.GenerationResponse{
		Text:  resp.Choices[0].Message.Content,
		Model: model,
		Usage: ports.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

var _ ports.Provider = (*Provider)(nil)

// Package ollama implements ports.Provider on a local Ollama server.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/pkg/ports"
	"github.com/ollama/ollama/api"
)

// DefaultBaseURL is where Ollama listens by default.
const DefaultBaseURL = "http://localhost:11434"

// ErrEmptyResponse is returned when the server answers without content.
var ErrEmptyResponse = errors.New("ollama: empty response")

// Provider calls the native Ollama chat API without streaming.
type Provider struct {
	client *api.Client
	model  string
	logger *slog.Logger
}

// Option configures the Provider.
type Option func(*Provider)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// New creates a provider for the server at baseURL. A trailing "/v1" is
// dropped since the native API lives at the root.
func New(baseURL, model string, httpClient *http.Client, opts ...Option) (*Provider, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid base url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	p := &Provider{
		client: api.NewClient(parsed, httpClient),
		model:  model,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Generate implements ports.Provider.
func (p *Provider) Generate(ctx context.Context, req ports.GenerationRequest) (ports.GenerationResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	var messages []api.Message
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	if req.Input != "" {
		messages = append(messages, api.Message{Role: "user", Content: req.Input})
	}

	stream := false
	options := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	p.logger.Debug("sending ollama chat", "model", model, "system_bytes", len(req.System), "input_bytes", len(req.Input))
	var resp api.ChatResponse
	err := p.client.Chat(ctx, &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		return ports.GenerationResponse{}, fmt.Errorf("ollama: %w", err)
	}
	if resp.Message.Content == "" {
		return ports.GenerationResponse{}, ErrEmptyResponse
	}

	return ports.GenerationResponse{
		Text:  resp.Message.Content,
		Model: model,
		Usage: ports.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}

var _ ports.Provider = (*Provider)(nil)

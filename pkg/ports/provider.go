package ports

import "context"

// GenerationRequest is the provider-facing request. All fields take part in
// the canonical cache key.
type GenerationRequest struct {
	Model       string  `json:"model"`
	System      string  `json:"system"`
	Input       string  `json:"input"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerationResponse is the raw provider output. Parsing is the caller's job.
type GenerationResponse struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
	Usage Usage  `json:"usage"`
}

// Provider is a language-model backend.
type Provider interface {
	// Generate issues one completion. Implementations must honour ctx
	// cancellation and must not retry on their own.
	Generate(ctx context.Context, req GenerationRequest) (GenerationResponse, error)
}

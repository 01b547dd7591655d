// Package scripted provides a ports.Provider that replays canned replies.
// It backs tests and the offline demo mode of the CLI.
package scripted

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/aretw0/rapport/pkg/ports"
)

// ErrExhausted is returned when no reply is queued and no responder is set.
var ErrExhausted = errors.New("scripted provider has no reply left")

// Reply is one canned provider outcome.
type Reply struct {
	Text string
	Err  error
}

// Responder computes a reply when the queue is empty.
type Responder func(req ports.GenerationRequest) (string, error)

// Provider replays queued replies in order, then falls back to its responder.
// Safe for concurrent use.
type Provider struct {
	mu        sync.Mutex
	queue     []Reply
	responder Responder
	calls     []ports.GenerationRequest
	model     string
}

// New returns a provider that replies with texts in order.
func New(texts ...string) *Provider {
	p := &Provider{model: "scripted"}
	for _, t := range texts {
		p.queue = append(p.queue, Reply{Text: t})
	}
	return p
}

// NewWithResponder returns a provider that answers every request with fn.
func NewWithResponder(fn Responder) *Provider {
	return &Provider{model: "scripted", responder: fn}
}

// Push queues more replies.
func (p *Provider) Push(replies ...Reply) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, replies...)
}

// Calls returns the requests received so far.
func (p *Provider) Calls() []ports.GenerationRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ports.GenerationRequest, len(p.calls))
	copy(out, p.calls)
	return out
}

// Generate implements ports.Provider.
func (p *Provider) Generate(ctx context.Context, req ports.GenerationRequest) (ports.GenerationResponse, error) {
	if err := ctx.Err(); err != nil {
		return ports.GenerationResponse{}, err
	}

	p.mu.Lock()
	p.calls = append(p.calls, req)
	var (
		r  Reply
		ok bool
	)
	if len(p.queue) > 0 {
		r, p.queue, ok = p.queue[0], p.queue[1:], true
	}
	responder := p.responder
	p.mu.Unlock()

	if !ok {
		if responder == nil {
			return ports.GenerationResponse{}, ErrExhausted
		}
		r.Text, r.Err = responder(req)
	}
	if r.Err != nil {
		return ports.GenerationResponse{}, r.Err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	prompt := len(strings.Fields(req.System)) + len(strings.Fields(req.Input))
	completion := len(strings.Fields(r.Text))
	return ports.GenerationResponse{
		Text:  r.Text,
		Model: model,
		Usage: ports.Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion},
	}, nil
}

var _ ports.Provider = (*Provider)(nil)

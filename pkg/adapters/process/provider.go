// Package process implements ports.Provider by running a local command.
//
// The command receives the request as JSON on stdin and the scalar settings
// as RAPPORT_GEN_* environment variables. Its stdout is the completion: either
// a JSON object {"text": "...", "model": "...", "usage": {...}} or plain text.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/pkg/ports"
)

// waitDelay bounds how long output pipes are drained after the command is killed.
const waitDelay = time.Second

// ErrEmptyResponse is returned when the command prints nothing.
var ErrEmptyResponse = errors.New("process: empty response")

// ErrNoCommand is returned by New when the command is empty.
var ErrNoCommand = errors.New("process: command is required")

// Provider runs one command per generation request.
type Provider struct {
	command string
	args    []string
	baseDir string
	env     map[string]string
	logger  *slog.Logger
}

// Option configures the Provider.
type Option func(*Provider)

// WithBaseDir sets the working directory of the command.
func WithBaseDir(dir string) Option {
	return func(p *Provider) {
		p.baseDir = dir
	}
}

// WithEnv adds environment variables on top of the inherited environment.
func WithEnv(env map[string]string) Option {
	return func(p *Provider) {
		for k, v := range env {
			p.env[k] = v
		}
	}
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// New creates a Provider running command with args.
func New(command string, args []string, opts ...Option) (*Provider, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrNoCommand
	}
	p := &Provider{
		command: command,
		args:    args,
		env:     make(map[string]string),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// FromConfig creates a Provider from a loaded command config.
func FromConfig(cfg Config, opts ...Option) (*Provider, error) {
	opts = append([]Option{WithBaseDir(cfg.Dir), WithEnv(cfg.Environment)}, opts...)
	return New(cfg.Command, cfg.Args, opts...)
}

// Generate runs the command once. Cancelling ctx kills it.
func (p *Provider) Generate(ctx context.Context, req ports.GenerationRequest) (ports.GenerationResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return ports.GenerationResponse{}, fmt.Errorf("process: failed to encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	cmd.Dir = p.baseDir
	cmd.Stdin = bytes.NewReader(payload)
	cmd.WaitDelay = waitDelay

	// Settings travel as environment variables, never as flags.
	env := cmd.Environ()
	for k, v := range p.env {
		env = append(env, k+"="+v)
	}
	env = append(env,
		"RAPPORT_GEN_MODEL="+req.Model,
		"RAPPORT_GEN_TEMPERATURE="+strconv.FormatFloat(req.Temperature, 'f', -1, 64),
		"RAPPORT_GEN_MAX_TOKENS="+strconv.Itoa(req.MaxTokens),
	)
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logger.Debug("running generation command", "command", p.command, "model", req.Model)
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ports.GenerationResponse{}, ctxErr
		}
		return ports.GenerationResponse{}, fmt.Errorf("process: %s failed: %w: %s", p.command, err, strings.TrimSpace(stderr.String()))
	}

	return parseOutput(stdout.Bytes(), req.Model)
}

func parseOutput(out []byte, model string) (ports.GenerationResponse, error) {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return ports.GenerationResponse{}, ErrEmptyResponse
	}

	// A JSON envelope is detected by its "text" field; any other output,
	// including JSON the model produced itself, is the completion verbatim.
	if strings.HasPrefix(trimmed, "{") {
		var envelope struct {
			Text  *string     `json:"text"`
			Model string      `json:"model"`
			Usage ports.Usage `json:"usage"`
		}
		if err := json.Unmarshal([]byte(trimmed), &envelope); err == nil && envelope.Text != nil {
			if strings.TrimSpace(*envelope.Text) == "" {
				return ports.GenerationResponse{}, ErrEmptyResponse
			}
			if envelope.Model == "" {
				envelope.Model = model
			}
			return ports.GenerationResponse{Text: *envelope.Text, Model: envelope.Model, Usage: envelope.Usage}, nil
		}
	}
	return ports.GenerationResponse{Text: trimmed, Model: model}, nil
}

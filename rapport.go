package rapport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/rapport/internal/compiler"
	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/internal/runtime"
	"github.com/aretw0/rapport/internal/validator"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/generation"
	"github.com/aretw0/rapport/pkg/ports"
)

type (
	// Graph is a compiled, immutable dialogue graph.
	Graph = compiler.Graph
	// Machine is one static playthrough of a Graph.
	Machine = runtime.Machine
	// Orchestrator is one generated conversation.
	Orchestrator = runtime.Orchestrator
	// ConversationConfig describes a generated conversation.
	ConversationConfig = runtime.Config
	// PhasePolicy holds the fallback phase thresholds.
	PhasePolicy = runtime.PhasePolicy
	// GenerationParams are the model settings of a conversation.
	GenerationParams = runtime.GenerationParams
	// Snapshot is a read-only view of an Orchestrator.
	Snapshot = runtime.Snapshot
	// PlayOption configures a Machine or an Orchestrator.
	PlayOption = runtime.Option
)

// Version is the library and CLI version.
var Version = "0.1.0"

// DefaultGenerationParams are the sampling settings used when a
// ConversationConfig leaves Params empty.
var DefaultGenerationParams = runtime.DefaultGenerationParams

// DefaultPhasePolicy advances to main_topic after 3 exchanges and to wrap_up after 3 more.
var DefaultPhasePolicy = runtime.DefaultPhasePolicy

// ErrNoGraph is returned when a playthrough is requested from an engine without a graph.
var ErrNoGraph = errors.New("engine has no dialogue graph")

// ErrNoGenerator is returned when a conversation is requested from an engine without a generation client.
var ErrNoGenerator = errors.New("engine has no generation client")

// CompileStepGraph validates steps and builds the transition table rooted at rootID.
func CompileStepGraph(steps []domain.Step, rootID string) (*Graph, error) {
	return compiler.Compile(steps, rootID)
}

// LoadStepGraph reads steps from loader and compiles them.
func LoadStepGraph(loader ports.StepLoader) (*Graph, error) {
	steps, root, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load steps: %w", err)
	}
	return compiler.Compile(steps, root)
}

// Lint reports problems that do not prevent a graph from running, such as
// unreachable steps or loops with no way out.
func Lint(g *Graph) []string {
	warnings := validator.Lint(g)
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = w.String()
	}
	return out
}

// NewStaticMachine starts a playthrough of g at its root.
func NewStaticMachine(ctx context.Context, g *Graph, opts ...PlayOption) (*Machine, error) {
	return runtime.NewMachine(ctx, g, opts...)
}

// NewOrchestrator creates an idle generated conversation.
func NewOrchestrator(gen runtime.Generator, cfg ConversationConfig, opts ...PlayOption) *Orchestrator {
	return runtime.NewOrchestrator(gen, cfg, opts...)
}

// NewGenerationClient wraps provider with the response cache and rate limiter.
func NewGenerationClient(provider ports.Provider, opts ...generation.Option) *generation.Client {
	return generation.NewClient(provider, opts...)
}

// Play-time options re-exported from the runtime.
var (
	WithSessionID   = runtime.WithSessionID
	WithPlayHooks   = runtime.WithLifecycleHooks
	WithPlayLogger  = runtime.WithLogger
	WithPlayStore   = runtime.WithResultStore
	WithPlayClock   = runtime.WithClock
	WithIDGenerator = runtime.WithIDGenerator
)

// Engine is the high-level entry point for the Rapport library.
// It holds what playthroughs share: the compiled graph, the generation
// client, the result store, hooks and the logger.
type Engine struct {
	graph  *Graph
	loader ports.StepLoader
	client *generation.Client
	store  ports.ResultStore
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	Name   string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks on every playthrough.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLoader loads and compiles the dialogue graph when the engine is built.
func WithLoader(l ports.StepLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithGraph sets an already compiled graph.
func WithGraph(g *Graph) Option {
	return func(e *Engine) {
		e.graph = g
	}
}

// WithGenerationClient sets the client shared by every conversation.
func WithGenerationClient(c *generation.Client) Option {
	return func(e *Engine) {
		e.client = c
	}
}

// WithResultStore persists every finished playthrough.
func WithResultStore(s ports.ResultStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New builds an Engine. name labels logs and is usually the graph file name.
func New(name string, opts ...Option) (*Engine, error) {
	eng := &Engine{Name: name}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("graph", eng.Name)
	}

	if eng.graph == nil && eng.loader != nil {
		g, err := LoadStepGraph(eng.loader)
		if err != nil {
			return nil, err
		}
		eng.graph = g
	}
	return eng, nil
}

// Graph returns the compiled graph, or nil.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// Client returns the generation client, or nil.
func (e *Engine) Client() *generation.Client {
	return e.client
}

// Store returns the result store, or nil.
func (e *Engine) Store() ports.ResultStore {
	return e.store
}

// Play starts a static playthrough of the engine graph.
func (e *Engine) Play(ctx context.Context, sessionID string, opts ...PlayOption) (*Machine, error) {
	if e.graph == nil {
		return nil, ErrNoGraph
	}
	return runtime.NewMachine(ctx, e.graph, e.playOptions(sessionID, opts)...)
}

// Converse creates a generated conversation. When hybrid is true the engine
// graph seeds persona, scenario and story beats.
func (e *Engine) Converse(sessionID string, cfg ConversationConfig, hybrid bool, opts ...PlayOption) (*Orchestrator, error) {
	if e.client == nil {
		return nil, ErrNoGenerator
	}
	if hybrid {
		if e.graph == nil {
			return nil, ErrNoGraph
		}
		cfg.Graph = e.graph
	}
	return runtime.NewOrchestrator(e.client, cfg, e.playOptions(sessionID, opts)...), nil
}

func (e *Engine) playOptions(sessionID string, extra []PlayOption) []PlayOption {
	opts := []PlayOption{
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger),
	}
	if sessionID != "" {
		opts = append(opts, runtime.WithSessionID(sessionID))
	}
	if e.store != nil {
		opts = append(opts, runtime.WithResultStore(e.store))
	}
	return append(opts, extra...)
}

// Close releases the generation client.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

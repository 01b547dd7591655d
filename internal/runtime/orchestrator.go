package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/rapport/internal/compiler"
	"github.com/aretw0/rapport/internal/sanitize"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/generation"
	"github.com/aretw0/rapport/pkg/score"
)

// Generator is the slice of generation.Client the orchestrator needs.
type Generator interface {
	Request(ctx context.Context, req generation.Request) (generation.Response, error)
}

// Config describes one generated conversation.
type Config struct {
	Persona  domain.Persona
	Scenario domain.Scenario
	Profile  domain.UserProfile

	// Policy is DefaultPhasePolicy when zero.
	Policy PhasePolicy
	// Params is DefaultGenerationParams when zero.
	Params GenerationParams

	// Graph switches to hybrid mode: persona and scenario fall back to the
	// root step metadata and authored actor lines are offered as story beats.
	Graph *compiler.Graph

	// MaxInputSize bounds user input in bytes (sanitize.DefaultMaxInputSize when zero).
	MaxInputSize int
}

// maxOutlineBeats caps how many authored lines a hybrid prompt carries.
const maxOutlineBeats = 12

type opKind int

const (
	opStart opKind = iota + 1
	opSubmit
)

// pendingOp is the operation in flight, kept after a failure so Retry can
// resume from the stage that failed.
type pendingOp struct {
	kind     opKind
	userTurn int
	userText string
	analyzed bool
	decided  bool
}

// Orchestrator runs one generated conversation. It is safe for concurrent
// use, but operations do not queue: a call made while another is in flight
// fails with domain.ErrOperationInProgress.
type Orchestrator struct {
	settings
	gen       Generator
	persona   domain.Persona
	scenario  domain.Scenario
	profile   domain.UserProfile
	outline   []string
	policy    PhasePolicy
	params    GenerationParams
	sanitizer sanitize.Sanitizer

	mu             sync.Mutex
	phase          domain.Phase
	activity       domain.Activity
	transcript     *domain.Transcript
	agg            *score.Aggregator
	analyzed       int
	phaseExchanges int
	modelSignal    bool
	pending        *pendingOp
	lastErr        error
	result         *domain.Result
	queued         []func(context.Context)
}

// NewOrchestrator creates an idle conversation in the introduction phase.
func NewOrchestrator(gen Generator, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		settings:   buildSettings(opts),
		gen:        gen,
		persona:    cfg.Persona,
		scenario:   cfg.Scenario,
		profile:    cfg.Profile,
		policy:     cfg.Policy,
		params:     cfg.Params,
		sanitizer:  sanitize.New(cfg.MaxInputSize),
		phase:      domain.PhaseIntroduction,
		activity:   domain.ActivityIdle,
		transcript: domain.NewTranscript(),
		agg:        score.New(),
	}
	if o.policy == (PhasePolicy{}) {
		o.policy = DefaultPhasePolicy
	}
	if o.params == (GenerationParams{}) {
		o.params = DefaultGenerationParams
	}
	if cfg.Graph != nil {
		o.seedFromGraph(cfg.Graph)
	}
	return o
}

func (o *Orchestrator) seedFromGraph(g *compiler.Graph) {
	root, _ := g.Step(g.Root())
	meta := root.Metadata

	if o.persona.Name == "" {
		o.persona.Name = meta[domain.MetaPersonaName]
	}
	if o.persona.Role == "" {
		o.persona.Role = meta[domain.MetaPersonaRole]
	}
	if o.persona.Personality == "" {
		o.persona.Personality = meta[domain.MetaPersonaPersonality]
	}
	if o.scenario.Title == "" {
		o.scenario.Title = meta[domain.MetaScenarioTitle]
	}
	if o.scenario.Setting == "" {
		o.scenario.Setting = meta[domain.MetaScenarioSetting]
	}
	if o.scenario.Objective == "" {
		o.scenario.Objective = meta[domain.MetaScenarioObjective]
	}
	if o.scenario.Description == "" {
		o.scenario.Description = root.ActorLine
	}

	for _, step := range g.Steps() {
		if len(o.outline) == maxOutlineBeats {
			break
		}
		if line := strings.TrimSpace(step.ActorLine); line != "" {
			o.outline = append(o.outline, line)
		}
	}
}

// Start asks for the opening actor turn.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if err := o.admit(); err != nil {
		o.mu.Unlock()
		return err
	}
	if o.activity != domain.ActivityIdle {
		o.mu.Unlock()
		return fmt.Errorf("%w: dialogue already started", domain.ErrInvalidOperation)
	}
	op := &pendingOp{kind: opStart}
	o.pending = op
	o.setActivity(domain.ActivityGeneratingActorTurn, nil)
	o.release(ctx)

	return o.run(ctx, op)
}

// SubmitUserInput records a free-text reply, has it analyzed and asks for the
// next actor turn.
func (o *Orchestrator) SubmitUserInput(ctx context.Context, text string) error {
	clean, err := o.sanitizer.Clean(text)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidOperation, err)
	}

	o.mu.Lock()
	if err := o.admit(); err != nil {
		o.mu.Unlock()
		return err
	}
	if err := o.expectWaiting(); err != nil {
		o.mu.Unlock()
		return err
	}

	idx := o.appendTurn(domain.ConversationTurn{
		ID:        o.newID(),
		Speaker:   domain.SpeakerUser,
		Content:   clean,
		Timestamp: o.now(),
		Phase:     o.phase,
	})
	op := &pendingOp{kind: opSubmit, userTurn: idx, userText: clean}
	o.pending = op
	o.setActivity(domain.ActivityAnalyzingUserInput, nil)
	o.release(ctx)

	return o.run(ctx, op)
}

// SelectSuggestedResponse submits one of the suggestions offered with the
// last actor turn. An unknown id changes nothing.
func (o *Orchestrator) SelectSuggestedResponse(ctx context.Context, id string) error {
	o.mu.Lock()
	if err := o.admit(); err != nil {
		o.mu.Unlock()
		return err
	}
	if err := o.expectWaiting(); err != nil {
		o.mu.Unlock()
		return err
	}

	var content string
	if last, ok := o.transcript.Last(domain.SpeakerActor); ok {
		for _, s := range last.SuggestedResponses {
			if s.ID == id {
				content = s.Content
				break
			}
		}
	}
	o.mu.Unlock()

	if content == "" {
		return fmt.Errorf("%w: unknown suggested response %q", domain.ErrInvalidOperation, id)
	}
	return o.SubmitUserInput(ctx, content)
}

// EndDialogue completes the conversation whatever it is doing. Responses of
// calls still in flight are discarded when they arrive. Ending an already
// completed dialogue returns the same result.
func (o *Orchestrator) EndDialogue(ctx context.Context) (*domain.Result, error) {
	o.mu.Lock()
	if o.result != nil {
		res := o.result.Clone()
		o.mu.Unlock()
		return res, nil
	}
	res := o.finish()
	o.release(ctx)

	return res, o.publish(ctx, res)
}

// Retry re-issues the operation that failed, resuming at the failed stage.
func (o *Orchestrator) Retry(ctx context.Context) error {
	o.mu.Lock()
	if o.activity == domain.ActivityCompleted {
		o.mu.Unlock()
		return domain.ErrDialogueEnded
	}
	if o.activity != domain.ActivityError || o.pending == nil {
		o.mu.Unlock()
		return fmt.Errorf("%w: nothing to retry", domain.ErrInvalidOperation)
	}

	op := o.pending
	o.lastErr = nil
	switch {
	case op.kind == opSubmit && !op.analyzed:
		o.setActivity(domain.ActivityAnalyzingUserInput, nil)
	default:
		o.setActivity(domain.ActivityGeneratingActorTurn, nil)
	}
	o.logger.Info("retrying operation", "activity", o.activity)
	o.release(ctx)

	return o.run(ctx, op)
}

func (o *Orchestrator) run(ctx context.Context, op *pendingOp) error {
	if op.kind == opSubmit && !op.analyzed {
		if err := o.analyze(ctx, op); err != nil {
			return err
		}
	}
	if op.kind == opSubmit && !op.decided {
		if err := o.decide(ctx, op); err != nil {
			return err
		}
	}
	return o.generateActorTurn(ctx, op)
}

func (o *Orchestrator) analyze(ctx context.Context, op *pendingOp) error {
	o.mu.Lock()
	if o.activity == domain.ActivityCompleted {
		o.mu.Unlock()
		return domain.ErrDialogueEnded
	}
	o.setActivity(domain.ActivityAnalyzingUserInput, nil)
	pc := o.snapshot()
	pc.turns = pc.turns[:op.userTurn]
	o.release(ctx)

	resp, err := o.gen.Request(ctx, analysisRequest(pc, op.userText))

	o.mu.Lock()
	if o.activity == domain.ActivityCompleted {
		o.mu.Unlock()
		o.logger.Debug("discarding analysis after end of dialogue")
		return domain.ErrDialogueEnded
	}
	if err != nil {
		return o.fail(ctx, err)
	}

	payload, perr := parseAnalysisPayload(resp.Text)
	if perr != nil {
		o.logger.Warn("analysis unreadable, using neutral scores", "err", perr)
		payload = fallbackAnalysis()
	}

	o.agg.Apply(payload.Scores)
	o.analyzed++
	o.transcript.Update(op.userTurn, func(t *domain.ConversationTurn) {
		scores := payload.Scores
		analysis := payload.Analysis
		t.Scores = &scores
		t.Analysis = &analysis
	})
	op.analyzed = true
	o.release(ctx)
	return nil
}

func (o *Orchestrator) decide(ctx context.Context, op *pendingOp) error {
	o.mu.Lock()
	if o.activity == domain.ActivityCompleted {
		o.mu.Unlock()
		return domain.ErrDialogueEnded
	}
	o.setActivity(domain.ActivityDecidingPhase, nil)
	if !o.modelSignal {
		if next := o.policy.Fallback(o.phase, o.phaseExchanges); next != o.phase {
			o.setPhase(next)
		}
	}
	op.decided = true
	o.release(ctx)
	return nil
}

func (o *Orchestrator) generateActorTurn(ctx context.Context, op *pendingOp) error {
	o.mu.Lock()
	if o.activity == domain.ActivityCompleted {
		o.mu.Unlock()
		return domain.ErrDialogueEnded
	}
	o.setActivity(domain.ActivityGeneratingActorTurn, nil)
	pc := o.snapshot()
	o.release(ctx)

	resp, err := o.gen.Request(ctx, actorRequest(pc))

	o.mu.Lock()
	if o.activity == domain.ActivityCompleted {
		o.mu.Unlock()
		o.logger.Debug("discarding actor turn after end of dialogue")
		return domain.ErrDialogueEnded
	}
	if err != nil {
		return o.fail(ctx, err)
	}

	payload, perr := parseActorPayload(resp.Text)
	fallback := perr != nil
	if fallback {
		o.logger.Warn("actor reply unreadable, using fallback turn", "phase", o.phase, "err", perr)
		payload = fallbackActor(o.phase)
	}
	o.modelSignal = !fallback && payload.NextPhase != ""

	o.appendTurn(domain.ConversationTurn{
		ID:                 o.newID(),
		Speaker:            domain.SpeakerActor,
		Content:            payload.Content,
		Timestamp:          o.now(),
		Phase:              o.phase,
		SuggestedResponses: payload.Suggestions,
		Fallback:           fallback,
	})
	if op.kind == opSubmit {
		o.phaseExchanges++
	}
	o.pending = nil

	if payload.Closing {
		o.logger.Info("closing signal received", "phase", o.phase)
		res := o.finish()
		o.release(ctx)
		return o.publish(ctx, res)
	}

	if next, ok := adoptPhase(o.phase, payload.NextPhase); ok {
		o.setPhase(next)
	}
	o.setActivity(domain.ActivityWaitingForUser, nil)
	o.release(ctx)
	return nil
}

// admit rejects operations on completed or busy orchestrators. Caller holds mu.
func (o *Orchestrator) admit() error {
	if o.activity == domain.ActivityCompleted {
		return domain.ErrDialogueEnded
	}
	if o.activity.Busy() {
		return domain.ErrOperationInProgress
	}
	return nil
}

func (o *Orchestrator) expectWaiting() error {
	switch o.activity {
	case domain.ActivityWaitingForUser:
		return nil
	case domain.ActivityIdle:
		return fmt.Errorf("%w: dialogue not started", domain.ErrInvalidOperation)
	case domain.ActivityError:
		return fmt.Errorf("%w: last operation failed, retry it first", domain.ErrInvalidOperation)
	}
	return fmt.Errorf("%w: unexpected activity %s", domain.ErrInvalidOperation, o.activity)
}

// fail records err, moves to the error activity and releases mu.
func (o *Orchestrator) fail(ctx context.Context, err error) error {
	o.lastErr = err
	o.setActivity(domain.ActivityError, err)
	if errors.Is(err, domain.ErrRateLimited) {
		o.logger.Warn("generation rate limited", "activity", o.activity, "err", err)
	} else {
		o.logger.Error("generation failed", "activity", o.activity, "err", err)
	}
	o.release(ctx)
	return err
}

// finish builds the result and completes the dialogue, returning a copy the
// caller may hand out. Caller holds mu.
func (o *Orchestrator) finish() *domain.Result {
	res := &domain.Result{
		SessionID:   o.sessionID,
		Mode:        domain.ModeDynamic,
		Totals:      o.agg.Totals(),
		Percentages: o.agg.Percentage(domain.Uniform(maxTurnScore * o.analyzed)),
		Phase:       domain.PhaseCompleted,
		Transcript:  o.transcript.Turns(),
		CompletedAt: o.now(),
	}
	if o.phase != domain.PhaseCompleted {
		o.setPhase(domain.PhaseCompleted)
	}
	o.setActivity(domain.ActivityCompleted, nil)
	o.pending = nil
	o.result = res
	o.logger.Info("dialogue completed", "exchanges", o.transcript.ExchangeCount(), "total", res.Totals.Total())
	return res.Clone()
}

// publish hands a result to the completion hook and the result store.
func (o *Orchestrator) publish(ctx context.Context, res *domain.Result) error {
	if o.hooks.OnComplete != nil {
		o.hooks.OnComplete(ctx, res)
	}
	if o.store == nil {
		return nil
	}
	if err := o.store.Save(ctx, o.sessionID, res); err != nil {
		o.logger.Error("failed to save result", "err", err)
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (o *Orchestrator) snapshot() promptContext {
	return promptContext{
		persona:  o.persona,
		scenario: o.scenario,
		profile:  o.profile,
		outline:  o.outline,
		phase:    o.phase,
		turns:    o.transcript.Turns(),
		params:   o.params,
	}
}

// setActivity changes the activity and queues the hook. Caller holds mu.
func (o *Orchestrator) setActivity(to domain.Activity, err error) {
	from := o.activity
	if from == to {
		return
	}
	o.activity = to
	o.logger.Debug("activity changed", "from", from, "activity", to)
	if o.hooks.OnActivity != nil {
		ev := &domain.ActivityEvent{EventBase: o.base(domain.EventActivityChange), From: from, To: to, Err: err}
		o.queue(func(ctx context.Context) { o.hooks.OnActivity(ctx, ev) })
	}
}

// setPhase moves the phase forward and resets the per-phase exchange count.
// Caller holds mu.
func (o *Orchestrator) setPhase(to domain.Phase) {
	from := o.phase
	o.phase = to
	o.phaseExchanges = 0
	o.logger.Info("phase changed", "from", from, "phase", to)
	if o.hooks.OnPhase != nil {
		ev := &domain.PhaseEvent{EventBase: o.base(domain.EventPhaseChanged), From: from, To: to}
		o.queue(func(ctx context.Context) { o.hooks.OnPhase(ctx, ev) })
	}
}

func (o *Orchestrator) appendTurn(turn domain.ConversationTurn) int {
	idx := o.transcript.Append(turn)
	if o.hooks.OnTurn != nil {
		ev := &domain.TurnEvent{EventBase: o.base(domain.EventTurnAppended), Turn: turn}
		o.queue(func(ctx context.Context) { o.hooks.OnTurn(ctx, ev) })
	}
	return idx
}

func (o *Orchestrator) queue(fn func(context.Context)) {
	o.queued = append(o.queued, fn)
}

// release unlocks mu and then runs the hooks queued while it was held.
func (o *Orchestrator) release(ctx context.Context) {
	queued := o.queued
	o.queued = nil
	o.mu.Unlock()
	for _, fn := range queued {
		fn(ctx)
	}
}

func (o *Orchestrator) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: o.now(), Type: t, SessionID: o.sessionID}
}

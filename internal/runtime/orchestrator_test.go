package runtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/rapport/internal/compiler"
	"github.com/aretw0/rapport/internal/mocks"
	"github.com/aretw0/rapport/internal/runtime"
	"github.com/aretw0/rapport/pkg/adapters/memory"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type reply struct {
	text string
	err  error
}

// fakeGen replays canned replies in order. When gate is set, every call
// announces itself on entered and waits for gate to be closed.
type fakeGen struct {
	mu      sync.Mutex
	replies []reply
	calls   []generation.Request
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeGen) Request(ctx context.Context, req generation.Request) (generation.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	var r reply
	if len(f.replies) > 0 {
		r, f.replies = f.replies[0], f.replies[1:]
	} else {
		r = reply{text: actorReply("Go on.", "")}
	}
	entered, gate := f.entered, f.gate
	f.mu.Unlock()

	if gate != nil {
		entered <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return generation.Response{}, ctx.Err()
		}
	}
	return generation.Response{Text: r.text}, r.err
}

func (f *fakeGen) push(rs ...reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, rs...)
}

func (f *fakeGen) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func actorReply(content, nextPhase string) string {
	payload := map[string]any{
		"content": content,
		"suggestedResponses": []map[string]any{
			{"id": "a", "content": "Sounds good!", "scores": map[string]int{"clarity": 7}},
			{"id": "b", "content": "Whatever.", "scores": map[string]int{"empathy": 1}},
			{"id": "c", "content": "Can you explain?", "scores": map[string]int{"social_awareness": 6}},
		},
	}
	if nextPhase != "" {
		payload["nextPhase"] = nextPhase
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func analysisReply(v int) string {
	return fmt.Sprintf(`{"scores":{"clarity":%d,"empathy":%d,"assertiveness":%d,"social_awareness":%d,"self_advocacy":%d},"feedback":"Nice.","strengths":["tone"],"improvements":["ask back"]}`, v, v, v, v, v)
}

func newOrchestrator(gen runtime.Generator, opts ...runtime.Option) *runtime.Orchestrator {
	cfg := runtime.Config{
		Persona:  domain.Persona{Name: "Sam", Role: "a new classmate"},
		Scenario: domain.Scenario{Title: "First day at school"},
	}
	return runtime.NewOrchestrator(gen, cfg, opts...)
}

func TestOrchestrator_StartAndSubmit(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{}
	gen.push(
		reply{text: actorReply("Hi, I'm Sam!", "")},
		reply{text: analysisReply(7)},
		reply{text: actorReply("Cool, where are you from?", "")},
	)
	o := newOrchestrator(gen)

	assert.Equal(t, domain.ActivityIdle, o.Activity())
	require.NoError(t, o.Start(ctx))
	assert.Equal(t, domain.ActivityWaitingForUser, o.Activity())
	assert.Len(t, o.Suggestions(), 3)

	require.NoError(t, o.SubmitUserInput(ctx, "  Hi Sam, I'm Alex.  "))
	assert.Equal(t, domain.ActivityWaitingForUser, o.Activity())
	assert.Equal(t, domain.Uniform(7), o.Totals())
	assert.Equal(t, 1, o.Exchanges())

	turns := o.Transcript()
	require.Len(t, turns, 3)
	assert.Equal(t, domain.SpeakerUser, turns[1].Speaker)
	assert.Equal(t, "Hi Sam, I'm Alex.", turns[1].Content)
	require.NotNil(t, turns[1].Scores)
	assert.Equal(t, domain.Uniform(7), *turns[1].Scores)
	require.NotNil(t, turns[1].Analysis)
	assert.Equal(t, "Nice.", turns[1].Analysis.Feedback)

	require.Len(t, gen.calls, 3)
	assert.Contains(t, gen.calls[0].System, "You are Sam, a new classmate.")
	assert.Contains(t, gen.calls[0].System, "Current phase: introduction.")
	assert.Contains(t, gen.calls[1].Input, "Hi Sam, I'm Alex.")
	assert.Contains(t, gen.calls[2].Input, "User: Hi Sam, I'm Alex.")
}

func TestOrchestrator_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{}
	gen.push(
		reply{text: actorReply("Hi, I'm Sam!", "")},
		reply{text: analysisReply(7)},
		reply{text: actorReply("Cool, where are you from?", "")},
	)
	o := newOrchestrator(gen)
	require.NoError(t, o.Start(ctx))
	require.NoError(t, o.SubmitUserInput(ctx, "Hi Sam, I'm Alex."))

	tr := o.Transcript()
	tr[1].Analysis.Feedback = "rewritten"
	tr[1].Scores.Clarity = 999
	tr[0].SuggestedResponses[0].Content = "rewritten"
	snap := o.Snapshot()
	snap.Transcript[1].Scores.Empathy = 999

	again := o.Transcript()
	assert.Equal(t, "Nice.", again[1].Analysis.Feedback)
	assert.Equal(t, domain.Uniform(7), *again[1].Scores)
	assert.Equal(t, "Sounds good!", again[0].SuggestedResponses[0].Content)

	res, err := o.EndDialogue(ctx)
	require.NoError(t, err)
	res.Transcript[1].Scores.Clarity = 0
	res.Totals.Clarity = 0

	stored, ok := o.Result()
	require.True(t, ok)
	assert.Equal(t, 7, stored.Transcript[1].Scores.Clarity)
	assert.Equal(t, domain.Uniform(7), stored.Totals)
}

func TestOrchestrator_FallbackPhasePolicy(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{}
	gen.push(reply{text: actorReply("Hello!", "")})
	for i := 0; i < 7; i++ {
		gen.push(reply{text: analysisReply(5)}, reply{text: actorReply(fmt.Sprintf("Line %d", i), "")})
	}
	o := newOrchestrator(gen)
	require.NoError(t, o.Start(ctx))

	for i := 0; i < 3; i++ {
		require.NoError(t, o.SubmitUserInput(ctx, "answer"))
	}
	assert.Equal(t, domain.PhaseIntroduction, o.Phase())
	assert.Equal(t, 3, o.Exchanges())

	require.NoError(t, o.SubmitUserInput(ctx, "answer"))
	assert.Equal(t, domain.PhaseMainTopic, o.Phase())

	turns := o.Transcript()
	last := turns[len(turns)-1]
	assert.Equal(t, domain.SpeakerActor, last.Speaker)
	assert.Equal(t, domain.PhaseMainTopic, last.Phase)
	assert.Equal(t, domain.PhaseIntroduction, turns[len(turns)-2].Phase)

	for i := 0; i < 2; i++ {
		require.NoError(t, o.SubmitUserInput(ctx, "answer"))
	}
	assert.Equal(t, domain.PhaseMainTopic, o.Phase())
	assert.Equal(t, 6, o.Exchanges())

	require.NoError(t, o.SubmitUserInput(ctx, "answer"))
	assert.Equal(t, domain.PhaseWrapUp, o.Phase())
}

func TestOrchestrator_ModelPhaseIsMonotonic(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{}
	gen.push(
		reply{text: actorReply("Hello!", "main_topic")},
		reply{text: analysisReply(5)},
		reply{text: actorReply("Back to intro?", "introduction")},
	)
	o := newOrchestrator(gen)

	require.NoError(t, o.Start(ctx))
	assert.Equal(t, domain.PhaseMainTopic, o.Phase())

	require.NoError(t, o.SubmitUserInput(ctx, "ok"))
	assert.Equal(t, domain.PhaseMainTopic, o.Phase())
}

func TestOrchestrator_ParseFailureOnStartUsesFallback(t *testing.T) {
	gen := &fakeGen{}
	gen.push(reply{text: "Sorry, I can't produce JSON today."})
	o := newOrchestrator(gen)

	require.NoError(t, o.Start(context.Background()))
	assert.Equal(t, domain.ActivityWaitingForUser, o.Activity())

	turns := o.Transcript()
	require.Len(t, turns, 1)
	assert.NotEmpty(t, turns[0].Content)
	assert.True(t, turns[0].Fallback)
	require.Len(t, turns[0].SuggestedResponses, 3)
	for _, s := range turns[0].SuggestedResponses {
		assert.Equal(t, domain.Uniform(5), s.Scores)
	}
	assert.Nil(t, o.LastError())
}

func TestOrchestrator_AnalysisParseFailureScoresNeutral(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{}
	gen.push(
		reply{text: actorReply("Hello!", "")},
		reply{text: "great answer!!"},
		reply{text: actorReply("Nice.", "")},
	)
	o := newOrchestrator(gen)
	require.NoError(t, o.Start(ctx))
	require.NoError(t, o.SubmitUserInput(ctx, "hey"))

	assert.Equal(t, domain.Uniform(5), o.Totals())
}

func TestOrchestrator_StartFailureThenRetry(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{}
	boom := &domain.GenerationError{Model: "m", Err: errors.New("connection refused")}
	gen.push(reply{err: boom}, reply{text: actorReply("Hello!", "")})
	o := newOrchestrator(gen)

	err := o.Start(ctx)
	require.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.Equal(t, domain.ActivityError, o.Activity())
	assert.ErrorIs(t, o.LastError(), domain.ErrGenerationFailed)
	assert.Empty(t, o.Transcript())

	assert.ErrorIs(t, o.SubmitUserInput(ctx, "hello?"), domain.ErrInvalidOperation)

	require.NoError(t, o.Retry(ctx))
	assert.Equal(t, domain.ActivityWaitingForUser, o.Activity())
	assert.Len(t, o.Transcript(), 1)
	assert.Nil(t, o.LastError())

	assert.ErrorIs(t, o.Retry(ctx), domain.ErrInvalidOperation)
}

func TestOrchestrator_RetryResumesAfterAnalysis(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{}
	gen.push(
		reply{text: actorReply("Hello!", "")},
		reply{text: analysisReply(6)},
		reply{err: &domain.GenerationError{Err: errors.New("503")}},
		reply{text: actorReply("Sorry, where were we?", "")},
	)
	o := newOrchestrator(gen)
	require.NoError(t, o.Start(ctx))

	require.Error(t, o.SubmitUserInput(ctx, "I like chess"))
	assert.Equal(t, domain.ActivityError, o.Activity())
	assert.Len(t, o.Transcript(), 2)
	assert.Equal(t, domain.Uniform(6), o.Totals())

	require.NoError(t, o.Retry(ctx))
	assert.Len(t, o.Transcript(), 3, "user turn is not duplicated")
	assert.Equal(t, domain.Uniform(6), o.Totals(), "scores are not re-applied")
	assert.Equal(t, 4, gen.callCount(), "analysis is not requested again")
}

func TestOrchestrator_RetryAfterAnalysisFailure(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{}
	gen.push(
		reply{text: actorReply("Hello!", "")},
		reply{err: &domain.GenerationError{Err: errors.New("timeout")}},
		reply{text: analysisReply(4)},
		reply{text: actorReply("Nice.", "")},
	)
	o := newOrchestrator(gen)
	require.NoError(t, o.Start(ctx))

	require.Error(t, o.SubmitUserInput(ctx, "hi"))
	require.NoError(t, o.Retry(ctx))

	assert.Len(t, o.Transcript(), 3)
	assert.Equal(t, domain.Uniform(4), o.Totals())
}

func TestOrchestrator_SelectSuggestedResponse(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{}
	gen.push(
		reply{text: actorReply("Hello!", "")},
		reply{text: analysisReply(8)},
		reply{text: actorReply("Great.", "")},
	)
	o := newOrchestrator(gen)
	require.NoError(t, o.Start(ctx))

	err := o.SelectSuggestedResponse(ctx, "zzz")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	assert.Len(t, o.Transcript(), 1)
	assert.Equal(t, domain.ActivityWaitingForUser, o.Activity())

	require.NoError(t, o.SelectSuggestedResponse(ctx, "c"))
	turns := o.Transcript()
	require.Len(t, turns, 3)
	assert.Equal(t, "Can you explain?", turns[1].Content)
}

func TestOrchestrator_RejectsOverlappingOperations(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{entered: make(chan struct{}, 1), gate: make(chan struct{})}
	o := newOrchestrator(gen)

	done := make(chan error, 1)
	go func() { done <- o.Start(ctx) }()
	<-gen.entered

	assert.Equal(t, domain.ActivityGeneratingActorTurn, o.Activity())
	assert.ErrorIs(t, o.Start(ctx), domain.ErrOperationInProgress)
	assert.ErrorIs(t, o.SubmitUserInput(ctx, "hi"), domain.ErrOperationInProgress)
	assert.ErrorIs(t, o.SubmitUserInput(ctx, "hi"), domain.ErrInvalidOperation)
	assert.ErrorIs(t, o.SelectSuggestedResponse(ctx, "a"), domain.ErrOperationInProgress)

	close(gen.gate)
	require.NoError(t, <-done)
	assert.Equal(t, domain.ActivityWaitingForUser, o.Activity())
	assert.Len(t, o.Transcript(), 1)
}

func TestOrchestrator_EndDiscardsInFlightResponse(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gen := &fakeGen{entered: make(chan struct{}, 1), gate: make(chan struct{})}
	o := newOrchestrator(gen, runtime.WithSessionID("conv-1"), runtime.WithResultStore(store))

	done := make(chan error, 1)
	go func() { done <- o.Start(ctx) }()
	<-gen.entered

	res, err := o.EndDialogue(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCompleted, o.Phase())
	assert.Equal(t, domain.ActivityCompleted, o.Activity())

	close(gen.gate)
	assert.ErrorIs(t, <-done, domain.ErrDialogueEnded)
	assert.Empty(t, o.Transcript(), "late response is discarded")

	again, err := o.EndDialogue(ctx)
	require.NoError(t, err)
	assert.Equal(t, res, again)

	assert.ErrorIs(t, o.SubmitUserInput(ctx, "hello"), domain.ErrDialogueEnded)
	assert.ErrorIs(t, o.Start(ctx), domain.ErrDialogueEnded)
	assert.ErrorIs(t, o.Retry(ctx), domain.ErrDialogueEnded)

	stored, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeDynamic, stored.Mode)
}

func TestOrchestrator_ClosingSignalCompletes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gen := &fakeGen{}
	gen.push(
		reply{text: actorReply("Hello!", "wrap_up")},
		reply{text: analysisReply(7)},
		reply{text: `{"content":"Bye now!","closing":true}`},
	)

	var completed *domain.Result
	o := newOrchestrator(gen,
		runtime.WithSessionID("conv-2"),
		runtime.WithResultStore(store),
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnComplete: func(_ context.Context, r *domain.Result) { completed = r },
		}),
	)
	require.NoError(t, o.Start(ctx))
	require.NoError(t, o.SubmitUserInput(ctx, "Bye!"))

	assert.Equal(t, domain.ActivityCompleted, o.Activity())
	assert.Equal(t, domain.PhaseCompleted, o.Phase())

	res, ok := o.Result()
	require.True(t, ok)
	assert.Equal(t, res, completed)
	assert.Len(t, res.Transcript, 3)
	assert.Equal(t, 70, res.Percentages[domain.Empathy])

	_, err := store.Load(ctx, "conv-2")
	assert.NoError(t, err)
}

func TestOrchestrator_Hooks(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{}
	gen.push(reply{text: actorReply("Hello!", "main_topic")})

	var activities []string
	var phases []string
	var turns int
	var o *runtime.Orchestrator
	hooks := domain.LifecycleHooks{
		OnActivity: func(_ context.Context, e *domain.ActivityEvent) {
			activities = append(activities, string(e.To))
			// Hooks run outside the lock, so reading state is safe.
			_ = o.Activity()
		},
		OnPhase: func(_ context.Context, e *domain.PhaseEvent) {
			phases = append(phases, string(e.From)+">"+string(e.To))
		},
		OnTurn: func(_ context.Context, e *domain.TurnEvent) { turns++ },
	}
	o = newOrchestrator(gen, runtime.WithLifecycleHooks(hooks))
	require.NoError(t, o.Start(ctx))

	assert.Equal(t, []string{"generating_actor_turn", "waiting_for_user"}, activities)
	assert.Equal(t, []string{"introduction>main_topic"}, phases)
	assert.Equal(t, 1, turns)
}

func TestOrchestrator_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{}
	o := newOrchestrator(gen)

	assert.ErrorIs(t, o.SubmitUserInput(ctx, "hi"), domain.ErrInvalidOperation, "not started")

	require.NoError(t, o.Start(ctx))
	assert.ErrorIs(t, o.SubmitUserInput(ctx, "   "), domain.ErrInvalidOperation)
	assert.ErrorIs(t, o.SubmitUserInput(ctx, strings.Repeat("x", 5000)), domain.ErrInvalidOperation)
	assert.ErrorIs(t, o.Start(ctx), domain.ErrInvalidOperation)
	assert.Len(t, o.Transcript(), 1)
}

func TestOrchestrator_HybridModeSeedsPrompt(t *testing.T) {
	g, err := compiler.Compile([]domain.Step{
		{
			ID:        "start",
			ActorLine: "You spot a classmate sitting alone at lunch.",
			Metadata:  map[string]string{domain.MetaPersonaName: "Riley", domain.MetaScenarioTitle: "Lunch break"},
			Options:   []domain.Option{{EventID: "SIT", NextStepID: "end"}},
		},
		{ID: "end", ActorLine: "Riley smiles and makes room."},
	}, "start")
	require.NoError(t, err)

	gen := &fakeGen{}
	o := runtime.NewOrchestrator(gen, runtime.Config{Graph: g})
	require.NoError(t, o.Start(context.Background()))

	sys := gen.calls[0].System
	assert.Contains(t, sys, "You are Riley.")
	assert.Contains(t, sys, "Scenario: Lunch break")
	assert.Contains(t, sys, "- Riley smiles and makes room.")
}

func TestOrchestrator_RateLimitedThroughClient(t *testing.T) {
	ctx := context.Background()
	provider := mocks.NewMockProvider(t)
	provider.On("Generate", mock.Anything, mock.Anything).
		Return(generation.Response{Text: actorReply("Hello!", "")}, nil).Once()

	client := generation.NewClient(provider, generation.WithRateLimit(1, time.Minute))
	defer client.Close()

	o := newOrchestrator(client)
	require.NoError(t, o.Start(ctx))

	err := o.SubmitUserInput(ctx, "hi")
	require.ErrorIs(t, err, domain.ErrRateLimited)

	var rl *domain.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, domain.ActivityError, o.Activity())
	assert.Len(t, o.Transcript(), 2)
}

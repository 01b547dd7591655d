package runtime

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/rapport/internal/compiler"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/score"
)

// Machine is one static playthrough of a compiled graph.
// It is owned by a single caller and is not safe for concurrent use.
type Machine struct {
	settings
	graph *compiler.Graph

	agg        *score.Aggregator
	maxima     domain.Scores
	current    string
	history    []string
	transcript *domain.Transcript
	result     *domain.Result
}

// NewMachine starts a playthrough at the graph root. Entering a terminal root
// completes the playthrough immediately.
func NewMachine(ctx context.Context, g *compiler.Graph, opts ...Option) (*Machine, error) {
	m := &Machine{
		settings: buildSettings(opts),
		graph:    g,
	}
	if err := m.reset(ctx); err != nil {
		return m, err
	}
	return m, nil
}

// Fire applies event to the current step. An event the step does not offer
// is ignored and reported as false. The replay pseudo-event restarts the
// playthrough from the root with a fresh zero context.
func (m *Machine) Fire(ctx context.Context, event string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if event == domain.EventReplay {
		return true, m.Replay(ctx)
	}
	if m.Done() {
		return false, nil
	}

	tr, ok := m.graph.Lookup(m.current, event)
	if !ok {
		m.logger.Debug("event ignored", "step_id", m.current, "event", event)
		return false, nil
	}

	step, _ := m.graph.Step(m.current)
	label := event
	for _, opt := range step.Options {
		if opt.EventID == event {
			label = opt.Label
			break
		}
	}

	turn := domain.ConversationTurn{
		ID:        m.newID(),
		Speaker:   domain.SpeakerUser,
		Content:   label,
		Timestamp: m.now(),
	}
	if !tr.Deltas.IsZero() {
		deltas := tr.Deltas
		turn.Scores = &deltas
	}
	m.appendTurn(ctx, turn)

	m.agg.Apply(tr.Deltas)
	m.maxima = m.maxima.Add(m.graph.MaxDeltas(m.current))

	m.leave(ctx, m.current, event)
	return true, m.enter(ctx, tr.Target)
}

// Replay discards the playthrough and starts again at the root.
func (m *Machine) Replay(ctx context.Context) error {
	m.logger.Debug("replay", "step_id", m.current)
	return m.reset(ctx)
}

func (m *Machine) reset(ctx context.Context) error {
	if m.agg == nil {
		m.agg = score.New()
	}
	m.agg.Reset()
	m.maxima = domain.Scores{}
	m.current = ""
	m.history = nil
	m.transcript = domain.NewTranscript()
	m.result = nil
	return m.enter(ctx, m.graph.Root())
}

func (m *Machine) enter(ctx context.Context, id string) error {
	m.current = id
	m.history = append(m.history, id)

	if m.hooks.OnStateEnter != nil {
		m.hooks.OnStateEnter(ctx, &domain.StateEvent{
			EventBase: m.base(domain.EventStateEnter),
			StateID:   id,
		})
	}

	if id == domain.FinalStateID {
		return m.complete(ctx)
	}

	step, ok := m.graph.Step(id)
	if !ok {
		return fmt.Errorf("%w: unknown state %q", domain.ErrInvalidOperation, id)
	}
	if step.ActorLine != "" {
		m.appendTurn(ctx, domain.ConversationTurn{
			ID:        m.newID(),
			Speaker:   domain.SpeakerActor,
			Content:   step.ActorLine,
			Timestamp: m.now(),
		})
	}

	st, _ := m.graph.State(id)
	if st.Always != nil {
		m.leave(ctx, id, "")
		return m.enter(ctx, st.Always.Target)
	}
	return nil
}

func (m *Machine) leave(ctx context.Context, id, event string) {
	if m.hooks.OnStateLeave != nil {
		m.hooks.OnStateLeave(ctx, &domain.StateEvent{
			EventBase: m.base(domain.EventStateLeave),
			StateID:   id,
			EventID:   event,
		})
	}
}

func (m *Machine) appendTurn(ctx context.Context, turn domain.ConversationTurn) {
	m.transcript.Append(turn)
	if m.hooks.OnTurn != nil {
		m.hooks.OnTurn(ctx, &domain.TurnEvent{EventBase: m.base(domain.EventTurnAppended), Turn: turn})
	}
}

func (m *Machine) complete(ctx context.Context) error {
	last := ""
	if n := len(m.history); n >= 2 {
		last = m.history[n-2]
	}
	m.result = &domain.Result{
		SessionID:   m.sessionID,
		Mode:        domain.ModeStatic,
		Totals:      m.agg.Totals(),
		Percentages: m.agg.Percentage(m.maxima),
		FinalStep:   last,
		Transcript:  m.transcript.Turns(),
		CompletedAt: m.now(),
	}
	m.logger.Info("playthrough completed", "step_id", last, "total", m.result.Totals.Total())

	if m.hooks.OnComplete != nil {
		m.hooks.OnComplete(ctx, m.result.Clone())
	}
	if m.store != nil {
		if err := m.store.Save(ctx, m.sessionID, m.result.Clone()); err != nil {
			m.logger.Error("failed to save result", "err", err)
			return fmt.Errorf("save result: %w", err)
		}
	}
	return nil
}

func (m *Machine) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: m.now(), Type: t, SessionID: m.sessionID}
}

// SessionID returns the playthrough id.
func (m *Machine) SessionID() string {
	return m.sessionID
}

// Current returns the active state id.
func (m *Machine) Current() string {
	return m.current
}

// Step returns the active step. It reports false once the final state is reached.
func (m *Machine) Step() (domain.Step, bool) {
	return m.graph.Step(m.current)
}

// Options returns the options of the active step.
func (m *Machine) Options() []domain.Option {
	step, ok := m.Step()
	if !ok {
		return nil
	}
	return slices.Clone(step.Options)
}

// Context returns the accumulated score totals.
func (m *Machine) Context() domain.Scores {
	return m.agg.Totals()
}

// Done reports whether the final state has been reached.
func (m *Machine) Done() bool {
	return m.current == domain.FinalStateID
}

// History returns the visited state ids, starting at the root.
func (m *Machine) History() []string {
	return slices.Clone(m.history)
}

// Transcript returns the turns produced so far.
func (m *Machine) Transcript() []domain.ConversationTurn {
	return m.transcript.Turns()
}

// State returns a snapshot of the playthrough.
func (m *Machine) State() domain.MachineState {
	return domain.MachineState{
		CurrentStepID: m.current,
		Context:       m.agg.Totals(),
		History:       m.History(),
		Terminated:    m.Done(),
	}
}

// Result returns the completed playthrough result, if any.
func (m *Machine) Result() (*domain.Result, bool) {
	return m.result.Clone(), m.result != nil
}

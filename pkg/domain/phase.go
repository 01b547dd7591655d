package domain

import "fmt"

// Phase is the coarse stage of a generated conversation.
// Phases progress linearly and never regress; PhaseCompleted is absorbing.
type Phase string

const (
	PhaseIntroduction Phase = "introduction"
	PhaseMainTopic    Phase = "main_topic"
	PhaseWrapUp       Phase = "wrap_up"
	PhaseCompleted    Phase = "completed"
)

var phaseOrder = map[Phase]int{
	PhaseIntroduction: 0,
	PhaseMainTopic:    1,
	PhaseWrapUp:       2,
	PhaseCompleted:    3,
}

// ParsePhase resolves a phase name, accepting camelCase ("mainTopic") too.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "introduction", "intro":
		return PhaseIntroduction, nil
	case "main_topic", "mainTopic", "main-topic":
		return PhaseMainTopic, nil
	case "wrap_up", "wrapUp", "wrap-up":
		return PhaseWrapUp, nil
	case "completed", "complete":
		return PhaseCompleted, nil
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	_, ok := phaseOrder[p]
	return ok
}

// Before reports whether p comes strictly before o.
func (p Phase) Before(o Phase) bool {
	return phaseOrder[p] < phaseOrder[o]
}

// Next returns the following phase. PhaseCompleted returns itself.
func (p Phase) Next() Phase {
	switch p {
	case PhaseIntroduction:
		return PhaseMainTopic
	case PhaseMainTopic:
		return PhaseWrapUp
	default:
		return PhaseCompleted
	}
}

// Activity is the fine-grained state of the dialogue orchestrator.
type Activity string

const (
	ActivityIdle                Activity = "idle"
	ActivityGeneratingActorTurn Activity = "generating_actor_turn"
	ActivityAnalyzingUserInput  Activity = "analyzing_user_input"
	ActivityDecidingPhase       Activity = "deciding_phase"
	ActivityWaitingForUser      Activity = "waiting_for_user"
	ActivityCompleted           Activity = "completed"
	ActivityError               Activity = "error"
)

// Busy reports whether a generation call is outstanding.
func (a Activity) Busy() bool {
	switch a {
	case ActivityGeneratingActorTurn, ActivityAnalyzingUserInput, ActivityDecidingPhase:
		return true
	}
	return false
}

package runtime

import "github.com/aretw0/rapport/pkg/domain"

// PhasePolicy holds the fallback thresholds used when the model does not say
// which phase the conversation is in. Thresholds count exchanges (a user turn
// answered by an actor turn) completed within the current phase. A zero
// threshold disables that fallback transition.
type PhasePolicy struct {
	IntroductionExchanges int `json:"introduction_exchanges" yaml:"introduction_exchanges"`
	MainTopicExchanges    int `json:"main_topic_exchanges" yaml:"main_topic_exchanges"`
}

// DefaultPhasePolicy advances to main_topic after 3 exchanges and to wrap_up
// after 3 more, 6 in total. Both thresholds count within their own phase.
var DefaultPhasePolicy = PhasePolicy{IntroductionExchanges: 3, MainTopicExchanges: 3}

// Fallback returns the phase to move to after exchanges completed in current.
// wrap_up is never left by the fallback.
func (p PhasePolicy) Fallback(current domain.Phase, exchanges int) domain.Phase {
	switch current {
	case domain.PhaseIntroduction:
		if p.IntroductionExchanges > 0 && exchanges >= p.IntroductionExchanges {
			return domain.PhaseMainTopic
		}
	case domain.PhaseMainTopic:
		if p.MainTopicExchanges > 0 && exchanges >= p.MainTopicExchanges {
			return domain.PhaseWrapUp
		}
	}
	return current
}

// adoptPhase returns requested when it is strictly later than current.
// Backward or unknown requests keep current.
func adoptPhase(current, requested domain.Phase) (domain.Phase, bool) {
	if !requested.Valid() || !current.Before(requested) {
		return current, false
	}
	return requested, true
}

package runtime

import (
	"strconv"

	"github.com/aretw0/rapport/pkg/domain"
)

// neutralScore is awarded in every category when no real analysis exists.
const neutralScore = 5

var fallbackLines = map[domain.Phase]string{
	domain.PhaseIntroduction: "Hi! Sorry, I lost my train of thought for a second. How are you doing today?",
	domain.PhaseMainTopic:    "That's interesting. Could you tell me a bit more about what you mean?",
	domain.PhaseWrapUp:       "It's been really nice talking with you. Is there anything else you'd like to add before we finish?",
	domain.PhaseCompleted:    "Thanks for the conversation!",
}

var fallbackSuggestions = []string{
	"Sure, let me explain what I'm thinking.",
	"Could you tell me more about that first?",
	"I'm not sure yet, but I'd like to keep talking.",
}

// fallbackActor is the payload used when the model reply cannot be parsed.
func fallbackActor(phase domain.Phase) actorPayload {
	line, ok := fallbackLines[phase]
	if !ok {
		line = fallbackLines[domain.PhaseMainTopic]
	}
	suggestions := make([]domain.SuggestedResponse, len(fallbackSuggestions))
	for i, s := range fallbackSuggestions {
		suggestions[i] = domain.SuggestedResponse{
			ID:      strconv.Itoa(i + 1),
			Content: s,
			Scores:  domain.Uniform(neutralScore),
		}
	}
	return actorPayload{Content: line, Suggestions: suggestions}
}

// fallbackAnalysis is the payload used when an analysis cannot be parsed.
func fallbackAnalysis() analysisPayload {
	return analysisPayload{
		Scores: domain.Uniform(neutralScore),
		Analysis: domain.Analysis{
			Feedback: "Your response was recorded, but detailed feedback is not available for this turn.",
		},
	}
}

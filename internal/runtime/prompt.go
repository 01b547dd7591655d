package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/generation"
)

// GenerationParams are the model settings used for every request of one
// orchestrator.
type GenerationParams struct {
	Model               string
	Temperature         float64
	AnalysisTemperature float64
	MaxTokens           int
}

// DefaultGenerationParams leaves the model to the client default.
var DefaultGenerationParams = GenerationParams{
	Temperature:         0.8,
	AnalysisTemperature: 0.2,
	MaxTokens:           600,
}

var phaseGuidance = map[domain.Phase]string{
	domain.PhaseIntroduction: "Open the conversation naturally. Greet the user, introduce yourself in character and set up the situation.",
	domain.PhaseMainTopic:    "Explore the heart of the scenario. Ask questions, react to what the user says and give them room to practice.",
	domain.PhaseWrapUp:       "Start bringing the conversation to a natural close. Summarize briefly and invite final thoughts.",
	domain.PhaseCompleted:    "Say a short goodbye.",
}

const actorFormat = `Reply with a single JSON object and nothing else:
{
  "content": "<your next line, in character>",
  "suggestedResponses": [
    {"id": "1", "content": "<a reply the user could give>", "scores": {"clarity": 0-10, "empathy": 0-10, "assertiveness": 0-10, "social_awareness": 0-10, "self_advocacy": 0-10}}
  ],
  "nextPhase": "introduction | main_topic | wrap_up | completed",
  "closing": false
}
Offer exactly three suggested responses of varying quality.`

const analysisFormat = `Reply with a single JSON object and nothing else:
{
  "scores": {"clarity": 0-10, "empathy": 0-10, "assertiveness": 0-10, "social_awareness": 0-10, "self_advocacy": 0-10},
  "feedback": "<one or two encouraging sentences>",
  "strengths": ["<what went well>"],
  "improvements": ["<what to try next time>"]
}`

// promptContext is everything a prompt is built from. It is a snapshot taken
// under the orchestrator lock.
type promptContext struct {
	persona  domain.Persona
	scenario domain.Scenario
	profile  domain.UserProfile
	outline  []string
	phase    domain.Phase
	turns    []domain.ConversationTurn
	params   GenerationParams
}

func actorRequest(pc promptContext) generation.Request {
	var sys strings.Builder
	writePersona(&sys, pc.persona)
	writeScenario(&sys, pc.scenario)
	writeProfile(&sys, pc.profile)

	if len(pc.outline) > 0 {
		sys.WriteString("\nStory beats to draw from:\n")
		for _, line := range pc.outline {
			fmt.Fprintf(&sys, "- %s\n", line)
		}
	}

	fmt.Fprintf(&sys, "\nCurrent phase: %s. %s\n", pc.phase, phaseGuidance[pc.phase])
	sys.WriteString("\n")
	sys.WriteString(actorFormat)

	input := formatTranscript(pc.turns)
	if input == "" {
		input = "The conversation has not started yet. Say the opening line."
	}

	return generation.Request{
		Model:       pc.params.Model,
		System:      sys.String(),
		Input:       input,
		Temperature: pc.params.Temperature,
		MaxTokens:   pc.params.MaxTokens,
	}
}

func analysisRequest(pc promptContext, userText string) generation.Request {
	var sys strings.Builder
	sys.WriteString("You are a supportive social-communication coach. ")
	sys.WriteString("Score the user's latest reply from 0 to 10 in each category: ")
	names := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		names[i] = string(c)
	}
	sys.WriteString(strings.Join(names, ", "))
	sys.WriteString(".\n")
	writeScenario(&sys, pc.scenario)
	writeProfile(&sys, pc.profile)
	sys.WriteString("\n")
	sys.WriteString(analysisFormat)

	var in strings.Builder
	if prev := formatTranscript(pc.turns); prev != "" {
		fmt.Fprintf(&in, "Conversation so far:\n%s\n\n", prev)
	}
	fmt.Fprintf(&in, "User reply to evaluate:\n%s", userText)

	return generation.Request{
		Model:       pc.params.Model,
		System:      sys.String(),
		Input:       in.String(),
		Temperature: pc.params.AnalysisTemperature,
		MaxTokens:   pc.params.MaxTokens,
	}
}

func writePersona(b *strings.Builder, p domain.Persona) {
	name := p.Name
	if name == "" {
		name = "a friendly conversation partner"
	}
	fmt.Fprintf(b, "You are %s", name)
	if p.Role != "" {
		fmt.Fprintf(b, ", %s", p.Role)
	}
	b.WriteString(".\n")
	if p.Personality != "" {
		fmt.Fprintf(b, "Personality: %s\n", p.Personality)
	}
	if p.SpeakingStyle != "" {
		fmt.Fprintf(b, "Speaking style: %s\n", p.SpeakingStyle)
	}
}

func writeScenario(b *strings.Builder, s domain.Scenario) {
	if s.Title != "" {
		fmt.Fprintf(b, "Scenario: %s\n", s.Title)
	}
	if s.Description != "" {
		fmt.Fprintf(b, "%s\n", s.Description)
	}
	if s.Setting != "" {
		fmt.Fprintf(b, "Setting: %s\n", s.Setting)
	}
	if s.Objective != "" {
		fmt.Fprintf(b, "The user is practicing: %s\n", s.Objective)
	}
	if s.Difficulty != "" {
		fmt.Fprintf(b, "Difficulty: %s\n", s.Difficulty)
	}
}

func writeProfile(b *strings.Builder, p domain.UserProfile) {
	if p.Name != "" {
		fmt.Fprintf(b, "The user's name is %s.", p.Name)
		if p.Age > 0 {
			fmt.Fprintf(b, " They are %d.", p.Age)
		}
		b.WriteString("\n")
	}
	if len(p.Goals) > 0 {
		fmt.Fprintf(b, "Their goals: %s\n", strings.Join(p.Goals, "; "))
	}
	if len(p.Challenges) > 0 {
		fmt.Fprintf(b, "Be mindful of: %s\n", strings.Join(p.Challenges, "; "))
	}
}

func formatTranscript(turns []domain.ConversationTurn) string {
	var b strings.Builder
	for _, t := range turns {
		who := "Actor"
		if t.Speaker == domain.SpeakerUser {
			who = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", who, t.Content)
	}
	return strings.TrimSpace(b.String())
}

package scripted

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/aretw0/rapport/pkg/ports"
)

var demoLines = map[string][]string{
	"introduction": {
		"Hi there! I don't think we've met. I'm new around here.",
		"Nice! So what brings you here today?",
		"That sounds fun. Have you been doing that for long?",
	},
	"main_topic": {
		"I've been trying to join a club but I'm not sure which one. Any ideas?",
		"Hmm, why do you think that one would suit me?",
		"How did you feel the first time you tried it?",
		"I get nervous meeting new people. Does that happen to you?",
		"That's a good way to look at it.",
	},
	"wrap_up": {
		"I should get going soon, but this was really nice.",
		"Maybe we can talk again tomorrow?",
	},
}

// Demo answers rapport prompts offline with plausible JSON payloads. Actor
// lines rotate through a small script per phase; analyses score replies by
// length and by whether they ask something back.
func Demo() Responder {
	var mu sync.Mutex
	counters := map[string]int{}
	return func(req ports.GenerationRequest) (string, error) {
		if strings.Contains(req.System, `"feedback"`) {
			return demoAnalysis(req.Input), nil
		}

		phase := "introduction"
		for p := range demoLines {
			if strings.Contains(req.System, "Current phase: "+p+".") {
				phase = p
			}
		}
		lines := demoLines[phase]
		mu.Lock()
		line := lines[counters[phase]%len(lines)]
		counters[phase]++
		mu.Unlock()

		payload := map[string]any{
			"content": line,
			"suggestedResponses": []map[string]any{
				{"id": "1", "content": "That sounds great, tell me more!", "scores": map[string]int{"clarity": 7, "empathy": 8, "social_awareness": 7}},
				{"id": "2", "content": "I'd like that. What about you?", "scores": map[string]int{"assertiveness": 6, "social_awareness": 8}},
				{"id": "3", "content": "Okay.", "scores": map[string]int{"clarity": 3}},
			},
		}
		b, err := json.Marshal(payload)
		return string(b), err
	}
}

func demoAnalysis(input string) string {
	reply := input
	if i := strings.LastIndex(input, "User reply to evaluate:\n"); i >= 0 {
		reply = input[i+len("User reply to evaluate:\n"):]
	}

	words := len(strings.Fields(reply))
	base := min(3+words/2, 9)
	asks := 0
	if strings.Contains(reply, "?") {
		asks = 2
	}
	clarity := base
	empathy := min(base+asks, 10)
	social := min(base+asks, 10)
	assertive := min(base-1+utf8.RuneCountInString(reply)%2, 10)
	advocacy := max(base-2, 0)

	feedback := "Good effort. Try adding a question to keep the conversation going."
	if asks > 0 {
		feedback = "Nice job asking a question back, that shows interest."
	}
	return fmt.Sprintf(`{"scores":{"clarity":%d,"empathy":%d,"assertiveness":%d,"social_awareness":%d,"self_advocacy":%d},"feedback":%q,"strengths":["You stayed on topic"],"improvements":["Share a little about yourself"]}`,
		clarity, empathy, assertive, social, advocacy, feedback)
}

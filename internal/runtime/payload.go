package runtime

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/rapport/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Analysis scores are clamped into this range.
const (
	minTurnScore = 0
	maxTurnScore = 10
)

// actorPayload is the decoded reply to an actor-turn request.
type actorPayload struct {
	Content     string
	Suggestions []domain.SuggestedResponse
	NextPhase   domain.Phase // empty when the model gave no usable phase
	Closing     bool
}

// analysisPayload is the decoded reply to an analysis request.
type analysisPayload struct {
	Scores   domain.Scores
	Analysis domain.Analysis
}

func parseActorPayload(text string) (actorPayload, error) {
	obj, err := decodeObject(text)
	if err != nil {
		return actorPayload{}, err
	}

	var p actorPayload
	if v, ok := field(obj, "content", "message", "text", "response"); ok {
		if err := weakDecode(v, &p.Content); err != nil {
			return actorPayload{}, fmt.Errorf("%w: content: %v", domain.ErrParseFailure, err)
		}
	}
	p.Content = strings.TrimSpace(p.Content)
	if p.Content == "" {
		return actorPayload{}, fmt.Errorf("%w: missing content", domain.ErrParseFailure)
	}

	if v, ok := field(obj, "suggestedResponses", "suggestions", "responses"); ok {
		p.Suggestions = decodeSuggestions(v)
	}

	if v, ok := field(obj, "nextPhase", "phase"); ok {
		var name string
		if weakDecode(v, &name) == nil {
			if phase, err := domain.ParsePhase(strings.TrimSpace(name)); err == nil {
				p.NextPhase = phase
			}
		}
	}
	if v, ok := field(obj, "closing", "isClosing", "end", "done"); ok {
		_ = weakDecode(v, &p.Closing)
	}
	if p.NextPhase == domain.PhaseCompleted {
		p.Closing = true
	}
	return p, nil
}

func decodeSuggestions(v any) []domain.SuggestedResponse {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([]domain.SuggestedResponse, 0, len(items))
	for _, item := range items {
		var s domain.SuggestedResponse
		switch it := item.(type) {
		case string:
			s.Content = it
		case map[string]any:
			if c, ok := field(it, "content", "text", "response"); ok {
				_ = weakDecode(c, &s.Content)
			}
			if id, ok := field(it, "id"); ok {
				_ = weakDecode(id, &s.ID)
			}
			if sc, ok := field(it, "scores"); ok {
				s.Scores, _ = decodeScores(sc)
			}
		default:
			continue
		}

		s.Content = strings.TrimSpace(s.Content)
		if s.Content == "" {
			continue
		}
		out = append(out, s)
	}
	assignSuggestionIDs(out)
	return out
}

// assignSuggestionIDs keeps the first use of every explicit id and numbers
// the rest by position, skipping numbers that any suggestion already claims.
func assignSuggestionIDs(suggestions []domain.SuggestedResponse) {
	explicit := make(map[string]bool, len(suggestions))
	for _, s := range suggestions {
		if s.ID != "" {
			explicit[s.ID] = true
		}
	}

	used := make(map[string]bool, len(suggestions))
	next := 1
	for i := range suggestions {
		id := suggestions[i].ID
		if id != "" && !used[id] {
			used[id] = true
			continue
		}
		if next < i+1 {
			next = i + 1
		}
		for explicit[strconv.Itoa(next)] || used[strconv.Itoa(next)] {
			next++
		}
		suggestions[i].ID = strconv.Itoa(next)
		used[suggestions[i].ID] = true
		next++
	}
}

func parseAnalysisPayload(text string) (analysisPayload, error) {
	obj, err := decodeObject(text)
	if err != nil {
		return analysisPayload{}, err
	}

	var p analysisPayload
	raw, ok := field(obj, "scores")
	if !ok {
		return analysisPayload{}, fmt.Errorf("%w: missing scores", domain.ErrParseFailure)
	}
	if p.Scores, err = decodeScores(raw); err != nil {
		return analysisPayload{}, err
	}

	if v, ok := field(obj, "feedback"); ok {
		_ = weakDecode(v, &p.Analysis.Feedback)
	}
	if v, ok := field(obj, "strengths"); ok {
		_ = weakDecode(v, &p.Analysis.Strengths)
	}
	if v, ok := field(obj, "improvements", "areasForImprovement"); ok {
		_ = weakDecode(v, &p.Analysis.Improvements)
	}
	return p, nil
}

// decodeScores reads a category map, tolerating camelCase names and numbers
// encoded as strings. Unknown categories are ignored.
func decodeScores(v any) (domain.Scores, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return domain.Scores{}, fmt.Errorf("%w: scores must be an object", domain.ErrParseFailure)
	}

	var s domain.Scores
	for k, raw := range m {
		cat, err := domain.ParseCategory(k)
		if err != nil {
			continue
		}
		var n float64
		if err := weakDecode(raw, &n); err != nil {
			return domain.Scores{}, fmt.Errorf("%w: score %q: %v", domain.ErrParseFailure, k, err)
		}
		if math.IsNaN(n) {
			n = minTurnScore
		}
		s.Set(cat, int(math.Round(min(max(n, minTurnScore), maxTurnScore))))
	}
	return s, nil
}

// decodeObject extracts the first JSON object from a model reply.
func decodeObject(text string) (map[string]any, error) {
	cleaned := extractJSON(text)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty reply", domain.ErrParseFailure)
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParseFailure, err)
	}
	return obj, nil
}

// extractJSON strips markdown code fences and any prose around the outermost
// braces.
func extractJSON(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		if nl := strings.Index(cleaned, "\n"); nl != -1 {
			cleaned = cleaned[nl+1:]
		} else {
			cleaned = strings.TrimPrefix(cleaned, "```")
		}
		cleaned = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(cleaned), "```"))
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end < start {
		return ""
	}
	return cleaned[start : end+1]
}

// field looks up the first present key among names. Keys are compared
// ignoring case, underscores and dashes so "next_phase" matches "nextPhase".
func field(obj map[string]any, names ...string) (any, bool) {
	for _, name := range names {
		want := normalizeKey(name)
		for k, v := range obj {
			if normalizeKey(k) == want && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

func normalizeKey(k string) string {
	return strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(k))
}

func weakDecode(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/ports"
)

// Mask replaces redacted text.
const Mask = "***"

// DefaultPIIPatterns match e-mail addresses and phone numbers.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
	`\+?\d[\d\s().-]{7,}\d`,
}

type piiMiddleware struct {
	next     ports.ResultStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks transcript text matching any of the patterns before
// results are saved. The caller's result is left untouched.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.ResultStore) ports.ResultStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, result *domain.Result) error {
	cloned := *result
	cloned.Transcript = make([]domain.ConversationTurn, len(result.Transcript))
	for i, turn := range result.Transcript {
		cloned.Transcript[i] = m.maskTurn(turn)
	}
	return m.next.Save(ctx, sessionID, &cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Result, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

func (m *piiMiddleware) maskTurn(turn domain.ConversationTurn) domain.ConversationTurn {
	turn = turn.Clone()
	turn.Content = m.mask(turn.Content)
	if a := turn.Analysis; a != nil {
		a.Feedback = m.mask(a.Feedback)
		for i := range a.Strengths {
			a.Strengths[i] = m.mask(a.Strengths[i])
		}
		for i := range a.Improvements {
			a.Improvements[i] = m.mask(a.Improvements[i])
		}
	}
	for i := range turn.SuggestedResponses {
		turn.SuggestedResponses[i].Content = m.mask(turn.SuggestedResponses[i].Content)
	}
	return turn
}

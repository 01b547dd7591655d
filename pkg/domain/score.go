package domain

import (
	"fmt"
	"strings"
)

// ScoreCategory is one of the five measured social-skill dimensions.
type ScoreCategory string

const (
	Clarity         ScoreCategory = "clarity"
	Empathy         ScoreCategory = "empathy"
	Assertiveness   ScoreCategory = "assertiveness"
	SocialAwareness ScoreCategory = "social_awareness"
	SelfAdvocacy    ScoreCategory = "self_advocacy"
)

// Categories lists every category in canonical order.
var Categories = []ScoreCategory{Clarity, Empathy, Assertiveness, SocialAwareness, SelfAdvocacy}

// ParseCategory resolves a category name. Matching is case-insensitive and
// accepts camelCase spellings ("socialAwareness") produced by some models.
func ParseCategory(name string) (ScoreCategory, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "clarity":
		return Clarity, nil
	case "empathy":
		return Empathy, nil
	case "assertiveness":
		return Assertiveness, nil
	case "social_awareness", "socialawareness":
		return SocialAwareness, nil
	case "self_advocacy", "selfadvocacy":
		return SelfAdvocacy, nil
	}
	return "", fmt.Errorf("unknown score category %q", name)
}

// Scores holds one integer per category. The zero value is an all-zero score.
type Scores struct {
	Clarity         int `json:"clarity" yaml:"clarity" mapstructure:"clarity"`
	Empathy         int `json:"empathy" yaml:"empathy" mapstructure:"empathy"`
	Assertiveness   int `json:"assertiveness" yaml:"assertiveness" mapstructure:"assertiveness"`
	SocialAwareness int `json:"social_awareness" yaml:"social_awareness" mapstructure:"social_awareness"`
	SelfAdvocacy    int `json:"self_advocacy" yaml:"self_advocacy" mapstructure:"self_advocacy"`
}

// Get returns the value for a category. Unknown categories read as 0.
func (s Scores) Get(c ScoreCategory) int {
	switch c {
	case Clarity:
		return s.Clarity
	case Empathy:
		return s.Empathy
	case Assertiveness:
		return s.Assertiveness
	case SocialAwareness:
		return s.SocialAwareness
	case SelfAdvocacy:
		return s.SelfAdvocacy
	}
	return 0
}

// Set assigns the value for a category. Unknown categories are ignored.
func (s *Scores) Set(c ScoreCategory, v int) {
	switch c {
	case Clarity:
		s.Clarity = v
	case Empathy:
		s.Empathy = v
	case Assertiveness:
		s.Assertiveness = v
	case SocialAwareness:
		s.SocialAwareness = v
	case SelfAdvocacy:
		s.SelfAdvocacy = v
	}
}

// Add returns the category-wise sum of s and o.
func (s Scores) Add(o Scores) Scores {
	return Scores{
		Clarity:         s.Clarity + o.Clarity,
		Empathy:         s.Empathy + o.Empathy,
		Assertiveness:   s.Assertiveness + o.Assertiveness,
		SocialAwareness: s.SocialAwareness + o.SocialAwareness,
		SelfAdvocacy:    s.SelfAdvocacy + o.SelfAdvocacy,
	}
}

// Total sums all categories.
func (s Scores) Total() int {
	return s.Clarity + s.Empathy + s.Assertiveness + s.SocialAwareness + s.SelfAdvocacy
}

// IsZero reports whether every category is zero.
func (s Scores) IsZero() bool {
	return s == Scores{}
}

// Map returns the scores keyed by category.
func (s Scores) Map() map[ScoreCategory]int {
	m := make(map[ScoreCategory]int, len(Categories))
	for _, c := range Categories {
		m[c] = s.Get(c)
	}
	return m
}

// Uniform returns a Scores with v in every category.
func Uniform(v int) Scores {
	return Scores{Clarity: v, Empathy: v, Assertiveness: v, SocialAwareness: v, SelfAdvocacy: v}
}

// ScoresFromMap builds Scores from a sparse map; absent categories are 0.
func ScoresFromMap(m map[ScoreCategory]int) Scores {
	var s Scores
	for c, v := range m {
		s.Set(c, v)
	}
	return s
}

package domain

import (
	"maps"
	"time"
)

// Mode distinguishes authored playthroughs from generated conversations.
type Mode string

const (
	ModeStatic  Mode = "static"
	ModeDynamic Mode = "dynamic"
)

// Result is what the engine emits when a playthrough ends. Persisting it is
// the caller's responsibility.
type Result struct {
	SessionID   string                `json:"session_id"`
	Mode        Mode                  `json:"mode"`
	Totals      Scores                `json:"totals"`
	Percentages map[ScoreCategory]int `json:"percentages,omitempty"`
	Phase       Phase                 `json:"phase,omitempty"`
	FinalStep   string                `json:"final_step,omitempty"`
	Transcript  []ConversationTurn    `json:"transcript"`
	CompletedAt time.Time             `json:"completed_at"`

	// Sealed carries the encrypted transcript when the store encrypts results.
	Sealed string `json:"sealed,omitempty"`
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Percentages = maps.Clone(r.Percentages)
	cp.Transcript = CloneTurns(r.Transcript)
	return &cp
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscript_AppendOnly(t *testing.T) {
	tr := NewTranscript()
	tr.Append(ConversationTurn{ID: "1", Speaker: SpeakerActor, Content: "Hi"})
	tr.Append(ConversationTurn{ID: "2", Speaker: SpeakerUser, Content: "Hello"})
	tr.Append(ConversationTurn{ID: "3", Speaker: SpeakerActor, Content: "How are you?"})
	tr.Append(ConversationTurn{ID: "4", Speaker: SpeakerUser, Content: "Fine"})

	turns := tr.Turns()
	turns[0].Content = "mutated"

	lastActor, _ := tr.Last(SpeakerActor)
	assert.Equal(t, "3", lastActor.ID)
	assert.Equal(t, "Hi", tr.Turns()[0].Content, "Turns must return a copy")
	assert.Equal(t, 1, tr.ExchangeCount(), "trailing user turn is not an exchange yet")
	assert.Equal(t, 4, tr.Len())
}

func TestTranscript_Update(t *testing.T) {
	tr := NewTranscript()
	i := tr.Append(ConversationTurn{ID: "u", Speaker: SpeakerUser})
	tr.Update(i, func(turn *ConversationTurn) {
		turn.Analysis = &Analysis{Feedback: "good"}
	})
	tr.Update(42, func(turn *ConversationTurn) { t.Fatal("out of range update must be ignored") })

	last, ok := tr.Last(SpeakerUser)
	assert.True(t, ok)
	assert.Equal(t, "good", last.Analysis.Feedback)
}

func TestTranscript_TurnsDoNotShareMemory(t *testing.T) {
	tr := NewTranscript()
	tr.Append(ConversationTurn{
		ID:                 "a",
		Speaker:            SpeakerActor,
		SuggestedResponses: []SuggestedResponse{{ID: "1", Content: "Sure"}},
	})
	tr.Append(ConversationTurn{
		ID:       "u",
		Speaker:  SpeakerUser,
		Scores:   &Scores{Clarity: 7},
		Analysis: &Analysis{Feedback: "Clear", Strengths: []string{"direct"}, Improvements: []string{"warmer"}},
	})

	turns := tr.Turns()
	turns[0].SuggestedResponses[0].Content = "changed"
	turns[1].Scores.Clarity = 999
	turns[1].Analysis.Feedback = "changed"
	turns[1].Analysis.Strengths[0] = "changed"
	turns[1].Analysis.Improvements[0] = "changed"

	last, _ := tr.Last(SpeakerUser)
	last.Scores.Clarity = 500

	again := tr.Turns()
	assert.Equal(t, "Sure", again[0].SuggestedResponses[0].Content)
	assert.Equal(t, 7, again[1].Scores.Clarity)
	assert.Equal(t, "Clear", again[1].Analysis.Feedback)
	assert.Equal(t, []string{"direct"}, again[1].Analysis.Strengths)
	assert.Equal(t, []string{"warmer"}, again[1].Analysis.Improvements)
}

func TestResult_Clone(t *testing.T) {
	var nilResult *Result
	assert.Nil(t, nilResult.Clone())

	r := &Result{
		Percentages: map[ScoreCategory]int{Empathy: 50},
		Transcript:  []ConversationTurn{{ID: "u", Scores: &Scores{Empathy: 3}}},
	}
	cp := r.Clone()
	cp.Percentages[Empathy] = 100
	cp.Transcript[0].Scores.Empathy = 9

	assert.Equal(t, 50, r.Percentages[Empathy])
	assert.Equal(t, 3, r.Transcript[0].Scores.Empathy)
}

package domain

// Transcript is an ordered, append-only log of conversation turns.
// It is not safe for concurrent use; owners serialize access.
type Transcript struct {
	turns []ConversationTurn
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds a turn and returns its index.
func (t *Transcript) Append(turn ConversationTurn) int {
	t.turns = append(t.turns, turn)
	return len(t.turns) - 1
}

// Update replaces the turn at index i. Used only to attach analysis results
// to a user turn that was already appended.
func (t *Transcript) Update(i int, fn func(*ConversationTurn)) {
	if i < 0 || i >= len(t.turns) {
		return
	}
	fn(&t.turns[i])
}

// Turns returns a deep copy of all turns.
func (t *Transcript) Turns() []ConversationTurn {
	return CloneTurns(t.turns)
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Last returns the most recent turn by the given speaker.
func (t *Transcript) Last(speaker Speaker) (ConversationTurn, bool) {
	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].Speaker == speaker {
			return t.turns[i].Clone(), true
		}
	}
	return ConversationTurn{}, false
}

// ExchangeCount counts user turns that were answered by an actor turn.
func (t *Transcript) ExchangeCount() int {
	n := 0
	for i := 0; i+1 < len(t.turns); i++ {
		if t.turns[i].Speaker == SpeakerUser && t.turns[i+1].Speaker == SpeakerActor {
			n++
		}
	}
	return n
}

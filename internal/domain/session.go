package domain

import "time"

// Session is one conversation's complete, ordered turn history. Turns are
// append-only: no turn is ever edited or removed, only the whole session
// may be cleared.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Turns     []Turn    `json:"turns,omitempty"`
}

// NextSeq returns the sequence number the next appended turn receives.
// Sequence numbers are dense and 1-based.
func (s *Session) NextSeq() int {
	return len(s.Turns) + 1
}

// LastTurn returns the most recent turn, or a zero Turn when the session
// is empty.
func (s *Session) LastTurn() (Turn, bool) {
	if len(s.Turns) == 0 {
		return Turn{}, false
	}
	return s.Turns[len(s.Turns)-1], true
}

// PendingToolCall reports whether the last turn is a tool_call still
// waiting for its tool_result.
func (s *Session) PendingToolCall() bool {
	last, ok := s.LastTurn()
	return ok && last.Kind == TurnToolCall
}

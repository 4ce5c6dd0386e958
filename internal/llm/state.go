package llm

// State is the bounded rolling window of recent conversation turns that
// accompanies every LLM request. It keeps at most max messages, dropping the
// oldest first.
type State struct {
	max      int
	messages []Message
}

// NewState creates a window that keeps the most recent max messages.
func NewState(max int) *State {
	if max <= 0 {
		max = 10
	}
	return &State{max: max}
}

// Add appends a turn and trims the window to its bound.
func (s *State) Add(role, content string) {
	s.messages = append(s.messages, Message{Role: role, Content: content})
	if len(s.messages) > s.max {
		s.messages = s.messages[len(s.messages)-s.max:]
	}
}

// Recent returns a copy of the window, oldest first.
func (s *State) Recent() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of buffered messages.
func (s *State) Len() int {
	return len(s.messages)
}

// Reset clears the window for a new session.
func (s *State) Reset() {
	s.messages = nil
}

package engine

import (
	"quill/internal/llm"
	"quill/internal/phase"
)

// Session is the in-process state of one content-writing conversation. The
// engine owns it exclusively and passes it to every operation; nothing here
// is global, so concurrent sessions in separate processes never share state.
// Durable truth lives in the memory store; Phase is only the engine's cached
// view of it.
type Session struct {
	ID          string
	ContentType string
	Topic       string

	// Phase mirrors the store's current phase. The engine re-reads the store
	// after every write rather than trusting this cache.
	Phase phase.Phase

	// LastQuestionID links the next user input back to the question it
	// answers. Empty until the first question has been issued.
	LastQuestionID string

	// Window is the rolling conversation context for LLM calls.
	Window *llm.State

	policy      Policy
	questionIdx map[phase.Phase]int
	phaseInputs map[phase.Phase][]string
}

func newSession(id, contentType, topic string, p phase.Phase, policy Policy, contextWindow int) *Session {
	return &Session{
		ID:          id,
		ContentType: contentType,
		Topic:       topic,
		Phase:       p,
		Window:      llm.NewState(contextWindow),
		policy:      policy,
		questionIdx: make(map[phase.Phase]int),
		phaseInputs: make(map[phase.Phase][]string),
	}
}

// InputCount returns how many content answers the current phase has gathered.
func (s *Session) InputCount() int {
	return len(s.phaseInputs[s.Phase])
}

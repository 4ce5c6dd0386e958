package llm

import (
	"context"
	"sync"
)

// Scripted is a Client that replays canned responses in order. It backs the
// engine tests and local debugging without touching the network. Once the
// script is exhausted the last response repeats. A non-nil Err makes every
// call fail instead.
type Scripted struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Calls     int
	next      int
}

func (s *Scripted) Generate(_ context.Context, _ []Message, _ string, _ int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls++
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Responses) == 0 {
		return "", ErrMalformedResponse
	}
	resp := s.Responses[s.next]
	if s.next < len(s.Responses)-1 {
		s.next++
	}
	return resp, nil
}

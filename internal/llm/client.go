// Package llm wraps the remote text-generation API behind a small Client
// interface. Everything above this package treats LLM failure as an expected
// condition: callers always have a deterministic fallback.
package llm

import (
	"context"
	"errors"
)

// Message is one turn of conversation context sent to the model.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Client generates text from a bounded conversation window and a system
// prompt. Implementations return an error on any transport, auth or
// rate-limit problem; they never retry.
type Client interface {
	Generate(ctx context.Context, messages []Message, system string, maxTokens int) (string, error)
}

var (
	// ErrDisabled is returned when LLM support is switched off by configuration.
	ErrDisabled = errors.New("llm support disabled")

	// ErrMalformedResponse is returned when the model's output cannot be used.
	ErrMalformedResponse = errors.New("malformed llm response")
)

// Disabled is a Client that always reports LLM support as switched off.
type Disabled struct{}

func (Disabled) Generate(context.Context, []Message, string, int) (string, error) {
	return "", ErrDisabled
}

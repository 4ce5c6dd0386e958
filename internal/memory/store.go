// Package memory persists the content-writing session in a Neo4j graph.
// The graph is the single source of truth for durable history and for the
// current phase; in-process state is only ever a cache over it.
package memory

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable marks any failure to reach the graph store or to
// complete a write. Callers decide whether the failure is fatal; most of the
// interaction flow treats it as best-effort.
var ErrStoreUnavailable = errors.New("memory store unavailable")

// ErrSessionNotFound is returned by LoadSession for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// Point is one developed point inside a content section, with optional
// supporting evidence.
type Point struct {
	Text     string
	Evidence []string
}

// Section is a titled slice of the content structure, in creation order.
type Section struct {
	Title  string
	Points []Point
}

// SessionInfo summarizes a stored content session.
type SessionInfo struct {
	ID           string
	Topic        string
	ContentType  string
	Created      time.Time
	CurrentPhase string

	// Populated by LoadSession only.
	LastQuestionID   string
	LastQuestionText string
}

// Store is the durable memory consumed by the phase controller and the
// interaction engine. Phase names cross this boundary in their external
// string form ("Context Gathering", ...).
type Store interface {
	// StartSession creates the Content node with its initial phase and
	// scopes all later calls to it. Returns the new session id.
	StartSession(ctx context.Context, contentType, topic string) (string, error)

	// LoadSession re-scopes the store to an existing session.
	LoadSession(ctx context.Context, sessionID string) (*SessionInfo, error)

	// ListSessions returns all stored sessions, newest first.
	ListSessions(ctx context.Context) ([]SessionInfo, error)

	// AddUserInput records a raw user submission, optionally linked to the
	// question it answers. Returns the new input id.
	AddUserInput(ctx context.Context, text, questionID string) (string, error)

	// AddQuestion records a question the agent asked in the current phase.
	AddQuestion(ctx context.Context, text, phaseName string) (string, error)

	// AddSection adds a titled section to the content structure.
	AddSection(ctx context.Context, title string) (string, error)

	// ContentStructure returns the sections with their points, in creation order.
	ContentStructure(ctx context.Context) ([]Section, error)

	// CurrentPhase returns the external name of the session's current phase.
	CurrentPhase(ctx context.Context) (string, error)

	// TransitionPhase atomically ends the current phase and starts the named
	// one. No partial transition is ever visible.
	TransitionPhase(ctx context.Context, phaseName string) error

	// Close releases the store connection.
	Close(ctx context.Context) error
}

// Package phase models the fixed four-stage content-writing workflow:
// Context Gathering -> Structure Development -> Content Development -> Refinement.
// Phases only move forward through that order; Refinement is terminal.
package phase

import (
	"errors"
	"fmt"
)

// Phase is one stage of the content-writing workflow.
type Phase int

const (
	ContextGathering Phase = iota
	StructureDevelopment
	ContentDevelopment
	Refinement
)

// ErrUnknownPhase is returned when a stored phase name does not match
// any known phase.
var ErrUnknownPhase = errors.New("unknown phase")

// names holds the external string form of each phase. These strings are
// what the memory store persists, so they must never change.
var names = [...]string{
	ContextGathering:     "Context Gathering",
	StructureDevelopment: "Structure Development",
	ContentDevelopment:   "Content Development",
	Refinement:           "Refinement",
}

var byName = map[string]Phase{
	"Context Gathering":     ContextGathering,
	"Structure Development": StructureDevelopment,
	"Content Development":   ContentDevelopment,
	"Refinement":            Refinement,
}

// String returns the external representation exchanged with the store.
func (p Phase) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return names[p]
}

// Valid reports whether p is one of the four defined phases.
func (p Phase) Valid() bool {
	return p >= ContextGathering && p <= Refinement
}

// Terminal reports whether p is the final phase.
func (p Phase) Terminal() bool {
	return p == Refinement
}

// Next returns the successor phase. ok is false at the terminal phase.
func (p Phase) Next() (next Phase, ok bool) {
	if !p.Valid() || p.Terminal() {
		return p, false
	}
	return p + 1, true
}

// Ordinal returns the 1-based position of p, for progress reporting.
func (p Phase) Ordinal() int {
	return int(p) + 1
}

// Count is the number of phases in the workflow.
const Count = len(names)

// Parse maps an external phase name back to its Phase.
func Parse(name string) (Phase, error) {
	p, ok := byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPhase, name)
	}
	return p, nil
}

// All returns the phases in workflow order.
func All() []Phase {
	return []Phase{ContextGathering, StructureDevelopment, ContentDevelopment, Refinement}
}

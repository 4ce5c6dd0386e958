// Package engine is the interaction core: it receives raw user text, records
// it, intercepts commands, decides phase transitions and produces the next
// question. Every failure path ends in a plain-language reply or a safe
// default question; the user never sees a transport error.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quill/internal/memory"
	"quill/internal/phase"
)

// Engine processes one user turn at a time against one session. It is
// synchronous by design; there is never an overlapping in-flight turn for a
// session.
type Engine struct {
	store      memory.Store
	controller *phase.Controller
	log        *zap.Logger
}

func New(store memory.Store, controller *phase.Controller, log *zap.Logger) *Engine {
	return &Engine{store: store, controller: controller, log: log}
}

// StartSession creates a new content session and returns the welcome message
// ending in the first question. Store failure here is fatal: without a
// session node there is no phase to run the workflow against.
func (e *Engine) StartSession(ctx context.Context, contentType, topic string, policy Policy, contextWindow int) (*Session, string, error) {
	id, err := e.store.StartSession(ctx, contentType, topic)
	if err != nil {
		return nil, "", fmt.Errorf("start session: %w", err)
	}

	s := newSession(id, contentType, topic, phase.ContextGathering, policy, contextWindow)
	welcome := fmt.Sprintf(
		"Welcome to your %s creation session about %q!\n\n"+
			"We'll start by gathering some context about what you want to write. "+
			"I'll ask you questions to help organize your thoughts, and then we'll "+
			"structure and develop your content together.\n\n",
		contentType, topic)
	return s, welcome + e.askNext(ctx, s), nil
}

// ResumeSession rebuilds the in-process session state for a stored session.
func (e *Engine) ResumeSession(ctx context.Context, info *memory.SessionInfo, policy Policy, contextWindow int) (*Session, string, error) {
	p, err := phase.Parse(info.CurrentPhase)
	if err != nil {
		return nil, "", err
	}

	s := newSession(info.ID, info.ContentType, info.Topic, p, policy, contextWindow)
	s.LastQuestionID = info.LastQuestionID

	greeting := fmt.Sprintf("Welcome back to your %s session about %q. Current phase: %s.\n\n",
		info.ContentType, info.Topic, p)
	if info.LastQuestionText != "" {
		s.Window.Add("assistant", info.LastQuestionText)
		return s, greeting + "Where we left off: " + info.LastQuestionText, nil
	}
	return s, greeting + e.askNext(ctx, s), nil
}

// ProcessInput runs one user turn through the fixed pipeline: record the
// input, intercept commands, check transition readiness, then produce the
// next question. It always returns usable text.
func (e *Engine) ProcessInput(ctx context.Context, s *Session, text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "Take your time. When you're ready, share a thought or type /help for commands."
	}

	log := e.log.With(
		zap.String("session_id", s.ID),
		zap.String("turn_id", uuid.NewString()))

	// Record first. A failed write is logged and the turn continues; the
	// user always gets a reply.
	if _, err := e.store.AddUserInput(ctx, trimmed, s.LastQuestionID); err != nil {
		log.Warn("failed to record user input", zap.Error(err))
	}

	if strings.HasPrefix(trimmed, "/") {
		return e.handleCommand(ctx, s, strings.ToLower(trimmed))
	}

	s.Window.Add("user", trimmed)
	s.phaseInputs[s.Phase] = append(s.phaseInputs[s.Phase], trimmed)

	if s.policy.ShouldTransition(ctx, s, trimmed) {
		if reply, ok := e.advance(ctx, s, log); ok {
			return reply
		}
	}
	return e.askNext(ctx, s)
}

// handleCommand dispatches a case-folded /command. Commands never count as
// phase content; the raw input record from the caller is their only trace.
func (e *Engine) handleCommand(ctx context.Context, s *Session, lowered string) string {
	cmd := strings.Fields(lowered)[0]

	switch cmd {
	case "/help":
		return "Available commands:\n" +
			"/help - Show this help message\n" +
			"/status - Show the current phase and progress\n" +
			"/export - Export the content\n" +
			"/next - Move to the next phase\n\n" +
			"Type 'exit' to end the session."

	case "/status":
		current, err := e.controller.Current(ctx)
		if err != nil {
			e.log.Error("status: cannot read phase", zap.Error(err))
			return "The current phase can't be determined right now. Please try again in a moment."
		}
		s.Phase = current
		return fmt.Sprintf("Current phase: %s (phase %d of %d)\nAnswers recorded this phase: %d",
			current, current.Ordinal(), phase.Count, s.InputCount())

	case "/export":
		return fmt.Sprintf("Content export from chat is coming soon. "+
			"In the meantime, 'quill export %s' renders what's stored so far.", s.ID)

	case "/next":
		advanced, err := e.controller.Advance(ctx)
		if err != nil {
			e.log.Error("forced transition failed", zap.Error(err))
			return "Unable to advance right now; the memory store is unreachable. Your progress is safe."
		}
		if !advanced {
			return "Cannot transition to the next phase. You are already in the final phase."
		}
		e.syncPhase(ctx, s)
		return fmt.Sprintf("Moving to the %s phase.\n\n%s", s.Phase, e.askNext(ctx, s))

	default:
		return fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)
	}
}

// advance executes a policy-approved transition. Failures are logged and
// reported as not-advanced so the turn falls through to a normal question.
func (e *Engine) advance(ctx context.Context, s *Session, log *zap.Logger) (string, bool) {
	from := s.Phase

	advanced, err := e.controller.Advance(ctx)
	if err != nil {
		log.Warn("phase transition failed, staying in phase", zap.Error(err))
		return "", false
	}
	if !advanced {
		return "", false
	}

	e.syncPhase(ctx, s)
	if s.Phase == phase.ContentDevelopment {
		e.persistSections(ctx, s, log)
	}

	notice := fmt.Sprintf(
		"Great! We've gathered enough information for the %s phase. Let's move on to the next phase.",
		strings.ToLower(from.String()))
	return notice + "\n\n" + e.askNext(ctx, s), true
}

// syncPhase refreshes the session's cached phase from the store, which stays
// authoritative after every write. On a failed read the cache simply keeps
// its previous successor value.
func (e *Engine) syncPhase(ctx context.Context, s *Session) {
	if current, err := e.controller.Current(ctx); err == nil {
		s.Phase = current
		return
	}
	if next, ok := s.Phase.Next(); ok {
		s.Phase = next
	}
}

// persistSections turns the outline lines gathered during Structure
// Development into Section nodes when content development begins. Best
// effort: a failed write loses nothing the conversation can't rebuild.
func (e *Engine) persistSections(ctx context.Context, s *Session, log *zap.Logger) {
	titles := outlineTitles(s.phaseInputs[phase.StructureDevelopment])
	for _, title := range titles {
		if _, err := e.store.AddSection(ctx, title); err != nil {
			log.Warn("failed to persist section", zap.String("title", title), zap.Error(err))
			return
		}
	}
	if len(titles) > 0 {
		log.Info("persisted outline sections", zap.Int("count", len(titles)))
	}
}

// outlineTitles extracts bullet and numbered list entries from the phase's
// answers, in order, without duplicates.
func outlineTitles(inputs []string) []string {
	var titles []string
	seen := make(map[string]bool)
	for _, input := range inputs {
		for _, line := range strings.Split(input, "\n") {
			title, ok := listEntry(strings.TrimSpace(line))
			if !ok || seen[strings.ToLower(title)] {
				continue
			}
			seen[strings.ToLower(title)] = true
			titles = append(titles, title)
		}
	}
	return titles
}

// listEntry strips a leading "-", "*" or "1." style marker.
func listEntry(line string) (string, bool) {
	if rest, ok := strings.CutPrefix(line, "- "); ok {
		rest = strings.TrimSpace(rest)
		return rest, rest != ""
	}
	if rest, ok := strings.CutPrefix(line, "* "); ok {
		rest = strings.TrimSpace(rest)
		return rest, rest != ""
	}

	digits := 0
	for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}
	if digits == 0 || digits >= len(line) {
		return "", false
	}
	if line[digits] != '.' && line[digits] != ')' {
		return "", false
	}
	rest := strings.TrimSpace(line[digits+1:])
	return rest, rest != ""
}

// askNext produces and records the next question, remembering its id so the
// following input can reference it. A failed write leaves the link empty,
// which the store accepts.
func (e *Engine) askNext(ctx context.Context, s *Session) string {
	question := s.policy.NextQuestion(ctx, s)

	id, err := e.store.AddQuestion(ctx, question, s.Phase.String())
	if err != nil {
		e.log.Warn("failed to record question", zap.Error(err))
		id = ""
	}
	s.LastQuestionID = id
	s.Window.Add("assistant", question)
	return question
}

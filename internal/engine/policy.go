package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"quill/internal/llm"
	"quill/internal/phase"
	"quill/internal/prompt"
)

// Policy decides transition readiness and produces the next question. Two
// implementations exist: a deterministic heuristic and an LLM-backed one that
// degrades to the heuristic. The policy is chosen once, at session
// construction.
type Policy interface {
	// ShouldTransition judges whether the current phase has gathered enough
	// information to advance. It must never error: when in doubt, stay.
	ShouldTransition(ctx context.Context, s *Session, input string) bool

	// NextQuestion produces the next question for the session's phase. It
	// must always return usable text.
	NextQuestion(ctx context.Context, s *Session) string
}

// transitionKeywords are per-phase signals that the user wants to move on.
var transitionKeywords = map[phase.Phase][]string{
	phase.ContextGathering:     {"next", "structure", "outline", "move on", "enough context"},
	phase.StructureDevelopment: {"next", "content", "details", "expand", "flesh out", "move on"},
	phase.ContentDevelopment:   {"next", "refine", "review", "finalize", "polish", "revise"},
}

// cannedQuestions are the deterministic per-phase interview scripts.
var cannedQuestions = map[phase.Phase][]string{
	phase.ContextGathering: {
		"What topic would you like to write about?",
		"Who is your target audience for this content?",
		"What are the key points you want to address?",
		"What is the purpose of this content? (Educate, entertain, persuade, etc.)",
		"Are there any specific examples or stories you want to include?",
	},
	phase.StructureDevelopment: {
		"Based on our discussion, what main sections do you think this piece needs?",
		"Would you like to adjust the order of these sections?",
		"Do you have a preference for how to introduce this topic?",
		"How would you like to conclude this piece?",
		"Should we include any additional sections?",
	},
	phase.ContentDevelopment: {
		"Let's expand on the first section. What details should we include?",
		"Can you provide more information or examples for this point?",
		"Is there any research or data that would strengthen this argument?",
		"How would you explain this concept to someone unfamiliar with the topic?",
		"Should we include any personal experiences related to this point?",
	},
	phase.Refinement: {
		"Does the flow of the content feel natural to you?",
		"Are there any sections that need more development?",
		"Is the tone consistent throughout?",
		"Does the introduction effectively hook the reader?",
		"Does the conclusion provide a satisfying ending?",
	},
}

// exhaustedPrompt keeps the conversation going once a phase's script runs out.
const exhaustedPrompt = "Is there anything else you'd like to add before we move on?"

// Heuristic is the deterministic policy: keyword matching plus accumulated
// answer-length scoring, no external calls. Thresholds are configuration, not
// constants, because the right values depend on the content type.
type Heuristic struct {
	// MinInputs answers and MinTotalChars accumulated characters in the
	// current phase count as "enough" even without an explicit keyword.
	MinInputs     int
	MinTotalChars int
}

func (h Heuristic) ShouldTransition(_ context.Context, s *Session, input string) bool {
	if s.Phase.Terminal() {
		return false
	}

	lower := strings.ToLower(input)
	for _, keyword := range transitionKeywords[s.Phase] {
		if strings.Contains(lower, keyword) {
			return true
		}
	}

	if h.MinInputs <= 0 {
		return false
	}
	inputs := s.phaseInputs[s.Phase]
	if len(inputs) < h.MinInputs {
		return false
	}
	total := 0
	for _, text := range inputs {
		total += len(text)
	}
	return total >= h.MinTotalChars
}

func (h Heuristic) NextQuestion(_ context.Context, s *Session) string {
	return nextCannedQuestion(s)
}

// nextCannedQuestion advances the session's per-phase pointer through the
// scripted questions, repeating the generic prompt once the list is spent.
func nextCannedQuestion(s *Session) string {
	script := cannedQuestions[s.Phase]
	idx := s.questionIdx[s.Phase]
	if idx >= len(script) {
		return exhaustedPrompt
	}
	s.questionIdx[s.Phase] = idx + 1
	return script[idx]
}

// LLMPolicy delegates both judgments to the model and falls back to the
// heuristic behavior on any failure. A failed readiness call always means
// "not ready" so a flaky API can never skip a phase.
//
// One analysis call covers both the readiness judgment and the suggested
// next question, so a turn never makes more than one outbound call.
// ShouldTransition stashes the result; the NextQuestion that follows it in
// the same turn consumes the stash instead of calling out again. The stash
// is single-turn state and the engine is single-goroutine, so no locking.
type LLMPolicy struct {
	client    llm.Client
	prompts   *prompt.Manager
	maxTokens int
	fallback  Heuristic
	log       *zap.Logger

	pending *pendingAnalysis
}

// pendingAnalysis carries the suggested question from a readiness check to
// the question ask in the same turn. The phase guards against serving a
// stale suggestion after a transition.
type pendingAnalysis struct {
	phase    phase.Phase
	question string
}

func NewLLMPolicy(client llm.Client, prompts *prompt.Manager, maxTokens int, fallback Heuristic, log *zap.Logger) *LLMPolicy {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &LLMPolicy{
		client:    client,
		prompts:   prompts,
		maxTokens: maxTokens,
		fallback:  fallback,
		log:       log,
	}
}

func (p *LLMPolicy) ShouldTransition(ctx context.Context, s *Session, input string) bool {
	if s.Phase.Terminal() {
		return false
	}

	// Mark that this turn spent its call, even when it fails; the question
	// ask that follows must not make a second one.
	p.pending = &pendingAnalysis{phase: s.Phase}

	analysis, err := llm.AnalyzeInput(ctx, p.client, s.Window.Recent(),
		p.prompts.PhasePrompt(s.Phase), s.Phase.String(), p.maxTokens)
	if err != nil {
		p.log.Warn("llm readiness check failed, staying in phase",
			zap.String("phase", s.Phase.String()),
			zap.Error(err))
		return false
	}
	p.pending.question = strings.TrimSpace(analysis.NextQuestion)
	return analysis.ShouldTransition
}

func (p *LLMPolicy) NextQuestion(ctx context.Context, s *Session) string {
	if stash := p.pending; stash != nil {
		p.pending = nil
		if stash.question != "" && stash.phase == s.Phase {
			return stash.question
		}
		// Analysis failed, or the session moved to a new phase the
		// suggestion wasn't written for. No second call this turn.
		return p.fallback.NextQuestion(ctx, s)
	}

	question, err := llm.GenerateQuestion(ctx, p.client, s.Window.Recent(),
		p.prompts.PhasePrompt(s.Phase), s.Phase.String(), p.maxTokens)
	if err != nil {
		p.log.Warn("llm question generation failed, using canned question",
			zap.String("phase", s.Phase.String()),
			zap.Error(err))
		return p.fallback.NextQuestion(ctx, s)
	}
	return question
}
